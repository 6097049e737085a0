package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/models"
	"github.com/cramplan/cramplan-api/internal/planner"
	"github.com/cramplan/cramplan-api/pkg/config"
)

type stubExamLister struct {
	exams []models.Exam
}

func (s *stubExamLister) ListUpcoming(_ context.Context, _ string, _ time.Time) ([]models.Exam, error) {
	return s.exams, nil
}

type stubSessionRepo struct {
	sessions  []models.StudySession
	completed map[string]float64
	created   []models.StudySession
	removed   int
}

func (s *stubSessionRepo) List(_ context.Context, _ string, _ models.SessionFilter) ([]models.StudySession, error) {
	return s.sessions, nil
}

func (s *stubSessionRepo) CompletedHoursByExam(_ context.Context, _ string) (map[string]float64, error) {
	return s.completed, nil
}

func (s *stubSessionRepo) ReplaceUpcoming(_ context.Context, _ string, _ time.Time, sessions []models.StudySession) (int, int, error) {
	s.created = sessions
	s.removed = len(s.sessions)
	return len(sessions), s.removed, nil
}

type stubBlockedLister struct {
	days []models.BlockedDay
}

func (s *stubBlockedLister) List(_ context.Context, _ string, _ time.Time) ([]models.BlockedDay, error) {
	return s.days, nil
}

func testDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestPlannerService(exams *stubExamLister, sessions *stubSessionRepo, blocked *stubBlockedLister) *PlannerService {
	svc := NewPlannerService(
		exams,
		sessions,
		blocked,
		nil,
		planner.New(nil),
		config.PlannerConfig{DailyMaxHours: 4, SessionMinutes: 60, ProposalTTL: time.Minute},
		nil,
		nil,
	)
	svc.now = func() time.Time { return testDay("2026-03-02") }
	return svc
}

func TestPlannerServiceGenerateAndApply(t *testing.T) {
	exams := &stubExamLister{exams: []models.Exam{{
		ID:             "exam-1",
		UserID:         "user-1",
		Title:          "Algebra",
		ExamDate:       testDay("2026-03-12"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 10,
	}}}
	sessions := &stubSessionRepo{}
	blocked := &stubBlockedLister{}
	svc := newTestPlannerService(exams, sessions, blocked)

	resp, err := svc.Generate(context.Background(), "user-1", dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	assert.Equal(t, string(planner.ModeSingle), resp.Stats.Mode)
	assert.InDelta(t, 10, resp.Stats.TotalHours, 1e-9)
	assert.Len(t, resp.Days, 10)
	assert.Empty(t, resp.Issues)

	applied, err := svc.Apply(context.Background(), "user-1", dto.ApplyPlanRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, 10, applied.SessionsCreated)
	require.Len(t, sessions.created, 10)
	assert.Equal(t, "exam-1", sessions.created[0].ExamID)

	// Applying consumes the proposal.
	_, err = svc.Apply(context.Background(), "user-1", dto.ApplyPlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
}

func TestPlannerServiceApplyRejectsForeignProposal(t *testing.T) {
	exams := &stubExamLister{exams: []models.Exam{{
		ID:             "exam-1",
		Title:          "Algebra",
		ExamDate:       testDay("2026-03-12"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 4,
	}}}
	svc := newTestPlannerService(exams, &stubSessionRepo{}, &stubBlockedLister{})

	resp, err := svc.Generate(context.Background(), "user-1", dto.GeneratePlanRequest{})
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), "user-2", dto.ApplyPlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
}

func TestPlannerServiceGenerateRespectsBlockedDays(t *testing.T) {
	exams := &stubExamLister{exams: []models.Exam{{
		ID:             "exam-1",
		Title:          "Algebra",
		ExamDate:       testDay("2026-03-12"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 6,
	}}}
	blocked := &stubBlockedLister{days: []models.BlockedDay{
		{ID: "b1", UserID: "user-1", Date: testDay("2026-03-08")},
	}}
	svc := newTestPlannerService(exams, &stubSessionRepo{}, blocked)

	resp, err := svc.Generate(context.Background(), "user-1", dto.GeneratePlanRequest{})
	require.NoError(t, err)
	for _, day := range resp.Days {
		assert.NotEqual(t, "2026-03-08", day.Date)
	}
}

func TestPlannerServiceGenerateFiltersExams(t *testing.T) {
	exams := &stubExamLister{exams: []models.Exam{
		{ID: "exam-1", Title: "Algebra", ExamDate: testDay("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 4},
		{ID: "exam-2", Title: "Physics", ExamDate: testDay("2026-03-14"), Difficulty: 3, Confidence: 3, EstimatedHours: 4},
	}}
	svc := newTestPlannerService(exams, &stubSessionRepo{}, &stubBlockedLister{})

	resp, err := svc.Generate(context.Background(), "user-1", dto.GeneratePlanRequest{ExamIDs: []string{"exam-2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Stats.Exams)
	for _, day := range resp.Days {
		for _, sess := range day.Sessions {
			assert.Equal(t, "exam-2", sess.ExamID)
		}
	}
}

func TestPlannerServiceCurrentGroupsSessions(t *testing.T) {
	exams := &stubExamLister{exams: []models.Exam{
		{ID: "exam-1", Title: "Algebra", ExamDate: testDay("2026-03-12")},
	}}
	sessions := &stubSessionRepo{sessions: []models.StudySession{
		{ID: "s1", ExamID: "exam-1", Date: testDay("2026-03-05"), Hours: 1},
		{ID: "s2", ExamID: "exam-1", Date: testDay("2026-03-05"), Hours: 1},
		{ID: "s3", ExamID: "exam-1", Date: testDay("2026-03-06"), Hours: 1},
	}}
	svc := newTestPlannerService(exams, sessions, &stubBlockedLister{})

	resp, err := svc.Current(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, resp.Days, 2)
	assert.InDelta(t, 2, resp.Days[0].Total, 1e-9)
	assert.Equal(t, "Algebra", resp.Days[0].Sessions[0].Title)
	assert.InDelta(t, 3, resp.Stats.TotalHours, 1e-9)
}
