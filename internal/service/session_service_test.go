package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/models"
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
)

type fakeSessionRepo struct {
	sessions       map[string]models.StudySession
	completedID    string
	completedHours float64
}

func (f *fakeSessionRepo) List(ctx context.Context, userID string, filter models.SessionFilter) ([]models.StudySession, error) {
	items := make([]models.StudySession, 0, len(f.sessions))
	for _, s := range f.sessions {
		items = append(items, s)
	}
	return items, nil
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, userID, id string) (*models.StudySession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sess, nil
}

func (f *fakeSessionRepo) SetCompleted(ctx context.Context, userID, id string, hours float64) error {
	f.completedID = id
	f.completedHours = hours
	return nil
}

type fakeExamTitles struct{}

func (f *fakeExamTitles) ListUpcoming(ctx context.Context, userID string, from time.Time) ([]models.Exam, error) {
	return []models.Exam{{ID: "exam-1", Title: "Algebra"}}, nil
}

type fakeBlockedRepo struct {
	days    []models.BlockedDay
	created *models.BlockedDay
	deleted []string
}

func (f *fakeBlockedRepo) List(ctx context.Context, userID string, from time.Time) ([]models.BlockedDay, error) {
	return f.days, nil
}

func (f *fakeBlockedRepo) Create(ctx context.Context, day *models.BlockedDay) error {
	f.created = day
	return nil
}

func (f *fakeBlockedRepo) Delete(ctx context.Context, userID, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestSessionService(repo *fakeSessionRepo, blocked *fakeBlockedRepo, inv *fakeInvalidator) *SessionService {
	svc := NewSessionService(repo, &fakeExamTitles{}, blocked, inv, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestSessionCompleteRecordsActualHours(t *testing.T) {
	repo := &fakeSessionRepo{sessions: map[string]models.StudySession{
		"sess-1": {ID: "sess-1", UserID: "user-1", ExamID: "exam-1", Hours: 1, Date: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	}}
	inv := &fakeInvalidator{}
	svc := newTestSessionService(repo, &fakeBlockedRepo{}, inv)

	actual := 1.5
	resp, err := svc.Complete(context.Background(), "user-1", "sess-1", dto.CompleteSessionRequest{ActualHours: &actual})

	require.NoError(t, err)
	assert.Equal(t, "sess-1", repo.completedID)
	assert.Equal(t, 1.5, repo.completedHours)
	assert.True(t, resp.Completed)
	assert.Equal(t, "Algebra", resp.ExamTitle)
	assert.Equal(t, 1, inv.calls)
}

func TestSessionCompleteAlreadyCompleted(t *testing.T) {
	repo := &fakeSessionRepo{sessions: map[string]models.StudySession{
		"sess-1": {ID: "sess-1", UserID: "user-1", ExamID: "exam-1", Hours: 1, Completed: true},
	}}
	svc := newTestSessionService(repo, &fakeBlockedRepo{}, &fakeInvalidator{})

	_, err := svc.Complete(context.Background(), "user-1", "sess-1", dto.CompleteSessionRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.completedID)
}

func TestCreateBlockedDayRejectsPast(t *testing.T) {
	blocked := &fakeBlockedRepo{}
	svc := newTestSessionService(&fakeSessionRepo{sessions: map[string]models.StudySession{}}, blocked, &fakeInvalidator{})

	_, err := svc.CreateBlockedDay(context.Background(), "user-1", dto.CreateBlockedDayRequest{Date: "2026-03-01"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, blocked.created)
}

func TestCreateBlockedDayInvalidatesPlan(t *testing.T) {
	blocked := &fakeBlockedRepo{}
	inv := &fakeInvalidator{}
	svc := newTestSessionService(&fakeSessionRepo{sessions: map[string]models.StudySession{}}, blocked, inv)

	day, err := svc.CreateBlockedDay(context.Background(), "user-1", dto.CreateBlockedDayRequest{Date: "2026-03-08", Reason: "family visit"})

	require.NoError(t, err)
	require.NotNil(t, blocked.created)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), day.Date)
	assert.Equal(t, 1, inv.calls)
}
