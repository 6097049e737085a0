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

type fakeExamRepo struct {
	exams   map[string]models.Exam
	created *models.Exam
	updated *models.Exam
	deleted []string
}

func (f *fakeExamRepo) List(ctx context.Context, userID string, filter models.ExamFilter) ([]models.Exam, int, error) {
	items := make([]models.Exam, 0, len(f.exams))
	for _, e := range f.exams {
		items = append(items, e)
	}
	return items, len(items), nil
}

func (f *fakeExamRepo) FindByID(ctx context.Context, userID, id string) (*models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &exam, nil
}

func (f *fakeExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = "exam-created"
	f.created = exam
	return nil
}

func (f *fakeExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	f.updated = exam
	return nil
}

func (f *fakeExamRepo) Delete(ctx context.Context, userID, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeHoursReader struct {
	hours map[string]float64
}

func (f *fakeHoursReader) CompletedHoursByExam(ctx context.Context, userID string) (map[string]float64, error) {
	return f.hours, nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidatePlan(ctx context.Context, userID string) {
	f.calls++
}

func newTestExamService(repo *fakeExamRepo, inv *fakeInvalidator) *ExamService {
	svc := NewExamService(repo, &fakeHoursReader{hours: map[string]float64{}}, inv, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestExamCreateRejectsPastDate(t *testing.T) {
	repo := &fakeExamRepo{exams: map[string]models.Exam{}}
	svc := newTestExamService(repo, &fakeInvalidator{})

	_, err := svc.Create(context.Background(), "user-1", dto.CreateExamRequest{
		Title:          "History",
		ExamDate:       "2026-03-01",
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 10,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestExamCreateEnrichesResponse(t *testing.T) {
	repo := &fakeExamRepo{exams: map[string]models.Exam{}}
	inv := &fakeInvalidator{}
	svc := newTestExamService(repo, inv)

	resp, err := svc.Create(context.Background(), "user-1", dto.CreateExamRequest{
		Title:          "Algebra",
		ExamDate:       "2026-03-12",
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 10,
	})

	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "user-1", repo.created.UserID)
	assert.Equal(t, 10.0, resp.AdjustedHours)
	assert.Equal(t, 10, resp.DaysUntilExam)
	assert.Equal(t, 1, inv.calls)
}

func TestExamUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := &fakeExamRepo{exams: map[string]models.Exam{
		"exam-1": {
			ID:             "exam-1",
			UserID:         "user-1",
			Title:          "Algebra",
			ExamDate:       time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
			Difficulty:     3,
			Confidence:     3,
			EstimatedHours: 10,
		},
	}}
	svc := newTestExamService(repo, &fakeInvalidator{})

	title := "Linear Algebra"
	resp, err := svc.Update(context.Background(), "user-1", "exam-1", dto.UpdateExamRequest{Title: &title})

	require.NoError(t, err)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "Linear Algebra", repo.updated.Title)
	assert.Equal(t, 10.0, repo.updated.EstimatedHours)
	assert.Equal(t, "Linear Algebra", resp.Title)
}

func TestExamDeleteNotFound(t *testing.T) {
	repo := &fakeExamRepo{exams: map[string]models.Exam{}}
	svc := newTestExamService(repo, &fakeInvalidator{})

	err := svc.Delete(context.Background(), "user-1", "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestExamDeleteInvalidatesPlan(t *testing.T) {
	repo := &fakeExamRepo{exams: map[string]models.Exam{
		"exam-1": {ID: "exam-1", UserID: "user-1", Title: "Algebra"},
	}}
	inv := &fakeInvalidator{}
	svc := newTestExamService(repo, inv)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "exam-1"))
	assert.Equal(t, []string{"exam-1"}, repo.deleted)
	assert.Equal(t, 1, inv.calls)
}
