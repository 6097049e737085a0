package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cramplan/cramplan-api/internal/models"
)

func newExamMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestExamRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("INSERT INTO exams").
		WithArgs(sqlmock.AnyArg(), "user-1", "Linear Algebra", sqlmock.AnyArg(), 4, 2, 12.0, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exam := &models.Exam{
		UserID:         "user-1",
		Title:          "Linear Algebra",
		ExamDate:       time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Difficulty:     4,
		Confidence:     2,
		EstimatedHours: 12,
	}
	require.NoError(t, repo.Create(context.Background(), exam))
	assert.NotEmpty(t, exam.ID)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "exam_date", "difficulty", "confidence", "estimated_hours", "study_on_exam_day", "created_at", "updated_at"}).
		AddRow("exam-1", "user-1", "Linear Algebra", exam.ExamDate, 4, 2, 12.0, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+examColumns+" FROM exams WHERE id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("exam-1", "user-1").
		WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), "user-1", "exam-1")
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "exam_date", "difficulty", "confidence", "estimated_hours", "study_on_exam_day", "created_at", "updated_at"}).
		AddRow("exam-1", "user-1", "Algebra", from.AddDate(0, 0, 10), 3, 3, 10.0, false, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM exams WHERE user_id = \\$1 AND LOWER\\(title\\) LIKE \\$2 AND exam_date >= \\$3 ORDER BY exam_date ASC").
		WithArgs("user-1", "%algebra%", from).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM exams").
		WithArgs("user-1", "%algebra%", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exams, total, err := repo.List(context.Background(), "user-1", models.ExamFilter{Search: "Algebra", From: &from})
	require.NoError(t, err)
	assert.Len(t, exams, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryListUpcoming(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "exam_date", "difficulty", "confidence", "estimated_hours", "study_on_exam_day", "created_at", "updated_at"}).
		AddRow("exam-1", "user-1", "Algebra", today.AddDate(0, 0, 10), 3, 3, 10.0, false, time.Now(), time.Now()).
		AddRow("exam-2", "user-1", "Physics", today.AddDate(0, 0, 12), 3, 3, 8.0, false, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM exams WHERE user_id = \\$1 AND exam_date >= \\$2 ORDER BY exam_date ASC").
		WithArgs("user-1", today).
		WillReturnRows(rows)

	exams, err := repo.ListUpcoming(context.Background(), "user-1", today)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "Algebra", exams[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exams WHERE id = $1 AND user_id = $2")).
		WithArgs("exam-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "user-1", "exam-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
