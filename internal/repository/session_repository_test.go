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

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryListByExam(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "exam_id", "session_date", "hours", "completed", "created_at", "updated_at"}).
		AddRow("sess-1", "user-1", "exam-1", now.AddDate(0, 0, 1), 1.0, false, now, now)
	mock.ExpectQuery("SELECT (.+) FROM study_sessions WHERE user_id = \\$1 AND exam_id = \\$2 ORDER BY session_date ASC").
		WithArgs("user-1", "exam-1").
		WillReturnRows(rows)

	sessions, err := repo.List(context.Background(), "user-1", models.SessionFilter{ExamID: "exam-1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "exam-1", sessions[0].ExamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySetCompleted(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE study_sessions SET completed = TRUE").
		WithArgs("sess-1", "user-1", 1.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetCompleted(context.Background(), "user-1", "sess-1", 1.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCompletedHoursByExam(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"exam_id", "total"}).
		AddRow("exam-1", 4.0).
		AddRow("exam-2", 1.5)
	mock.ExpectQuery("SELECT exam_id, COALESCE\\(SUM\\(hours\\), 0\\)").
		WithArgs("user-1").
		WillReturnRows(rows)

	totals, err := repo.CompletedHoursByExam(context.Background(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, totals["exam-1"], 1e-9)
	assert.InDelta(t, 1.5, totals["exam-2"], 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryReplaceUpcoming(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	cutoff := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM study_sessions WHERE user_id = $1 AND completed = FALSE AND session_date >= $2")).
		WithArgs("user-1", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO study_sessions").
		WithArgs(sqlmock.AnyArg(), "user-1", "exam-1", sqlmock.AnyArg(), 1.0, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO study_sessions").
		WithArgs(sqlmock.AnyArg(), "user-1", "exam-1", sqlmock.AnyArg(), 1.0, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sessions := []models.StudySession{
		{ExamID: "exam-1", Date: cutoff.AddDate(0, 0, 1), Hours: 1},
		{ExamID: "exam-1", Date: cutoff.AddDate(0, 0, 2), Hours: 1},
	}
	created, removed, err := repo.ReplaceUpcoming(context.Background(), "user-1", cutoff, sessions)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryReplaceUpcomingRollsBack(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	cutoff := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM study_sessions").
		WithArgs("user-1", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO study_sessions").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err := repo.ReplaceUpcoming(context.Background(), "user-1", cutoff, []models.StudySession{
		{ExamID: "exam-1", Date: cutoff, Hours: 1},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
