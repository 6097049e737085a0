package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cramplan/cramplan-api/internal/models"
)

// SessionRepository handles persistence for study sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new repository instance.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "id, user_id, exam_id, session_date, hours, completed, created_at, updated_at"

// List returns a user's sessions matching filters, oldest first.
func (r *SessionRepository) List(ctx context.Context, userID string, filter models.SessionFilter) ([]models.StudySession, error) {
	base := "FROM study_sessions WHERE user_id = $1"
	args := []interface{}{userID}

	if filter.ExamID != "" {
		base += fmt.Sprintf(" AND exam_id = $%d", len(args)+1)
		args = append(args, filter.ExamID)
	}
	if filter.From != nil {
		base += fmt.Sprintf(" AND session_date >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		base += fmt.Sprintf(" AND session_date <= $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	if filter.Completed != nil {
		base += fmt.Sprintf(" AND completed = $%d", len(args)+1)
		args = append(args, *filter.Completed)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY session_date ASC, exam_id ASC", sessionColumns, base)
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session owned by the user.
func (r *SessionRepository) FindByID(ctx context.Context, userID, id string) (*models.StudySession, error) {
	query := fmt.Sprintf("SELECT %s FROM study_sessions WHERE id = $1 AND user_id = $2 LIMIT 1", sessionColumns)
	var session models.StudySession
	if err := r.db.GetContext(ctx, &session, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// SetCompleted marks a session done with the hours actually studied.
func (r *SessionRepository) SetCompleted(ctx context.Context, userID, id string, hours float64) error {
	const query = `UPDATE study_sessions SET completed = TRUE, hours = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID, hours, time.Now().UTC()); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// CompletedHoursByExam sums the delivered hours per exam for a user.
func (r *SessionRepository) CompletedHoursByExam(ctx context.Context, userID string) (map[string]float64, error) {
	const query = `SELECT exam_id, COALESCE(SUM(hours), 0) AS total FROM study_sessions WHERE user_id = $1 AND completed = TRUE GROUP BY exam_id`
	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sum completed hours: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var examID string
		var total float64
		if err := rows.Scan(&examID, &total); err != nil {
			return nil, fmt.Errorf("scan completed hours: %w", err)
		}
		totals[examID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed hours: %w", err)
	}
	return totals, nil
}

// ReplaceUpcoming swaps a user's pending future sessions for a newly applied
// plan in one transaction: incomplete sessions on or after the cutoff day are
// removed, then the new ones are inserted. Completed and past sessions are
// untouched.
func (r *SessionRepository) ReplaceUpcoming(ctx context.Context, userID string, cutoff time.Time, sessions []models.StudySession) (created, removed int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin replace sessions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM study_sessions WHERE user_id = $1 AND completed = FALSE AND session_date >= $2`, userID, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("delete pending sessions: %w", err)
	}
	if n, errRows := res.RowsAffected(); errRows == nil {
		removed = int(n)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO study_sessions (id, user_id, exam_id, session_date, hours, completed, created_at, updated_at)
VALUES (:id, :user_id, :exam_id, :session_date, :hours, :completed, :created_at, :updated_at)`
	for i := range sessions {
		s := &sessions[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.UserID = userID
		s.CreatedAt = now
		s.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insert, s); err != nil {
			return 0, 0, fmt.Errorf("insert session: %w", err)
		}
		created++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit replace sessions: %w", err)
	}
	return created, removed, nil
}
