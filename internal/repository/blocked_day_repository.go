package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cramplan/cramplan-api/internal/models"
)

// BlockedDayRepository handles persistence for blocked days.
type BlockedDayRepository struct {
	db *sqlx.DB
}

// NewBlockedDayRepository creates a new repository instance.
func NewBlockedDayRepository(db *sqlx.DB) *BlockedDayRepository {
	return &BlockedDayRepository{db: db}
}

// List returns a user's blocked days from the given day onwards.
func (r *BlockedDayRepository) List(ctx context.Context, userID string, from time.Time) ([]models.BlockedDay, error) {
	const query = `SELECT id, user_id, blocked_date, reason, created_at FROM blocked_days WHERE user_id = $1 AND blocked_date >= $2 ORDER BY blocked_date ASC`
	var days []models.BlockedDay
	if err := r.db.SelectContext(ctx, &days, query, userID, from); err != nil {
		return nil, fmt.Errorf("list blocked days: %w", err)
	}
	return days, nil
}

// Create persists a blocked day; the same day is only stored once per user.
func (r *BlockedDayRepository) Create(ctx context.Context, day *models.BlockedDay) error {
	if day.ID == "" {
		day.ID = uuid.NewString()
	}
	if day.CreatedAt.IsZero() {
		day.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO blocked_days (id, user_id, blocked_date, reason, created_at)
VALUES (:id, :user_id, :blocked_date, :reason, :created_at)
ON CONFLICT (user_id, blocked_date) DO UPDATE SET reason = EXCLUDED.reason`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("create blocked day: %w", err)
	}
	return nil
}

// Delete removes a blocked day record.
func (r *BlockedDayRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blocked_days WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete blocked day: %w", err)
	}
	return nil
}
