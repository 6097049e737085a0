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

// PlanJobRepository handles persistence for plan export jobs.
type PlanJobRepository struct {
	db *sqlx.DB
}

// NewPlanJobRepository creates a new repository instance.
func NewPlanJobRepository(db *sqlx.DB) *PlanJobRepository {
	return &PlanJobRepository{db: db}
}

const planJobColumns = "id, user_id, params, status, result_url, error_message, created_at, finished_at"

// Create persists a queued export job.
func (r *PlanJobRepository) Create(ctx context.Context, job *models.PlanExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	const query = `INSERT INTO plan_export_jobs (id, user_id, params, status, created_at)
VALUES (:id, :user_id, :params, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID returns a job owned by the user.
func (r *PlanJobRepository) FindByID(ctx context.Context, userID, id string) (*models.PlanExportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM plan_export_jobs WHERE id = $1 AND user_id = $2 LIMIT 1", planJobColumns)
	var job models.PlanExportJob
	if err := r.db.GetContext(ctx, &job, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find export job: %w", err)
	}
	return &job, nil
}

// List returns a user's export jobs, newest first.
func (r *PlanJobRepository) List(ctx context.Context, userID string, limit int) ([]models.PlanExportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM plan_export_jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d", planJobColumns, limit)
	var jobs []models.PlanExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, userID); err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing transitions a job into the processing state.
func (r *PlanJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE plan_export_jobs SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusProcessing); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}
	return nil
}

// MarkFinished records the result location and completion time.
func (r *PlanJobRepository) MarkFinished(ctx context.Context, id, resultURL string) error {
	const query = `UPDATE plan_export_jobs SET status = $2, result_url = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFinished, resultURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason and completion time.
func (r *PlanJobRepository) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE plan_export_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFailed, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes finished jobs past the retention window.
func (r *PlanJobRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plan_export_jobs WHERE finished_at IS NOT NULL AND finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old export jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
