package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cramplan/cramplan-api/internal/models"
)

// ExamRepository handles persistence for exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new repository instance.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = "id, user_id, title, exam_date, difficulty, confidence, estimated_hours, study_on_exam_day, created_at, updated_at"

// List returns a user's exams matching filters with pagination metadata.
func (r *ExamRepository) List(ctx context.Context, userID string, filter models.ExamFilter) ([]models.Exam, int, error) {
	base := "FROM exams WHERE user_id = $1"
	args := []interface{}{userID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(title) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.From != nil {
		base += fmt.Sprintf(" AND exam_date >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		base += fmt.Sprintf(" AND exam_date <= $%d", len(args)+1)
		args = append(args, *filter.To)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"exam_date":  true,
		"title":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "exam_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", examColumns, base, sortBy, order, size, offset)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// ListUpcoming returns a user's exams from the given day onwards, soonest first.
func (r *ExamRepository) ListUpcoming(ctx context.Context, userID string, from time.Time) ([]models.Exam, error) {
	query := fmt.Sprintf("SELECT %s FROM exams WHERE user_id = $1 AND exam_date >= $2 ORDER BY exam_date ASC, created_at ASC", examColumns)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, userID, from); err != nil {
		return nil, fmt.Errorf("list upcoming exams: %w", err)
	}
	return exams, nil
}

// FindByID returns an exam owned by the user.
func (r *ExamRepository) FindByID(ctx context.Context, userID, id string) (*models.Exam, error) {
	query := fmt.Sprintf("SELECT %s FROM exams WHERE id = $1 AND user_id = $2 LIMIT 1", examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam by id: %w", err)
	}
	return &exam, nil
}

// Create persists a new exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (id, user_id, title, exam_date, difficulty, confidence, estimated_hours, study_on_exam_day, created_at, updated_at)
VALUES (:id, :user_id, :title, :exam_date, :difficulty, :confidence, :estimated_hours, :study_on_exam_day, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Update modifies an exam.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET title = :title, exam_date = :exam_date, difficulty = :difficulty, confidence = :confidence, estimated_hours = :estimated_hours, study_on_exam_day = :study_on_exam_day, updated_at = :updated_at WHERE id = :id AND user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// Delete removes an exam record.
func (r *ExamRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}
