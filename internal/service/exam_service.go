package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/models"
	"github.com/cramplan/cramplan-api/internal/planner"
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, userID string, filter models.ExamFilter) ([]models.Exam, int, error)
	FindByID(ctx context.Context, userID, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, userID, id string) error
}

type examCompletedHoursReader interface {
	CompletedHoursByExam(ctx context.Context, userID string) (map[string]float64, error)
}

type planInvalidator interface {
	InvalidatePlan(ctx context.Context, userID string)
}

// ExamService manages a user's exams.
type ExamService struct {
	repo      examRepository
	sessions  examCompletedHoursReader
	plans     planInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewExamService wires exam dependencies.
func NewExamService(repo examRepository, sessions examCompletedHoursReader, plans planInvalidator, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, sessions: sessions, plans: plans, validator: validate, logger: logger, now: time.Now}
}

// List returns the user's exams with planning figures attached.
func (s *ExamService) List(ctx context.Context, userID string, query dto.ExamQuery) (*dto.ExamListResponse, error) {
	filter := models.ExamFilter{
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.From != "" {
		from, err := dto.ParseDay(query.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := dto.ParseDay(query.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		filter.To = &to
	}

	exams, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	completed, err := s.sessions.CompletedHoursByExam(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		items = append(items, s.enrich(exam, completed))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return &dto.ExamListResponse{
		Items:      items,
		Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: total},
	}, nil
}

// Get returns one exam with planning figures attached.
func (s *ExamService) Get(ctx context.Context, userID, id string) (*dto.ExamResponse, error) {
	exam, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, err
	}
	completed, err := s.sessions.CompletedHoursByExam(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := s.enrich(*exam, completed)
	return &resp, nil
}

// Create registers a new exam.
func (s *ExamService) Create(ctx context.Context, userID string, req dto.CreateExamRequest) (*dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	examDate, err := dto.ParseDay(req.ExamDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam date")
	}
	if examDate.Before(dayOf(s.now().UTC())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam date is in the past")
	}

	exam := &models.Exam{
		UserID:         userID,
		Title:          req.Title,
		ExamDate:       examDate,
		Difficulty:     req.Difficulty,
		Confidence:     req.Confidence,
		EstimatedHours: req.EstimatedHours,
		StudyOnExamDay: req.StudyOnExamDay,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, err
	}
	s.plans.InvalidatePlan(ctx, userID)
	s.logger.Info("exam created", zap.String("userId", userID), zap.String("examId", exam.ID))

	resp := s.enrich(*exam, nil)
	return &resp, nil
}

// Update modifies an exam; nil fields in the request are left unchanged.
func (s *ExamService) Update(ctx context.Context, userID, id string, req dto.UpdateExamRequest) (*dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	exam, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, err
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.ExamDate != nil {
		examDate, err := dto.ParseDay(*req.ExamDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam date")
		}
		exam.ExamDate = examDate
	}
	if req.Difficulty != nil {
		exam.Difficulty = *req.Difficulty
	}
	if req.Confidence != nil {
		exam.Confidence = *req.Confidence
	}
	if req.EstimatedHours != nil {
		exam.EstimatedHours = *req.EstimatedHours
	}
	if req.StudyOnExamDay != nil {
		exam.StudyOnExamDay = *req.StudyOnExamDay
	}

	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, err
	}
	s.plans.InvalidatePlan(ctx, userID)

	completed, err := s.sessions.CompletedHoursByExam(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := s.enrich(*exam, completed)
	return &resp, nil
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.repo.FindByID(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.plans.InvalidatePlan(ctx, userID)
	s.logger.Info("exam deleted", zap.String("userId", userID), zap.String("examId", id))
	return nil
}

func (s *ExamService) enrich(exam models.Exam, completed map[string]float64) dto.ExamResponse {
	adjusted := planner.AdjustedHours(planner.Subject{
		ID:             exam.ID,
		ExamDate:       exam.ExamDate,
		Difficulty:     exam.Difficulty,
		Confidence:     exam.Confidence,
		EstimatedHours: exam.EstimatedHours,
	})
	days := int(dayOf(exam.ExamDate).Sub(dayOf(s.now().UTC())).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return dto.ExamResponse{
		Exam:           exam,
		AdjustedHours:  adjusted,
		CompletedHours: completed[exam.ID],
		DaysUntilExam:  days,
	}
}
