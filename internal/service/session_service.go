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
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, userID string, filter models.SessionFilter) ([]models.StudySession, error)
	FindByID(ctx context.Context, userID, id string) (*models.StudySession, error)
	SetCompleted(ctx context.Context, userID, id string, hours float64) error
}

type sessionExamReader interface {
	ListUpcoming(ctx context.Context, userID string, from time.Time) ([]models.Exam, error)
}

type blockedDayRepository interface {
	List(ctx context.Context, userID string, from time.Time) ([]models.BlockedDay, error)
	Create(ctx context.Context, day *models.BlockedDay) error
	Delete(ctx context.Context, userID, id string) error
}

// SessionService manages scheduled study sessions and blocked days.
type SessionService struct {
	repo      sessionRepository
	exams     sessionExamReader
	blocked   blockedDayRepository
	plans     planInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService wires session dependencies.
func NewSessionService(repo sessionRepository, exams sessionExamReader, blocked blockedDayRepository, plans planInvalidator, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, exams: exams, blocked: blocked, plans: plans, validator: validate, logger: logger, now: time.Now}
}

// List returns the user's sessions with exam titles attached.
func (s *SessionService) List(ctx context.Context, userID string, query dto.SessionQuery) ([]dto.SessionResponse, error) {
	filter := models.SessionFilter{ExamID: query.ExamID, Completed: query.Completed}
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

	sessions, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	titles, err := s.examTitles(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, dto.SessionResponse{StudySession: sess, ExamTitle: titles[sess.ExamID]})
	}
	return items, nil
}

// Complete marks a session done. Completed hours count toward the exam's
// requirement on the next regeneration; completing is final.
func (s *SessionService) Complete(ctx context.Context, userID, id string, req dto.CompleteSessionRequest) (*dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}

	session, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, err
	}
	if session.Completed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already completed")
	}

	hours := session.Hours
	if req.ActualHours != nil {
		hours = *req.ActualHours
	}
	if err := s.repo.SetCompleted(ctx, userID, id, hours); err != nil {
		return nil, err
	}
	s.plans.InvalidatePlan(ctx, userID)

	session.Completed = true
	session.Hours = hours
	titles, err := s.examTitles(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session completed", zap.String("userId", userID), zap.String("sessionId", id), zap.Float64("hours", hours))
	return &dto.SessionResponse{StudySession: *session, ExamTitle: titles[session.ExamID]}, nil
}

// ListBlockedDays returns the user's upcoming blocked days.
func (s *SessionService) ListBlockedDays(ctx context.Context, userID string) ([]models.BlockedDay, error) {
	return s.blocked.List(ctx, userID, dayOf(s.now().UTC()))
}

// CreateBlockedDay marks a day off-limits for scheduling.
func (s *SessionService) CreateBlockedDay(ctx context.Context, userID string, req dto.CreateBlockedDayRequest) (*models.BlockedDay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked day payload")
	}
	date, err := dto.ParseDay(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if date.Before(dayOf(s.now().UTC())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "blocked day is in the past")
	}

	day := &models.BlockedDay{UserID: userID, Date: date, Reason: req.Reason}
	if err := s.blocked.Create(ctx, day); err != nil {
		return nil, err
	}
	s.plans.InvalidatePlan(ctx, userID)
	return day, nil
}

// DeleteBlockedDay removes a blocked day.
func (s *SessionService) DeleteBlockedDay(ctx context.Context, userID, id string) error {
	if err := s.blocked.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.plans.InvalidatePlan(ctx, userID)
	return nil
}

func (s *SessionService) examTitles(ctx context.Context, userID string) (map[string]string, error) {
	exams, err := s.exams.ListUpcoming(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(exams))
	for _, e := range exams {
		titles[e.ID] = e.Title
	}
	return titles, nil
}
