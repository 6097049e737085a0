package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/models"
	"github.com/cramplan/cramplan-api/pkg/config"
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
	"github.com/cramplan/cramplan-api/pkg/export"
	"github.com/cramplan/cramplan-api/pkg/jobs"
	"github.com/cramplan/cramplan-api/pkg/storage"
)

type planJobRepository interface {
	Create(ctx context.Context, job *models.PlanExportJob) error
	FindByID(ctx context.Context, userID, id string) (*models.PlanExportJob, error)
	List(ctx context.Context, userID string, limit int) ([]models.PlanExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, reason string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type exportSessionReader interface {
	List(ctx context.Context, userID string, filter models.SessionFilter) ([]models.StudySession, error)
}

type exportExamReader interface {
	ListUpcoming(ctx context.Context, userID string, from time.Time) ([]models.Exam, error)
}

// ExportService renders a user's study plan to downloadable files through a
// background worker queue.
type ExportService struct {
	repo      planJobRepository
	sessions  exportSessionReader
	exams     exportExamReader
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	queue     *jobs.Queue
	cfg       config.ExportsConfig
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// SetMetrics attaches Prometheus instrumentation; a nil service is a no-op.
func (s *ExportService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

type exportPayload struct {
	JobID  string
	UserID string
}

// NewExportService wires the export pipeline.
func NewExportService(
	repo planJobRepository,
	sessions exportSessionReader,
	exams exportExamReader,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.ExportsConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		repo:      repo,
		sessions:  sessions,
		exams:     exams,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("plan-exports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and the retention sweep.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval > 0 {
		go s.cleanupLoop(ctx)
	}
}

// Stop drains the workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// CreateJob queues a new plan export and returns its initial state.
func (s *ExportService) CreateJob(ctx context.Context, userID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	params := models.PlanExportParams{Format: models.ExportFormat(req.Format)}
	if req.From != "" {
		from, err := dto.ParseDay(req.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		params.From = &from
	}
	if req.To != "" {
		to, err := dto.ParseDay(req.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		params.To = &to
	}

	job := &models.PlanExportJob{UserID: userID, Params: params}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    "plan-export",
		Payload: exportPayload{JobID: job.ID, UserID: userID},
	}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "export queue unavailable"); markErr != nil {
			s.logger.Warn("marking unqueued export failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.logger.Info("export queued", zap.String("userId", userID), zap.String("jobId", job.ID), zap.String("format", req.Format))
	return &dto.ExportJobResponse{PlanExportJob: *job}, nil
}

// GetJob returns a job with a signed download URL once finished.
func (s *ExportService) GetJob(ctx context.Context, userID, id string) (*dto.ExportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, err
	}
	resp := &dto.ExportJobResponse{PlanExportJob: *job}
	if job.Status == models.ExportStatusFinished && job.ResultURL != nil {
		token, _, err := s.signer.Generate(job.ID, *job.ResultURL)
		if err != nil {
			s.logger.Warn("signing download url", zap.String("jobId", job.ID), zap.Error(err))
		} else {
			resp.DownloadURL = "/api/v1/exports/download/" + token
		}
	}
	return resp, nil
}

// ListJobs returns the user's recent export jobs.
func (s *ExportService) ListJobs(ctx context.Context, userID string, limit int) ([]dto.ExportJobResponse, error) {
	items, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ExportJobResponse, 0, len(items))
	for _, job := range items {
		resp = append(resp, dto.ExportJobResponse{PlanExportJob: job})
	}
	return resp, nil
}

// OpenDownload validates a signed token and opens the exported file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	f, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return f, relPath, nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	stored, err := s.repo.FindByID(ctx, payload.UserID, payload.JobID)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	if err := s.repo.MarkProcessing(ctx, stored.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	filename, err := s.render(ctx, stored)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, stored.ID, err.Error()); markErr != nil {
			s.logger.Warn("marking export failed", zap.Error(markErr))
		}
		s.metrics.ObserveExport(string(models.ExportStatusFailed))
		return fmt.Errorf("render export: %w", err)
	}

	if err := s.repo.MarkFinished(ctx, stored.ID, filename); err != nil {
		return fmt.Errorf("mark finished: %w", err)
	}
	s.metrics.ObserveExport(string(models.ExportStatusFinished))
	s.logger.Info("export finished", zap.String("jobId", stored.ID), zap.String("file", filename))
	return nil
}

func (s *ExportService) render(ctx context.Context, job *models.PlanExportJob) (string, error) {
	dataset, err := s.buildDataset(ctx, job.UserID, job.Params)
	if err != nil {
		return "", err
	}

	var payload []byte
	ext := string(job.Params.Format)
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Study plan")
	default:
		return "", fmt.Errorf("unsupported format %q", job.Params.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("plan-%s.%s", job.ID, ext)
	if _, err := s.store.Save(filename, payload); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *ExportService) buildDataset(ctx context.Context, userID string, params models.PlanExportParams) (export.Dataset, error) {
	sessions, err := s.sessions.List(ctx, userID, models.SessionFilter{From: params.From, To: params.To})
	if err != nil {
		return export.Dataset{}, err
	}
	exams, err := s.exams.ListUpcoming(ctx, userID, time.Time{})
	if err != nil {
		return export.Dataset{}, err
	}
	titles := make(map[string]string, len(exams))
	for _, e := range exams {
		titles[e.ID] = e.Title
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].ExamID < sessions[j].ExamID
	})

	dataset := export.Dataset{Headers: []string{"Date", "Exam", "Hours", "Completed"}}
	for _, sess := range sessions {
		completed := "no"
		if sess.Completed {
			completed = "yes"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":      sess.Date.Format("2006-01-02"),
			"Exam":      titles[sess.ExamID],
			"Hours":     fmt.Sprintf("%.1f", sess.Hours),
			"Completed": completed,
		})
	}
	return dataset, nil
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.CleanupOlderThan(s.cfg.SignedURLTTL)
			if err != nil {
				s.logger.Warn("export file cleanup", zap.Error(err))
			} else if len(removed) > 0 {
				s.logger.Info("export files cleaned", zap.Int("count", len(removed)))
			}
			if _, err := s.repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-s.cfg.SignedURLTTL)); err != nil {
				s.logger.Warn("export job cleanup", zap.Error(err))
			}
		}
	}
}
