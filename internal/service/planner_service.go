package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/models"
	"github.com/cramplan/cramplan-api/internal/planner"
	"github.com/cramplan/cramplan-api/pkg/config"
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
)

type plannerExamLister interface {
	ListUpcoming(ctx context.Context, userID string, from time.Time) ([]models.Exam, error)
}

type plannerSessionRepository interface {
	List(ctx context.Context, userID string, filter models.SessionFilter) ([]models.StudySession, error)
	CompletedHoursByExam(ctx context.Context, userID string) (map[string]float64, error)
	ReplaceUpcoming(ctx context.Context, userID string, cutoff time.Time, sessions []models.StudySession) (int, int, error)
}

type plannerBlockedDayLister interface {
	List(ctx context.Context, userID string, from time.Time) ([]models.BlockedDay, error)
}

type planCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type planEngine interface {
	Plan(cfg planner.Config, subjects []planner.Subject, existing []planner.ExistingSession) (*planner.Result, error)
}

// PlannerService turns a user's exams, history and availability into study
// plan proposals and applies accepted ones.
type PlannerService struct {
	exams     plannerExamLister
	sessions  plannerSessionRepository
	blocked   plannerBlockedDayLister
	cache     planCache
	engine    planEngine
	cfg       config.PlannerConfig
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore
	metrics   *MetricsService
	now       func() time.Time
}

// SetMetrics attaches Prometheus instrumentation; a nil service is a no-op.
func (s *PlannerService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// NewPlannerService wires planner dependencies.
func NewPlannerService(
	exams plannerExamLister,
	sessions plannerSessionRepository,
	blocked plannerBlockedDayLister,
	cache planCache,
	engine planEngine,
	cfg config.PlannerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.ProposalTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PlannerService{
		exams:     exams,
		sessions:  sessions,
		blocked:   blocked,
		cache:     cache,
		engine:    engine,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(ttl),
		now:       time.Now,
	}
}

// planProposal is a generated plan held until applied or expired.
type planProposal struct {
	ProposalID  string
	UserID      string
	Sessions    []models.StudySession
	Stats       dto.PlanStats
	Issues      []dto.PlanIssue
	RequestedAt time.Time
}

// Generate builds a plan proposal from the user's current exams, availability
// and study history. The proposal is held server-side; nothing is persisted
// until it is applied.
func (s *PlannerService) Generate(ctx context.Context, userID string, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan request")
	}

	today := dayOf(s.now().UTC())

	exams, err := s.exams.ListUpcoming(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	exams = filterExams(exams, req.ExamIDs)

	completed, err := s.sessions.CompletedHoursByExam(ctx, userID)
	if err != nil {
		return nil, err
	}
	reschedulable, err := s.reschedulableSessions(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	blockedDays, err := s.blocked.List(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	cfg := s.engineConfig(req, today, blockedDays, completed)
	subjects := make([]planner.Subject, 0, len(exams))
	titles := make(map[string]string, len(exams))
	for _, e := range exams {
		subjects = append(subjects, planner.Subject{
			ID:             e.ID,
			Name:           e.Title,
			ExamDate:       e.ExamDate,
			Difficulty:     e.Difficulty,
			Confidence:     e.Confidence,
			EstimatedHours: e.EstimatedHours,
			StudyOnExamDay: e.StudyOnExamDay,
		})
		titles[e.ID] = e.Title
	}

	existing := make([]planner.ExistingSession, 0, len(reschedulable))
	for _, sess := range reschedulable {
		existing = append(existing, planner.ExistingSession{
			SubjectID: sess.ExamID,
			Date:      sess.Date,
			Hours:     sess.Hours,
		})
	}

	started := s.now()
	result, err := s.engine.Plan(cfg, subjects, existing)
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePlanGeneration(string(result.Mode), len(result.Report.Issues), time.Since(started))

	proposal := planProposal{
		ProposalID:  uuid.NewString(),
		UserID:      userID,
		Sessions:    sessionsFromCalendar(userID, result.Calendar),
		Stats:       planStats(result),
		Issues:      planIssues(result.Report),
		RequestedAt: s.now().UTC(),
	}
	s.store.Save(proposal)

	s.logger.Info("plan proposal generated",
		zap.String("userId", userID),
		zap.String("proposalId", proposal.ProposalID),
		zap.String("mode", string(result.Mode)),
		zap.Int("sessions", len(proposal.Sessions)),
		zap.Int("issues", len(proposal.Issues)),
	)

	resp := &dto.GeneratePlanResponse{
		ProposalID: proposal.ProposalID,
		ExpiresAt:  proposal.RequestedAt.Add(s.store.ttl).Format(time.RFC3339),
		Stats:      proposal.Stats,
		Days:       planDays(result.Calendar, titles),
		Issues:     proposal.Issues,
	}
	if result.Overload != nil {
		resp.Overload = &dto.PlanOverload{Days: result.Overload.Days, ExcessHours: result.Overload.ExcessHours}
	}
	return resp, nil
}

// Apply persists a previously generated proposal: pending future sessions are
// swapped for the proposal's sessions in one transaction. Completed and past
// sessions are never touched.
func (s *PlannerService) Apply(ctx context.Context, userID string, req dto.ApplyPlanRequest) (*dto.ApplyPlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid apply request")
	}

	proposal, ok := s.store.Get(req.ProposalID, s.now().UTC())
	if !ok || proposal.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	today := dayOf(s.now().UTC())
	created, removed, err := s.sessions.ReplaceUpcoming(ctx, userID, today, proposal.Sessions)
	if err != nil {
		return nil, err
	}
	s.store.Delete(req.ProposalID)
	s.InvalidatePlan(ctx, userID)

	s.logger.Info("plan applied",
		zap.String("userId", userID),
		zap.String("proposalId", req.ProposalID),
		zap.Int("created", created),
		zap.Int("removed", removed),
	)
	return &dto.ApplyPlanResponse{SessionsCreated: created, SessionsRemoved: removed}, nil
}

// Current returns the persisted upcoming plan, grouped per day, served from
// cache when fresh.
func (s *PlannerService) Current(ctx context.Context, userID string) (*dto.CurrentPlanResponse, error) {
	if s.cache != nil {
		var cached dto.CurrentPlanResponse
		if err := s.cache.Get(ctx, planCacheKey(userID), &cached); err == nil {
			s.metrics.ObserveCacheHit()
			return &cached, nil
		}
		s.metrics.ObserveCacheMiss()
	}

	today := dayOf(s.now().UTC())
	sessions, err := s.reschedulableSessions(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	exams, err := s.exams.ListUpcoming(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(exams))
	for _, e := range exams {
		titles[e.ID] = e.Title
	}

	resp := &dto.CurrentPlanResponse{Days: sessionDays(sessions, titles)}
	var total float64
	for _, d := range resp.Days {
		total += d.Total
	}
	resp.Stats = dto.PlanStats{
		TotalHours: total,
		StudyDays:  len(resp.Days),
		Exams:      len(exams),
	}

	if s.cache != nil {
		ttl := s.cfg.PlanCacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		if err := s.cache.Set(ctx, planCacheKey(userID), resp, ttl); err != nil {
			s.logger.Warn("caching current plan", zap.Error(err))
		}
	}
	return resp, nil
}

// InvalidatePlan drops the cached plan view; exam, session and blocked-day
// mutations call it.
func (s *PlannerService) InvalidatePlan(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, planCachePattern(userID)); err != nil {
		s.logger.Warn("invalidating plan cache", zap.String("userId", userID), zap.Error(err))
	}
}

// reschedulableSessions are the pending future sessions a regeneration may
// replace. Completed sessions and missed past ones stay out: the former are
// history, the latter are neither delivered nor rescheduled.
func (s *PlannerService) reschedulableSessions(ctx context.Context, userID string, today time.Time) ([]models.StudySession, error) {
	completed := false
	return s.sessions.List(ctx, userID, models.SessionFilter{From: &today, Completed: &completed})
}

func (s *PlannerService) engineConfig(req dto.GeneratePlanRequest, today time.Time, blockedDays []models.BlockedDay, completed map[string]float64) planner.Config {
	cfg := planner.Config{
		DailyMaxHours:  s.cfg.DailyMaxHours,
		DailySoftHours: s.cfg.DailySoftHours,
		SessionMinutes: s.cfg.SessionMinutes,
		Today:          today,
		CompletedHours: completed,
	}
	if req.DailyMaxHours != nil {
		cfg.DailyMaxHours = *req.DailyMaxHours
	}
	if req.DailySoftHours != nil {
		cfg.DailySoftHours = *req.DailySoftHours
	}
	if req.SessionMinutes != nil {
		cfg.SessionMinutes = *req.SessionMinutes
	}
	if req.StartDate != nil {
		if start, err := dto.ParseDay(*req.StartDate); err == nil {
			cfg.StartDate = start
		}
	}
	for _, b := range blockedDays {
		cfg.BlockedDays = append(cfg.BlockedDays, b.Date)
	}
	return cfg
}

func filterExams(exams []models.Exam, ids []string) []models.Exam {
	if len(ids) == 0 {
		return exams
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	filtered := exams[:0]
	for _, e := range exams {
		if wanted[e.ID] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func sessionsFromCalendar(userID string, cal planner.Calendar) []models.StudySession {
	var sessions []models.StudySession
	for _, day := range cal.SortedDays() {
		for _, examID := range sortedHourKeys(day.Hours) {
			sessions = append(sessions, models.StudySession{
				UserID: userID,
				ExamID: examID,
				Date:   day.Date,
				Hours:  day.Hours[examID],
			})
		}
	}
	return sessions
}

func planDays(cal planner.Calendar, titles map[string]string) []dto.PlanDayProposal {
	days := make([]dto.PlanDayProposal, 0, len(cal))
	for _, day := range cal.SortedDays() {
		proposal := dto.PlanDayProposal{
			Date:  day.Date.Format("2006-01-02"),
			Total: day.Total,
		}
		for _, examID := range sortedHourKeys(day.Hours) {
			proposal.Sessions = append(proposal.Sessions, dto.PlanSessionProposal{
				Date:   proposal.Date,
				ExamID: examID,
				Title:  titles[examID],
				Hours:  day.Hours[examID],
			})
		}
		days = append(days, proposal)
	}
	return days
}

func sessionDays(sessions []models.StudySession, titles map[string]string) []dto.PlanDayProposal {
	grouped := make(map[string]*dto.PlanDayProposal)
	var keys []string
	for _, sess := range sessions {
		key := sess.Date.Format("2006-01-02")
		day, ok := grouped[key]
		if !ok {
			day = &dto.PlanDayProposal{Date: key}
			grouped[key] = day
			keys = append(keys, key)
		}
		day.Total += sess.Hours
		day.Sessions = append(day.Sessions, dto.PlanSessionProposal{
			Date:   key,
			ExamID: sess.ExamID,
			Title:  titles[sess.ExamID],
			Hours:  sess.Hours,
		})
	}
	sort.Strings(keys)
	days := make([]dto.PlanDayProposal, 0, len(keys))
	for _, key := range keys {
		days = append(days, *grouped[key])
	}
	return days
}

func planStats(result *planner.Result) dto.PlanStats {
	return dto.PlanStats{
		Mode:       string(result.Mode),
		TotalHours: result.Calendar.TotalHours(),
		StudyDays:  len(result.Calendar),
		Exams:      countSubjects(result.Calendar),
	}
}

func countSubjects(cal planner.Calendar) int {
	seen := make(map[string]bool)
	for _, day := range cal {
		for id := range day.Hours {
			seen[id] = true
		}
	}
	return len(seen)
}

func planIssues(report planner.Report) []dto.PlanIssue {
	issues := make([]dto.PlanIssue, 0, len(report.Issues))
	for _, is := range report.Issues {
		issues = append(issues, dto.PlanIssue{
			Type:   string(is.Type),
			ExamID: is.SubjectID,
			Date:   is.Day,
			Detail: is.Detail,
		})
	}
	return issues
}

func sortedHourKeys(hours map[string]float64) []string {
	keys := make([]string, 0, len(hours))
	for k := range hours {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func planCacheKey(userID string) string {
	return "cramplan:plan:" + userID
}

func planCachePattern(userID string) string {
	return "cramplan:plan:" + userID + "*"
}

// proposalStore keeps generated proposals in memory with a TTL.
type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]planProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]planProposal),
	}
}

func (s *proposalStore) Save(proposal planProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string, now time.Time) (planProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return planProposal{}, false
	}
	if now.Sub(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return planProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
