package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func baseConfig() Config {
	return Config{
		DailyMaxHours:  4,
		SessionMinutes: 60,
		Today:          day("2026-03-02"),
	}
}

func subjectHoursOnDay(cal Calendar, key, subjectID string) float64 {
	return cal[key].Hours[subjectID]
}

func TestPlanNoSubjects(t *testing.T) {
	p := New(nil)

	result, err := p.Plan(baseConfig(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, ModeEmpty, result.Mode)
	assert.Empty(t, result.Calendar)
	assert.True(t, result.Report.Clean())
}

func TestPlanRejectsNonPositiveEstimate(t *testing.T) {
	p := New(nil)
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), EstimatedHours: 0}}

	_, err := p.Plan(baseConfig(), subjects, nil)

	require.Error(t, err)
}

func TestPlanSingleSubjectTenHoursTenDays(t *testing.T) {
	p := New(nil)
	subjects := []Subject{{
		ID:             "math",
		Name:           "Mathematics",
		ExamDate:       day("2026-03-12"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 10,
	}}

	result, err := p.Plan(baseConfig(), subjects, nil)

	require.NoError(t, err)
	assert.Equal(t, ModeSingle, result.Mode)
	assert.Nil(t, result.Overload)
	assert.True(t, result.Report.Clean(), "issues: %+v", result.Report.Issues)

	// Ten one-hour sessions spread over the ten available days, ending with
	// the review session the day before the exam.
	assert.Len(t, result.Calendar, 10)
	assert.InDelta(t, 10, result.Calendar.SubjectHours("math"), 1e-9)
	for _, dp := range result.Calendar.SortedDays() {
		assert.InDelta(t, 1, dp.Total, 1e-9)
	}
	assert.InDelta(t, 1, subjectHoursOnDay(result.Calendar, "2026-03-11", "math"), 1e-9)
	assert.Zero(t, subjectHoursOnDay(result.Calendar, "2026-03-12", "math"))
}

func TestPlanThreeSubjects(t *testing.T) {
	p := New(nil)
	cfg := baseConfig()
	cfg.DailyMaxHours = 5
	subjects := []Subject{
		{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 10},
		{ID: "physics", ExamDate: day("2026-03-14"), Difficulty: 3, Confidence: 3, EstimatedHours: 10},
		{ID: "chemistry", ExamDate: day("2026-03-16"), Difficulty: 3, Confidence: 3, EstimatedHours: 10},
	}

	result, err := p.Plan(cfg, subjects, nil)

	require.NoError(t, err)
	assert.Equal(t, ModeFresh, result.Mode)
	assert.Nil(t, result.Overload)
	assert.True(t, result.Report.Clean(), "issues: %+v", result.Report.Issues)

	for _, s := range subjects {
		assert.InDelta(t, 10, result.Calendar.SubjectHours(s.ID), 1e-9, s.ID)
		reviewKey := dayKey(dayOf(s.ExamDate).AddDate(0, 0, -1))
		assert.Greater(t, subjectHoursOnDay(result.Calendar, reviewKey, s.ID), 0.0,
			"%s review on %s", s.ID, reviewKey)
	}
	for _, dp := range result.Calendar.SortedDays() {
		assert.LessOrEqual(t, dp.Total, 5.0, dp.Date)
	}
}

func TestPlanSkipsBlockedDays(t *testing.T) {
	p := New(nil)
	cfg := baseConfig()
	cfg.BlockedDays = []time.Time{day("2026-03-07"), day("2026-03-08")}
	subjects := []Subject{
		{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 4, Confidence: 2, EstimatedHours: 8},
		{ID: "biology", ExamDate: day("2026-03-15"), Difficulty: 2, Confidence: 4, EstimatedHours: 6},
	}

	result, err := p.Plan(cfg, subjects, nil)

	require.NoError(t, err)
	assert.Zero(t, result.Calendar["2026-03-07"].Total)
	assert.Zero(t, result.Calendar["2026-03-08"].Total)
	assert.False(t, result.Report.Has(IssueBlockedDay))
	assert.False(t, result.Report.Has(IssueIncomplete))
}

func TestPlanStudyOnExamDay(t *testing.T) {
	p := New(nil)
	subjects := []Subject{{
		ID:             "law",
		ExamDate:       day("2026-03-05"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 4,
		StudyOnExamDay: true,
	}}

	result, err := p.Plan(baseConfig(), subjects, nil)

	require.NoError(t, err)
	assert.True(t, result.Report.Clean(), "issues: %+v", result.Report.Issues)
	assert.Greater(t, subjectHoursOnDay(result.Calendar, "2026-03-05", "law"), 0.0)
}

func TestPlanSpacingAndFinalReview(t *testing.T) {
	p := New(nil)
	subjects := []Subject{{
		ID:             "history",
		ExamDate:       day("2026-03-22"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 3,
	}}

	result, err := p.Plan(baseConfig(), subjects, nil)

	require.NoError(t, err)
	assert.True(t, result.Report.Clean(), "issues: %+v", result.Report.Issues)
	assert.Greater(t, subjectHoursOnDay(result.Calendar, "2026-03-21", "history"), 0.0)

	days := result.Calendar.SortedDays()
	for i := 0; i+1 < len(days); i++ {
		gap := emptyDaysBetween(days[i].Date, days[i+1].Date)
		assert.LessOrEqual(t, gap, MaxGapDays)
	}
}

func TestPlanDemandBeyondCapacityDegrades(t *testing.T) {
	p := New(nil)
	subjects := []Subject{{
		ID:             "math",
		ExamDate:       day("2026-03-07"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 40,
	}}

	result, err := p.Plan(baseConfig(), subjects, nil)

	require.NoError(t, err)
	assert.False(t, result.Report.Clean())
	assert.True(t, result.Report.Has(IssueIncomplete))
	// Whatever fits is still delivered.
	assert.Greater(t, result.Calendar.SubjectHours("math"), 0.0)
}

func TestPlanExamAlreadyPassed(t *testing.T) {
	p := New(nil)
	subjects := []Subject{{
		ID:             "latin",
		ExamDate:       day("2026-02-20"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 5,
	}}

	result, err := p.Plan(baseConfig(), subjects, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Calendar)
	assert.True(t, result.Report.Has(IssueIncomplete))
	assert.False(t, result.Report.Has(IssueMissingReview))
}

func TestPlanDailyCapBelowOneChunkTerminates(t *testing.T) {
	p := New(nil)
	cfg := baseConfig()
	cfg.DailyMaxHours = 0.5
	subjects := []Subject{
		{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 10},
		{ID: "physics", ExamDate: day("2026-03-14"), Difficulty: 3, Confidence: 3, EstimatedHours: 8},
	}

	result, err := p.Plan(cfg, subjects, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Calendar)
	assert.True(t, result.Report.Has(IssueIncomplete))
}

func TestPlanCompletedHoursReduceDemand(t *testing.T) {
	p := New(nil)
	cfg := baseConfig()
	cfg.CompletedHours = map[string]float64{"math": 6}
	subjects := []Subject{{
		ID:             "math",
		ExamDate:       day("2026-03-12"),
		Difficulty:     3,
		Confidence:     3,
		EstimatedHours: 10,
	}}

	result, err := p.Plan(cfg, subjects, nil)

	require.NoError(t, err)
	assert.True(t, result.Report.Clean(), "issues: %+v", result.Report.Issues)
	assert.InDelta(t, 4, result.Calendar.SubjectHours("math"), 1e-9)
}

func sessionsFromCalendar(cal Calendar) []ExistingSession {
	var sessions []ExistingSession
	for _, dp := range cal.SortedDays() {
		for id, h := range dp.Hours {
			sessions = append(sessions, ExistingSession{SubjectID: id, Date: dp.Date, Hours: h})
		}
	}
	return sessions
}

func TestPlanRebalanceIsIdempotent(t *testing.T) {
	p := New(nil)
	cfg := baseConfig()
	subjects := []Subject{
		{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 4},
		{ID: "physics", ExamDate: day("2026-03-14"), Difficulty: 3, Confidence: 3, EstimatedHours: 4},
	}
	existing := []ExistingSession{
		{SubjectID: "math", Date: day("2026-03-08"), Hours: 1},
		{SubjectID: "math", Date: day("2026-03-09"), Hours: 1},
		{SubjectID: "math", Date: day("2026-03-10"), Hours: 1},
		{SubjectID: "math", Date: day("2026-03-11"), Hours: 1},
		{SubjectID: "physics", Date: day("2026-03-10"), Hours: 1},
		{SubjectID: "physics", Date: day("2026-03-11"), Hours: 1},
		{SubjectID: "physics", Date: day("2026-03-12"), Hours: 1},
		{SubjectID: "physics", Date: day("2026-03-13"), Hours: 1},
	}

	first, err := p.Plan(cfg, subjects, existing)
	require.NoError(t, err)
	assert.Equal(t, ModeRebalance, first.Mode)

	second, err := p.Plan(cfg, subjects, sessionsFromCalendar(first.Calendar))
	require.NoError(t, err)
	assert.Equal(t, ModeRebalance, second.Mode)
	assert.Equal(t, first.Calendar, second.Calendar)
}

func TestPlanFreshWhenNewHoursNeeded(t *testing.T) {
	p := New(nil)
	subjects := []Subject{
		{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 8},
		{ID: "physics", ExamDate: day("2026-03-14"), Difficulty: 3, Confidence: 3, EstimatedHours: 8},
	}
	existing := []ExistingSession{
		{SubjectID: "math", Date: day("2026-03-10"), Hours: 1},
	}

	result, err := p.Plan(baseConfig(), subjects, existing)

	require.NoError(t, err)
	assert.Equal(t, ModeFresh, result.Mode)
	assert.InDelta(t, 8, result.Calendar.SubjectHours("math"), 1e-9)
	assert.InDelta(t, 8, result.Calendar.SubjectHours("physics"), 1e-9)
}

func TestPlanIsDeterministic(t *testing.T) {
	p := New(nil)
	cfg := baseConfig()
	cfg.DailyMaxHours = 6
	subjects := []Subject{
		{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 4, Confidence: 2, EstimatedHours: 9},
		{ID: "physics", ExamDate: day("2026-03-14"), Difficulty: 2, Confidence: 4, EstimatedHours: 7},
		{ID: "chemistry", ExamDate: day("2026-03-14"), Difficulty: 3, Confidence: 3, EstimatedHours: 7},
	}

	first, err := p.Plan(cfg, subjects, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Plan(cfg, subjects, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Calendar, again.Calendar)
	}
}
