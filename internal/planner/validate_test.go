package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func calendarOf(entries map[string]map[string]float64) Calendar {
	cal := make(Calendar, len(entries))
	for key, hours := range entries {
		dp := DayPlan{Date: parseDayKey(key), Hours: hours}
		for _, h := range hours {
			dp.Total += h
		}
		cal[key] = dp
	}
	return cal
}

func TestValidateFlagsOverloadedDay(t *testing.T) {
	cal := calendarOf(map[string]map[string]float64{
		"2026-03-05": {"math": 5},
	})
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 5}}

	report := Validate(cal, subjects, baseConfig())

	assert.True(t, report.Has(IssueOverload))
}

func TestValidateFlagsBlockedDay(t *testing.T) {
	cfg := baseConfig()
	cfg.BlockedDays = []time.Time{day("2026-03-05")}
	cal := calendarOf(map[string]map[string]float64{
		"2026-03-05": {"math": 1},
	})
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 1}}

	report := Validate(cal, subjects, cfg)

	assert.True(t, report.Has(IssueBlockedDay))
}

func TestValidateFlagsGapAndMissingReview(t *testing.T) {
	cal := calendarOf(map[string]map[string]float64{
		"2026-03-02": {"math": 1},
		"2026-03-08": {"math": 1},
	})
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 2}}

	report := Validate(cal, subjects, baseConfig())

	assert.True(t, report.Has(IssueGap))
	assert.True(t, report.Has(IssueMissingReview))
}

func TestValidateFlagsPostExamSession(t *testing.T) {
	cal := calendarOf(map[string]map[string]float64{
		"2026-03-11": {"math": 1},
		"2026-03-12": {"math": 1},
	})
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 2}}

	report := Validate(cal, subjects, baseConfig())

	assert.True(t, report.Has(IssuePostExam))
}

func TestValidateFlagsIncompleteCoverage(t *testing.T) {
	cal := calendarOf(map[string]map[string]float64{
		"2026-03-10": {"math": 1},
		"2026-03-11": {"math": 1},
	})
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 6}}

	report := Validate(cal, subjects, baseConfig())

	assert.True(t, report.Has(IssueIncomplete))
}

func TestValidateCleanPlan(t *testing.T) {
	cal := calendarOf(map[string]map[string]float64{
		"2026-03-09": {"math": 1},
		"2026-03-10": {"math": 1},
		"2026-03-11": {"math": 1},
	})
	subjects := []Subject{{ID: "math", ExamDate: day("2026-03-12"), Difficulty: 3, Confidence: 3, EstimatedHours: 3}}

	report := Validate(cal, subjects, baseConfig())

	assert.True(t, report.Clean(), "issues: %+v", report.Issues)
}

func TestValidStudyDaysWindow(t *testing.T) {
	cfg := baseConfig()
	cfg.BlockedDays = []time.Time{day("2026-03-04")}
	rc := cfg.resolve()

	days := validStudyDays(Subject{ID: "math", ExamDate: day("2026-03-07")}, rc)

	assert.Equal(t, []time.Time{
		day("2026-03-02"),
		day("2026-03-03"),
		day("2026-03-05"),
		day("2026-03-06"),
	}, days)

	withExamDay := validStudyDays(Subject{ID: "math", ExamDate: day("2026-03-07"), StudyOnExamDay: true}, rc)
	assert.Len(t, withExamDay, 5)
}
