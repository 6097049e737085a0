package planner

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// IssueType classifies a validation finding.
type IssueType string

const (
	IssueOverload      IssueType = "OVERLOADED_DAY"
	IssueBlockedDay    IssueType = "BLOCKED_DAY"
	IssueMissingReview IssueType = "MISSING_FINAL_REVIEW"
	IssueGap           IssueType = "GAP_TOO_WIDE"
	IssuePostExam      IssueType = "POST_EXAM_SESSION"
	IssueIncomplete    IssueType = "INCOMPLETE_COVERAGE"
)

// Issue is one validation finding. Day is the dayKey involved, empty for
// subject-level findings.
type Issue struct {
	Type      IssueType
	SubjectID string
	Day       string
	Detail    string
}

// Report is the full outcome of validating a calendar. Findings are not
// errors: an overloaded or incomplete plan is still delivered, flagged.
type Report struct {
	Issues []Issue
}

func (r Report) Clean() bool { return len(r.Issues) == 0 }

func (r Report) Has(t IssueType) bool {
	for _, is := range r.Issues {
		if is.Type == t {
			return true
		}
	}
	return false
}

func (r *Report) add(t IssueType, subjectID, day, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Type:      t,
		SubjectID: subjectID,
		Day:       day,
		Detail:    fmt.Sprintf(format, args...),
	})
}

// Validate audits a finished calendar against every scheduling rule: daily
// budget, blocked days, per-subject spacing, the reserved review day,
// post-exam placement, and coverage of the adjusted requirement. It shares
// its constants with the passes that built the calendar, so a clean pipeline
// run always yields a clean report.
func Validate(cal Calendar, subjects []Subject, cfg Config) Report {
	rc := cfg.resolve()
	var report Report

	maxHours := float64(rc.capChunks) * rc.chunkHours
	for _, key := range sortedCalKeys(cal) {
		day := cal[key]
		if day.Total > maxHours+1e-9 {
			report.add(IssueOverload, "", key, "%.1fh scheduled, %.1fh allowed", day.Total, maxHours)
		}
		if rc.blocked[key] {
			report.add(IssueBlockedDay, "", key, "%.1fh scheduled on a blocked day", day.Total)
		}
	}

	for _, s := range subjects {
		validateSubject(&report, cal, s, rc)
	}
	return report
}

func validateSubject(report *Report, cal Calendar, s Subject, rc *resolved) {
	exam := dayOf(s.ExamDate)
	lastAllowed := exam
	if !s.StudyOnExamDay {
		lastAllowed = exam.AddDate(0, 0, -1)
	}

	var days []time.Time
	var scheduled float64
	for _, key := range sortedCalKeys(cal) {
		h := cal[key].Hours[s.ID]
		if h <= 0 {
			continue
		}
		d := parseDayKey(key)
		days = append(days, d)
		scheduled += h
		if d.After(lastAllowed) {
			report.add(IssuePostExam, s.ID, key, "session after the last allowed study day %s", dayKey(lastAllowed))
		}
	}

	for i := 0; i+1 < len(days); i++ {
		if gap := emptyDaysBetween(days[i], days[i+1]); gap > MaxGapDays {
			report.add(IssueGap, s.ID, dayKey(days[i]), "%d empty days before %s, at most %d allowed", gap, dayKey(days[i+1]), MaxGapDays)
		}
	}

	remaining := AdjustedHours(s) - rc.completed[s.ID]
	if remaining < 0 {
		remaining = 0
	}
	required := int(math.Ceil(remaining/rc.chunkHours - 1e-9))
	if got := int(math.Round(scheduled / rc.chunkHours)); got < required {
		report.add(IssueIncomplete, s.ID, "", "%d of %d sessions scheduled", got, required)
	}

	if required > 0 {
		review := exam.AddDate(0, 0, -1)
		key := dayKey(review)
		reviewable := !review.Before(rc.start) && !rc.blocked[key]
		if reviewable && cal[key].Hours[s.ID] <= 0 {
			report.add(IssueMissingReview, s.ID, key, "no session on the day before the exam")
		}
	}
}

func sortedCalKeys(cal Calendar) []string {
	keys := make([]string, 0, len(cal))
	for k := range cal {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
