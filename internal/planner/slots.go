package planner

import "time"

// validStudyDays enumerates the days a subject may be studied on: from the
// resolved start (never in the past) up to the exam, excluding the exam day
// itself unless the subject opts in, and excluding blocked days at the
// source so no later stage has to re-check them.
func validStudyDays(s Subject, rc *resolved) []time.Time {
	upper := dayOf(s.ExamDate)
	if !s.StudyOnExamDay {
		upper = upper.AddDate(0, 0, -1)
	}
	if upper.Before(rc.start) {
		return nil
	}

	days := make([]time.Time, 0, daysApart(rc.start, upper)+1)
	for d := rc.start; !d.After(upper); d = d.AddDate(0, 0, 1) {
		if rc.blocked[dayKey(d)] {
			continue
		}
		days = append(days, d)
	}
	return days
}
