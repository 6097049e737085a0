package planner

import (
	"sort"
	"time"
)

// placeSubject drafts one subject's chunks over its valid days, working
// backwards from the exam so study density rises towards it. The draft is a
// day-key -> chunk map; cross-subject conflicts are left to the merger.
//
// taken is a read-only view of days already claimed by earlier drafts; the
// placer routes around claimed days while free alternatives remain. prior
// sessions are reused as anchor days when reuseDates is set, which keeps a
// regenerated single-subject plan close to what the user already saw.
func placeSubject(st *subjectState, taken map[string]int, prior []ExistingSession, reuseDates bool, rc *resolved) map[string]int {
	placed := make(map[string]int)
	if st.totalChunks == 0 || len(st.validDays) == 0 || rc.capChunks == 0 {
		return placed
	}

	remaining := st.totalChunks

	if st.reviewDay != "" {
		placed[st.reviewDay] = 1
		remaining--
	}

	if reuseDates && remaining > 0 {
		remaining = reusePriorDays(st, prior, placed, remaining)
	}

	for stack := 1; remaining > 0 && stack <= rc.capChunks; stack++ {
		remaining = sweepBackward(st, taken, placed, remaining, stack)
	}

	closeLeadingGap(st, taken, placed)
	return placed
}

// reusePriorDays re-anchors the draft on days the subject was already
// scheduled on, earliest first, one chunk per day.
func reusePriorDays(st *subjectState, prior []ExistingSession, placed map[string]int, remaining int) int {
	keys := make([]string, 0, len(prior))
	for _, sess := range prior {
		if sess.SubjectID == st.ID {
			keys = append(keys, dayKey(sess.Date))
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if remaining == 0 {
			break
		}
		if !st.validFor(k) || placed[k] > 0 {
			continue
		}
		placed[k] = 1
		remaining--
	}
	return remaining
}

// sweepBackward walks the valid days from the exam towards the start,
// raising each day to at most stack chunks. The first sweep spreads sessions
// out: it skips days claimed by other subjects and days that would extend a
// streak past maxStreakDays, but only while enough free days remain below to
// absorb what is left, so spacing never exceeds the hard gap rule.
func sweepBackward(st *subjectState, taken map[string]int, placed map[string]int, remaining, stack int) int {
	for i := len(st.validDays) - 1; i >= 0 && remaining > 0; i-- {
		d := st.validDays[i]
		k := dayKey(d)
		if k == st.reviewDay {
			continue
		}
		if placed[k] >= stack {
			continue
		}
		if stack == 1 && canSkip(st, taken, placed, i, remaining) {
			continue
		}
		placed[k]++
		remaining--
	}
	return remaining
}

// canSkip reports whether the first sweep may pass over validDays[i] for
// diversification or streak reasons without risking a spacing violation or
// running out of days.
func canSkip(st *subjectState, taken map[string]int, placed map[string]int, i, remaining int) bool {
	d := st.validDays[i]
	claimed := taken[dayKey(d)] > 0
	streak := wouldExtendStreak(placed, d)
	if !claimed && !streak {
		return false
	}

	// Skipping must not stretch the distance to the next planned day past
	// the soft target.
	if next, ok := nextPlacedAfter(st, placed, i); ok && emptyDaysBetween(d, next) >= softGapDays {
		return false
	}

	// Count usable days below; a skip is only affordable while they cover
	// the remaining demand.
	free := 0
	for j := 0; j < i; j++ {
		k := dayKey(st.validDays[j])
		if k == st.reviewDay || placed[k] > 0 {
			continue
		}
		if claimed && taken[k] > 0 {
			continue
		}
		free++
	}
	return free >= remaining
}

// wouldExtendStreak reports whether placing on d would make a run longer
// than maxStreakDays, given that the sweep moves backwards in time.
func wouldExtendStreak(placed map[string]int, d time.Time) bool {
	for off := 1; off <= maxStreakDays; off++ {
		if placed[dayKey(d.AddDate(0, 0, off))] == 0 {
			return false
		}
	}
	return true
}

func nextPlacedAfter(st *subjectState, placed map[string]int, i int) (time.Time, bool) {
	for j := i + 1; j < len(st.validDays); j++ {
		if placed[dayKey(st.validDays[j])] > 0 {
			return st.validDays[j], true
		}
	}
	return time.Time{}, false
}

// closeLeadingGap fixes the one spacing defect backward filling can leave:
// a hole between the earliest session and the rest of the draft. The
// earliest chunk moves to the least-claimed valid day inside the hole.
func closeLeadingGap(st *subjectState, taken map[string]int, placed map[string]int) {
	keys := placedKeys(placed)
	if len(keys) < 2 {
		return
	}
	first := parseDayKey(keys[0])
	second := parseDayKey(keys[1])
	if emptyDaysBetween(first, second) <= MaxGapDays {
		return
	}

	var best string
	bestLoad := -1
	for d := first.AddDate(0, 0, 1); d.Before(second); d = d.AddDate(0, 0, 1) {
		k := dayKey(d)
		if !st.validFor(k) || placed[k] > 0 || k == st.reviewDay {
			continue
		}
		if emptyDaysBetween(d, second) > MaxGapDays {
			continue
		}
		if load := taken[k]; best == "" || load < bestLoad {
			best, bestLoad = k, load
		}
	}
	if best == "" {
		return
	}
	n := placed[keys[0]]
	delete(placed, keys[0])
	placed[best] = n
}

func placedKeys(placed map[string]int) []string {
	keys := make([]string, 0, len(placed))
	for k := range placed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
