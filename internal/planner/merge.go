package planner

import "sort"

// mergeCandidate is one draft allocation queued for merging.
type mergeCandidate struct {
	key    string
	chunks int
	st     *subjectState
}

// mergeDrafts lays the per-subject drafts onto one shared grid. Conflicts are
// resolved by a fixed priority order, and chunks that no longer fit under the
// daily cap are pushed to the nearest earlier valid day with room. A chunk is
// never dropped: when nothing earlier has capacity it stays put and the day
// ends up overloaded, which export and validation surface.
func mergeDrafts(states []*subjectState, drafts map[string]map[string]int, rc *resolved) *schedule {
	var queue []mergeCandidate
	for _, st := range states {
		for k, n := range drafts[st.ID] {
			queue = append(queue, mergeCandidate{key: k, chunks: n, st: st})
		}
	}

	// Earlier days first; on the same day the sooner exam wins, then the
	// heavier subject, then submission order.
	sort.Slice(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if a.key != b.key {
			return a.key < b.key
		}
		if !a.st.ExamDate.Equal(b.st.ExamDate) {
			return a.st.ExamDate.Before(b.st.ExamDate)
		}
		if a.st.totalChunks != b.st.totalChunks {
			return a.st.totalChunks > b.st.totalChunks
		}
		return a.st.order < b.st.order
	})

	sched := newSchedule(rc)
	for _, cand := range queue {
		for c := 0; c < cand.chunks; c++ {
			placeMerged(sched, cand.st, cand.key, rc)
		}
	}
	return sched
}

func placeMerged(s *schedule, st *subjectState, key string, rc *resolved) {
	if s.total(key) < rc.capChunks {
		s.add(key, st.ID, 1)
		return
	}
	if k, ok := nearestEarlierFree(s, st, key, rc); ok {
		s.add(k, st.ID, 1)
		return
	}
	// Overload rather than drop.
	s.add(key, st.ID, 1)
}

// nearestEarlierFree scans the subject's valid days backwards from key for a
// day under the cap that the subject is not already on.
func nearestEarlierFree(s *schedule, st *subjectState, key string, rc *resolved) (string, bool) {
	for i := len(st.validDays) - 1; i >= 0; i-- {
		k := dayKey(st.validDays[i])
		if k >= key {
			continue
		}
		if k == st.reviewDay || s.count(k, st.ID) > 0 {
			continue
		}
		if s.total(k) < rc.capChunks {
			return k, true
		}
	}
	return "", false
}
