package planner

import "sort"

// balanceSchedule evens the grid out with bounded local moves: overloaded
// days shed chunks first, then the spread between the heaviest and lightest
// day is narrowed while it is two or more chunks. Every move keeps the
// receiving day under the cap, inside the subject's valid window, off its
// review day, and under maxDailyPerSubject, so balancing can only improve a
// plan. The pass count is capped to guarantee termination; the number of
// iterations used is returned.
func balanceSchedule(s *schedule, states []*subjectState, rc *resolved) int {
	if rc.capChunks == 0 {
		return 0
	}
	byID := make(map[string]*subjectState, len(states))
	for _, st := range states {
		byID[st.ID] = st
	}

	iters := 0
	for ; iters < maxBalanceIters; iters++ {
		if !shedOverload(s, byID, rc) && !narrowSpread(s, byID, rc) {
			break
		}
	}
	return iters
}

// shedOverload moves one chunk off the first day found above the cap.
func shedOverload(s *schedule, byID map[string]*subjectState, rc *resolved) bool {
	for _, key := range s.sortedKeys() {
		if s.total(key) <= rc.capChunks {
			continue
		}
		if relocateOne(s, byID, key, rc.capChunks-1, rc) {
			return true
		}
	}
	return false
}

// narrowSpread moves one chunk from the heaviest day to a lighter one while
// the spread is at least two chunks.
func narrowSpread(s *schedule, byID map[string]*subjectState, rc *resolved) bool {
	keys := s.sortedKeys()
	if len(keys) < 2 {
		return false
	}
	heaviest := keys[0]
	for _, k := range keys {
		if s.total(k) > s.total(heaviest) {
			heaviest = k
		}
	}
	lightest := minLoadOnOrAround(s, keys)
	if s.total(heaviest)-lightest < 2 {
		return false
	}
	return relocateOne(s, byID, heaviest, s.total(heaviest)-2, rc)
}

func minLoadOnOrAround(s *schedule, keys []string) int {
	min := s.total(keys[0])
	for _, k := range keys[1:] {
		if t := s.total(k); t < min {
			min = t
		}
	}
	return min
}

// relocateOne moves one legally movable chunk off the source day onto the
// lightest legal destination whose load is at most maxDestLoad.
func relocateOne(s *schedule, byID map[string]*subjectState, source string, maxDestLoad int, rc *resolved) bool {
	for _, id := range sortedSubjectsOn(s, source) {
		st := byID[id]
		if st == nil {
			continue
		}
		// The reserved review chunk stays put.
		if source == st.reviewDay && s.count(source, id) == 1 {
			continue
		}
		if dest, ok := bestDestination(s, st, source, maxDestLoad, rc); ok {
			s.move(source, dest, id, 1)
			return true
		}
	}
	return false
}

// bestDestination picks the subject's lightest valid day under the cap,
// breaking ties on proximity to the source so moves disturb spacing as
// little as possible.
func bestDestination(s *schedule, st *subjectState, source string, maxDestLoad int, rc *resolved) (string, bool) {
	srcDay := parseDayKey(source)
	var best string
	bestLoad, bestDist := 0, 0
	for _, d := range st.validDays {
		k := dayKey(d)
		if k == source || k == st.reviewDay {
			continue
		}
		if s.count(k, st.ID) >= maxDailyPerSubject {
			continue
		}
		load := s.total(k)
		if load >= rc.capChunks || load > maxDestLoad {
			continue
		}
		dist := daysApart(srcDay, d)
		if dist < 0 {
			dist = -dist
		}
		if best == "" || load < bestLoad || (load == bestLoad && dist < bestDist) {
			best, bestLoad, bestDist = k, load, dist
		}
	}
	return best, best != ""
}

// sortedSubjectsOn lists the subjects allocated on a day, heaviest presence
// first so relocation prefers moving where it frees the most.
func sortedSubjectsOn(s *schedule, key string) []string {
	day := s.chunks[key]
	ids := make([]string, 0, len(day))
	for id := range day {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if day[ids[i]] != day[ids[j]] {
			return day[ids[i]] > day[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
