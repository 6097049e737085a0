package planner

// repairIntervals closes per-subject spacing violations left after merging
// and balancing. For each adjacent pair of study days further apart than the
// hard gap rule it relocates one chunk of the earlier flank into the hole,
// choosing the least-loaded valid day that satisfies the rule on both sides.
// A violation with no such day is left for the validator to report. Each
// pass fixes at most one violation per subject pair, and the move count is
// returned.
func repairIntervals(s *schedule, states []*subjectState, rc *resolved) int {
	moves := 0
	for _, st := range states {
		keys := s.subjectDayKeys(st.ID)
		for i := 0; i+1 < len(keys); i++ {
			a, b := parseDayKey(keys[i]), parseDayKey(keys[i+1])
			if emptyDaysBetween(a, b) <= MaxGapDays {
				continue
			}

			var best string
			bestLoad := -1
			for d := a.AddDate(0, 0, 1); d.Before(b); d = d.AddDate(0, 0, 1) {
				k := dayKey(d)
				if !st.validFor(k) || s.count(k, st.ID) > 0 {
					continue
				}
				if rc.capChunks > 0 && s.total(k) >= rc.capChunks {
					continue
				}
				if emptyDaysBetween(d, b) > MaxGapDays {
					continue
				}
				// Moving the earlier flank must not reopen a hole behind it,
				// unless a session stays there anyway.
				if s.count(keys[i], st.ID) == 1 && i > 0 {
					if emptyDaysBetween(parseDayKey(keys[i-1]), d) > MaxGapDays {
						continue
					}
				}
				if load := s.total(k); best == "" || load < bestLoad {
					best, bestLoad = k, load
				}
			}
			if best == "" {
				continue
			}
			if keys[i] == st.reviewDay && s.count(keys[i], st.ID) == 1 {
				continue
			}
			s.move(keys[i], best, st.ID, 1)
			moves++
			keys = s.subjectDayKeys(st.ID)
			i = -1 // rescan the subject after a move
		}
	}
	return moves
}

// ensureFinalReviews re-establishes the reserved review session for every
// subject whose day before the exam is schedulable but ended up empty. One
// chunk is pulled from the subject's busiest day; when the review day has no
// spare capacity the guarantee yields to the daily cap and the validator
// reports the miss.
func ensureFinalReviews(s *schedule, states []*subjectState, rc *resolved) {
	for _, st := range states {
		if st.reviewDay == "" || st.totalChunks == 0 {
			continue
		}
		if s.count(st.reviewDay, st.ID) > 0 {
			continue
		}
		if rc.capChunks > 0 && s.total(st.reviewDay) >= rc.capChunks {
			continue
		}

		var from string
		for _, k := range s.subjectDayKeys(st.ID) {
			if k == st.reviewDay {
				continue
			}
			if from == "" || s.total(k) > s.total(from) {
				from = k
			}
		}
		if from == "" {
			continue
		}
		s.move(from, st.reviewDay, st.ID, 1)
	}
}
