package planner

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
)

// Planner is the scheduling engine facade. It is pure: no clock reads beyond
// the Config fallback, no I/O, and identical inputs always produce the same
// calendar.
type Planner struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{logger: logger}
}

// Plan selects a pipeline from the inputs and runs it:
//
//   - no subjects: an empty calendar
//   - one subject: direct placement, no cross-subject merge
//   - several subjects needing new hours: full draft, merge, balance, repair
//   - nothing needing new hours: rebalance of the existing sessions only
//
// The only error is malformed input; infeasible demand degrades to a flagged
// calendar instead.
func (p *Planner) Plan(cfg Config, subjects []Subject, existing []ExistingSession) (*Result, error) {
	for _, s := range subjects {
		if s.EstimatedHours <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s: estimated hours must be positive", s.ID))
		}
	}

	rc := cfg.resolve()

	if len(subjects) == 0 {
		return &Result{Calendar: Calendar{}, Mode: ModeEmpty}, nil
	}

	states := buildStates(subjects, rc)

	mode := ModeRebalance
	switch {
	case len(states) == 1:
		mode = ModeSingle
	case needsNewHours(states, existing, rc):
		mode = ModeFresh
	}

	var sched *schedule
	switch mode {
	case ModeSingle:
		draft := placeSubject(states[0], nil, existing, true, rc)
		sched = mergeDrafts(states, map[string]map[string]int{states[0].ID: draft}, rc)
	case ModeFresh:
		sched = p.planFresh(states, rc)
	case ModeRebalance:
		sched = scheduleFromSessions(existing, rc)
	}

	iters := 0
	if mode != ModeSingle {
		iters = balanceSchedule(sched, states, rc)
	}
	moves := repairIntervals(sched, states, rc)
	ensureFinalReviews(sched, states, rc)

	cal, overload := sched.export()
	result := &Result{
		Calendar: cal,
		Mode:     mode,
		Overload: overload,
		Report:   Validate(cal, subjects, cfg),
	}

	p.logger.Debug("plan generated",
		zap.String("mode", string(mode)),
		zap.Int("subjects", len(subjects)),
		zap.Int("days", len(cal)),
		zap.Int("balanceIterations", iters),
		zap.Int("repairMoves", moves),
		zap.Int("issues", len(result.Report.Issues)),
		zap.Bool("overloaded", overload != nil),
	)
	return result, nil
}

// planFresh drafts every subject in exam order and merges the drafts. Each
// draft sees the days claimed so far, which spreads subjects apart before the
// merger has to arbitrate.
func (p *Planner) planFresh(states []*subjectState, rc *resolved) *schedule {
	taken := make(map[string]int)
	drafts := make(map[string]map[string]int, len(states))
	for _, st := range states {
		draft := placeSubject(st, taken, nil, false, rc)
		drafts[st.ID] = draft
		for k, n := range draft {
			taken[k] += n
		}
	}
	return mergeDrafts(states, drafts, rc)
}

// buildStates derives per-subject planning state, ordered by exam date then
// submission order so every later pass iterates deterministically.
func buildStates(subjects []Subject, rc *resolved) []*subjectState {
	states := make([]*subjectState, 0, len(subjects))
	for i, s := range subjects {
		states = append(states, buildState(s, i, rc))
	}
	sort.Slice(states, func(i, j int) bool {
		if !states[i].ExamDate.Equal(states[j].ExamDate) {
			return states[i].ExamDate.Before(states[j].ExamDate)
		}
		return states[i].order < states[j].order
	})
	return states
}

// needsNewHours reports whether any subject's adjusted requirement exceeds
// what the existing sessions already cover, by at least half a chunk.
func needsNewHours(states []*subjectState, existing []ExistingSession, rc *resolved) bool {
	covered := make(map[string]float64, len(existing))
	for _, sess := range existing {
		covered[sess.SubjectID] += sess.Hours
	}
	for _, st := range states {
		if st.remaining-covered[st.ID] > rc.chunkHours/2 {
			return true
		}
	}
	return false
}

// scheduleFromSessions rebuilds the chunk grid from sessions already on the
// calendar, for runs that only rebalance.
func scheduleFromSessions(existing []ExistingSession, rc *resolved) *schedule {
	sched := newSchedule(rc)
	for _, sess := range existing {
		chunks := int(sess.Hours/rc.chunkHours + 0.5)
		if chunks < 1 {
			chunks = 1
		}
		sched.add(dayKey(sess.Date), sess.SubjectID, chunks)
	}
	return sched
}
