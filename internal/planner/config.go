package planner

import (
	"math"
	"time"
)

const (
	// estimateAdjustCap bounds how far difficulty and confidence may pull the
	// adjusted requirement away from the user's own estimate.
	estimateAdjustCap = 0.10

	// MaxGapDays is the authoritative spacing rule shared by placement and
	// validation: two chronologically adjacent study days of the same subject
	// may have at most this many empty days between them.
	MaxGapDays = 3

	// softGapDays is the spacing the placer aims for before the hard rule
	// forces a placement.
	softGapDays = 2

	// maxStreakDays limits how many consecutive calendar days one subject is
	// studied before the placer prefers a break.
	maxStreakDays = 2

	// maxDailyPerSubject stops repair passes from stacking a third chunk of
	// the same subject onto one day.
	maxDailyPerSubject = 2

	maxBalanceIters = 50

	defaultSessionMinutes = 60
	defaultDailyMaxHours  = 4.0
)

// Config describes one planning run. The zero value is usable: defaults are
// applied during resolution.
type Config struct {
	// DailyMaxHours is the hard per-day budget.
	DailyMaxHours float64
	// DailySoftHours is the preferred per-day load; days above it are "busy".
	DailySoftHours float64
	// SessionMinutes is the chunk granularity.
	SessionMinutes int
	// StartDate is the earliest day sessions may be placed on. Zero means
	// scheduling starts today.
	StartDate time.Time
	// Today injects the reference day. Callers wanting reproducible plans
	// must set it; the wall clock is only consulted when it is zero.
	Today time.Time
	// BlockedDays carry no sessions.
	BlockedDays []time.Time
	// CompletedHours maps subject ID to study hours already delivered, which
	// are subtracted from the adjusted requirement.
	CompletedHours map[string]float64
}

// resolved carries normalized, derived parameters for a single run.
type resolved struct {
	chunkHours float64
	capChunks  int
	softChunks int
	start      time.Time
	today      time.Time
	blocked    map[string]bool
	completed  map[string]float64
}

func (c Config) resolve() *resolved {
	minutes := c.SessionMinutes
	if minutes <= 0 {
		minutes = defaultSessionMinutes
	}
	chunkHours := float64(minutes) / 60.0

	maxHours := c.DailyMaxHours
	if maxHours <= 0 {
		maxHours = defaultDailyMaxHours
	}
	capChunks := int(math.Floor(maxHours/chunkHours + 1e-9))

	softChunks := capChunks
	if c.DailySoftHours > 0 && c.DailySoftHours < maxHours {
		softChunks = int(math.Floor(c.DailySoftHours/chunkHours + 1e-9))
	}

	today := c.Today
	if today.IsZero() {
		today = time.Now()
	}
	today = dayOf(today)

	start := today
	if !c.StartDate.IsZero() && dayOf(c.StartDate).After(today) {
		start = dayOf(c.StartDate)
	}

	blocked := make(map[string]bool, len(c.BlockedDays))
	for _, d := range c.BlockedDays {
		blocked[dayKey(d)] = true
	}

	completed := make(map[string]float64, len(c.CompletedHours))
	for id, h := range c.CompletedHours {
		if h > 0 {
			completed[id] = h
		}
	}

	return &resolved{
		chunkHours: chunkHours,
		capChunks:  capChunks,
		softChunks: softChunks,
		start:      start,
		today:      today,
		blocked:    blocked,
		completed:  completed,
	}
}

// dayOf normalizes a timestamp to its calendar day in UTC so that time-of-day
// and zone drift never influence scheduling.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return dayOf(t).Format("2006-01-02")
}

func parseDayKey(key string) time.Time {
	t, _ := time.Parse("2006-01-02", key)
	return t
}

// daysApart returns the calendar-day difference b-a for normalized days.
func daysApart(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// emptyDaysBetween counts the unallocated days strictly between two
// allocation days.
func emptyDaysBetween(a, b time.Time) int {
	diff := daysApart(a, b)
	if diff <= 1 {
		return 0
	}
	return diff - 1
}
