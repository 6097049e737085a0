package planner

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Subject is one exam to prepare for.
type Subject struct {
	ID             string
	Name           string
	ExamDate       time.Time
	Difficulty     int // 1..5, 5 hardest
	Confidence     int // 1..5, 5 most confident
	EstimatedHours float64
	StudyOnExamDay bool
}

// ExistingSession is a previously scheduled session still on the calendar.
type ExistingSession struct {
	SubjectID string
	Date      time.Time
	Hours     float64
}

// DayPlan is the final allocation for one calendar day.
type DayPlan struct {
	Date  time.Time
	Hours map[string]float64
	Total float64
}

// Calendar maps day keys (2006-01-02) to their allocations.
type Calendar map[string]DayPlan

// OverloadInfo summarizes days that exceed the hard daily budget. The engine
// degrades to an overloaded plan instead of failing when demand cannot fit.
type OverloadInfo struct {
	Days        int
	ExcessHours float64
}

// Mode identifies which pipeline the facade selected.
type Mode string

const (
	ModeEmpty     Mode = "EMPTY"
	ModeSingle    Mode = "SINGLE_SUBJECT"
	ModeFresh     Mode = "MULTI_FRESH"
	ModeRebalance Mode = "REBALANCE_ONLY"
)

// Result is the outcome of a planning run.
type Result struct {
	Calendar Calendar
	Mode     Mode
	Overload *OverloadInfo
	Report   Report
}

// TotalHours sums every allocation in the calendar.
func (c Calendar) TotalHours() float64 {
	var total float64
	for _, day := range c {
		total += day.Total
	}
	return total
}

// SubjectHours sums the calendar's allocation for one subject.
func (c Calendar) SubjectHours(subjectID string) float64 {
	var total float64
	for _, day := range c {
		total += day.Hours[subjectID]
	}
	return total
}

// SortedDays returns the calendar's days in chronological order.
func (c Calendar) SortedDays() []DayPlan {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	days := make([]DayPlan, 0, len(keys))
	for _, k := range keys {
		days = append(days, c[k])
	}
	return days
}

// subjectState carries a subject's derived planning data through the
// pipeline.
type subjectState struct {
	Subject
	order       int
	adjusted    float64
	remaining   float64
	totalChunks int
	validDays   []time.Time
	validSet    map[string]bool
	// reviewDay is the key of the reserved day before the exam, empty when
	// that day is blocked or out of range.
	reviewDay string
}

func (st *subjectState) validFor(key string) bool {
	return st.validSet[key]
}

func buildState(s Subject, order int, rc *resolved) *subjectState {
	st := &subjectState{Subject: s, order: order}
	st.adjusted = AdjustedHours(s)
	st.remaining = st.adjusted - rc.completed[s.ID]
	if st.remaining < 0 {
		st.remaining = 0
	}
	st.totalChunks = int(math.Ceil(st.remaining/rc.chunkHours - 1e-9))
	st.validDays = validStudyDays(s, rc)
	st.validSet = make(map[string]bool, len(st.validDays))
	for _, d := range st.validDays {
		st.validSet[dayKey(d)] = true
	}
	if review := dayOf(s.ExamDate).AddDate(0, 0, -1); st.validSet[dayKey(review)] {
		st.reviewDay = dayKey(review)
	}
	return st
}

// schedule is the mutable chunk grid the merge, balance and repair passes
// operate on. Hours only materialize at export time.
type schedule struct {
	rc     *resolved
	chunks map[string]map[string]int // day key -> subject ID -> chunks
}

func newSchedule(rc *resolved) *schedule {
	return &schedule{rc: rc, chunks: make(map[string]map[string]int)}
}

func (s *schedule) add(key, subjectID string, n int) {
	day := s.chunks[key]
	if day == nil {
		day = make(map[string]int)
		s.chunks[key] = day
	}
	day[subjectID] += n
}

func (s *schedule) remove(key, subjectID string, n int) {
	day := s.chunks[key]
	if day == nil {
		return
	}
	day[subjectID] -= n
	if day[subjectID] <= 0 {
		delete(day, subjectID)
	}
	if len(day) == 0 {
		delete(s.chunks, key)
	}
}

func (s *schedule) move(from, to, subjectID string, n int) {
	s.remove(from, subjectID, n)
	s.add(to, subjectID, n)
}

func (s *schedule) count(key, subjectID string) int {
	return s.chunks[key][subjectID]
}

func (s *schedule) total(key string) int {
	var total int
	for _, n := range s.chunks[key] {
		total += n
	}
	return total
}

func (s *schedule) sortedKeys() []string {
	keys := make([]string, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// subjectDayKeys returns the days holding the subject, ascending.
func (s *schedule) subjectDayKeys(subjectID string) []string {
	var keys []string
	for k, day := range s.chunks {
		if day[subjectID] > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// export materializes the grid into hours and derives overload from the
// per-day totals.
func (s *schedule) export() (Calendar, *OverloadInfo) {
	cal := make(Calendar, len(s.chunks))
	var overload OverloadInfo
	for key, day := range s.chunks {
		plan := DayPlan{Date: parseDayKey(key), Hours: make(map[string]float64, len(day))}
		for id, n := range day {
			h := float64(n) * s.rc.chunkHours
			plan.Hours[id] = h
			plan.Total += h
		}
		cal[key] = plan
		if total := s.total(key); total > s.rc.capChunks {
			overload.Days++
			overload.ExcessHours += float64(total-s.rc.capChunks) * s.rc.chunkHours
		}
	}
	if overload.Days == 0 {
		return cal, nil
	}
	return cal, &overload
}

func (o *OverloadInfo) String() string {
	if o == nil {
		return "no overload"
	}
	return fmt.Sprintf("%d overloaded days, %.1f excess hours", o.Days, o.ExcessHours)
}
