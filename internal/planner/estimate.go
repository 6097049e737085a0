package planner

// AdjustedHours scales the user's own estimate by difficulty and confidence.
// Difficulty above the midpoint raises the requirement, confidence above the
// midpoint lowers it, and the combined adjustment never moves more than
// estimateAdjustCap away from the estimate. The user's number is trusted; the
// scales only nudge it.
func AdjustedHours(s Subject) float64 {
	base := s.EstimatedHours
	if base <= 0 {
		return 0
	}

	difficulty := clampScale(s.Difficulty)
	confidence := clampScale(s.Confidence)

	diffFactor := 1 + (float64(difficulty)-3)/2*estimateAdjustCap
	confFactor := 1 + (3-float64(confidence))/2*estimateAdjustCap
	hours := base * (diffFactor + confFactor) / 2

	if lo := base * (1 - estimateAdjustCap); hours < lo {
		hours = lo
	}
	if hi := base * (1 + estimateAdjustCap); hours > hi {
		hours = hi
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

// clampScale forces a 1..5 rating into range, treating anything invalid as
// the neutral midpoint.
func clampScale(v int) int {
	if v < 1 || v > 5 {
		return 3
	}
	return v
}
