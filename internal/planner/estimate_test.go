package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustedHours(t *testing.T) {
	tests := []struct {
		name       string
		estimated  float64
		difficulty int
		confidence int
		want       float64
	}{
		{"neutral keeps estimate", 10, 3, 3, 10},
		{"hard subject adds hours", 10, 5, 3, 10.5},
		{"hard and unconfident hits the cap", 10, 5, 1, 11},
		{"easy and confident hits the floor", 10, 1, 5, 9},
		{"difficulty and confidence cancel", 10, 5, 5, 10},
		{"tiny estimate floors at one hour", 0.5, 3, 3, 1},
		{"out of range ratings are neutral", 10, 9, -2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustedHours(Subject{
				EstimatedHours: tt.estimated,
				Difficulty:     tt.difficulty,
				Confidence:     tt.confidence,
			})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAdjustedHoursNeverLeavesCap(t *testing.T) {
	for d := 1; d <= 5; d++ {
		for c := 1; c <= 5; c++ {
			got := AdjustedHours(Subject{EstimatedHours: 20, Difficulty: d, Confidence: c})
			assert.GreaterOrEqual(t, got, 18.0)
			assert.LessOrEqual(t, got, 22.0)
		}
	}
}
