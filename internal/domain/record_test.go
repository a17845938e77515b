package domain

import (
	"math"
	"testing"
)

// TestEstimateOneRepMax verifies the Epley formula and the single-rep
// short-circuit.
func TestEstimateOneRepMax(t *testing.T) {
	cases := []struct {
		weight float64
		reps   int
		want   float64
	}{
		{100, 1, 100},   // a single is the lift itself
		{100, 0, 100},   // degenerate input, same short-circuit
		{100, 5, 100 * (1 + 5.0/30)},
		{60, 10, 60 * (1 + 10.0/30)},
	}
	for _, tc := range cases {
		got := EstimateOneRepMax(tc.weight, tc.reps)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("EstimateOneRepMax(%v, %d) = %v, want %v", tc.weight, tc.reps, got, tc.want)
		}
	}
}
