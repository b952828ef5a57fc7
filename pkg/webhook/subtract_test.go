package webhook

import (
	"math"
	"testing"
)

func TestCorrectedCurrent(t *testing.T) {
	s := NewSubtractor()

	tests := []struct {
		name     string
		current  []float64
		forward  []float64
		reverse  []float64
		expected []float64
	}{
		{
			name:     "baseline removed from both halves",
			current:  []float64{3, 4, 5, 6},
			forward:  []float64{1, 2},
			reverse:  []float64{3, 4},
			expected: []float64{2, 2, 2, 2},
		},
		{
			name:     "empty reverse half",
			current:  []float64{1, 2},
			forward:  []float64{0.5, 0.5},
			reverse:  nil,
			expected: []float64{0.5, 1.5},
		},
		{
			name:     "length mismatch yields nil",
			current:  []float64{1, 2, 3},
			forward:  []float64{1},
			reverse:  []float64{1},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.CorrectedCurrent(tt.current, tt.forward, tt.reverse)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d values, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if math.Abs(got[i]-tt.expected[i]) > 1e-12 {
					t.Errorf("index %d: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestSanitizeSlice(t *testing.T) {
	in := []float64{1.5, math.NaN(), math.Inf(1), -2.5, math.Inf(-1)}
	out := sanitizeSlice(in)

	want := []float64{1.5, 0, 0, -2.5, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], out[i])
		}
	}
	if !math.IsNaN(in[1]) {
		t.Error("sanitizeSlice mutated its input")
	}
}
