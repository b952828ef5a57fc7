package webhook

import (
	"log"
)

// Subtractor assembles baseline-corrected current arrays for the plotting
// consumer. Peak identification itself happens downstream; this layer only
// removes the non-faradaic background.
type Subtractor struct{}

// NewSubtractor creates a new baseline subtractor
func NewSubtractor() *Subtractor {
	return &Subtractor{}
}

// FullBaseline concatenates the two half baselines back into one array
// aligned with the raw trace.
func (s *Subtractor) FullBaseline(forward, reverse []float64) []float64 {
	baseline := make([]float64, 0, len(forward)+len(reverse))
	baseline = append(baseline, forward...)
	baseline = append(baseline, reverse...)
	return baseline
}

// CorrectedCurrent subtracts the synthesized baseline from the raw current,
// leaving the faradaic signal. A baseline/current length mismatch means the
// arrays come from different traces; the correction is skipped rather than
// misaligned.
func (s *Subtractor) CorrectedCurrent(current, forward, reverse []float64) []float64 {
	baseline := s.FullBaseline(forward, reverse)
	if len(baseline) != len(current) {
		log.Printf("Warning: baseline length %d does not match current length %d, skipping subtraction",
			len(baseline), len(current))
		return nil
	}

	corrected := make([]float64, len(current))
	for i := range current {
		corrected[i] = current[i] - baseline[i]
	}
	return corrected
}
