package govoltcore

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Segment is a candidate linear region of a voltammogram. Segments are value
// objects: created by FindSegments, never mutated afterwards.
type Segment struct {
	StartIdx    int
	EndIdx      int
	Length      int
	Slope       float64
	Intercept   float64
	R2          float64
	VoltageSpan float64
	MeanCurrent float64
	StdCurrent  float64
}

// FindSegments enumerates every window placement and size over the trace and
// returns the windows whose current is well fitted by a line in voltage.
// Baseline regions vary in both position and extent, so no single heuristic
// window finds all of them; the exhaustive sweep is O(n * MaxLength) windows
// and stays cheap for the few thousand samples a CV trace carries.
//
// Windows containing NaN/Inf samples are skipped, as are windows whose
// voltage span is below cfg.MinSpan (a fit over less than ~20 mV is not
// distinguishable from noise). Degenerate input yields an empty result,
// never an error.
func FindSegments(voltage, current []float64, cfg Config) []Segment {
	n := len(voltage)
	if len(current) != n || n < cfg.MinLength {
		return nil
	}

	var segments []Segment
	for s := 0; s <= n-cfg.MinLength; s++ {
		maxEnd := s + cfg.MaxLength
		if maxEnd > n {
			maxEnd = n
		}
		for end := s + cfg.MinLength - 1; end < maxEnd; end++ {
			// A non-finite sample poisons this and every longer window
			// starting at s, so stop extending.
			if !isFinite(voltage[end]) || !isFinite(current[end]) {
				break
			}
			if end == s+cfg.MinLength-1 && !windowFinite(voltage[s:end], current[s:end]) {
				break
			}

			span := voltage[end] - voltage[s]
			if math.Abs(span) < cfg.MinSpan {
				continue
			}

			vs := voltage[s : end+1]
			cs := current[s : end+1]
			intercept, slope := stat.LinearRegression(vs, cs, nil, false)
			r2 := rSquared(vs, cs, slope, intercept)
			if r2 < cfg.R2Threshold {
				continue
			}

			segments = append(segments, Segment{
				StartIdx:    s,
				EndIdx:      end,
				Length:      end - s + 1,
				Slope:       slope,
				Intercept:   intercept,
				R2:          r2,
				VoltageSpan: span,
				MeanCurrent: stat.Mean(cs, nil),
				StdCurrent:  stat.StdDev(cs, nil),
			})
		}
	}
	return segments
}

// RemoveOverlaps deduplicates near-identical candidates. Segments are ranked
// by R2 descending and kept greedily: a candidate is dropped when it overlaps
// an already-kept segment by more than limit of the shorter of the two
// lengths. Adjacent windows of slightly different extent over the same flat
// region are near-duplicates, and keeping only the best fit spares the
// selector from disambiguating them.
//
// The sort is stable, so R2 ties resolve toward the segment enumerated first
// by FindSegments (smaller start index, then shorter length). This tie-break
// is deliberate: it makes repeated runs over identical input reproducible.
func RemoveOverlaps(segments []Segment, limit float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	ranked := make([]Segment, len(segments))
	copy(ranked, segments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].R2 > ranked[j].R2
	})

	var kept []Segment
	for _, cand := range ranked {
		conflict := false
		for _, k := range kept {
			if overlapRatio(cand, k) > limit {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, cand)
		}
	}
	return kept
}

// overlapRatio returns the shared sample count relative to the shorter of
// the two segments. Normalizing by the shorter length means a small segment
// swallowed by a large one counts as a full overlap either way around.
func overlapRatio(a, b Segment) float64 {
	lo := a.StartIdx
	if b.StartIdx > lo {
		lo = b.StartIdx
	}
	hi := a.EndIdx
	if b.EndIdx < hi {
		hi = b.EndIdx
	}
	shared := hi - lo + 1
	if shared <= 0 {
		return 0
	}
	shorter := a.Length
	if b.Length < shorter {
		shorter = b.Length
	}
	return float64(shared) / float64(shorter)
}

// rSquared computes the coefficient of determination for the line
// y = slope*x + intercept over the given samples.
func rSquared(xs, ys []float64, slope, intercept float64) float64 {
	meanY := stat.Mean(ys, nil)
	var ssTot, ssRes float64
	for i := range ys {
		predicted := slope*xs[i] + intercept
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
		ssRes += (ys[i] - predicted) * (ys[i] - predicted)
	}
	if ssTot == 0 {
		// Constant current: the OLS line reproduces it exactly.
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func windowFinite(vs, cs []float64) bool {
	for i := range vs {
		if !isFinite(vs[i]) || !isFinite(cs[i]) {
			return false
		}
	}
	return true
}
