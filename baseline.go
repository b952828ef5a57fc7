package govoltcore

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScoreWeights are the selector's scoring coefficients. The original
// detector variants hard-coded slightly different constants at each call
// site; here they are plain configuration so a tuned variant is a Config
// value, not a fork of the algorithm.
type ScoreWeights struct {
	R2Weight        float64 // reward for goodness of fit
	LengthWeight    float64 // reward for longer segments
	LengthNorm      float64 // segment length at which the length reward saturates
	SlopePenaltyCap float64 // cap on the steepness penalty
	SpanBonus       float64 // bonus for a plausible baseline width
	SpanMin         float64 // lower edge of the plausible |voltage span| band (V)
	SpanMax         float64 // upper edge of the plausible |voltage span| band (V)
	NoiseBonus      float64 // max reward for low current noise
}

// Config holds every tunable of the baseline detector.
//
// CurrentScale converts current values to microamps for the scorer's slope
// penalty and noise bonus. The defaults assume current in amperes
// (scale 1e6); callers feeding microamp-denominated traces must pass 1.
// This was an undocumented constant in the original detectors and is a
// latent unit bug if left implicit.
type Config struct {
	MinLength    int     // smallest candidate window, samples
	MaxLength    int     // largest candidate window, samples
	R2Threshold  float64 // minimum fit quality for a candidate segment
	MinSpan      float64 // minimum |voltage span| of a window, volts
	OverlapLimit float64 // overlap ratio above which candidates dedupe
	Tolerance    int     // slack around the turning point, samples
	CurrentScale float64 // multiplier converting current to microamps
	RobustRefine bool    // re-fit winning segments with soft-L1 weighting
	Weights      ScoreWeights
}

// DefaultConfig returns the detector configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinLength:    5,
		MaxLength:    50,
		R2Threshold:  0.95,
		MinSpan:      0.02,
		OverlapLimit: 0.6,
		Tolerance:    5,
		CurrentScale: 1e6,
		Weights: ScoreWeights{
			R2Weight:        50,
			LengthWeight:    30,
			LengthNorm:      20,
			SlopePenaltyCap: 10,
			SpanBonus:       10,
			SpanMin:         0.05,
			SpanMax:         0.3,
			NoiseBonus:      10,
		},
	}
}

// BaselineResult is the detector output. ForwardSegment or ReverseSegment is
// nil when that half fell back to a whole-half fit; downstream consumers
// should treat such a baseline as lower confidence.
type BaselineResult struct {
	ForwardBaseline []float64
	ReverseBaseline []float64
	ForwardSegment  *Segment
	ReverseSegment  *Segment
}

// Detector runs the baseline detection pipeline. It holds no mutable state
// beyond its configuration, so a single Detector is safe to share across
// goroutines.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// FindTurningPoint returns the index of the lowest potential sample, the
// point where the sweep reverses direction. A CV sweep starts at some
// potential, runs to the voltage extremum and turns back, so argmin splits
// forward from reverse. Behavior on an all-NaN trace is undefined; callers
// must pre-validate.
func FindTurningPoint(voltage []float64) int {
	return floats.MinIdx(voltage)
}

// SelectBest partitions segments into forward and reverse candidates around
// the turning point and returns the highest-scoring segment for each
// direction, or nil for a direction with no candidates. cfg.Tolerance widens
// both buckets by a few samples so a slightly mis-estimated turning point
// does not exclude segments sitting right next to it; a segment may appear
// in both buckets.
func SelectBest(segments []Segment, turningPoint int, cfg Config) (forward, reverse *Segment) {
	var fwd, rev []Segment
	for _, seg := range segments {
		if seg.EndIdx <= turningPoint+cfg.Tolerance {
			fwd = append(fwd, seg)
		}
		if seg.StartIdx >= turningPoint-cfg.Tolerance {
			rev = append(rev, seg)
		}
	}
	return bestOf(fwd, cfg), bestOf(rev, cfg)
}

func bestOf(segments []Segment, cfg Config) *Segment {
	if len(segments) == 0 {
		return nil
	}
	best := segments[0]
	bestScore := scoreSegment(best, cfg)
	for _, seg := range segments[1:] {
		score := scoreSegment(seg, cfg)
		switch {
		case score > bestScore:
			best, bestScore = seg, score
		case score == bestScore && seg.Length > best.Length:
			best = seg
		case score == bestScore && seg.Length == best.Length && seg.StartIdx < best.StartIdx:
			best = seg
		}
	}
	return &best
}

// scoreSegment rates a candidate baseline segment; higher is better. Fit
// quality dominates, longer segments are preferred up to a cap, steep fits
// are penalized (an ohmic baseline is nearly flat in microamp terms), and a
// bonus goes to segments whose voltage span and current noise look like a
// real baseline rather than a lucky short window.
func scoreSegment(seg Segment, cfg Config) float64 {
	w := cfg.Weights

	score := w.R2Weight * seg.R2

	lengthTerm := float64(seg.Length) / w.LengthNorm
	if lengthTerm > 1 {
		lengthTerm = 1
	}
	score += w.LengthWeight * lengthTerm

	slopePenalty := math.Abs(seg.Slope) * cfg.CurrentScale
	if slopePenalty > w.SlopePenaltyCap {
		slopePenalty = w.SlopePenaltyCap
	}
	score -= slopePenalty

	span := math.Abs(seg.VoltageSpan)
	if span >= w.SpanMin && span <= w.SpanMax {
		score += w.SpanBonus
	}

	noiseBonus := w.NoiseBonus - seg.StdCurrent*cfg.CurrentScale
	if noiseBonus > 0 {
		score += noiseBonus
	}

	return score
}

// Detect runs the full pipeline over one voltammogram and synthesizes a
// baseline for each scan half. The input arrays are never mutated; every
// call allocates fresh output. Mismatched or empty input is a caller
// contract violation and fails loudly -- a silently misaligned baseline
// would be worse than no baseline.
func (d *Detector) Detect(voltage, current []float64) (BaselineResult, error) {
	if len(voltage) == 0 {
		return BaselineResult{}, fmt.Errorf("baseline: empty trace")
	}
	if len(voltage) != len(current) {
		return BaselineResult{}, fmt.Errorf("baseline: voltage and current length mismatch: %d vs %d", len(voltage), len(current))
	}

	segments := RemoveOverlaps(FindSegments(voltage, current, d.cfg), d.cfg.OverlapLimit)
	turningPoint := FindTurningPoint(voltage)
	forward, reverse := SelectBest(segments, turningPoint, d.cfg)

	if d.cfg.RobustRefine {
		forward = refineIfPresent(voltage, current, forward, d.cfg)
		reverse = refineIfPresent(voltage, current, reverse, d.cfg)
	}

	return BaselineResult{
		ForwardBaseline: synthesizeHalf(voltage[:turningPoint+1], current[:turningPoint+1], forward),
		ReverseBaseline: synthesizeHalf(voltage[turningPoint+1:], current[turningPoint+1:], reverse),
		ForwardSegment:  forward,
		ReverseSegment:  reverse,
	}, nil
}

// synthesizeHalf evaluates the winning segment's line at every voltage in
// the half, extrapolating well outside the segment's own index range: the
// ohmic baseline is assumed linear in voltage across the whole non-faradaic
// region, not just inside the best-fit window. Without a winning segment the
// whole-half fallback fit is used instead.
func synthesizeHalf(voltageHalf, currentHalf []float64, seg *Segment) []float64 {
	if seg == nil {
		return fallbackFit(voltageHalf, currentHalf)
	}
	baseline := make([]float64, len(voltageHalf))
	for i, v := range voltageHalf {
		baseline[i] = seg.Slope*v + seg.Intercept
	}
	return baseline
}

// fallbackFit degrades to an ordinary degree-1 least-squares fit over the
// entire half, with no windowing and no fit-quality gate. It always returns
// a full-length array so the synthesizer's output shape holds even for
// pathological input; with fewer than two samples no line exists and the
// output is NaN-filled.
func fallbackFit(voltageHalf, currentHalf []float64) []float64 {
	baseline := make([]float64, len(voltageHalf))
	if len(voltageHalf) < 2 {
		for i := range baseline {
			baseline[i] = math.NaN()
		}
		return baseline
	}

	intercept, slope := stat.LinearRegression(voltageHalf, currentHalf, nil, false)
	for i, v := range voltageHalf {
		baseline[i] = slope*v + intercept
	}
	return baseline
}
