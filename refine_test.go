package govoltcore

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestRefineSegmentDiscountsOutlier(t *testing.T) {
	const trueSlope = 1e-5

	// A clean line with one spike inside the window. Plain OLS tilts
	// toward the spike; the soft-L1 re-fit should not.
	n := 20
	voltage := make([]float64, n)
	current := make([]float64, n)
	for i := 0; i < n; i++ {
		voltage[i] = float64(i) * 0.01
		current[i] = trueSlope*voltage[i] + 1e-6 + 2e-9*math.Sin(float64(i))
	}
	current[n-1] += 5e-6

	intercept, slope := stat.LinearRegression(voltage, current, nil, false)
	seg := Segment{
		StartIdx:  0,
		EndIdx:    n - 1,
		Length:    n,
		Slope:     slope,
		Intercept: intercept,
		R2:        rSquared(voltage, current, slope, intercept),
	}

	refined := RefineSegment(voltage, current, seg, 1e6)

	olsErr := math.Abs(seg.Slope - trueSlope)
	refinedErr := math.Abs(refined.Slope - trueSlope)
	if refinedErr > olsErr {
		t.Errorf("refined slope error %.3e exceeds OLS error %.3e", refinedErr, olsErr)
	}
	if refinedErr/trueSlope > 0.35 {
		t.Errorf("refined slope %.4e deviates %.1f%% from true slope",
			refined.Slope, refinedErr/trueSlope*100)
	}
	if !isFinite(refined.Slope) || !isFinite(refined.Intercept) {
		t.Error("refinement produced non-finite parameters")
	}
	if refined.StartIdx != seg.StartIdx || refined.EndIdx != seg.EndIdx {
		t.Error("refinement changed segment bounds")
	}
}

func TestRefineSegmentCleanLineStable(t *testing.T) {
	const trueSlope = 1e-5

	n := 30
	voltage := make([]float64, n)
	current := make([]float64, n)
	for i := 0; i < n; i++ {
		voltage[i] = float64(i) * 0.01
		current[i] = trueSlope*voltage[i] + 1e-6 + 1e-9*math.Cos(float64(i))
	}

	intercept, slope := stat.LinearRegression(voltage, current, nil, false)
	seg := Segment{StartIdx: 0, EndIdx: n - 1, Length: n, Slope: slope, Intercept: intercept}

	refined := RefineSegment(voltage, current, seg, 1e6)

	if relErr := math.Abs(refined.Slope-trueSlope) / trueSlope; relErr > 0.05 {
		t.Errorf("refined slope %.4e drifted %.1f%% on a clean line", refined.Slope, relErr*100)
	}
}

func TestDetectWithRobustRefine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RobustRefine = true

	voltage := TriangleSweep(0.5, -0.5, 100)
	current := OhmicCurrent(voltage, 1e-5, 2e-6)
	AddNoise(current, 1e-4, 42)

	det := NewDetector(cfg)
	res, err := det.Detect(voltage, current)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if res.ForwardSegment == nil || res.ReverseSegment == nil {
		t.Fatal("expected winning segments on both halves")
	}
	for _, seg := range []*Segment{res.ForwardSegment, res.ReverseSegment} {
		if !isFinite(seg.Slope) || !isFinite(seg.Intercept) {
			t.Errorf("robust refinement produced non-finite parameters: %+v", seg)
		}
		if relErr := math.Abs(seg.Slope-1e-5) / 1e-5; relErr > 0.05 {
			t.Errorf("refined slope %.4e deviates %.1f%% from true slope", seg.Slope, relErr*100)
		}
	}
}
