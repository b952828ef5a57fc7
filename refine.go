package govoltcore

import (
	"log"
	"math"

	"github.com/maorshutman/lm"
)

// RefineSegment re-fits a winning segment's line by minimizing soft-L1
// weighted residuals with Levenberg-Marquardt instead of plain least
// squares. The soft-L1 loss behaves quadratically for small residuals and
// linearly for large ones, so a stray point inside an otherwise flat window
// pulls the baseline less than it would under OLS. Residuals are scaled to
// microamps first so the loss transition sits at a meaningful current.
//
// The OLS parameters seed the solver; if the solver fails or diverges the
// segment is returned unchanged, so refinement never makes a result worse
// than the plain fit. The solve is deterministic for identical input.
func RefineSegment(voltage, current []float64, seg Segment, scale float64) Segment {
	xs := voltage[seg.StartIdx : seg.EndIdx+1]
	ys := current[seg.StartIdx : seg.EndIdx+1]

	fnc := func(dst, p []float64) {
		for i := range xs {
			r := (ys[i] - (p[0]*xs[i] + p[1])) * scale
			dst[i] = softL1(r)
		}
	}

	jac := lm.NumJac{Func: fnc}

	problem := lm.LMProblem{
		Dim:        2,
		Size:       len(xs),
		Func:       fnc,
		Jac:        jac.Jac,
		InitParams: []float64{seg.Slope, seg.Intercept},
		Tau:        1e-13,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// Recover from LM panics (e.g., singular matrix)
	refined := seg
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("segment refinement panicked: %v", r)
			}
		}()

		res, err := lm.LM(problem, &lm.Settings{Iterations: 200, ObjectiveTol: 1e-16})
		if err != nil {
			log.Printf("segment refinement failed: %v", err)
			return
		}
		if isFinite(res.X[0]) && isFinite(res.X[1]) {
			refined.Slope = res.X[0]
			refined.Intercept = res.X[1]
			refined.R2 = rSquared(xs, ys, res.X[0], res.X[1])
		}
	}()
	return refined
}

func refineIfPresent(voltage, current []float64, seg *Segment, cfg Config) *Segment {
	if seg == nil {
		return nil
	}
	refined := RefineSegment(voltage, current, *seg, cfg.CurrentScale)
	return &refined
}

// softL1 maps a residual r to sqrt(rho(r)) with rho(r) = 2*(sqrt(1+r^2)-1),
// so the solver's sum of squares equals the soft-L1 objective.
func softL1(r float64) float64 {
	return math.Sqrt(2 * (math.Sqrt(1+r*r) - 1))
}
