package processing

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/koson/govoltcore"
	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
)

// CVProcessor handles baseline detection for cyclic-voltammetry traces
type CVProcessor struct{}

// NewCVProcessor creates a new CV processor
func NewCVProcessor() *CVProcessor {
	return &CVProcessor{}
}

// Process validates a voltammogram and runs the baseline detector over it.
// currentUnit names the unit of the current array; it overrides the
// configured CurrentScale so a microamp-denominated trace is scored with
// the right slope normalization.
func (p *CVProcessor) Process(voltage, current []float64, currentUnit string, cfg *config.Config) (models.AnalysisResult, error) {
	if len(voltage) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("no voltage data provided")
	}

	if len(current) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("no current data provided")
	}

	if len(voltage) != len(current) {
		return models.AnalysisResult{}, fmt.Errorf("voltage and current data length mismatch: %d vs %d", len(voltage), len(current))
	}

	if allNonFinite(voltage) {
		return models.AnalysisResult{}, fmt.Errorf("voltage data contains no finite samples")
	}

	detCfg := cfg.DetectorConfig()
	if scale, ok := ScaleForUnit(currentUnit); ok {
		detCfg.CurrentScale = scale
	} else if currentUnit != "" {
		log.Printf("Unknown current unit %q, keeping configured scale %g", currentUnit, detCfg.CurrentScale)
	}

	if !cfg.Quiet {
		log.Printf("Processing %d-sample voltammogram (unit=%q, scale=%g, robust=%v)",
			len(voltage), currentUnit, detCfg.CurrentScale, detCfg.RobustRefine)
	}

	startTime := time.Now()
	detector := govoltcore.NewDetector(detCfg)
	baseline, err := detector.Detect(voltage, current)
	duration := time.Since(startTime)

	if err != nil {
		log.Printf("Baseline detection FAILED: %v", err)
		return models.AnalysisResult{Status: "ERROR", Error: err.Error()}, err
	}

	turningPoint := len(baseline.ForwardBaseline) - 1

	if !cfg.Quiet {
		log.Printf("Baseline detection completed - turning point: %d, forward: %s, reverse: %s, time: %v",
			turningPoint, describeHalf(baseline.ForwardSegment), describeHalf(baseline.ReverseSegment), duration)
	}

	return models.AnalysisResult{
		Baseline:     baseline,
		TurningPoint: turningPoint,
		Status:       models.StatusOK,
	}, nil
}

// ScaleForUnit maps a current unit label to the multiplier converting that
// unit to microamps, the scale the segment scorer is calibrated for.
func ScaleForUnit(unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "a":
		return 1e6, true
	case "ma":
		return 1e3, true
	case "ua", "µa":
		return 1, true
	case "na":
		return 1e-3, true
	default:
		return 0, false
	}
}

func describeHalf(seg *govoltcore.Segment) string {
	if seg == nil {
		return "fallback"
	}
	return fmt.Sprintf("segment [%d,%d] R2=%.4f", seg.StartIdx, seg.EndIdx, seg.R2)
}

func allNonFinite(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ProcessorFunc creates a function compatible with the worker pool
func (p *CVProcessor) ProcessorFunc() func(voltage, current []float64, currentUnit string, cfg *config.Config) interface{} {
	return func(voltage, current []float64, currentUnit string, cfg *config.Config) interface{} {
		result, err := p.Process(voltage, current, currentUnit, cfg)
		if err != nil {
			log.Printf("CV processing error: %v", err)
			return models.AnalysisResult{
				Status: "ERROR",
				Error:  err.Error(),
			}
		}
		return result
	}
}
