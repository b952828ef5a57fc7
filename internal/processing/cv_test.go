package processing

import (
	"math"
	"strings"
	"testing"

	"github.com/koson/govoltcore"
	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
)

func TestProcessValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Quiet = true
	proc := NewCVProcessor()

	tests := []struct {
		name    string
		voltage []float64
		current []float64
		wantErr string
	}{
		{
			name:    "no voltage",
			voltage: nil,
			current: []float64{1, 2, 3},
			wantErr: "no voltage data",
		},
		{
			name:    "no current",
			voltage: []float64{1, 2, 3},
			current: nil,
			wantErr: "no current data",
		},
		{
			name:    "length mismatch",
			voltage: []float64{1, 2, 3},
			current: []float64{1, 2},
			wantErr: "length mismatch",
		},
		{
			name:    "all non-finite voltage",
			voltage: []float64{math.NaN(), math.Inf(1), math.NaN()},
			current: []float64{1, 2, 3},
			wantErr: "no finite samples",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := proc.Process(tt.voltage, tt.current, "", cfg)
			if err == nil {
				t.Fatalf("Process() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Process() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProcessCleanTrace(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Quiet = true
	proc := NewCVProcessor()

	voltage := govoltcore.TriangleSweep(0.5, -0.5, 100)
	current := govoltcore.OhmicCurrent(voltage, 1e-5, 2e-6)
	govoltcore.AddNoise(current, 1e-4, 7)

	result, err := proc.Process(voltage, current, "A", cfg)
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if result.Status != models.StatusOK {
		t.Errorf("Status = %q, want %q", result.Status, models.StatusOK)
	}
	if result.TurningPoint != 99 {
		t.Errorf("TurningPoint = %d, want 99", result.TurningPoint)
	}
	total := len(result.Baseline.ForwardBaseline) + len(result.Baseline.ReverseBaseline)
	if total != len(voltage) {
		t.Errorf("baseline length = %d, want %d", total, len(voltage))
	}
}

func TestScaleForUnit(t *testing.T) {
	tests := []struct {
		unit   string
		want   float64
		wantOK bool
	}{
		{"A", 1e6, true},
		{"a", 1e6, true},
		{" mA ", 1e3, true},
		{"uA", 1, true},
		{"µA", 1, true},
		{"nA", 1e-3, true},
		{"", 0, false},
		{"furlongs", 0, false},
	}

	for _, tt := range tests {
		got, ok := ScaleForUnit(tt.unit)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ScaleForUnit(%q) = (%g, %v), want (%g, %v)", tt.unit, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestProcessorFuncErrorResult(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Quiet = true
	fn := NewCVProcessor().ProcessorFunc()

	out := fn(nil, []float64{1}, "", cfg)
	result, ok := out.(models.AnalysisResult)
	if !ok {
		t.Fatalf("ProcessorFunc returned %T, want models.AnalysisResult", out)
	}
	if result.Status != "ERROR" {
		t.Errorf("Status = %q, want ERROR", result.Status)
	}
	if result.Error == "" {
		t.Error("Error field empty, want error message")
	}
}
