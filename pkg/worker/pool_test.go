package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
)

// stubProcessor echoes the trace length so tests can verify delivery
// without running the detector.
func stubProcessor(voltage, current []float64, currentUnit string, cfg *config.Config) interface{} {
	return models.AnalysisResult{
		Status:       models.StatusOK,
		TurningPoint: len(voltage) - 1,
	}
}

func waitForResult(t *testing.T, pool *Pool) models.WorkResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if result, ok := pool.GetResult(); ok {
			return result
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for worker result")
	return models.WorkResult{}
}

func TestPoolProcessesJob(t *testing.T) {
	pool := New(Options{Workers: 2, Processor: stubProcessor})
	defer pool.Shutdown()

	cfg := config.DefaultConfig()
	voltage := []float64{0.1, 0.2, 0.3, 0.4}
	current := []float64{1, 2, 3, 4}

	pool.SubmitJob(models.WorkItem{
		ID:          1,
		RequestID:   "req-1",
		Voltage:     voltage,
		Current:     current,
		CurrentUnit: "uA",
		Config:      cfg,
		StartTime:   time.Now(),
	})

	result := waitForResult(t, pool)
	if !result.Success {
		t.Fatalf("Success = false, result: %+v", result)
	}
	if result.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", result.RequestID)
	}
	if result.Result.TurningPoint != 3 {
		t.Errorf("TurningPoint = %d, want 3", result.Result.TurningPoint)
	}

	// Copies must be independent of the caller's slices
	result.Voltage[0] = 99
	if voltage[0] != 0.1 {
		t.Error("result voltage aliases the submitted slice")
	}
}

func TestPoolErrorResult(t *testing.T) {
	failing := func(voltage, current []float64, currentUnit string, cfg *config.Config) interface{} {
		return models.AnalysisResult{Status: "ERROR", Error: "bad trace"}
	}

	pool := New(Options{Workers: 1, Processor: failing})
	defer pool.Shutdown()

	pool.SubmitJob(models.WorkItem{
		ID:      1,
		Voltage: []float64{0.1},
		Current: []float64{1},
		Config:  config.DefaultConfig(),
	})

	result := waitForResult(t, pool)
	if result.Success {
		t.Error("Success = true for error result")
	}
	if result.Result.Error != "bad trace" {
		t.Errorf("Error = %q, want %q", result.Result.Error, "bad trace")
	}
}

func TestPoolWebhookDelivery(t *testing.T) {
	var mu sync.Mutex
	var delivered []string

	sender := func(item models.WebhookItem) error {
		mu.Lock()
		delivered = append(delivered, item.RequestID)
		mu.Unlock()
		return nil
	}

	pool := New(Options{Workers: 1, Processor: stubProcessor, Sender: sender})
	defer pool.Shutdown()

	pool.QueueWebhook(models.WebhookItem{RequestID: "hook-1"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "hook-1" {
		t.Errorf("delivered = %v, want [hook-1]", delivered)
	}
}
