package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/koson/govoltcore/internal/utils"
	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
	"github.com/koson/govoltcore/pkg/worker"
)

// BatchHandler handles batch voltammogram analysis requests
type BatchHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	processor  ProcessorFunc
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(cfg *config.Config, pool *worker.Pool, processor ProcessorFunc) *BatchHandler {
	return &BatchHandler{
		config:     cfg,
		workerPool: pool,
		processor:  processor,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setupCORS(w)

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var batch models.VoltammogramBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if len(batch.Traces) == 0 {
		h.writeError(w, "No traces provided in batch", http.StatusBadRequest)
		return
	}

	if batch.BatchID == "" {
		batch.BatchID = utils.GenerateBatchID()
	}

	log.Printf("🔄 Batch processing started - ID: %s, Traces: %d", batch.BatchID, len(batch.Traces))

	// Process batch asynchronously
	go h.processBatchAsync(batch)

	// Return immediate response
	response := map[string]interface{}{
		"success":  true,
		"batch_id": batch.BatchID,
		"traces":   len(batch.Traces),
		"message":  "Batch processing started with worker pool",
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// processBatchAsync handles asynchronous batch processing
func (h *BatchHandler) processBatchAsync(batch models.VoltammogramBatch) {
	batchStartTime := time.Now()
	timings := make([]models.TraceTiming, len(batch.Traces))
	resultsReceived := 0

	// Submit all jobs to worker pool
	for _, item := range batch.Traces {
		job := h.createWorkItem(item, batch.BatchID)
		h.workerPool.SubmitJob(job)
	}

	// Collect results from worker pool
	for resultsReceived < len(batch.Traces) {
		if result, ok := h.workerPool.GetResult(); ok {
			h.processResult(result, timings)
			resultsReceived++
		} else {
			// No results available yet, small delay to prevent busy waiting
			time.Sleep(1 * time.Millisecond)
		}
	}

	totalBatchTime := time.Since(batchStartTime)
	concurrency := h.getConcurrency()

	h.saveTimingResults(batch.BatchID, totalBatchTime, timings, concurrency)

	log.Printf("🎉 Batch processing completed - ID: %s, Total time: %v", batch.BatchID, totalBatchTime)
}

// createWorkItem converts a batch item to a work item
func (h *BatchHandler) createWorkItem(item models.BatchItem, batchID string) models.WorkItem {
	trace := item.Voltammogram

	log.Printf("DEBUG: Queueing trace %d with %d samples", item.Iteration, len(trace.Voltage))

	for i := range trace.Voltage {
		if i < len(trace.Current) &&
			(math.IsNaN(trace.Voltage[i]) || math.IsInf(trace.Voltage[i], 0) ||
				math.IsNaN(trace.Current[i]) || math.IsInf(trace.Current[i], 0)) {
			log.Printf("WARNING: Non-finite sample at index %d in trace %d", i, item.Iteration)
		}
	}

	return models.WorkItem{
		ID:          item.Iteration,
		RequestID:   utils.GenerateID(),
		BatchID:     batchID,
		Iteration:   item.Iteration,
		Voltage:     trace.Voltage,
		Current:     trace.Current,
		CurrentUnit: trace.CurrentUnit,
		Config:      h.config,
		StartTime:   time.Now(),
	}
}

// processResult records timing for one trace and queues its webhook
func (h *BatchHandler) processResult(result models.WorkResult, timings []models.TraceTiming) {
	analysis := result.Result
	forwardR2, reverseR2 := segmentR2s(analysis)

	if result.Iteration >= 0 && result.Iteration < len(timings) {
		timings[result.Iteration] = models.TraceTiming{
			Iteration:      result.Iteration,
			ProcessingTime: result.ProcessingTime,
			ForwardR2:      forwardR2,
			ReverseR2:      reverseR2,
			FallbackUsed:   analysis.Baseline.ForwardSegment == nil || analysis.Baseline.ReverseSegment == nil,
			Success:        result.Success,
		}
	}

	if !result.Success {
		log.Printf("❌ Trace iteration %d failed: %s", result.Iteration, analysis.Error)
		return
	}

	h.workerPool.QueueWebhook(models.WebhookItem{
		RequestID:       fmt.Sprintf("%s_iter_%03d", result.RequestID, result.Iteration),
		Voltage:         result.Voltage,
		Current:         result.Current,
		ForwardBaseline: analysis.Baseline.ForwardBaseline,
		ReverseBaseline: analysis.Baseline.ReverseBaseline,
		ForwardSegment:  models.SegmentInfoFrom(analysis.Baseline.ForwardSegment),
		ReverseSegment:  models.SegmentInfoFrom(analysis.Baseline.ReverseSegment),
		TurningPoint:    analysis.TurningPoint,
	})

	if !h.config.Quiet {
		log.Printf("✅ Processed trace iteration %d", result.Iteration)
	}
}

func segmentR2s(analysis models.AnalysisResult) (float64, float64) {
	forward, reverse := 0.0, 0.0
	if seg := analysis.Baseline.ForwardSegment; seg != nil {
		forward = seg.R2
	}
	if seg := analysis.Baseline.ReverseSegment; seg != nil {
		reverse = seg.R2
	}
	return forward, reverse
}

// getConcurrency returns the current concurrency level
func (h *BatchHandler) getConcurrency() int {
	concurrency := 5
	if h.config != nil && h.config.Threads > 0 {
		concurrency = int(h.config.Threads)
	}
	return concurrency
}

// saveTimingResults appends batch timing data to a CSV file for performance analysis
func (h *BatchHandler) saveTimingResults(batchID string, totalTime time.Duration, timings []models.TraceTiming, concurrency int) {
	filename := "batch_timing_results.csv"

	// Check if file exists to decide on header
	var writeHeader bool
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		writeHeader = true
	}

	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Error opening timing file: %v", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if writeHeader {
		header := []string{
			"Timestamp",
			"BatchID",
			"TotalTraces",
			"Concurrency",
			"TotalBatchTime_ms",
			"AvgTraceTime_ms",
			"MinTraceTime_ms",
			"MaxTraceTime_ms",
			"SuccessRate",
			"FallbackRate",
			"AvgForwardR2",
			"TracesPerSecond",
			"EfficiencyScore",
		}
		if err := writer.Write(header); err != nil {
			log.Printf("Error writing timing header: %v", err)
			return
		}
	}

	// Calculate statistics
	var totalTraceTime time.Duration
	var minTime, maxTime time.Duration = time.Hour, 0
	var successful, fallbacks int
	var totalForwardR2 float64

	for _, timing := range timings {
		totalTraceTime += timing.ProcessingTime
		if timing.ProcessingTime < minTime {
			minTime = timing.ProcessingTime
		}
		if timing.ProcessingTime > maxTime {
			maxTime = timing.ProcessingTime
		}
		if timing.Success {
			successful++
			totalForwardR2 += timing.ForwardR2
		}
		if timing.FallbackUsed {
			fallbacks++
		}
	}

	numTraces := len(timings)
	avgTraceTime := totalTraceTime / time.Duration(numTraces)
	successRate := float64(successful) / float64(numTraces) * 100
	fallbackRate := float64(fallbacks) / float64(numTraces) * 100
	avgForwardR2 := 0.0
	if successful > 0 {
		avgForwardR2 = totalForwardR2 / float64(successful)
	}

	tracesPerSecond := float64(numTraces) / totalTime.Seconds()

	// Efficiency score: how well we utilized the concurrency
	// Perfect efficiency = 1.0 (linear speedup), poor efficiency < 0.5
	theoreticalTime := avgTraceTime * time.Duration(numTraces)
	efficiencyScore := theoreticalTime.Seconds() / totalTime.Seconds() / float64(concurrency)

	record := []string{
		time.Now().Format(time.RFC3339),
		batchID,
		fmt.Sprintf("%d", numTraces),
		fmt.Sprintf("%d", concurrency),
		fmt.Sprintf("%.2f", float64(totalTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.2f", float64(avgTraceTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.2f", float64(minTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.2f", float64(maxTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.1f", successRate),
		fmt.Sprintf("%.1f", fallbackRate),
		fmt.Sprintf("%.4f", avgForwardR2),
		fmt.Sprintf("%.2f", tracesPerSecond),
		fmt.Sprintf("%.3f", efficiencyScore),
	}

	if err := writer.Write(record); err != nil {
		log.Printf("Error writing timing record: %v", err)
		return
	}

	log.Printf("📊 Timing saved: %d traces, %d goroutines, %.2f ms total, %.2f%% success, %.1f%% fallback",
		numTraces, concurrency, float64(totalTime.Nanoseconds())/1000000.0, successRate, fallbackRate)
}

// setupCORS sets up CORS headers
func (h *BatchHandler) setupCORS(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// writeError writes an error response
func (h *BatchHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
