package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/koson/govoltcore/internal/utils"
	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
	"github.com/koson/govoltcore/pkg/worker"
)

// CVHandler handles single voltammogram analysis requests
type CVHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	processor  ProcessorFunc
}

// ProcessorFunc defines the signature for baseline analysis
type ProcessorFunc func(voltage, current []float64, currentUnit string, cfg *config.Config) interface{}

// NewCVHandler creates a new CV handler
func NewCVHandler(cfg *config.Config, pool *worker.Pool, processor ProcessorFunc) *CVHandler {
	return &CVHandler{
		config:     cfg,
		workerPool: pool,
		processor:  processor,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *CVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setupCORS(w)

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var voltammogram models.VoltammogramData
	if err := json.NewDecoder(r.Body).Decode(&voltammogram); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if len(voltammogram.Voltage) == 0 {
		h.writeError(w, "No data points provided", http.StatusBadRequest)
		return
	}

	if len(voltammogram.Voltage) != len(voltammogram.Current) {
		h.writeError(w, "Voltage and current arrays must have equal length", http.StatusBadRequest)
		return
	}

	// Generate unique ID for this request
	requestID := utils.GenerateID()

	// Process data asynchronously
	go h.processAsync(requestID, voltammogram)

	// Return immediate response
	response := map[string]interface{}{
		"success":    true,
		"request_id": requestID,
		"message":    "Processing started",
	}

	if !h.config.Quiet {
		log.Printf("HTTP Request received - ID: %s, Data points: %d", requestID, len(voltammogram.Voltage))
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// processAsync handles asynchronous analysis of one voltammogram
func (h *CVHandler) processAsync(requestID string, voltammogram models.VoltammogramData) {
	result := h.processor(voltammogram.Voltage, voltammogram.Current, voltammogram.CurrentUnit, h.config)

	analysis, ok := result.(models.AnalysisResult)
	if !ok || analysis.Status != models.StatusOK {
		log.Printf("Analysis failed for request %s, no webhook queued", requestID)
		return
	}

	h.workerPool.QueueWebhook(models.WebhookItem{
		RequestID:       requestID,
		Voltage:         voltammogram.Voltage,
		Current:         voltammogram.Current,
		ForwardBaseline: analysis.Baseline.ForwardBaseline,
		ReverseBaseline: analysis.Baseline.ReverseBaseline,
		ForwardSegment:  models.SegmentInfoFrom(analysis.Baseline.ForwardSegment),
		ReverseSegment:  models.SegmentInfoFrom(analysis.Baseline.ReverseSegment),
		TurningPoint:    analysis.TurningPoint,
	})
}

// setupCORS sets up CORS headers
func (h *CVHandler) setupCORS(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// writeError writes an error response
func (h *CVHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
