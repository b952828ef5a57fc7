package models

import (
	"time"

	"github.com/koson/govoltcore"
)

// VoltammogramData represents an incoming cyclic-voltammetry measurement.
// Voltage and Current are index-aligned sample arrays in acquisition order.
type VoltammogramData struct {
	Timestamp   string    `json:"timestamp"`
	Voltage     []float64 `json:"voltage"`
	Current     []float64 `json:"current"`
	CurrentUnit string    `json:"current_unit"`
	ScanRate    float64   `json:"scan_rate,omitempty"`
}

// BatchItem represents a single voltammogram with iteration number
type BatchItem struct {
	Voltammogram VoltammogramData `json:"voltammogram"`
	Iteration    int              `json:"iteration"`
}

// VoltammogramBatch represents a batch of CV measurements
type VoltammogramBatch struct {
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Traces    []BatchItem `json:"traces"`
}

// AnalysisResult wraps the detector output together with a status so the
// worker pool and webhook layers can report failures uniformly.
type AnalysisResult struct {
	Baseline     govoltcore.BaselineResult
	TurningPoint int
	Status       string
	Error        string
}

// StatusOK marks a successful baseline analysis.
const StatusOK = "OK"

// WorkItem represents a single baseline analysis task
type WorkItem struct {
	ID          int
	RequestID   string
	BatchID     string
	Iteration   int
	Voltage     []float64
	Current     []float64
	CurrentUnit string
	Config      interface{}
	StartTime   time.Time
}

// WorkResult contains the result of baseline analysis
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Iteration      int
	Result         AnalysisResult
	ProcessingTime time.Duration
	Success        bool
	Voltage        []float64
	Current        []float64
}

// SegmentInfo is the wire form of a winning baseline segment, attached to
// webhook payloads for display (e.g., annotating R2 on a plot).
type SegmentInfo struct {
	StartIdx    int     `json:"start_idx"`
	EndIdx      int     `json:"end_idx"`
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	R2          float64 `json:"r2"`
	VoltageSpan float64 `json:"voltage_span"`
}

// SegmentInfoFrom converts a core segment to its wire form; nil stays nil,
// which signals a fallback baseline to downstream consumers.
func SegmentInfoFrom(seg *govoltcore.Segment) *SegmentInfo {
	if seg == nil {
		return nil
	}
	return &SegmentInfo{
		StartIdx:    seg.StartIdx,
		EndIdx:      seg.EndIdx,
		Slope:       seg.Slope,
		Intercept:   seg.Intercept,
		R2:          seg.R2,
		VoltageSpan: seg.VoltageSpan,
	}
}

// WebhookItem represents a webhook task
type WebhookItem struct {
	RequestID       string
	Voltage         []float64
	Current         []float64
	ForwardBaseline []float64
	ReverseBaseline []float64
	ForwardSegment  *SegmentInfo
	ReverseSegment  *SegmentInfo
	TurningPoint    int
}

// WebhookResponse represents the webhook payload structure
type WebhookResponse struct {
	ID               string       `json:"id"`
	Time             string       `json:"time"`
	Voltage          []float64    `json:"voltage"`
	Current          []float64    `json:"current"`
	ForwardBaseline  []float64    `json:"forward_baseline"`
	ReverseBaseline  []float64    `json:"reverse_baseline"`
	CorrectedCurrent []float64    `json:"corrected_current"`
	ForwardSegment   *SegmentInfo `json:"forward_segment,omitempty"`
	ReverseSegment   *SegmentInfo `json:"reverse_segment,omitempty"`
	TurningPoint     int          `json:"turning_point"`
	FallbackUsed     bool         `json:"fallback_used"`
}

// TraceTiming tracks performance metrics for individual trace processing
type TraceTiming struct {
	Iteration      int           `json:"iteration"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	ForwardR2      float64       `json:"forward_r2"`
	ReverseR2      float64       `json:"reverse_r2"`
	FallbackUsed   bool          `json:"fallback_used"`
	Success        bool          `json:"success"`
}

// BufferSet contains reusable buffers to reduce allocations
type BufferSet struct {
	Voltage []float64
	Current []float64
}
