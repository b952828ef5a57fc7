package profiling

import (
	"log"
	"runtime"
	"time"
)

// logRequestMetrics logs per-request profiling metrics collected by the middleware
func logRequestMetrics(name string, statusCode int, duration time.Duration, memoryDelta int64, goroutineDelta int) {
	log.Printf("🔍 %s[%d]: %.3fms, memory: %+d bytes, goroutines: %+d",
		name, statusCode, float64(duration.Nanoseconds())/1000000.0, memoryDelta, goroutineDelta)
}

// WebhookProfiler profiles webhook delivery
type WebhookProfiler struct {
	startTime time.Time
	requestID string
}

// NewWebhookProfiler creates a new webhook profiler
func NewWebhookProfiler(requestID string) *WebhookProfiler {
	return &WebhookProfiler{
		startTime: time.Now(),
		requestID: requestID,
	}
}

// Finish completes webhook profiling
func (whp *WebhookProfiler) Finish(success bool) {
	duration := time.Since(whp.startTime)
	status := "✅"
	if !success {
		status = "❌"
	}

	log.Printf("🌐 Webhook[%s] %s: %.3fms", whp.requestID, status, float64(duration.Nanoseconds())/1000000.0)
}

// GCStats provides garbage collection statistics
type GCStats struct {
	NumGC        uint32
	PauseTotal   time.Duration
	PauseRecent  time.Duration
	LastGC       time.Time
	GCCPUPercent float64
}

// GetGCStats returns current garbage collection statistics
func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var recentPause time.Duration
	if m.NumGC > 0 {
		recentPause = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}

	return GCStats{
		NumGC:        m.NumGC,
		PauseTotal:   time.Duration(m.PauseTotalNs),
		PauseRecent:  recentPause,
		LastGC:       time.Unix(0, int64(m.LastGC)),
		GCCPUPercent: m.GCCPUFraction * 100,
	}
}

// LogGCStats logs garbage collection statistics
func LogGCStats() {
	stats := GetGCStats()
	log.Printf("🗑️  GC: Runs=%d, TotalPause=%.2fms, RecentPause=%.2fμs, CPU=%.2f%%, LastGC=%s",
		stats.NumGC,
		float64(stats.PauseTotal.Nanoseconds())/1000000.0,
		float64(stats.PauseRecent.Nanoseconds())/1000.0,
		stats.GCCPUPercent,
		stats.LastGC.Format("15:04:05"))
}

// ForceGC triggers garbage collection and logs statistics
func ForceGC() {
	before := GetGCStats()
	runtime.GC()
	after := GetGCStats()

	log.Printf("🗑️  Forced GC: %d→%d runs, pause: %.2fμs",
		before.NumGC, after.NumGC,
		float64(after.PauseRecent.Nanoseconds())/1000.0)
}
