package profiling

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// Middleware provides profiling and metrics middleware for HTTP handlers
type Middleware struct {
	enableProfiling bool
}

// NewMiddleware creates a new profiling middleware
func NewMiddleware(enableProfiling bool) *Middleware {
	return &Middleware{
		enableProfiling: enableProfiling,
	}
}

// ProfiledHandler wraps an HTTP handler with profiling capabilities
func (m *Middleware) ProfiledHandler(name string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enableProfiling {
			handler.ServeHTTP(w, r)
			return
		}

		startTime := time.Now()
		var startMemStats runtime.MemStats
		runtime.ReadMemStats(&startMemStats)
		startGoroutines := runtime.NumGoroutine()

		// Headers must be set before the handler writes the body
		w.Header().Set("X-Profiling-Enabled", "true")
		w.Header().Set("X-Handler-Name", name)
		w.Header().Set("X-Start-Time", startTime.Format(time.RFC3339Nano))
		w.Header().Set("X-Start-Goroutines", strconv.Itoa(startGoroutines))

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     200,
		}

		handler.ServeHTTP(wrapped, r)

		var endMemStats runtime.MemStats
		runtime.ReadMemStats(&endMemStats)

		duration := time.Since(startTime)
		memoryDelta := int64(endMemStats.Alloc) - int64(startMemStats.Alloc)
		goroutineDelta := runtime.NumGoroutine() - startGoroutines

		// Logged on the trailing side since the response is already written
		logRequestMetrics(name, wrapped.statusCode, duration, memoryDelta, goroutineDelta)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	return rw.ResponseWriter.Write(b)
}
