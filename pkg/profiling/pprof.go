package profiling

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Import pprof handlers
	"runtime"
	"time"

	"github.com/koson/govoltcore/pkg/config"
)

// Profiler manages the pprof profiling sidecar server
type Profiler struct {
	config *config.ServerConfig
	server *http.Server
}

// New creates a new profiler instance
func New(cfg *config.ServerConfig) *Profiler {
	return &Profiler{
		config: cfg,
	}
}

// Start starts the profiling server on a separate port
func (p *Profiler) Start() error {
	if !p.config.EnableProfiling {
		log.Println("📊 Profiling disabled")
		return nil
	}

	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	mux := http.NewServeMux()

	// pprof handlers register on DefaultServeMux at import
	mux.HandleFunc("/debug/pprof/", http.DefaultServeMux.ServeHTTP)
	mux.HandleFunc("/debug/pprof/cmdline", http.DefaultServeMux.ServeHTTP)
	mux.HandleFunc("/debug/pprof/profile", http.DefaultServeMux.ServeHTTP)
	mux.HandleFunc("/debug/pprof/symbol", http.DefaultServeMux.ServeHTTP)
	mux.HandleFunc("/debug/pprof/trace", http.DefaultServeMux.ServeHTTP)

	mux.HandleFunc("/debug/info", p.infoHandler)
	mux.HandleFunc("/debug/stats", p.statsHandler)

	p.server = &http.Server{
		Addr:    ":" + p.config.ProfilingPort,
		Handler: mux,
	}

	log.Printf("📊 Starting profiling server on port %s", p.config.ProfilingPort)
	log.Printf("📈 Profiling endpoints:")
	log.Printf("  - CPU Profile:    http://localhost:%s/debug/pprof/profile", p.config.ProfilingPort)
	log.Printf("  - Heap Profile:   http://localhost:%s/debug/pprof/heap", p.config.ProfilingPort)
	log.Printf("  - Goroutines:     http://localhost:%s/debug/pprof/goroutine", p.config.ProfilingPort)
	log.Printf("  - Block Profile:  http://localhost:%s/debug/pprof/block", p.config.ProfilingPort)
	log.Printf("  - Mutex Profile:  http://localhost:%s/debug/pprof/mutex", p.config.ProfilingPort)
	log.Printf("  - Full Index:     http://localhost:%s/debug/pprof/", p.config.ProfilingPort)
	log.Printf("  - Runtime Info:   http://localhost:%s/debug/info", p.config.ProfilingPort)
	log.Printf("  - Runtime Stats:  http://localhost:%s/debug/stats", p.config.ProfilingPort)

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Profiling server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the profiling server
func (p *Profiler) Stop() error {
	if p.server == nil {
		return nil
	}

	log.Println("🛑 Shutting down profiling server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("profiling server shutdown error: %w", err)
	}

	log.Println("✅ Profiling server stopped")
	return nil
}

type runtimeInfo struct {
	Timestamp  string            `json:"timestamp"`
	Goroutines int               `json:"goroutines"`
	GOMAXPROCS int               `json:"gomaxprocs"`
	NumCPU     int               `json:"num_cpu"`
	Version    string            `json:"version"`
	Memory     runtimeMemoryInfo `json:"memory"`
	GC         runtimeGCInfo     `json:"gc"`
}

type runtimeMemoryInfo struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	HeapSysMB    float64 `json:"heap_sys_mb"`
	HeapObjects  uint64  `json:"heap_objects"`
	StackInUseMB float64 `json:"stack_in_use_mb"`
	StackSysMB   float64 `json:"stack_sys_mb"`
}

type runtimeGCInfo struct {
	NumGC        uint32 `json:"num_gc"`
	PauseTotalNs uint64 `json:"pause_total_ns"`
	LastGC       string `json:"last_gc"`
}

// infoHandler provides runtime information
func (p *Profiler) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := runtimeInfo{
		Timestamp:  time.Now().Format(time.RFC3339),
		Goroutines: runtime.NumGoroutine(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		NumCPU:     runtime.NumCPU(),
		Version:    runtime.Version(),
		Memory: runtimeMemoryInfo{
			AllocMB:      bToMb(m.Alloc),
			TotalAllocMB: bToMb(m.TotalAlloc),
			SysMB:        bToMb(m.Sys),
			HeapAllocMB:  bToMb(m.HeapAlloc),
			HeapSysMB:    bToMb(m.HeapSys),
			HeapObjects:  m.HeapObjects,
			StackInUseMB: bToMb(m.StackInuse),
			StackSysMB:   bToMb(m.StackSys),
		},
		GC: runtimeGCInfo{
			NumGC:        m.NumGC,
			PauseTotalNs: m.PauseTotalNs,
			LastGC:       time.Unix(0, int64(m.LastGC)).Format(time.RFC3339),
		},
	}

	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		log.Printf("⚠️ Failed to encode runtime info: %v", err)
	}
}

// statsHandler streams runtime statistics once a second for 30 seconds
func (p *Profiler) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	for i := 0; i < 30; i++ {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		fmt.Fprintf(w, "=== Runtime Stats [%02d] ===\n", i+1)
		fmt.Fprintf(w, "Timestamp: %s\n", time.Now().Format("15:04:05"))
		fmt.Fprintf(w, "Goroutines: %d\n", runtime.NumGoroutine())
		fmt.Fprintf(w, "Memory Allocated: %.2f MB\n", bToMb(m.Alloc))
		fmt.Fprintf(w, "Total Allocations: %.2f MB\n", bToMb(m.TotalAlloc))
		fmt.Fprintf(w, "System Memory: %.2f MB\n", bToMb(m.Sys))
		fmt.Fprintf(w, "GC Runs: %d\n", m.NumGC)
		fmt.Fprintf(w, "Heap Objects: %d\n", m.HeapObjects)
		fmt.Fprintf(w, "\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(1 * time.Second)
	}
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
