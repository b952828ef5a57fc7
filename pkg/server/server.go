package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/koson/govoltcore/internal/processing"
	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/handlers"
	"github.com/koson/govoltcore/pkg/profiling"
	"github.com/koson/govoltcore/pkg/webhook"
	"github.com/koson/govoltcore/pkg/worker"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	config        *config.Config
	serverConfig  *config.ServerConfig
	workerPool    *worker.Pool
	webhookClient *webhook.Client
	httpServer    *http.Server
	profiler      *profiling.Profiler
	middleware    *profiling.Middleware
	processor     handlers.ProcessorFunc
}

// Options holds configuration for creating a new server
type Options struct {
	Config       *config.Config
	ServerConfig *config.ServerConfig
	Processor    handlers.ProcessorFunc
}

// New creates a new server instance
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}
	if opts.Processor == nil {
		opts.Processor = processing.NewCVProcessor().ProcessorFunc()
	}

	// Create webhook client
	webhookClient := webhook.NewClient(opts.ServerConfig.WebhookURL, opts.Config)

	// Create worker pool; queued webhooks drain through the client
	workerPool := worker.New(worker.Options{
		Workers:   opts.ServerConfig.WorkerCount,
		Processor: worker.ProcessorFunc(opts.Processor),
		Sender:    webhookClient.Send,
	})

	// Create profiler and middleware
	profiler := profiling.New(opts.ServerConfig)
	middleware := profiling.NewMiddleware(opts.ServerConfig.EnableProfiling)

	server := &Server{
		config:        opts.Config,
		serverConfig:  opts.ServerConfig,
		workerPool:    workerPool,
		webhookClient: webhookClient,
		profiler:      profiler,
		middleware:    middleware,
		processor:     opts.Processor,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures HTTP routes and handlers
func (s *Server) setupRoutes() {
	mux := http.NewServeMux()

	cvHandler := handlers.NewCVHandler(s.config, s.workerPool, s.processor)
	batchHandler := handlers.NewBatchHandler(s.config, s.workerPool, s.processor)

	// Register routes with profiling middleware
	mux.Handle("/cv-data", s.middleware.ProfiledHandler("cv-single", cvHandler))
	mux.Handle("/cv-data/batch", s.middleware.ProfiledHandler("cv-batch", batchHandler))
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/debug/gc", s.gcHandler)
	mux.HandleFunc("/debug/memory", s.memoryHandler)

	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// healthHandler provides a simple health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// gcHandler triggers garbage collection and returns stats
func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profiling.ForceGC()
	stats := profiling.GetGCStats()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"gc_runs": %d,
		"pause_total_ms": %.3f,
		"pause_recent_us": %.3f,
		"cpu_percent": %.2f,
		"last_gc": "%s",
		"timestamp": "%s"
	}`,
		stats.NumGC,
		float64(stats.PauseTotal.Nanoseconds())/1000000.0,
		float64(stats.PauseRecent.Nanoseconds())/1000.0,
		stats.GCCPUPercent,
		stats.LastGC.Format(time.RFC3339),
		time.Now().Format(time.RFC3339))
}

// memoryHandler provides current memory statistics
func (s *Server) memoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profiling.LogGCStats()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"message":"Memory stats logged to console","timestamp":"%s"}`,
		time.Now().Format(time.RFC3339))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Start profiling server
	if err := s.profiler.Start(); err != nil {
		log.Printf("❌ Failed to start profiler: %v", err)
	}

	log.Println("🚀 Starting HTTP server on port", s.serverConfig.Port)
	log.Println("📡 Endpoints available:")
	log.Printf("  - Single: http://localhost:%s/cv-data", s.serverConfig.Port)
	log.Printf("  - Batch:  http://localhost:%s/cv-data/batch", s.serverConfig.Port)
	log.Printf("  - Health: http://localhost:%s/health", s.serverConfig.Port)
	log.Printf("  - GC:     http://localhost:%s/debug/gc", s.serverConfig.Port)
	log.Printf("  - Memory: http://localhost:%s/debug/memory", s.serverConfig.Port)

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	log.Println("🛑 Shutting down server...")

	// Shutdown profiler
	if err := s.profiler.Stop(); err != nil {
		log.Printf("⚠️ Profiler shutdown error: %v", err)
	}

	// Shutdown worker pool
	s.workerPool.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown error: %w", err)
	}

	log.Println("✅ Server shutdown complete")
	return nil
}
