package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/koson/govoltcore/internal/processing"
	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/server"
)

func main() {
	cfg, serverConfig := parseFlags()

	processor := processing.NewCVProcessor()

	srv := server.New(server.Options{
		Config:       cfg,
		ServerConfig: serverConfig,
		Processor:    processor.ProcessorFunc(),
	})

	setupGracefulShutdown(srv)

	if err := srv.Start(); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
}

// parseFlags parses command line flags and returns configuration
func parseFlags() (*config.Config, *config.ServerConfig) {
	cfg := config.DefaultConfig()
	serverConfig := config.DefaultServerConfig()

	flag.IntVar(&cfg.MinLength, "minlen", cfg.MinLength, "Minimum segment length in samples")
	flag.IntVar(&cfg.MaxLength, "maxlen", cfg.MaxLength, "Maximum segment length in samples")
	flag.Float64Var(&cfg.R2Threshold, "r2", cfg.R2Threshold, "Minimum R-squared for a linear segment")
	flag.Float64Var(&cfg.MinSpan, "minspan", cfg.MinSpan, "Minimum voltage span in volts")
	flag.Float64Var(&cfg.OverlapLimit, "overlap", cfg.OverlapLimit, "Maximum overlap ratio between kept segments")
	flag.IntVar(&cfg.Tolerance, "tolerance", cfg.Tolerance, "Turning point tolerance in samples")
	flag.Float64Var(&cfg.CurrentScale, "scale", cfg.CurrentScale, "Current scale factor applied before scoring (1e6 for amps)")
	flag.BoolVar(&cfg.RobustRefine, "robust", cfg.RobustRefine, "Refine selected segments with a robust soft-L1 fit")
	flag.UintVar(&cfg.Threads, "threads", cfg.Threads, "Number of worker threads")
	flag.BoolVar(&cfg.Quiet, "quiet", cfg.Quiet, "Suppress verbose output")
	flag.BoolVar(&cfg.EnableProfiling, "profile", cfg.EnableProfiling, "Enable pprof profiling")
	flag.StringVar(&serverConfig.Port, "port", serverConfig.Port, "HTTP server port")
	flag.StringVar(&serverConfig.WebhookURL, "webhook", serverConfig.WebhookURL, "Webhook URL for result delivery")

	flag.Parse()

	serverConfig.WorkerCount = int(cfg.Threads)
	serverConfig.EnableProfiling = cfg.EnableProfiling

	return cfg, serverConfig
}

// setupGracefulShutdown sets up graceful shutdown handling
func setupGracefulShutdown(srv *server.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("🛑 Received shutdown signal...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		os.Exit(0)
	}()
}
