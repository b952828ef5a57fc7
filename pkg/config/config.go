// Package config holds configuration for the voltammetry analysis service.
package config

import (
	"github.com/koson/govoltcore"
)

// Config holds all settings for baseline detection requests. Detector
// thresholds live here so a deployment can tune them once instead of
// patching constants across call sites.
type Config struct {
	MinLength       int
	MaxLength       int
	R2Threshold     float64
	MinSpan         float64
	OverlapLimit    float64
	Tolerance       int
	CurrentScale    float64
	RobustRefine    bool
	Threads         uint
	Quiet           bool
	HTTPServer      bool
	EnableProfiling bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	WorkerCount     int
	WebhookURL      string
	EnableMetrics   bool
	EnableProfiling bool
	ProfilingPort   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	core := govoltcore.DefaultConfig()
	return &Config{
		MinLength:    core.MinLength,
		MaxLength:    core.MaxLength,
		R2Threshold:  core.R2Threshold,
		MinSpan:      core.MinSpan,
		OverlapLimit: core.OverlapLimit,
		Tolerance:    core.Tolerance,
		CurrentScale: core.CurrentScale,
		Threads:      5,
		Quiet:        false,
		HTTPServer:   true,
	}
}

// DefaultServerConfig returns server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		WorkerCount:     5,
		WebhookURL:      "http://webplot:3001/webhook",
		EnableMetrics:   true,
		EnableProfiling: false,
		ProfilingPort:   "6060",
	}
}

// DetectorConfig maps the service settings onto the core detector
// configuration, keeping the core's default scoring weights.
func (c *Config) DetectorConfig() govoltcore.Config {
	core := govoltcore.DefaultConfig()
	core.MinLength = c.MinLength
	core.MaxLength = c.MaxLength
	core.R2Threshold = c.R2Threshold
	core.MinSpan = c.MinSpan
	core.OverlapLimit = c.OverlapLimit
	core.Tolerance = c.Tolerance
	core.CurrentScale = c.CurrentScale
	core.RobustRefine = c.RobustRefine
	return core
}
