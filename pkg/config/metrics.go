package config

import (
	"fmt"

	"github.com/marmos91/glide/internal/logger"
	"github.com/marmos91/glide/pkg/metrics"
	glideprom "github.com/marmos91/glide/pkg/metrics/prometheus"
)

// MetricsResult holds the initialized metrics components.
// Both fields are nil when metrics are disabled.
type MetricsResult struct {
	// Server is the HTTP server exposing the /metrics endpoint.
	Server *metrics.Server

	// ServerMetrics is the recorder wired into the rendezvous listener.
	ServerMetrics metrics.ServerMetrics
}

// InitializeMetrics sets up the process-wide metric registry, the listener
// recorder and the scrape endpoint according to configuration.
//
// When metrics are disabled this is a no-op returning zero values: a nil
// recorder means the data path records nothing.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()

	server, err := metrics.NewServer(metrics.ServerConfig{
		Enabled: true,
		Address: fmt.Sprintf(":%d", cfg.Metrics.Port),
		Path:    cfg.Metrics.Path,
	})
	if err != nil {
		// The registry was just initialized, so this is unreachable in
		// practice; degrade to collection without a scrape endpoint.
		logger.Error("failed to create metrics server", "error", err)
		return MetricsResult{ServerMetrics: glideprom.NewServerMetrics()}
	}

	return MetricsResult{
		Server:        server,
		ServerMetrics: glideprom.NewServerMetrics(),
	}
}
