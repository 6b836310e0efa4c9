package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig holds the metrics HTTP endpoint configuration.
type ServerConfig struct {
	// Enabled controls whether the metrics endpoint is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Address is the listen address for the metrics endpoint.
	Address string `mapstructure:"address" yaml:"address"`

	// Path is the HTTP path serving the Prometheus exposition format.
	Path string `mapstructure:"path" yaml:"path"`
}

// Server exposes the metric registry over HTTP for Prometheus scraping.
type Server struct {
	cfg  ServerConfig
	http *http.Server
}

// NewServer creates a metrics server for the process-wide registry. The
// registry must be initialized with InitRegistry before calling.
func NewServer(cfg ServerConfig) (*Server, error) {
	reg := GetRegistry()
	if reg == nil {
		return nil, fmt.Errorf("metrics: registry not initialized")
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:              cfg.Address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe serves the metrics endpoint until Shutdown is called.
// Returns nil on graceful shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve %s: %w", s.cfg.Address, err)
	}
	return nil
}

// Shutdown gracefully stops the metrics endpoint.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
