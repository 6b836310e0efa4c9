// Package server composes the rendezvous listener with its auxiliary HTTP
// servers (metrics and admin API) under one lifecycle.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/glide/internal/adapter"
	"github.com/marmos91/glide/internal/logger"
	"github.com/marmos91/glide/pkg/api"
	"github.com/marmos91/glide/pkg/metrics"
)

// Server owns the glide process lifecycle: the TCP rendezvous listener plus
// the optional metrics and admin API servers. All components start together
// under Serve and stop together when the context is cancelled.
type Server struct {
	adapter         *adapter.Adapter
	metricsServer   *metrics.Server
	apiServer       *api.Server
	shutdownTimeout time.Duration
}

// New creates a Server around the rendezvous listener. Auxiliary servers are
// optional; attach them with SetMetricsServer and SetAPIServer before Serve.
func New(a *adapter.Adapter, shutdownTimeout time.Duration) *Server {
	return &Server{
		adapter:         a,
		shutdownTimeout: shutdownTimeout,
	}
}

// SetMetricsServer attaches the Prometheus scrape endpoint.
func (s *Server) SetMetricsServer(ms *metrics.Server) {
	s.metricsServer = ms
}

// SetAPIServer attaches the admin API server.
func (s *Server) SetAPIServer(as *api.Server) {
	s.apiServer = as
}

// Serve starts every attached component and blocks until the context is
// cancelled or the listener fails. Auxiliary server failures are logged but
// do not bring down the listener; the listener failing stops everything.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var aux sync.WaitGroup

	if s.metricsServer != nil {
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := s.metricsServer.ListenAndServe(); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if s.apiServer != nil {
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := s.apiServer.Start(ctx); err != nil {
				logger.Error("API server error", "error", err)
			}
		}()
	}

	listenerErr := s.adapter.Serve(ctx)

	// The listener is down, by shutdown or by failure. Stop the auxiliary
	// servers and wait them out.
	cancel()
	s.stopAuxiliary()
	aux.Wait()

	if listenerErr != nil {
		return fmt.Errorf("glide server: %w", listenerErr)
	}
	return nil
}

// stopAuxiliary shuts down the metrics endpoint. The API server stops itself
// when its context is cancelled.
func (s *Server) stopAuxiliary() {
	if s.metricsServer == nil {
		return
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
}
