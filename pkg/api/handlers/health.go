package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/marmos91/glide/pkg/registry"
	"github.com/marmos91/glide/pkg/staging"
)

// startTime anchors the uptime reported by the liveness probe.
var startTime = time.Now()

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the server ready to accept clients?
type HealthHandler struct {
	registry *registry.Registry
	staging  *staging.Store
}

// NewHealthHandler creates a new health handler.
//
// Either parameter may be nil, in which case the readiness check reports
// the missing component as unhealthy.
func NewHealthHandler(registry *registry.Registry, staging *staging.Store) *HealthHandler {
	return &HealthHandler{registry: registry, staging: staging}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint is designed
// for liveness probes and should always succeed as long as the HTTP server
// is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(startTime).Round(time.Second)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"service":    "glide",
		"started_at": startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK if the server is ready to accept clients. This checks:
//   - Registry is initialized
//   - Staging root exists and is a directory
//
// Returns 503 Service Unavailable if the server is not ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry not initialized"))
		return
	}
	if h.staging == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("staging not initialized"))
		return
	}

	if info, err := os.Stat(h.staging.Root()); err != nil || !info.IsDir() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("staging root unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"connected_users": h.registry.Count(),
		"staging_root":    h.staging.Root(),
	}))
}
