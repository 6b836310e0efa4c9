// Package metrics defines the server's observability interfaces and the
// shared Prometheus registry behind them.
//
// All metric interfaces are optional: a nil implementation disables
// collection with zero overhead, so the data path never branches on a
// configuration flag.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide metric registry, including the
// standard Go runtime and process collectors. Calling it again returns the
// existing registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called. Metric
// constructors return nil when disabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// ResetForTesting discards the registry so tests can re-initialize with a
// clean collector set.
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}
