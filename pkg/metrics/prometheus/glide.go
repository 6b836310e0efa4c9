// Package prometheus provides Prometheus-backed implementations of the
// metric interfaces in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/glide/pkg/metrics"
)

// serverMetrics is the Prometheus implementation of metrics.ServerMetrics.
type serverMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeSessions         prometheus.Gauge
	logins                 *prometheus.CounterVec
	commandDuration        *prometheus.HistogramVec
	offersQueued           prometheus.Counter
	offersResolved         *prometheus.CounterVec
	transferBytes          *prometheus.CounterVec
	transferDuration       *prometheus.HistogramVec
	transferErrors         *prometheus.CounterVec
	protocolErrors         prometheus.Counter
}

// NewServerMetrics creates a new Prometheus-backed ServerMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewServerMetrics() metrics.ServerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &serverMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glide_connections_accepted_total",
				Help: "Total number of accepted TCP connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glide_connections_closed_total",
				Help: "Total number of closed TCP connections",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glide_connections_force_closed_total",
				Help: "Total number of connections forcibly closed after shutdown timeout",
			},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "glide_active_sessions",
				Help: "Current number of active sessions",
			},
		),
		logins: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glide_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"}, // "ok", "taken", "invalid"
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "glide_command_duration_milliseconds",
				Help: "Duration of command processing in milliseconds",
				Buckets: []float64{
					0.1,   // 100us - roster lookups
					0.5,   // 500us
					1,     // 1ms
					5,     // 5ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s - commands that include a transfer
					10000, // 10s
					60000, // 1m - large files on slow links
				},
			},
			[]string{"command", "outcome"},
		),
		offersQueued: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glide_offers_queued_total",
				Help: "Total number of file offers queued",
			},
		),
		offersResolved: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glide_offers_resolved_total",
				Help: "Total number of file offers resolved by resolution",
			},
			[]string{"resolution"}, // "accepted", "rejected"
		),
		transferBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glide_transfer_bytes_total",
				Help: "Total bytes relayed by direction",
			},
			[]string{"direction"}, // "upload", "download"
		),
		transferDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "glide_transfer_duration_milliseconds",
				Help: "Duration of relay legs in milliseconds",
				Buckets: []float64{
					1,      // 1ms - tiny files
					10,     // 10ms
					100,    // 100ms
					1000,   // 1s
					10000,  // 10s
					60000,  // 1m
					300000, // 5m - large files on slow links
				},
			},
			[]string{"direction"},
		),
		transferErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glide_transfer_errors_total",
				Help: "Total number of failed relay legs by direction",
			},
			[]string{"direction"},
		),
		protocolErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glide_protocol_errors_total",
				Help: "Total number of sessions torn down for protocol violations",
			},
		),
	}
}

func (m *serverMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *serverMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *serverMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}

func (m *serverMetrics) SetActiveSessions(count int32) {
	m.activeSessions.Set(float64(count))
}

func (m *serverMetrics) RecordLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *serverMetrics) RecordCommand(command string, duration time.Duration, outcome string) {
	m.commandDuration.WithLabelValues(command, outcome).Observe(float64(duration.Milliseconds()))
}

func (m *serverMetrics) RecordOfferQueued() {
	m.offersQueued.Inc()
}

func (m *serverMetrics) RecordOfferResolved(resolution string) {
	m.offersResolved.WithLabelValues(resolution).Inc()
}

func (m *serverMetrics) RecordTransfer(direction string, bytes uint64, duration time.Duration) {
	m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	m.transferDuration.WithLabelValues(direction).Observe(float64(duration.Milliseconds()))
}

func (m *serverMetrics) RecordTransferError(direction string) {
	m.transferErrors.WithLabelValues(direction).Inc()
}

func (m *serverMetrics) RecordProtocolError() {
	m.protocolErrors.Inc()
}
