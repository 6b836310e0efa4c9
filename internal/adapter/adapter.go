// Package adapter implements the TCP listener for the glide wire protocol.
//
// The adapter owns the accept loop, connection limiting and graceful
// shutdown; each accepted connection is handed to a Session, which runs the
// protocol state machine until the client disconnects.
package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/glide/internal/logger"
	"github.com/marmos91/glide/pkg/metrics"
	"github.com/marmos91/glide/pkg/registry"
	"github.com/marmos91/glide/pkg/staging"
)

// Config holds the listener configuration.
type Config struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on.
	Port int

	// MaxConnections limits the number of concurrent client connections.
	// 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout is the maximum duration to wait for active sessions
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration

	// ChunkSize is the payload size used when relaying staged files to
	// recipients. 0 selects the transfer default.
	ChunkSize int
}

// Adapter manages the TCP lifecycle of the rendezvous listener.
//
// Thread safety:
// All exported methods are safe for concurrent use. The shutdown mechanism
// uses sync.Once to ensure idempotent behavior even if Stop() is called
// multiple times.
type Adapter struct {
	// Config holds the listener configuration (bind address, port, limits, timeouts)
	Config Config

	// Metrics is an optional recorder for server metrics.
	// If nil, no metrics are collected (zero overhead).
	Metrics metrics.ServerMetrics

	registry *registry.Registry
	staging  *staging.Store

	// listener is the TCP listener for accepting connections.
	// Closed during shutdown to stop accepting new connections.
	listener net.Listener

	// activeConns tracks all currently active sessions for graceful shutdown.
	activeConns sync.WaitGroup

	// shutdownOnce ensures shutdown is only initiated once.
	shutdownOnce sync.Once

	// Shutdown signals that graceful shutdown has been initiated.
	Shutdown chan struct{}

	// ConnCount tracks the current number of active connections.
	ConnCount atomic.Int32

	// connSemaphore limits concurrent connections if MaxConnections > 0.
	// Connections must acquire a slot before being accepted.
	// nil if MaxConnections is 0 (unlimited).
	connSemaphore chan struct{}

	// ShutdownCtx is cancelled during shutdown to abort in-flight sessions.
	ShutdownCtx context.Context

	// CancelRequests cancels ShutdownCtx during shutdown.
	CancelRequests context.CancelFunc

	// ActiveConnections maps remote address to net.Conn for forced closure.
	ActiveConnections sync.Map

	// ListenerReady is closed when the listener is ready to accept connections.
	// Used by tests to synchronize with server startup.
	ListenerReady chan struct{}

	// listenerMu protects access to the listener field.
	listenerMu sync.RWMutex
}

// New creates an Adapter with the specified configuration.
// The adapter is created in a stopped state. Call Serve() to start.
//
// Returns a pointer to avoid copying sync primitives (WaitGroup, Once, Map, RWMutex).
func New(config Config, reg *registry.Registry, store *staging.Store, m metrics.ServerMetrics) *Adapter {
	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("glide connection limit", "max_connections", config.MaxConnections)
	} else {
		logger.Debug("glide connection limit", "max_connections", "unlimited")
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &Adapter{
		Config:         config,
		Metrics:        m,
		registry:       reg,
		staging:        store,
		Shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancelRequests,
		ListenerReady:  make(chan struct{}),
	}
}

// Serve runs the TCP accept loop until the context is cancelled or Stop is
// called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or shutdown is not graceful
func (a *Adapter) Serve(ctx context.Context) error {
	listenAddr := fmt.Sprintf("%s:%d", a.Config.BindAddress, a.Config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to create glide listener on port %d: %w", a.Config.Port, err)
	}

	// Store listener with mutex protection and signal readiness
	a.listenerMu.Lock()
	a.listener = listener
	a.listenerMu.Unlock()
	close(a.ListenerReady)

	logger.Info("glide server listening", "port", a.Config.Port)

	// Monitor context cancellation in separate goroutine
	go func() {
		<-ctx.Done()
		logger.Info("glide shutdown signal received", "error", ctx.Err())
		a.initiateShutdown()
	}()

	// Accept connections until shutdown
	for {
		// Acquire connection semaphore if connection limiting is enabled
		if a.connSemaphore != nil {
			select {
			case a.connSemaphore <- struct{}{}:
				// Acquired semaphore slot, proceed with accept
			case <-a.Shutdown:
				return a.gracefulShutdown()
			}
		}

		// Accept next connection (blocks until connection arrives or error)
		tcpConn, err := a.listener.Accept()
		if err != nil {
			// Release semaphore on accept error
			if a.connSemaphore != nil {
				<-a.connSemaphore
			}

			// Check if error is due to shutdown (expected) or network error (unexpected)
			select {
			case <-a.Shutdown:
				return a.gracefulShutdown()
			default:
				logger.Debug("Error accepting glide connection", "error", err)
				continue
			}
		}

		// Enable TCP_NODELAY to disable Nagle's algorithm; control frames
		// are tiny and latency-sensitive
		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", "error", err)
			}
		}

		// Track connection for graceful shutdown
		a.activeConns.Add(1)
		a.ConnCount.Add(1)

		// Register connection for forced closure capability
		connAddr := tcpConn.RemoteAddr().String()
		a.ActiveConnections.Store(connAddr, tcpConn)

		currentConns := a.ConnCount.Load()
		if a.Metrics != nil {
			a.Metrics.RecordConnectionAccepted()
			a.Metrics.SetActiveSessions(currentConns)
		}

		logger.Debug("glide connection accepted", "address", tcpConn.RemoteAddr(), "active", currentConns)

		session := NewSession(tcpConn, a.registry, a.staging, a.Metrics, a.Config.ChunkSize)

		go func(addr string, tcp net.Conn) {
			defer func() {
				// Unregister connection from tracking map
				a.ActiveConnections.Delete(addr)

				a.activeConns.Done()
				a.ConnCount.Add(-1)
				if a.connSemaphore != nil {
					<-a.connSemaphore
				}

				if a.Metrics != nil {
					a.Metrics.RecordConnectionClosed()
					a.Metrics.SetActiveSessions(a.ConnCount.Load())
				}

				logger.Debug("glide connection closed", "address", tcp.RemoteAddr(), "active", a.ConnCount.Load())
			}()

			session.Serve(a.ShutdownCtx)
		}(connAddr, tcpConn)
	}
}

// initiateShutdown signals the server to begin graceful shutdown.
//
// Shutdown sequence:
//  1. Close shutdown channel (signals accept loop to stop)
//  2. Close listener (stops accepting new connections)
//  3. Interrupt blocking reads on all active connections
//  4. Cancel ShutdownCtx (signals in-flight sessions to abort)
//
// Thread safety:
// Safe to call multiple times and from multiple goroutines.
func (a *Adapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("glide shutdown initiated")

		close(a.Shutdown)

		a.listenerMu.Lock()
		if a.listener != nil {
			if err := a.listener.Close(); err != nil {
				logger.Debug("Error closing glide listener", "error", err)
			}
		}
		a.listenerMu.Unlock()

		// Set a short deadline on all connections to unblock pending reads
		a.interruptBlockingReads()

		a.CancelRequests()
		logger.Debug("glide request cancellation signal sent to all in-flight sessions")
	})
}

// interruptBlockingReads sets a short deadline on all active connections
// to interrupt any blocking read operations during shutdown.
func (a *Adapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	a.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline on connection",
					"address", key, "error", err)
			}
		}
		return true
	})
	logger.Debug("glide shutdown: interrupted blocking reads on all connections")
}

// gracefulShutdown waits for active sessions to complete or timeout.
//
// Returns:
//   - nil if all sessions completed gracefully
//   - error if shutdown timeout exceeded (connections were force-closed)
func (a *Adapter) gracefulShutdown() error {
	activeCount := a.ConnCount.Load()
	logger.Info("glide graceful shutdown: waiting for active sessions",
		"active", activeCount, "timeout", a.Config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		a.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("glide graceful shutdown complete: all sessions closed")
		return nil

	case <-time.After(a.Config.ShutdownTimeout):
		remaining := a.ConnCount.Load()
		logger.Warn("glide shutdown timeout exceeded - forcing closure",
			"active", remaining, "timeout", a.Config.ShutdownTimeout)

		a.forceCloseConnections()

		return fmt.Errorf("glide shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes all active TCP connections to accelerate shutdown.
func (a *Adapter) forceCloseConnections() {
	logger.Info("Force-closing active glide connections")

	closedCount := 0
	a.ActiveConnections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", "address", addr, "error", err)
		} else {
			closedCount++
			logger.Debug("Force-closed connection", "address", addr)
			if a.Metrics != nil {
				a.Metrics.RecordConnectionForceClosed()
			}
		}

		return true
	})

	if closedCount == 0 {
		logger.Debug("No connections to force-close")
	} else {
		logger.Info("Force-closed connections", "count", closedCount)
	}
}

// Stop initiates graceful shutdown of the server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Serve(). It signals the server to begin shutdown and waits for active
// sessions to complete up to ShutdownTimeout.
//
// Parameters:
//   - ctx: Controls the shutdown timeout. If cancelled, Stop returns
//     immediately with context error after initiating shutdown.
func (a *Adapter) Stop(ctx context.Context) error {
	a.initiateShutdown()

	if ctx == nil {
		return a.gracefulShutdown()
	}

	activeCount := a.ConnCount.Load()
	logger.Info("glide graceful shutdown: waiting for active sessions (context timeout)",
		"active", activeCount)

	done := make(chan struct{})
	go func() {
		a.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("glide graceful shutdown complete: all sessions closed")
		return nil

	case <-ctx.Done():
		remaining := a.ConnCount.Load()
		logger.Warn("glide shutdown context cancelled",
			"active", remaining, "error", ctx.Err())
		return ctx.Err()
	}
}

// GetActiveConnections returns the current number of active connections.
func (a *Adapter) GetActiveConnections() int32 {
	return a.ConnCount.Load()
}

// GetListenerAddr returns the address the server is listening on.
// This method blocks until the listener is ready, making it safe for tests.
func (a *Adapter) GetListenerAddr() string {
	<-a.ListenerReady

	a.listenerMu.RLock()
	defer a.listenerMu.RUnlock()

	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Port returns the configured TCP port.
func (a *Adapter) Port() int {
	return a.Config.Port
}
