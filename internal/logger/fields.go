package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that log
// aggregation and querying work across the whole server.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Session & connection
	KeySessionID = "session_id" // Per-connection session identifier
	KeyClientIP  = "client_ip"  // Client IP address
	KeyAddress   = "address"    // Full remote address (host:port)
	KeyHandle    = "handle"     // Logged-in user handle owning the session
	KeyState     = "state"      // Session state name

	// Commands & offers
	KeyCommand   = "command"   // Command name: list, reqs, glide, ok, no
	KeySender    = "sender"    // Handle of the offering user
	KeyRecipient = "recipient" // Handle of the offer target

	// Transfers
	KeyFilename   = "filename"    // Basename of the offered file
	KeySize       = "size"        // Declared file size in bytes
	KeyBytes      = "bytes"       // Bytes actually moved
	KeyDirection  = "direction"   // Transfer direction: upload, download
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds

	// Errors
	KeyError = "error" // Error message
)

// Typed field constructors. These keep call sites short and make it harder
// to fat-finger a key name.

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// SessionID returns a slog.Attr for a session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientIP returns a slog.Attr for the client IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Handle returns a slog.Attr for a user handle.
func Handle(h string) slog.Attr {
	return slog.String(KeyHandle, h)
}

// State returns a slog.Attr for a session state name.
func State(name string) slog.Attr {
	return slog.String(KeyState, name)
}

// Command returns a slog.Attr for a command name.
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// Sender returns a slog.Attr for the offering user's handle.
func Sender(h string) slog.Attr {
	return slog.String(KeySender, h)
}

// Recipient returns a slog.Attr for the offer target's handle.
func Recipient(h string) slog.Attr {
	return slog.String(KeyRecipient, h)
}

// Filename returns a slog.Attr for a file basename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Size returns a slog.Attr for a declared file size.
func Size(s uint32) slog.Attr {
	return slog.Uint64(KeySize, uint64(s))
}

// Bytes returns a slog.Attr for bytes actually transferred.
func Bytes(n uint64) slog.Attr {
	return slog.Uint64(KeyBytes, n)
}

// Direction returns a slog.Attr for a transfer direction.
func Direction(d string) slog.Attr {
	return slog.String(KeyDirection, d)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. Returns an empty Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
