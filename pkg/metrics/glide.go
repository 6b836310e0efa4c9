package metrics

import (
	"time"
)

// ServerMetrics provides observability for the rendezvous server: session
// lifecycle, command dispatch, offer flow, and transfer throughput.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewServerMetrics()
//	adapter := adapter.New(config, reg, store, m)
//
//	// Without metrics (pass nil for zero overhead)
//	adapter := adapter.New(config, reg, store, nil)
type ServerMetrics interface {
	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed connections
	// counter. Called when connections are forcibly closed after the
	// shutdown timeout.
	RecordConnectionForceClosed()

	// SetActiveSessions updates the current session count.
	SetActiveSessions(count int32)

	// RecordLogin records a login attempt and its outcome.
	//
	// Parameters:
	//   - outcome: "ok", "taken" or "invalid"
	RecordLogin(outcome string)

	// RecordCommand records a completed command with its duration and outcome.
	//
	// Parameters:
	//   - command: command name ("list", "reqs", "glide", "ok", "no")
	//   - duration: time taken to process the command
	//   - outcome: "ok" or "error"
	RecordCommand(command string, duration time.Duration, outcome string)

	// RecordOfferQueued increments the queued offers counter.
	RecordOfferQueued()

	// RecordOfferResolved records an offer leaving the queue.
	//
	// Parameters:
	//   - resolution: "accepted" or "rejected"
	RecordOfferResolved(resolution string)

	// RecordTransfer records a completed relay leg with its size and duration.
	//
	// Parameters:
	//   - direction: "upload" (client to staging) or "download" (staging to client)
	//   - bytes: number of bytes moved
	//   - duration: wall time of the transfer
	RecordTransfer(direction string, bytes uint64, duration time.Duration)

	// RecordTransferError increments the failed transfer counter.
	//
	// Parameters:
	//   - direction: "upload" or "download"
	RecordTransferError(direction string)

	// RecordProtocolError increments the protocol violation counter. Called
	// when a session is torn down for an unknown tag or malformed frame.
	RecordProtocolError()
}
