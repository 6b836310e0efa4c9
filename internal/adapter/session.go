package adapter

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/glide/internal/logger"
	"github.com/marmos91/glide/internal/protocol/glide"
	"github.com/marmos91/glide/internal/telemetry"
	"github.com/marmos91/glide/pkg/metrics"
	"github.com/marmos91/glide/pkg/registry"
	"github.com/marmos91/glide/pkg/staging"
	"github.com/marmos91/glide/pkg/transfer"
)

// State is the session lifecycle position. Transitions are linear: a session
// logs in once, then alternates between waiting for commands and running a
// transfer leg, until it closes.
type State int

const (
	// StateAwaitingHandle is the initial state: no handle registered yet.
	StateAwaitingHandle State = iota

	// StateActive means the session is logged in and waiting for a command.
	StateActive

	// StateUploading means the session is receiving a file into staging.
	StateUploading

	// StateDownloading means the session is being sent a staged file.
	StateDownloading

	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingHandle:
		return "awaiting_handle"
	case StateActive:
		return "active"
	case StateUploading:
		return "uploading"
	case StateDownloading:
		return "downloading"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// maxHandleLen bounds user handles. Handles become staging path components
// and roster entries; anything longer is hostile or a bug.
const maxHandleLen = 32

// Session runs the wire protocol state machine for one client connection.
// Each session is owned by a single goroutine; no field needs locking.
type Session struct {
	id       string
	conn     net.Conn
	dec      *glide.Decoder
	enc      *glide.Encoder
	registry *registry.Registry
	staging  *staging.Store
	metrics  metrics.ServerMetrics

	chunkSize int
	handle    string
	state     State
}

// NewSession creates a session for an accepted connection. The session does
// nothing until Serve is called.
func NewSession(conn net.Conn, reg *registry.Registry, store *staging.Store, m metrics.ServerMetrics, chunkSize int) *Session {
	return &Session{
		id:        uuid.NewString(),
		conn:      conn,
		dec:       glide.NewDecoder(conn),
		enc:       glide.NewEncoder(conn),
		registry:  reg,
		staging:   store,
		metrics:   m,
		chunkSize: chunkSize,
		state:     StateAwaitingHandle,
	}
}

// Serve runs the session until the client disconnects, violates the
// protocol, or ctx is cancelled. It always unregisters the handle and closes
// the connection before returning.
func (s *Session) Serve(ctx context.Context) {
	clientIP, _, _ := net.SplitHostPort(s.conn.RemoteAddr().String())
	lc := logger.NewLogContext(s.id, clientIP)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSession,
		telemetry.SessionID(s.id),
		telemetry.ClientAddr(s.conn.RemoteAddr().String()),
	)
	defer span.End()

	lc.TraceID = telemetry.TraceID(ctx)
	lc.SpanID = telemetry.SpanID(ctx)
	ctx = logger.WithContext(ctx, lc)

	defer s.teardown(ctx)

	logger.DebugCtx(ctx, "session started", "address", s.conn.RemoteAddr().String())

	if !s.login(ctx) {
		return
	}
	lc.Handle = s.handle
	span.SetAttributes(telemetry.Handle(s.handle))

	s.commandLoop(ctx)
}

// teardown unregisters the session and closes the connection. Safe to run
// after a failed login: removing an unregistered handle is a no-op.
func (s *Session) teardown(ctx context.Context) {
	if s.handle != "" {
		s.registry.Remove(s.handle)
		logger.InfoCtx(ctx, "user disconnected")
	}
	s.state = StateClosed
	_ = s.conn.Close()
}

// login reads the single username message that opens a session. A rejected
// handle (taken or invalid) is answered and the connection closed; the
// client reconnects to try a different handle.
func (s *Session) login(ctx context.Context) bool {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLogin)
	defer span.End()

	msg, err := s.dec.Decode()
	if err != nil {
		s.logReadError(ctx, err)
		return false
	}

	switch m := msg.(type) {
	case glide.Username:
		if !validHandle(m.Handle) {
			logger.DebugCtx(ctx, "login rejected: invalid handle", logger.Handle(m.Handle))
			s.recordLogin("invalid")
			_ = s.send(ctx, glide.UsernameInvalid{})
			return false
		}
		if err := s.registry.Add(m.Handle, s.conn.RemoteAddr().String()); err != nil {
			logger.DebugCtx(ctx, "login rejected: handle taken", logger.Handle(m.Handle))
			s.recordLogin("taken")
			_ = s.send(ctx, glide.UsernameTaken{})
			return false
		}

		s.handle = m.Handle
		s.state = StateActive
		s.recordLogin("ok")
		if s.send(ctx, glide.UsernameOk{}) != nil {
			// registration succeeded but the ack never arrived;
			// teardown removes the handle
			return false
		}
		logger.InfoCtx(ctx, "user logged in", logger.Handle(m.Handle))
		return true

	case glide.ClientDisconnected:
		logger.DebugCtx(ctx, "client disconnected before login")
		return false

	default:
		s.protocolViolation(ctx, "unexpected message before login", msg)
		return false
	}
}

// commandLoop dispatches commands until disconnect or protocol violation.
func (s *Session) commandLoop(ctx context.Context) {
	lc := logger.FromContext(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := s.dec.Decode()
		if err != nil {
			s.logReadError(ctx, err)
			return
		}

		name := glide.CommandName(msg)
		if lc != nil {
			lc.Command = name
		}

		start := time.Now()
		var ok bool

		switch m := msg.(type) {
		case glide.CmdList:
			ok = s.handleList(ctx)
		case glide.CmdRequests:
			ok = s.handleRequests(ctx)
		case glide.CmdGlide:
			ok = s.handleGlide(ctx, m)
		case glide.CmdOk:
			ok = s.handleAccept(ctx, m)
		case glide.CmdNo:
			ok = s.handleReject(ctx, m)
		case glide.ClientDisconnected:
			logger.DebugCtx(ctx, "client sent disconnect")
			return
		default:
			s.protocolViolation(ctx, "unexpected message in command position", msg)
			return
		}

		if name != "" {
			outcome := "ok"
			if !ok {
				outcome = "error"
			}
			s.recordCommand(name, time.Since(start), outcome)
		}
		if lc != nil {
			lc.Command = ""
		}
		if !ok {
			return
		}
	}
}

// handleList replies with every connected handle except the caller's own.
func (s *Session) handleList(ctx context.Context) bool {
	others := s.registry.ListOthers(s.handle)
	logger.DebugCtx(ctx, "roster requested", "count", len(others))
	return s.send(ctx, glide.ConnectedUsers{Handles: others}) == nil
}

// handleRequests replies with the caller's pending offer queue.
func (s *Session) handleRequests(ctx context.Context) bool {
	pending := s.registry.Offers(s.handle)
	offers := make([]glide.Offer, 0, len(pending))
	for _, o := range pending {
		offers = append(offers, glide.Offer{Sender: o.From, Filename: o.Filename})
	}
	logger.DebugCtx(ctx, "pending offers requested", "count", len(offers))
	return s.send(ctx, glide.IncomingRequests{Offers: offers}) == nil
}

// handleGlide queues a file offer for the named recipient and receives the
// file into staging. The offer is queued before the upload starts; if the
// upload then fails the session closes and the offer stays queued, pointing
// at a staged file that may be missing (accept then fails cleanly).
func (s *Session) handleGlide(ctx context.Context, cmd glide.CmdGlide) bool {
	basename := filepath.Base(filepath.ToSlash(cmd.Path))

	if cmd.To == s.handle || !s.registry.Has(cmd.To) {
		logger.DebugCtx(ctx, "offer rejected: invalid recipient", logger.Recipient(cmd.To))
		return s.send(ctx, glide.UsernameInvalid{}) == nil
	}

	if err := s.registry.AddOffer(s.handle, cmd.To, basename); err != nil {
		logger.DebugCtx(ctx, "offer rejected", logger.Recipient(cmd.To), logger.Err(err))
		return s.send(ctx, glide.UsernameInvalid{}) == nil
	}
	if s.metrics != nil {
		s.metrics.RecordOfferQueued()
	}

	if s.send(ctx, glide.GlideRequestSent{}) != nil {
		return false
	}

	logger.InfoCtx(ctx, "offer queued",
		logger.Recipient(cmd.To), logger.Filename(basename))

	return s.receiveUpload(ctx, cmd.To, basename)
}

// receiveUpload reads the metadata frame and file chunks that follow a
// glide command and stages the file for the recipient.
func (s *Session) receiveUpload(ctx context.Context, recipient, basename string) bool {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanUpload,
		telemetry.Recipient(recipient),
		telemetry.Filename(basename),
	)
	defer span.End()

	s.state = StateUploading
	defer func() { s.state = StateActive }()

	msg, err := s.dec.Decode()
	if err != nil {
		s.logReadError(ctx, err)
		s.recordTransferError(ctx, "upload", err)
		return false
	}
	meta, ok := msg.(glide.Metadata)
	if !ok {
		s.protocolViolation(ctx, "expected metadata after glide command", msg)
		s.recordTransferError(ctx, "upload", nil)
		return false
	}
	if meta.Filename != basename {
		logger.WarnCtx(ctx, "metadata filename does not match offer",
			logger.Filename(meta.Filename), "offered", basename)
		s.protocolViolation(ctx, "metadata filename mismatch", msg)
		s.recordTransferError(ctx, "upload", nil)
		return false
	}
	span.SetAttributes(telemetry.FileSize(meta.Size))

	w, err := s.staging.Create(ctx, s.handle, recipient, basename)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to create staging file", logger.Err(err))
		s.recordTransferError(ctx, "upload", err)
		return false
	}

	start := time.Now()
	received, err := transfer.Receive(ctx, s.dec, w, basename, meta.Size)
	closeErr := w.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		logger.WarnCtx(ctx, "upload failed",
			logger.Filename(basename), logger.Bytes(received), logger.Err(err))
		s.recordTransferError(ctx, "upload", err)
		return false
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordTransfer("upload", received, duration)
	}
	span.SetAttributes(telemetry.TransferBytes(received))

	logger.InfoCtx(ctx, "file staged",
		logger.Recipient(recipient),
		logger.Filename(basename),
		logger.Bytes(received),
		logger.DurationMs(logger.Duration(start)),
	)
	return true
}

// handleAccept resolves the oldest pending offer from the named sender and
// relays the staged file to the caller.
func (s *Session) handleAccept(ctx context.Context, cmd glide.CmdOk) bool {
	offer, found := s.registry.FirstOfferFrom(s.handle, cmd.From)
	if !found {
		logger.DebugCtx(ctx, "accept with no matching offer", logger.Sender(cmd.From))
		return s.send(ctx, glide.OkFailed{}) == nil
	}

	r, size, err := s.staging.Open(ctx, cmd.From, s.handle, offer.Filename)
	if err != nil {
		// The offer exists but its bytes never arrived (sender died
		// mid-upload). The offer is undeliverable; drop it.
		logger.WarnCtx(ctx, "accepted offer has no staged file",
			logger.Sender(cmd.From), logger.Filename(offer.Filename), logger.Err(err))
		s.registry.RemoveOfferFrom(s.handle, cmd.From)
		return s.send(ctx, glide.OkFailed{}) == nil
	}
	defer r.Close()

	s.registry.RemoveOfferFrom(s.handle, cmd.From)
	if s.metrics != nil {
		s.metrics.RecordOfferResolved("accepted")
	}

	if s.send(ctx, glide.OkSuccess{}) != nil {
		return false
	}

	return s.sendDownload(ctx, r, cmd.From, offer.Filename, size)
}

// sendDownload relays a staged file to the session as a metadata frame
// followed by chunks, then deletes the staged copy.
func (s *Session) sendDownload(ctx context.Context, r io.Reader, sender, basename string, size uint32) bool {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanDownload,
		telemetry.Sender(sender),
		telemetry.Filename(basename),
		telemetry.FileSize(size),
	)
	defer span.End()

	s.state = StateDownloading
	defer func() { s.state = StateActive }()

	if s.send(ctx, glide.Metadata{Filename: basename, Size: size}) != nil {
		s.recordTransferError(ctx, "download", nil)
		return false
	}

	start := time.Now()
	sent, err := transfer.Send(ctx, s.enc, r, basename, size, s.chunkSize)
	if err != nil {
		logger.WarnCtx(ctx, "download failed",
			logger.Filename(basename), logger.Bytes(sent), logger.Err(err))
		s.recordTransferError(ctx, "download", err)
		return false
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordTransfer("download", sent, duration)
	}
	span.SetAttributes(telemetry.TransferBytes(sent))

	// Delivery succeeded; the staged copy is no longer needed. A failed
	// removal leaks a file but must not fail the session.
	if err := s.staging.Remove(sender, s.handle, basename); err != nil {
		logger.WarnCtx(ctx, "failed to remove delivered file", logger.Err(err))
	}

	logger.InfoCtx(ctx, "file delivered",
		logger.Sender(sender),
		logger.Filename(basename),
		logger.Bytes(sent),
		logger.DurationMs(logger.Duration(start)),
	)
	return true
}

// handleReject drops the oldest pending offer from the named sender. The
// reply is NoSuccess whether or not such an offer existed: rejection is
// idempotent.
func (s *Session) handleReject(ctx context.Context, cmd glide.CmdNo) bool {
	offer, found := s.registry.RemoveOfferFrom(s.handle, cmd.From)
	if found {
		if s.metrics != nil {
			s.metrics.RecordOfferResolved("rejected")
		}
		// Discard the staged bytes; the sender may never have finished
		// uploading, so a missing file is expected.
		if err := s.staging.Remove(cmd.From, s.handle, offer.Filename); err != nil && !errors.Is(err, staging.ErrNotStaged) {
			logger.WarnCtx(ctx, "failed to remove rejected file", logger.Err(err))
		}
		logger.InfoCtx(ctx, "offer rejected",
			logger.Sender(cmd.From), logger.Filename(offer.Filename))
	} else {
		logger.DebugCtx(ctx, "reject with no matching offer", logger.Sender(cmd.From))
	}

	return s.send(ctx, glide.NoSuccess{}) == nil
}

// send encodes one message to the client, logging failures.
func (s *Session) send(ctx context.Context, m glide.Message) error {
	if err := s.enc.Encode(m); err != nil {
		logger.DebugCtx(ctx, "failed to write message", "tag", m.Tag().String(), logger.Err(err))
		return err
	}
	return nil
}

// logReadError logs a decode failure at a severity matching its cause.
// Clean EOF is a normal disconnect; unknown tags and malformed frames are
// protocol violations.
func (s *Session) logReadError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logger.DebugCtx(ctx, "connection closed by client")
	case errors.Is(err, glide.ErrUnknownTag), errors.Is(err, glide.ErrUnknownCommand):
		logger.WarnCtx(ctx, "protocol violation", logger.Err(err))
		if s.metrics != nil {
			s.metrics.RecordProtocolError()
		}
	case ctx.Err() != nil:
		logger.DebugCtx(ctx, "session aborted by shutdown")
	default:
		logger.DebugCtx(ctx, "read failed", logger.Err(err))
	}
}

// protocolViolation logs and counts an out-of-place message. The caller
// closes the session: after a violation the stream position is undefined.
func (s *Session) protocolViolation(ctx context.Context, reason string, msg glide.Message) {
	logger.WarnCtx(ctx, "protocol violation: "+reason,
		"tag", msg.Tag().String(), logger.State(s.state.String()))
	if s.metrics != nil {
		s.metrics.RecordProtocolError()
	}
}

func (s *Session) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}

func (s *Session) recordCommand(name string, d time.Duration, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCommand(name, d, outcome)
	}
}

func (s *Session) recordTransferError(ctx context.Context, direction string, err error) {
	if s.metrics != nil {
		s.metrics.RecordTransferError(direction)
	}
	telemetry.RecordError(ctx, err)
}

// validHandle reports whether a handle is acceptable: printable ASCII
// without spaces or path separators, at most maxHandleLen bytes. Handles
// double as staging path components, so anything that could escape the
// staging root is invalid.
func validHandle(h string) bool {
	if h == "" || len(h) > maxHandleLen {
		return false
	}
	if h == "." || h == ".." {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if c <= 0x20 || c >= 0x7F {
			return false
		}
		if c == '/' || c == '\\' {
			return false
		}
	}
	return true
}
