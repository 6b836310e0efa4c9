package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for glide protocol spans.
// Client keys follow OpenTelemetry semantic conventions; protocol-specific
// keys use the "glide." prefix.
const (
	AttrClientAddr = "client.address"

	AttrSessionID = "glide.session_id"
	AttrHandle    = "glide.handle"
	AttrCommand   = "glide.command"
	AttrSender    = "glide.sender"
	AttrRecipient = "glide.recipient"
	AttrFilename  = "glide.filename"
	AttrFileSize  = "glide.file_size"

	AttrTransferDirection = "transfer.direction"
	AttrTransferBytes     = "transfer.bytes"
)

// Span names for the session state machine and transfer pipeline.
const (
	SpanSession  = "glide.session"
	SpanLogin    = "glide.login"
	SpanCommand  = "glide.command"
	SpanUpload   = "glide.transfer.upload"
	SpanDownload = "glide.transfer.download"
)

// ClientAddr returns an attribute for the client remote address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// SessionID returns an attribute for the session identifier.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Handle returns an attribute for a user handle.
func Handle(h string) attribute.KeyValue {
	return attribute.String(AttrHandle, h)
}

// Command returns an attribute for a command name.
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Sender returns an attribute for the offering user's handle.
func Sender(h string) attribute.KeyValue {
	return attribute.String(AttrSender, h)
}

// Recipient returns an attribute for the offer target's handle.
func Recipient(h string) attribute.KeyValue {
	return attribute.String(AttrRecipient, h)
}

// Filename returns an attribute for a file basename.
func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// FileSize returns an attribute for a declared file size.
func FileSize(size uint32) attribute.KeyValue {
	return attribute.Int64(AttrFileSize, int64(size))
}

// TransferDirection returns an attribute for a transfer direction.
func TransferDirection(d string) attribute.KeyValue {
	return attribute.String(AttrTransferDirection, d)
}

// TransferBytes returns an attribute for bytes moved by a transfer.
func TransferBytes(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrTransferBytes, int64(n))
}
