// Package transfer moves file bytes between a wire stream and local storage
// in protocol chunks.
//
// The server sits in the middle of every transfer: it receives the sender's
// upload into staging, and later replays the staged file to the recipient as
// a download. Both directions reuse the same chunked framing; only the
// endpoints differ.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/glide/internal/protocol/glide"
)

// DefaultChunkSize is the payload size used when segmenting outbound files.
// Inbound chunks may be any size up to the wire maximum.
const DefaultChunkSize = 1024

// Transfer errors.
var (
	// ErrProtocolMismatch reports a peer that deviated from the transfer
	// framing: a wrong message tag, a mismatched filename, a chunk past the
	// declared size, or an empty chunk with bytes still owed.
	ErrProtocolMismatch = errors.New("transfer: protocol mismatch")
)

// Receive reads exactly size bytes of filename from dec in chunk frames and
// writes them to w. It consumes nothing beyond the final chunk, leaving the
// stream positioned at the next control message.
//
// The peer must send chunks tagged with the same filename whose payloads sum
// to exactly size. Overshoot, a foreign tag, or a zero-length chunk before
// completion abort the transfer. Returns the byte count actually written.
func Receive(ctx context.Context, dec *glide.Decoder, w io.Writer, filename string, size uint32) (uint64, error) {
	var received uint64
	total := uint64(size)

	for received < total {
		if err := ctx.Err(); err != nil {
			return received, err
		}

		msg, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return received, fmt.Errorf("transfer: read chunk: %w", err)
		}

		chunk, ok := msg.(glide.Chunk)
		if !ok {
			return received, fmt.Errorf("%w: expected chunk, got %s", ErrProtocolMismatch, msg.Tag())
		}
		if chunk.Filename != filename {
			return received, fmt.Errorf("%w: chunk for %q during transfer of %q", ErrProtocolMismatch, chunk.Filename, filename)
		}
		if len(chunk.Data) == 0 {
			// an empty chunk cannot make progress; treating it as valid
			// would let a peer stall the loop forever
			return received, fmt.Errorf("%w: empty chunk with %d bytes remaining", ErrProtocolMismatch, total-received)
		}
		if received+uint64(len(chunk.Data)) > total {
			return received, fmt.Errorf("%w: chunk overruns declared size %d", ErrProtocolMismatch, total)
		}

		if _, err := w.Write(chunk.Data); err != nil {
			return received, fmt.Errorf("transfer: write chunk: %w", err)
		}
		received += uint64(len(chunk.Data))
	}

	return received, nil
}

// Send reads size bytes of filename from r and writes them to enc as chunk
// frames of at most chunkSize bytes each. A chunkSize of 0 selects
// DefaultChunkSize. Returns the byte count actually sent.
//
// If r runs dry before size bytes, the transfer aborts: the receiver was
// promised size bytes and a short file would leave it waiting forever.
func Send(ctx context.Context, enc *glide.Encoder, r io.Reader, filename string, size uint32, chunkSize int) (uint64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize > glide.MaxChunkData {
		chunkSize = glide.MaxChunkData
	}

	buf := make([]byte, chunkSize)
	var sent uint64
	total := uint64(size)

	for sent < total {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		n := uint64(chunkSize)
		if remaining := total - sent; remaining < n {
			n = remaining
		}

		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return sent, fmt.Errorf("transfer: read source with %d bytes remaining: %w", total-sent, err)
		}
		if err := enc.Encode(glide.Chunk{Filename: filename, Data: buf[:n]}); err != nil {
			return sent, err
		}
		sent += n
	}

	return sent, nil
}
