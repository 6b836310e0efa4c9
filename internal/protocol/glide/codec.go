package glide

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Protocol errors. Any of these is fatal to the connection: after a framing
// error the stream position is undefined and no recovery is possible.
var (
	// ErrUnknownTag reports a frame whose tag byte is not part of the grammar.
	ErrUnknownTag = errors.New("glide: unknown message tag")

	// ErrUnknownCommand reports a command frame with an unrecognized sub-tag.
	ErrUnknownCommand = errors.New("glide: unknown command sub-tag")

	// ErrChunkTooLarge reports an attempt to encode a chunk payload larger
	// than the 2-byte length field can carry.
	ErrChunkTooLarge = errors.New("glide: chunk payload exceeds 65535 bytes")

	// ErrStringNotTerminable reports a string field that cannot be encoded
	// because it contains a NUL byte (the wire terminator).
	ErrStringNotTerminable = errors.New("glide: string field contains NUL byte")

	// ErrListTooLarge reports an attempt to encode more list entries than
	// the 2-byte count field can carry.
	ErrListTooLarge = errors.New("glide: list exceeds 65535 entries")
)

// maxStringLen bounds null-terminated string fields during decode. Handles
// and basenames are short; anything beyond this is a corrupt or hostile peer.
const maxStringLen = 4096

// Decoder reads glide messages from a byte stream. It blocks until a full
// message is available and never reads beyond the bytes the declared tag
// requires, so a transfer phase can take over the same stream mid-session.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next message. Zero bytes at a frame boundary are skipped
// silently (peers may pad between frames). io.EOF is returned unwrapped when
// the stream ends cleanly at a boundary, so callers can detect disconnect.
func (d *Decoder) Decode() (Message, error) {
	var tag byte
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0x00 {
			tag = b
			break
		}
	}

	switch Tag(tag) {
	case TagUsername:
		handle, err := d.readString()
		if err != nil {
			return nil, err
		}
		return Username{Handle: handle}, nil

	case TagUsernameOk:
		return UsernameOk{}, nil
	case TagUsernameTaken:
		return UsernameTaken{}, nil
	case TagUsernameInvalid:
		return UsernameInvalid{}, nil

	case TagMetadata:
		filename, err := d.readString()
		if err != nil {
			return nil, err
		}
		var size uint32
		if err := d.readBE(&size); err != nil {
			return nil, err
		}
		return Metadata{Filename: filename, Size: size}, nil

	case TagChunk:
		filename, err := d.readString()
		if err != nil {
			return nil, err
		}
		var length uint16
		if err := d.readBE(&length); err != nil {
			return nil, err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(d.r, data); err != nil {
			return nil, unexpected(err)
		}
		return Chunk{Filename: filename, Data: data}, nil

	case TagConnectedUsers:
		var count uint16
		if err := d.readBE(&count); err != nil {
			return nil, err
		}
		handles := make([]string, 0, count)
		for i := 0; i < int(count); i++ {
			h, err := d.readString()
			if err != nil {
				return nil, err
			}
			handles = append(handles, h)
		}
		return ConnectedUsers{Handles: handles}, nil

	case TagIncomingRequests:
		var count uint16
		if err := d.readBE(&count); err != nil {
			return nil, err
		}
		offers := make([]Offer, 0, count)
		for i := 0; i < int(count); i++ {
			sender, err := d.readString()
			if err != nil {
				return nil, err
			}
			filename, err := d.readString()
			if err != nil {
				return nil, err
			}
			offers = append(offers, Offer{Sender: sender, Filename: filename})
		}
		return IncomingRequests{Offers: offers}, nil

	case TagCommand:
		return d.decodeCommand()

	case TagOkFailed:
		return OkFailed{}, nil
	case TagOkSuccess:
		return OkSuccess{}, nil
	case TagNoSuccess:
		return NoSuccess{}, nil
	case TagClientDisconnected:
		return ClientDisconnected{}, nil
	case TagGlideRequestSent:
		return GlideRequestSent{}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tag)
	}
}

// decodeCommand reads the sub-tag and payload of a TagCommand frame.
func (d *Decoder) decodeCommand() (Message, error) {
	sub, err := d.r.ReadByte()
	if err != nil {
		return nil, unexpected(err)
	}

	switch sub {
	case cmdList:
		return CmdList{}, nil
	case cmdRequests:
		return CmdRequests{}, nil
	case cmdGlide:
		path, err := d.readString()
		if err != nil {
			return nil, err
		}
		to, err := d.readString()
		if err != nil {
			return nil, err
		}
		return CmdGlide{Path: path, To: to}, nil
	case cmdOk:
		from, err := d.readString()
		if err != nil {
			return nil, err
		}
		return CmdOk{From: from}, nil
	case cmdNo:
		from, err := d.readString()
		if err != nil {
			return nil, err
		}
		return CmdNo{From: from}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, sub)
	}
}

// readString reads a null-terminated UTF-8 string, consuming the terminator.
func (d *Decoder) readString() (string, error) {
	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return "", unexpected(err)
		}
		if b == 0x00 {
			return sb.String(), nil
		}
		if sb.Len() >= maxStringLen {
			return "", fmt.Errorf("glide: string field exceeds %d bytes", maxStringLen)
		}
		sb.WriteByte(b)
	}
}

// readBE reads a fixed-width big-endian integer into v.
func (d *Decoder) readBE(v any) error {
	if err := binary.Read(d.r, binary.BigEndian, v); err != nil {
		return unexpected(err)
	}
	return nil
}

// unexpected maps a clean EOF inside a frame to ErrUnexpectedEOF: the stream
// ended mid-message, which is never a graceful disconnect.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Encoder writes glide messages to a byte stream. Each frame is assembled in
// memory and written with a single Write call, so a failed write never leaves
// a partial frame followed by a retry.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one message. Encoding is total for all valid in-memory
// messages; it fails only for values the wire cannot carry (chunk payloads
// over MaxChunkData, lists with more than 65535 entries, strings containing
// NUL).
func (e *Encoder) Encode(m Message) error {
	frame, err := Marshal(m)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(frame); err != nil {
		return fmt.Errorf("glide: write %s frame: %w", m.Tag(), err)
	}
	return nil
}

// Marshal serializes a message to its wire representation.
func Marshal(m Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(m.Tag()))

	switch v := m.(type) {
	case Username:
		if err := writeString(&buf, v.Handle); err != nil {
			return nil, err
		}

	case UsernameOk, UsernameTaken, UsernameInvalid, OkFailed, OkSuccess,
		NoSuccess, ClientDisconnected, GlideRequestSent:
		// tag only

	case Metadata:
		if err := writeString(&buf, v.Filename); err != nil {
			return nil, err
		}
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], v.Size)
		buf.Write(size[:])

	case Chunk:
		if len(v.Data) > MaxChunkData {
			return nil, fmt.Errorf("%w: %d", ErrChunkTooLarge, len(v.Data))
		}
		if err := writeString(&buf, v.Filename); err != nil {
			return nil, err
		}
		var length [2]byte
		binary.BigEndian.PutUint16(length[:], uint16(len(v.Data)))
		buf.Write(length[:])
		buf.Write(v.Data)

	case ConnectedUsers:
		if len(v.Handles) > 0xFFFF {
			return nil, fmt.Errorf("%w: %d handles", ErrListTooLarge, len(v.Handles))
		}
		var count [2]byte
		binary.BigEndian.PutUint16(count[:], uint16(len(v.Handles)))
		buf.Write(count[:])
		for _, h := range v.Handles {
			if err := writeString(&buf, h); err != nil {
				return nil, err
			}
		}

	case IncomingRequests:
		if len(v.Offers) > 0xFFFF {
			return nil, fmt.Errorf("%w: %d offers", ErrListTooLarge, len(v.Offers))
		}
		var count [2]byte
		binary.BigEndian.PutUint16(count[:], uint16(len(v.Offers)))
		buf.Write(count[:])
		for _, o := range v.Offers {
			if err := writeString(&buf, o.Sender); err != nil {
				return nil, err
			}
			if err := writeString(&buf, o.Filename); err != nil {
				return nil, err
			}
		}

	case CmdList:
		buf.WriteByte(cmdList)
	case CmdRequests:
		buf.WriteByte(cmdRequests)
	case CmdGlide:
		buf.WriteByte(cmdGlide)
		if err := writeString(&buf, v.Path); err != nil {
			return nil, err
		}
		if err := writeString(&buf, v.To); err != nil {
			return nil, err
		}
	case CmdOk:
		buf.WriteByte(cmdOk)
		if err := writeString(&buf, v.From); err != nil {
			return nil, err
		}
	case CmdNo:
		buf.WriteByte(cmdNo)
		if err := writeString(&buf, v.From); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("glide: cannot marshal %T", m)
	}

	return buf.Bytes(), nil
}

// writeString appends a null-terminated string field.
func writeString(buf *bytes.Buffer, s string) error {
	if strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: %q", ErrStringNotTerminable, s)
	}
	buf.WriteString(s)
	buf.WriteByte(0x00)
	return nil
}
