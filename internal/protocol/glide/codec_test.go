package glide

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalGoldenBytes(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want []byte
	}{
		{
			name: "username",
			msg:  Username{Handle: "alice"},
			want: []byte{0x01, 'a', 'l', 'i', 'c', 'e', 0x00},
		},
		{
			name: "username ok",
			msg:  UsernameOk{},
			want: []byte{0x02},
		},
		{
			name: "metadata",
			msg:  Metadata{Filename: "notes.txt", Size: 0x01020304},
			want: []byte{0x05, 'n', 'o', 't', 'e', 's', '.', 't', 'x', 't', 0x00, 0x01, 0x02, 0x03, 0x04},
		},
		{
			name: "chunk",
			msg:  Chunk{Filename: "a", Data: []byte{0xAA, 0xBB, 0xCC}},
			want: []byte{0x06, 'a', 0x00, 0x00, 0x03, 0xAA, 0xBB, 0xCC},
		},
		{
			name: "empty chunk",
			msg:  Chunk{Filename: "a", Data: nil},
			want: []byte{0x06, 'a', 0x00, 0x00, 0x00},
		},
		{
			name: "connected users",
			msg:  ConnectedUsers{Handles: []string{"bob", "eve"}},
			want: []byte{0x07, 0x00, 0x02, 'b', 'o', 'b', 0x00, 'e', 'v', 'e', 0x00},
		},
		{
			name: "connected users empty",
			msg:  ConnectedUsers{},
			want: []byte{0x07, 0x00, 0x00},
		},
		{
			name: "incoming requests",
			msg:  IncomingRequests{Offers: []Offer{{Sender: "bob", Filename: "x"}}},
			want: []byte{0x08, 0x00, 0x01, 'b', 'o', 'b', 0x00, 'x', 0x00},
		},
		{
			name: "command list",
			msg:  CmdList{},
			want: []byte{0x09, 0x01},
		},
		{
			name: "command requests",
			msg:  CmdRequests{},
			want: []byte{0x09, 0x02},
		},
		{
			name: "command glide",
			msg:  CmdGlide{Path: "/tmp/f", To: "bob"},
			want: []byte{0x09, 0x03, '/', 't', 'm', 'p', '/', 'f', 0x00, 'b', 'o', 'b', 0x00},
		},
		{
			name: "command ok",
			msg:  CmdOk{From: "bob"},
			want: []byte{0x09, 0x04, 'b', 'o', 'b', 0x00},
		},
		{
			name: "command no",
			msg:  CmdNo{From: "bob"},
			want: []byte{0x09, 0x05, 'b', 'o', 'b', 0x00},
		},
		{
			name: "ok failed",
			msg:  OkFailed{},
			want: []byte{0x0A},
		},
		{
			name: "no success",
			msg:  NoSuccess{},
			want: []byte{0x0B},
		},
		{
			name: "client disconnected",
			msg:  ClientDisconnected{},
			want: []byte{0x0C},
		},
		{
			name: "glide request sent",
			msg:  GlideRequestSent{},
			want: []byte{0x0D},
		},
		{
			name: "ok success",
			msg:  OkSuccess{},
			want: []byte{0x0E},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	msgs := []Message{
		Username{Handle: "alice"},
		UsernameOk{},
		UsernameTaken{},
		UsernameInvalid{},
		Metadata{Filename: "big.iso", Size: 4_000_000_000},
		Chunk{Filename: "big.iso", Data: bytes.Repeat([]byte{0x42}, MaxChunkData)},
		ConnectedUsers{Handles: []string{"a", "b", "c"}},
		IncomingRequests{Offers: []Offer{{Sender: "a", Filename: "1"}, {Sender: "b", Filename: "2"}}},
		CmdList{},
		CmdRequests{},
		CmdGlide{Path: "/home/alice/photo.png", To: "bob"},
		CmdOk{From: "alice"},
		CmdNo{From: "alice"},
		OkFailed{},
		OkSuccess{},
		NoSuccess{},
		ClientDisconnected{},
		GlideRequestSent{},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, m := range msgs {
		require.NoError(t, enc.Encode(m))
	}

	dec := NewDecoder(&buf)
	for _, want := range msgs {
		got, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeSkipsPadding(t *testing.T) {
	// zero bytes between frames are not messages
	stream := []byte{0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x0E}
	dec := NewDecoder(bytes.NewReader(stream))

	got, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, UsernameOk{}, got)

	got, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, OkSuccess{}, got)

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeTrailingPaddingIsEOF(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{0x00, 0x00, 0x00}))
	_, err := dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeUnknownTag(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{0xFF}))
	_, err := dec.Decode()
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeUnknownCommand(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{0x09, 0x7F}))
	_, err := dec.Decode()
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDecodeTruncatedFrames(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
	}{
		{"username without terminator", []byte{0x01, 'a', 'l'}},
		{"metadata missing size", []byte{0x05, 'f', 0x00, 0x01, 0x02}},
		{"chunk missing data", []byte{0x06, 'f', 0x00, 0x00, 0x05, 0xAA}},
		{"chunk missing length", []byte{0x06, 'f', 0x00, 0x00}},
		{"connected users missing handle", []byte{0x07, 0x00, 0x02, 'a', 0x00}},
		{"command without sub-tag", []byte{0x09}},
		{"glide missing recipient", []byte{0x09, 0x03, '/', 'f', 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(tt.stream))
			_, err := dec.Decode()
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestDecodeStreamFraming(t *testing.T) {
	// Two back-to-back frames arriving in one buffer must decode into exactly
	// two messages with no byte spill.
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(Chunk{Filename: "f", Data: []byte{1, 2, 3}}))
	require.NoError(t, enc.Encode(Chunk{Filename: "f", Data: []byte{4, 5}}))

	dec := NewDecoder(&buf)

	first, err := dec.Decode()
	require.NoError(t, err)
	require.IsType(t, Chunk{}, first)
	assert.Equal(t, []byte{1, 2, 3}, first.(Chunk).Data)

	second, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, second.(Chunk).Data)
}

func TestEncodeChunkTooLarge(t *testing.T) {
	enc := NewEncoder(io.Discard)
	err := enc.Encode(Chunk{Filename: "f", Data: make([]byte, MaxChunkData+1)})
	assert.ErrorIs(t, err, ErrChunkTooLarge)
}

func TestEncodeListTooLarge(t *testing.T) {
	_, err := Marshal(ConnectedUsers{Handles: make([]string, 0x10000)})
	assert.ErrorIs(t, err, ErrListTooLarge)

	_, err = Marshal(IncomingRequests{Offers: make([]Offer, 0x10000)})
	assert.ErrorIs(t, err, ErrListTooLarge)
}

func TestEncodeStringWithNul(t *testing.T) {
	_, err := Marshal(Username{Handle: "al\x00ice"})
	assert.ErrorIs(t, err, ErrStringNotTerminable)
}

func TestDecodeOversizedString(t *testing.T) {
	stream := append([]byte{0x01}, bytes.Repeat([]byte{'a'}, maxStringLen+1)...)
	dec := NewDecoder(bytes.NewReader(stream))
	_, err := dec.Decode()
	require.Error(t, err)
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "Username", TagUsername.String())
	assert.Equal(t, "Command", TagCommand.String())
	assert.Equal(t, "Tag(0xff)", Tag(0xFF).String())
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "list", CommandName(CmdList{}))
	assert.Equal(t, "reqs", CommandName(CmdRequests{}))
	assert.Equal(t, "glide", CommandName(CmdGlide{}))
	assert.Equal(t, "ok", CommandName(CmdOk{}))
	assert.Equal(t, "no", CommandName(CmdNo{}))
	assert.Equal(t, "", CommandName(UsernameOk{}))
}
