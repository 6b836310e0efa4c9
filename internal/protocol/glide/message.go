// Package glide implements the glide wire protocol: a framed, control-byte
// tagged binary grammar spoken between clients and the rendezvous server.
//
// Every message starts with a one-byte tag. Variable-length string fields are
// null-terminated UTF-8; fixed-width integers are big-endian. There is no
// outer length prefix: each tag fully determines how many bytes follow.
package glide

import "fmt"

// Tag identifies a wire message type.
type Tag uint8

// Wire message tags.
const (
	TagUsername           Tag = 0x01 // handle, null-terminated
	TagUsernameOk         Tag = 0x02 // empty
	TagUsernameTaken      Tag = 0x03 // empty
	TagUsernameInvalid    Tag = 0x04 // empty
	TagMetadata           Tag = 0x05 // filename (null-term), 4-byte BE size
	TagChunk              Tag = 0x06 // filename (null-term), 2-byte BE length N, N bytes
	TagConnectedUsers     Tag = 0x07 // 2-byte BE count, then count null-terminated handles
	TagIncomingRequests   Tag = 0x08 // 2-byte BE count, then count (sender, filename) pairs
	TagCommand            Tag = 0x09 // 1-byte sub-tag, then command payload
	TagOkFailed           Tag = 0x0A // empty
	TagNoSuccess          Tag = 0x0B // empty
	TagClientDisconnected Tag = 0x0C // empty
	TagGlideRequestSent   Tag = 0x0D // empty
	TagOkSuccess          Tag = 0x0E // empty
)

// Command sub-tags, following TagCommand.
const (
	cmdList     = 0x01 // empty
	cmdRequests = 0x02 // empty
	cmdGlide    = 0x03 // path (null-term), recipient (null-term)
	cmdOk       = 0x04 // sender (null-term)
	cmdNo       = 0x05 // sender (null-term)
)

// MaxChunkData is the largest chunk payload representable on the wire
// (2-byte length field). Larger payloads must be segmented by the sender.
const MaxChunkData = 0xFFFF

func (t Tag) String() string {
	switch t {
	case TagUsername:
		return "Username"
	case TagUsernameOk:
		return "UsernameOk"
	case TagUsernameTaken:
		return "UsernameTaken"
	case TagUsernameInvalid:
		return "UsernameInvalid"
	case TagMetadata:
		return "Metadata"
	case TagChunk:
		return "Chunk"
	case TagConnectedUsers:
		return "ConnectedUsers"
	case TagIncomingRequests:
		return "IncomingRequests"
	case TagCommand:
		return "Command"
	case TagOkFailed:
		return "OkFailed"
	case TagNoSuccess:
		return "NoSuccess"
	case TagClientDisconnected:
		return "ClientDisconnected"
	case TagGlideRequestSent:
		return "GlideRequestSent"
	case TagOkSuccess:
		return "OkSuccess"
	default:
		return fmt.Sprintf("Tag(0x%02x)", uint8(t))
	}
}

// Message is one complete wire frame. The concrete type determines the tag
// and payload layout. The command set is closed: dispatch is a type switch.
type Message interface {
	Tag() Tag
}

// Username is the login request carrying the desired handle.
type Username struct {
	Handle string
}

// UsernameOk acknowledges a successful login.
type UsernameOk struct{}

// UsernameTaken rejects a login because the handle is already registered.
type UsernameTaken struct{}

// UsernameInvalid rejects a login or an offer naming an invalid handle.
type UsernameInvalid struct{}

// Metadata announces a file transfer: basename and total size in bytes.
type Metadata struct {
	Filename string
	Size     uint32
}

// Chunk carries one segment of file data. Data must not exceed MaxChunkData.
type Chunk struct {
	Filename string
	Data     []byte
}

// ConnectedUsers lists handles currently online.
type ConnectedUsers struct {
	Handles []string
}

// Offer is one pending inbound file offer, as carried by IncomingRequests.
type Offer struct {
	Sender   string
	Filename string
}

// IncomingRequests lists the recipient's pending offers.
type IncomingRequests struct {
	Offers []Offer
}

// OkFailed reports that an ok command matched no pending offer.
type OkFailed struct{}

// OkSuccess confirms an ok command; the file download follows.
type OkSuccess struct{}

// NoSuccess confirms a no command. Always sent, even with nothing to reject.
type NoSuccess struct{}

// ClientDisconnected announces an orderly client shutdown.
type ClientDisconnected struct{}

// GlideRequestSent confirms an offer was queued; the file upload follows.
type GlideRequestSent struct{}

// CmdList requests the roster of other connected users.
type CmdList struct{}

// CmdRequests requests the caller's pending offer queue.
type CmdRequests struct{}

// CmdGlide offers the file at Path to the user named To.
type CmdGlide struct {
	Path string
	To   string
}

// CmdOk accepts the first pending offer from the named sender.
type CmdOk struct {
	From string
}

// CmdNo rejects the first pending offer from the named sender.
type CmdNo struct {
	From string
}

func (Username) Tag() Tag           { return TagUsername }
func (UsernameOk) Tag() Tag         { return TagUsernameOk }
func (UsernameTaken) Tag() Tag      { return TagUsernameTaken }
func (UsernameInvalid) Tag() Tag    { return TagUsernameInvalid }
func (Metadata) Tag() Tag           { return TagMetadata }
func (Chunk) Tag() Tag              { return TagChunk }
func (ConnectedUsers) Tag() Tag     { return TagConnectedUsers }
func (IncomingRequests) Tag() Tag   { return TagIncomingRequests }
func (OkFailed) Tag() Tag           { return TagOkFailed }
func (OkSuccess) Tag() Tag          { return TagOkSuccess }
func (NoSuccess) Tag() Tag          { return TagNoSuccess }
func (ClientDisconnected) Tag() Tag { return TagClientDisconnected }
func (GlideRequestSent) Tag() Tag   { return TagGlideRequestSent }
func (CmdList) Tag() Tag            { return TagCommand }
func (CmdRequests) Tag() Tag        { return TagCommand }
func (CmdGlide) Tag() Tag           { return TagCommand }
func (CmdOk) Tag() Tag              { return TagCommand }
func (CmdNo) Tag() Tag              { return TagCommand }

// CommandName returns the human-readable command name for a command message,
// or "" if m is not a command. Used for logging and metrics labels.
func CommandName(m Message) string {
	switch m.(type) {
	case CmdList:
		return "list"
	case CmdRequests:
		return "reqs"
	case CmdGlide:
		return "glide"
	case CmdOk:
		return "ok"
	case CmdNo:
		return "no"
	default:
		return ""
	}
}
