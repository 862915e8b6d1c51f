package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxFrameSize is the largest frame the session layer will read.
const MaxFrameSize = 1024 * 1024

// Envelope kinds.
const (
	KindExtension      = "extension"
	KindPublicMessage  = "publicMessage"
	KindAdminMessage   = "adminMessage"
	KindPrivateMessage = "privateMessage"
	KindUserExitRoom   = "userExitRoom"
	KindLogin          = "login"
	KindJoinRoom       = "joinRoom"
	KindError          = "error"
)

var ErrMalformedFrame = errors.New("malformed frame")

// User is a participant as the server describes it.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (u User) String() string {
	return fmt.Sprintf("%s(%d)", u.Name, u.ID)
}

// Room is the server-side grouping the client has joined.
type Room struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (r Room) String() string {
	return fmt.Sprintf("%s(%d)", r.Name, r.ID)
}

// Envelope is the single JSON frame shape used in both directions.
// Which fields are set depends on Kind.
type Envelope struct {
	Kind      string          `json:"kind"`
	RequestID string          `json:"rid,omitempty"`
	Cmd       string          `json:"cmd,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	RoomID    int             `json:"roomId,omitempty"`
	Message   string          `json:"message,omitempty"`
	Sender    *User           `json:"sender,omitempty"`
	User      *User           `json:"user,omitempty"`
	Room      *Room           `json:"room,omitempty"`
	Recipient int             `json:"recipient,omitempty"`
	Name      string          `json:"name,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// MarshalFrame encodes an envelope into one frame.
func MarshalFrame(env Envelope) ([]byte, error) {
	if env.Kind == "" {
		return nil, fmt.Errorf("%w: empty kind", ErrMalformedFrame)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	if len(data) > MaxFrameSize {
		return nil, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(data), MaxFrameSize)
	}
	return data, nil
}

// UnmarshalFrame decodes one frame into an envelope.
func UnmarshalFrame(data []byte) (Envelope, error) {
	var env Envelope
	if len(data) > MaxFrameSize {
		return env, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(data), MaxFrameSize)
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Kind == "" {
		return env, fmt.Errorf("%w: empty kind", ErrMalformedFrame)
	}
	return env, nil
}
