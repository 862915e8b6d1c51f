package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is anything the session layer can send.
type Request interface {
	Envelope() (Envelope, error)
}

// Vec3 is a position or euler rotation.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform is pose data a caller may attach to sendTransform.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
}

// Params is the structured key/value payload of an extension request.
type Params map[string]any

// ExtensionRequest is an application command sent through the generic
// name+payload channel, targeted at a room.
type ExtensionRequest struct {
	Cmd    string
	Params Params
	RoomID int
}

func NewExtensionRequest(cmd string, params Params, room Room) *ExtensionRequest {
	if params == nil {
		params = Params{}
	}
	return &ExtensionRequest{Cmd: cmd, Params: params, RoomID: room.ID}
}

func (r *ExtensionRequest) Envelope() (Envelope, error) {
	if r.Cmd == "" {
		return Envelope{}, fmt.Errorf("extension request: empty command")
	}
	params := r.Params
	if params == nil {
		params = Params{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Envelope{}, fmt.Errorf("extension request %s: %w", r.Cmd, err)
	}
	return Envelope{Kind: KindExtension, Cmd: r.Cmd, Params: raw, RoomID: r.RoomID}, nil
}

// PublicMessageRequest is the session layer's native room chat.
type PublicMessageRequest struct {
	Message string
	RoomID  int
}

func (r *PublicMessageRequest) Envelope() (Envelope, error) {
	return Envelope{Kind: KindPublicMessage, Message: r.Message, RoomID: r.RoomID}, nil
}

// PrivateMessageRequest is a native message to a single user.
type PrivateMessageRequest struct {
	Message     string
	RecipientID int
}

func (r *PrivateMessageRequest) Envelope() (Envelope, error) {
	return Envelope{Kind: KindPrivateMessage, Message: r.Message, Recipient: r.RecipientID}, nil
}

// LoginRequest and JoinRoomRequest belong to the bootstrap that runs before
// the session manager takes over.
type LoginRequest struct {
	Name string
}

func (r *LoginRequest) Envelope() (Envelope, error) {
	return Envelope{Kind: KindLogin, Name: r.Name}, nil
}

type JoinRoomRequest struct {
	Name string
}

func (r *JoinRoomRequest) Envelope() (Envelope, error) {
	return Envelope{Kind: KindJoinRoom, Name: r.Name}, nil
}
