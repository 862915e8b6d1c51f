package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Extension command names.
const (
	CmdSpawnMe        = "spawnMe"
	CmdSendTransform  = "sendTransform"
	CmdSpawnChar      = "spawnChar"
	CmdReceiveChatMsg = "receiveChatMsg"
)

var ErrMalformedPayload = errors.New("malformed payload")

// Message is a decoded inbound extension response.
type Message interface {
	Command() string
}

// CharData is the nested "char" object of a spawnChar payload.
type CharData struct {
	ID int `json:"id"`
}

// SpawnChar tells the client that a character entered the room.
type SpawnChar struct {
	Char CharData
}

func (SpawnChar) Command() string { return CmdSpawnChar }

// ReceiveChatMsg carries an extension chat payload. The player object is
// kept raw; nothing consumes it yet.
type ReceiveChatMsg struct {
	Player json.RawMessage
}

func (ReceiveChatMsg) Command() string { return CmdReceiveChatMsg }

// Unrecognized is any command this client has no handler for.
type Unrecognized struct {
	Cmd    string
	Params json.RawMessage
}

func (u Unrecognized) Command() string { return u.Cmd }

// DecodeExtension turns an extension command and its params into a typed message.
// Unknown commands never fail; they decode into Unrecognized.
func DecodeExtension(cmd string, params json.RawMessage) (Message, error) {
	switch cmd {
	case CmdSpawnChar:
		return decodeSpawnChar(params)
	case CmdReceiveChatMsg:
		return decodeReceiveChatMsg(params)
	default:
		return Unrecognized{Cmd: cmd, Params: params}, nil
	}
}

func decodeSpawnChar(params json.RawMessage) (Message, error) {
	var raw struct {
		Char *struct {
			ID *int `json:"id"`
		} `json:"char"`
	}
	if err := json.Unmarshal(params, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, CmdSpawnChar, err)
	}
	if raw.Char == nil {
		return nil, fmt.Errorf("%w: %s: missing char object", ErrMalformedPayload, CmdSpawnChar)
	}
	if raw.Char.ID == nil {
		return nil, fmt.Errorf("%w: %s: missing char id", ErrMalformedPayload, CmdSpawnChar)
	}
	return SpawnChar{Char: CharData{ID: *raw.Char.ID}}, nil
}

func decodeReceiveChatMsg(params json.RawMessage) (Message, error) {
	var raw struct {
		Player json.RawMessage `json:"player"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, CmdReceiveChatMsg, err)
		}
	}
	return ReceiveChatMsg{Player: raw.Player}, nil
}

// Known reports whether cmd is an inbound command this client decodes.
func Known(cmd string) bool {
	return cmd == CmdSpawnChar || cmd == CmdReceiveChatMsg
}
