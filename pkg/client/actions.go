package client

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vergame/client/pkg/protocol"
)

// ErrEmptyMessage is returned by BroadcastChat and SendPrivateChat for an
// empty message; nothing is sent.
var ErrEmptyMessage = errors.New("empty chat message")

// RequestSpawn asks the server to spawn the local player in the current room.
// Start calls it once; callers may send it again.
func (c *Client) RequestSpawn() error {
	return c.sendExtension(protocol.CmdSpawnMe, nil)
}

// SendTransformUpdate tells the server the local player moved. The payload
// is empty; use SendTransform to attach pose data.
func (c *Client) SendTransformUpdate() error {
	return c.sendExtension(protocol.CmdSendTransform, nil)
}

// SendTransform sends sendTransform with the given pose.
func (c *Client) SendTransform(t protocol.Transform) error {
	return c.sendExtension(protocol.CmdSendTransform, protocol.Params{
		"position": t.Position,
		"rotation": t.Rotation,
	})
}

// BroadcastChat sends message to everyone in the current room using the
// session's native public message, not an extension command.
func (c *Client) BroadcastChat(message string) error {
	if message == "" {
		return ErrEmptyMessage
	}
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	if err := c.sess.Send(&protocol.PublicMessageRequest{Message: message, RoomID: room.ID}); err != nil {
		return fmt.Errorf("public message: %w", err)
	}
	c.Logger.Debug("[CHAT] public message sent", zap.Stringer("room", room))
	return nil
}

// SendPrivateChat sends message to a single user.
func (c *Client) SendPrivateChat(userID int, message string) error {
	if message == "" {
		return ErrEmptyMessage
	}
	if _, err := c.currentRoom(); err != nil {
		return err
	}
	if err := c.sess.Send(&protocol.PrivateMessageRequest{Message: message, RecipientID: userID}); err != nil {
		return fmt.Errorf("private message: %w", err)
	}
	c.Logger.Debug("[CHAT] private message sent", zap.Int("to", userID))
	return nil
}

func (c *Client) sendExtension(cmd string, params protocol.Params) error {
	room, err := c.currentRoom()
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	if err := c.sess.Send(protocol.NewExtensionRequest(cmd, params, *room)); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	c.Logger.Debug("[SEND] extension request sent", zap.String("cmd", cmd), zap.Stringer("room", room))
	return nil
}

func (c *Client) currentRoom() (*protocol.Room, error) {
	if c.sess == nil || !c.sess.IsConnected() {
		return nil, ErrNotConnected
	}
	room := c.sess.LastJoinedRoom()
	if room == nil {
		return nil, ErrNotConnected
	}
	return room, nil
}
