package client

import (
	"go.uber.org/zap"

	"github.com/vergame/client/pkg/protocol"
)

// Module is a pluggable game-side component.
type Module interface {
	// Name returns a unique key for this module (e.g. "players", "chat").
	Name() string
	// Init is called once when the module is registered on a client.
	// Store the *Client reference and claim command handlers here.
	Init(c *Client)
	// Reset is called when a running client stops, to clear module state.
	Reset()
}

// HandlerFunc handles one decoded extension response. A returned error is
// logged by the dispatcher and never stops event processing.
type HandlerFunc func(msg protocol.Message) error

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithFallbackScene sets the scene loaded when the connection is missing or lost.
func WithFallbackScene(scene string) Option {
	return func(c *Client) {
		if scene != "" {
			c.fallbackScene = scene
		}
	}
}
