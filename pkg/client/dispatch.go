package client

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vergame/client/pkg/protocol"
	"github.com/vergame/client/pkg/session"
)

// Stats counts dispatch outcomes since the client was created.
type Stats struct {
	Dispatched uint64
	Dropped    uint64
	Failed     uint64
}

// Stats returns the dispatch counters.
func (c *Client) Stats() Stats { return c.stats }

// Handle claims an inbound extension command. Each command has exactly one
// handler; cmd must be one the protocol decodes. Panics otherwise.
func (c *Client) Handle(cmd string, h HandlerFunc) {
	if !protocol.Known(cmd) {
		panic("unknown extension command: " + cmd)
	}
	if _, exists := c.handlers[cmd]; exists {
		panic("handler already registered: " + cmd)
	}
	c.handlers[cmd] = h
}

// Dispatch decodes one extension response and routes it to its handler.
// Unknown commands are dropped. Decode failures, handler errors and handler
// panics are logged and swallowed.
func (c *Client) Dispatch(ev session.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.Failed++
			c.Logger.Error("[DISPATCH] exception handling response",
				zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()

	cmd, ok := ev.Cmd()
	if !ok {
		c.stats.Failed++
		c.Logger.Error("[DISPATCH] response without command name")
		return
	}
	payload, _ := ev.Payload()
	c.Logger.Debug("[DISPATCH] response from server", zap.String("cmd", cmd))

	msg, err := protocol.DecodeExtension(cmd, payload)
	if err != nil {
		c.stats.Failed++
		c.Logger.Error("[DISPATCH] decode failed", zap.String("cmd", cmd), zap.Error(err))
		return
	}
	if _, unknown := msg.(protocol.Unrecognized); unknown {
		c.stats.Dropped++
		c.Logger.Debug("[DISPATCH] dropping unrecognized command", zap.String("cmd", cmd))
		return
	}

	h, ok := c.handlers[cmd]
	if !ok {
		c.stats.Dropped++
		c.Logger.Debug("[DISPATCH] no handler registered", zap.String("cmd", cmd))
		return
	}
	if err := h(msg); err != nil {
		c.stats.Failed++
		c.Logger.Error("[DISPATCH] handler failed", zap.String("cmd", cmd), zap.Error(err))
		return
	}
	c.stats.Dispatched++
}
