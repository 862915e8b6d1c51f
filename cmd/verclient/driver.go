package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vergame/client/pkg/chat"
	"github.com/vergame/client/pkg/client"
	chatmod "github.com/vergame/client/pkg/client/modules/chat"
	"github.com/vergame/client/pkg/client/modules/players"
	"github.com/vergame/client/pkg/protocol"
)

// driver runs TUI actions on the loop goroutine so the client is only ever
// touched from one goroutine.
type driver struct {
	ctx      context.Context
	inbox    chan func()
	client   *client.Client
	title    string
	maxLines int
	quit     func()
}

func (d *driver) step() {
	for {
		select {
		case fn := <-d.inbox:
			fn()
		default:
			d.client.Tick()
			return
		}
	}
}

func (d *driver) do(fn func() error) error {
	res := make(chan error, 1)
	select {
	case d.inbox <- func() { res <- fn() }:
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

func (d *driver) Title() string    { return d.title }
func (d *driver) MaxLogLines() int { return d.maxLines }
func (d *driver) Quit()            { d.quit() }

func (d *driver) SendChatMessage(msg string) error {
	return d.do(func() error { return chatmod.From(d.client).SendMessage(msg) })
}

func (d *driver) SendPrivateMessage(userID int, msg string) error {
	return d.do(func() error { return chatmod.From(d.client).SendPrivate(userID, msg) })
}

func (d *driver) SendCommand(cmd string) error {
	return d.do(func() error { return runCommand(d.client, cmd) })
}

// runCommand handles the slash commands typed into the TUI.
func runCommand(c *client.Client, input string) error {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "spawn":
		return c.RequestSpawn()
	case "move":
		return c.SendTransformUpdate()
	case "players":
		p := players.From(c)
		c.Logger.Info("[PLAYERS] roster", zap.Int("count", p.GetPlayerCount()))
		for _, pl := range p.GetAllPlayers() {
			c.Logger.Info("[PLAYERS] player", zap.Int("id", pl.ID), zap.Time("spawned_at", pl.SpawnedAt))
		}
		return nil
	case "history":
		for _, l := range chatmod.From(c).History().Last(20) {
			c.Logger.Info("[CHAT] "+l.Text, zap.String("channel", string(l.Channel)), zap.String("sender", l.Sender))
		}
		return nil
	case "stats":
		s := c.Stats()
		c.Logger.Info("[DISPATCH] stats",
			zap.Uint64("dispatched", s.Dispatched),
			zap.Uint64("dropped", s.Dropped),
			zap.Uint64("failed", s.Failed))
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

type visuals struct {
	log  *zap.Logger
	next atomic.Int64
}

func newVisuals(log *zap.Logger) *visuals {
	return &visuals{log: log}
}

// Instantiate hands out numbered handles in place of engine objects.
func (v *visuals) Instantiate(prefab string, pos protocol.Vec3) (players.Visual, error) {
	h := v.next.Add(1)
	v.log.Info("[PLAYERS] instantiated",
		zap.String("prefab", prefab),
		zap.Int64("handle", h),
		zap.Float64("x", pos.X), zap.Float64("y", pos.Y), zap.Float64("z", pos.Z))
	return h, nil
}

func logDisplay(log *zap.Logger) chatmod.DisplayFunc {
	return func(line chat.Line) {
		log.Info("[CHAT] "+line.Text,
			zap.String("channel", string(line.Channel)),
			zap.String("sender", line.Sender))
	}
}
