package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vergame/client/pkg/client"
	"github.com/vergame/client/pkg/client/modules/chat"
	"github.com/vergame/client/pkg/client/modules/players"
	"github.com/vergame/client/pkg/config"
	"github.com/vergame/client/pkg/gameloop"
	"github.com/vergame/client/pkg/session"
)

// Collaborators are the game-side capabilities the session manager drives.
type Collaborators struct {
	Scenes  client.SceneLoader
	Visuals players.VisualSpawner
	Chat    chat.Display
}

// SessionOptions maps the network config onto session options.
func SessionOptions(cfg *config.Config, log *zap.Logger) session.Options {
	opts := session.DefaultOptions()
	opts.DialTimeout = cfg.Network.DialTimeout
	opts.WriteTimeout = cfg.Network.WriteTimeout
	opts.PongWait = cfg.Network.PongWait
	opts.SendRate = cfg.Network.SendRate
	opts.SendBurst = cfg.Network.SendBurst
	opts.InQueueSize = cfg.Network.InQueueSize
	opts.Logger = log
	return opts
}

// Bootstrap connects, logs in and joins the configured room: everything
// that has to be done before a game scene can start. Each step is bounded
// by cfg.Network.DialTimeout.
func Bootstrap(ctx context.Context, cfg *config.Config, log *zap.Logger) (*session.Conn, error) {
	if cfg.Server.User == "" {
		return nil, fmt.Errorf("bootstrap: no user name configured")
	}
	timeout := cfg.Network.DialTimeout

	dialCtx, cancel := withTimeout(ctx, timeout)
	conn, err := session.Dial(dialCtx, cfg.Server.URL, SessionOptions(cfg, log))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	loginCtx, cancel := withTimeout(ctx, timeout)
	_, err = conn.Login(loginCtx, cfg.Server.User)
	cancel()
	if err != nil {
		conn.Disconnect()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	joinCtx, cancel := withTimeout(ctx, timeout)
	_, err = conn.JoinRoom(joinCtx, cfg.Server.Room)
	cancel()
	if err != nil {
		conn.Disconnect()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return conn, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// NewClient creates a client with the default modules (players, chat).
func NewClient(holder *session.Holder, cfg *config.Config, log *zap.Logger, co Collaborators) *client.Client {
	c := client.New(holder, co.Scenes,
		client.WithLogger(log.Named("client")),
		client.WithFallbackScene(cfg.Game.FallbackScene),
	)
	c.Register(players.New(co.Visuals, cfg.Game.OtherCharPrefab, cfg.Players.RosterSize))
	c.Register(chat.New(co.Chat, cfg.Chat.HistorySize))
	return c
}

// Run starts c and ticks it every cfg.Game.TickRate until ctx is done or the
// session ends, then stops it. Everything c does happens on the calling goroutine.
func Run(ctx context.Context, c *client.Client, cfg *config.Config) error {
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.OnConnectionLost(func(string) { cancel() })

	err := gameloop.New(cfg.Game.TickRate, c.Tick).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
