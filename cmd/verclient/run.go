package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vergame/client/pkg/client"
	"github.com/vergame/client/pkg/config"
	"github.com/vergame/client/pkg/gameloop"
	"github.com/vergame/client/pkg/helpers"
	"github.com/vergame/client/pkg/logging"
	"github.com/vergame/client/pkg/session"
	"github.com/vergame/client/pkg/tui"
)

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("url"); v != "" {
		cfg.Server.URL = v
	}
	if v := c.String("user"); v != "" {
		cfg.Server.User = v
	}
	if v := c.String("room"); v != "" {
		cfg.Server.Room = v
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	d := &driver{
		ctx:      ctx,
		inbox:    make(chan func(), 16),
		title:    fmt.Sprintf("%s @ %s (%s)", cfg.Server.User, cfg.Server.Room, cfg.Server.URL),
		maxLines: c.Int("max-log-lines"),
		quit:     func() { cancel(nil) },
	}

	g, gctx := errgroup.WithContext(ctx)

	// the program must be running before anything is logged through it
	var (
		program *tea.Program
		log     *zap.Logger
	)
	if c.Bool("interactive") {
		p, out := tui.Start(d)
		program = p
		g.Go(func() error {
			defer cancel(nil)
			_, err := program.Run()
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			program.Quit()
			return nil
		})
		log, err = logging.NewWriter(cfg.Logging, out)
	} else {
		log, err = logging.New(cfg.Logging)
	}
	if err != nil {
		cancel(err)
		return errors.Join(err, g.Wait())
	}
	defer log.Sync() //nolint:errcheck

	holder := session.NewHolder()
	conn, err := helpers.Bootstrap(gctx, cfg, log)
	if err != nil {
		log.Error("[BOOT] could not establish a session", zap.Error(err))
	} else {
		holder.Set(conn)
	}

	co := helpers.Collaborators{
		Scenes: client.SceneLoaderFunc(func(name string) error {
			cancel(&sceneExit{scene: name})
			return nil
		}),
		Visuals: newVisuals(log.Named("visuals")),
		Chat:    logDisplay(log.Named("chat")),
	}
	if program != nil {
		co.Chat = tui.NewDisplay(program)
	}

	gc := helpers.NewClient(holder, cfg, log, co)
	d.client = gc
	if err := gc.Start(); err != nil {
		log.Warn("[BOOT] session manager did not start", zap.Error(err))
	}

	g.Go(func() error {
		return gameloop.New(cfg.Game.TickRate, d.step).Run(gctx)
	})
	if program != nil {
		go tui.EnableInput(program)
	}

	err = g.Wait()
	if stopErr := gc.Stop(); stopErr != nil {
		log.Warn("[STOP] disconnect failed", zap.Error(stopErr))
	}

	var exit *sceneExit
	if errors.As(context.Cause(ctx), &exit) {
		fmt.Fprintf(os.Stderr, "session ended, returned to scene %q\n", exit.scene)
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sceneExit ends the process when the session falls back to a scene.
type sceneExit struct {
	scene string
}

func (e *sceneExit) Error() string { return "fallback to scene " + e.scene }
