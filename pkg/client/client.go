package client

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vergame/client/pkg/protocol"
	"github.com/vergame/client/pkg/session"
)

// DefaultFallbackScene is where the client goes when it has no usable connection.
const DefaultFallbackScene = "login"

var (
	// ErrNotConnected is returned by outbound requests while no connection is active.
	ErrNotConnected = session.ErrNotConnected
	// ErrStartupUnavailable is returned by Start when no established session is held.
	ErrStartupUnavailable = errors.New("no established session")
)

// Client owns the single active session of a game scene. It binds the
// session's event listeners, pumps queued events on Tick, and sends the
// player's requests.
//
// All methods are meant to be called from one goroutine (the game loop).
type Client struct {
	Logger *zap.Logger

	holder        *session.Holder
	sess          session.Session
	guard         *Guard
	fallbackScene string
	running       bool
	stats         Stats

	// modules
	modules       []Module
	modulesByName map[string]Module
	handlers      map[string]HandlerFunc

	onUserExitRoom   []func(user protocol.User, room protocol.Room)
	onMessage        []func(kind session.Kind, message string, sender protocol.User)
	onConnectionLost []func(reason string)
}

// New creates a client that takes its session from holder on Start.
// Register modules before calling Start.
func New(holder *session.Holder, loader SceneLoader, opts ...Option) *Client {
	c := &Client{
		Logger:        zap.NewNop(),
		holder:        holder,
		fallbackScene: DefaultFallbackScene,
		modulesByName: make(map[string]Module),
		handlers:      make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.guard = NewGuard(loader, c.Logger)
	return c
}

// Register adds a module to the client. Panics on duplicate name.
func (c *Client) Register(m Module) {
	if _, exists := c.modulesByName[m.Name()]; exists {
		panic("module already registered: " + m.Name())
	}
	c.modules = append(c.modules, m)
	c.modulesByName[m.Name()] = m
	m.Init(c)
}

// Module returns a registered module by name, or nil.
func (c *Client) Module(name string) Module {
	return c.modulesByName[name]
}

// Session returns the active session, or nil before Start.
func (c *Client) Session() session.Session { return c.sess }

// Running reports whether Tick pumps events.
func (c *Client) Running() bool { return c.running }

// FallbackScene returns the scene used when the connection is unavailable or lost.
func (c *Client) FallbackScene() string { return c.fallbackScene }

// Identity returns the local user id, or -1 without a session.
func (c *Client) Identity() int {
	if c.sess == nil {
		return -1
	}
	return c.sess.MySelf().ID
}

// events

func (c *Client) OnUserExitRoom(cb func(user protocol.User, room protocol.Room)) {
	c.onUserExitRoom = append(c.onUserExitRoom, cb)
}
func (c *Client) OnMessage(cb func(kind session.Kind, message string, sender protocol.User)) {
	c.onMessage = append(c.onMessage, cb)
}
func (c *Client) OnConnectionLost(cb func(reason string)) {
	c.onConnectionLost = append(c.onConnectionLost, cb)
}

// Start takes the established session, binds listeners and asks the server
// to spawn the local player. Without a session it falls back to the
// fallback scene and returns ErrStartupUnavailable.
func (c *Client) Start() error {
	if c.running {
		return nil
	}
	if c.holder == nil || !c.holder.IsInitialized() {
		c.Logger.Warn("[START] connection instance not found, back to fallback scene",
			zap.String("scene", c.fallbackScene))
		c.guard.FallbackTo(c.fallbackScene)
		return ErrStartupUnavailable
	}

	c.sess = c.holder.Get()
	c.bind()

	if err := c.RequestSpawn(); err != nil {
		c.Logger.Error("[START] spawn request failed", zap.Error(err))
	}

	c.running = true
	c.Logger.Info("[START] session manager running", zap.Int("identity", c.Identity()))
	return nil
}

// Tick processes every event the session has queued. It does nothing unless
// the client is running.
func (c *Client) Tick() {
	if !c.running {
		return
	}
	c.sess.ProcessEvents()
}

// Stop unbinds all listeners and closes the connection if it is still open.
// Calling it again, or without a successful Start, is a no-op.
func (c *Client) Stop() error {
	wasRunning := c.running
	c.running = false
	if c.sess == nil {
		return nil
	}

	c.sess.RemoveAllEventListeners()

	var err error
	if c.sess.IsConnected() {
		c.Logger.Info("[STOP] closing connection")
		err = c.sess.Disconnect()
	} else {
		c.Logger.Debug("[STOP] connection already closed")
	}

	if wasRunning {
		c.resetModules()
	}
	return err
}

// HandleConnectionLost abandons the session: it resets modules, falls back
// to the fallback scene, then fires OnConnectionLost callbacks. There is no
// reconnect.
func (c *Client) HandleConnectionLost(reason string) {
	wasRunning := c.running
	c.running = false
	c.Logger.Warn("[CONN] connection lost, back to fallback scene",
		zap.String("reason", reason), zap.String("scene", c.fallbackScene))
	if wasRunning {
		c.resetModules()
	}
	c.guard.FallbackTo(c.fallbackScene)
	for _, cb := range c.onConnectionLost {
		c.safely("connectionLost", func() { cb(reason) })
	}
}

func (c *Client) resetModules() {
	for _, m := range c.modules {
		c.safely("reset "+m.Name(), m.Reset)
	}
}

// safely runs fn, logging a panic instead of letting it escape Tick.
func (c *Client) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("[EVENT] callback panicked",
				zap.String("event", what), zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()
	fn()
}

func (c *Client) bind() {
	c.sess.AddEventListener(session.ExtensionResponse, c.Dispatch)
	c.sess.AddEventListener(session.UserExitRoom, c.handleUserExitRoom)
	c.sess.AddEventListener(session.ConnectionLost, func(ev session.Event) {
		reason, _ := ev.Params[session.ParamReason].(string)
		c.HandleConnectionLost(reason)
	})
	c.sess.AddEventListener(session.PublicMessage, c.handleMessage)
	c.sess.AddEventListener(session.AdminMessage, c.handleMessage)
	c.sess.AddEventListener(session.PrivateMessage, c.handleMessage)
	c.Logger.Debug("[START] session listeners bound")
}

func (c *Client) handleUserExitRoom(ev session.Event) {
	user, _ := ev.User()
	room, _ := ev.Room()
	c.Logger.Info("[ROOM] user left room", zap.Stringer("user", user), zap.Stringer("room", room))
	for _, cb := range c.onUserExitRoom {
		c.safely("userExitRoom", func() { cb(user, room) })
	}
}

func (c *Client) handleMessage(ev session.Event) {
	msg, _ := ev.Message()
	sender, _ := ev.Sender()
	c.Logger.Info("[CHAT] message", zap.Stringer("kind", ev.Kind),
		zap.String("sender", sender.Name), zap.String("message", msg))
	for _, cb := range c.onMessage {
		c.safely(ev.Kind.String(), func() { cb(ev.Kind, msg, sender) })
	}
}
