package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vergame/client/pkg/protocol"
)

// Options configures a websocket session.
type Options struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// PongWait is how long the connection may stay silent before it is
	// considered lost. Pings go out at 90% of it.
	PongWait time.Duration
	// SendRate limits outbound frames per second. Zero disables the limit.
	SendRate  float64
	SendBurst int
	// InQueueSize caps frames waiting for ProcessEvents. Zero means unbounded.
	InQueueSize int
	Header      http.Header
	Logger      *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		DialTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		SendRate:     30,
		SendBurst:    60,
		InQueueSize:  1024,
	}
}

// Conn is a Session over a websocket carrying JSON envelopes.
type Conn struct {
	ws      *websocket.Conn
	opts    Options
	log     *zap.Logger
	limiter *rate.Limiter

	writeMu sync.Mutex

	mu     sync.Mutex
	queue  []Event
	closed bool
	myself protocol.User
	room   *protocol.Room

	listeners listenerSet
	replies   chan protocol.Envelope
	done      chan struct{}
}

// Dial connects to url. The returned session is connected but not logged in.
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	ws, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(ws, opts), nil
}

func newConn(ws *websocket.Conn, opts Options) *Conn {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Conn{
		ws:      ws,
		opts:    opts,
		log:     log.Named("session"),
		replies: make(chan protocol.Envelope, 4),
		done:    make(chan struct{}),
	}
	if opts.SendRate > 0 {
		burst := opts.SendBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.SendRate), burst)
	}

	ws.SetReadLimit(protocol.MaxFrameSize)
	if opts.PongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		})
		go c.pingLoop()
	}
	go c.readLoop()
	return c
}

// Login authenticates as name and records the identity the server assigns.
func (c *Conn) Login(ctx context.Context, name string) (protocol.User, error) {
	env, err := c.request(ctx, &protocol.LoginRequest{Name: name}, protocol.KindLogin)
	if err != nil {
		return protocol.User{}, fmt.Errorf("login %s: %w", name, err)
	}
	if env.User == nil {
		return protocol.User{}, fmt.Errorf("login %s: reply without user", name)
	}
	c.mu.Lock()
	c.myself = *env.User
	c.mu.Unlock()
	c.log.Info("[LOGIN] logged in", zap.Stringer("user", env.User))
	return *env.User, nil
}

// JoinRoom joins the named room and makes it the last joined room.
func (c *Conn) JoinRoom(ctx context.Context, name string) (protocol.Room, error) {
	env, err := c.request(ctx, &protocol.JoinRoomRequest{Name: name}, protocol.KindJoinRoom)
	if err != nil {
		return protocol.Room{}, fmt.Errorf("join room %s: %w", name, err)
	}
	if env.Room == nil {
		return protocol.Room{}, fmt.Errorf("join room %s: reply without room", name)
	}
	room := *env.Room
	c.mu.Lock()
	c.room = &room
	c.mu.Unlock()
	c.log.Info("[ROOM] joined", zap.Stringer("room", room))
	return room, nil
}

func (c *Conn) request(ctx context.Context, req protocol.Request, want string) (protocol.Envelope, error) {
	if err := c.Send(req); err != nil {
		return protocol.Envelope{}, err
	}
	for {
		select {
		case env := <-c.replies:
			if env.Kind == protocol.KindError {
				return env, fmt.Errorf("server: %s", env.Error)
			}
			if env.Kind == want {
				return env, nil
			}
		case <-ctx.Done():
			return protocol.Envelope{}, ctx.Err()
		case <-c.done:
			return protocol.Envelope{}, ErrNotConnected
		}
	}
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Conn) MySelf() protocol.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.myself
}

func (c *Conn) LastJoinedRoom() *protocol.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return nil
	}
	r := *c.room
	return &r
}

func (c *Conn) AddEventListener(kind Kind, l Listener) {
	c.listeners.add(kind, l)
}

func (c *Conn) RemoveAllEventListeners() {
	c.listeners.clear()
}

// ProcessEvents fires listeners for every queued event, oldest first.
func (c *Conn) ProcessEvents() {
	c.mu.Lock()
	events := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, ev := range events {
		c.listeners.fire(ev)
	}
}

// Send writes req as one frame. It never retries.
func (c *Conn) Send(req protocol.Request) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return ErrRateLimited
	}

	env, err := req.Envelope()
	if err != nil {
		return err
	}
	env.RequestID = uuid.NewString()
	data, err := protocol.MarshalFrame(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.opts.WriteTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", env.Kind, err)
	}
	return nil
}

// Disconnect closes the connection. Calling it again is a no-op.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.lost(err)
			return
		}
		env, err := protocol.UnmarshalFrame(data)
		if err != nil {
			c.log.Warn("[READ] dropping frame", zap.Error(err))
			continue
		}
		c.route(env)
	}
}

// lost marks the connection closed and queues ConnectionLost, unless the
// close was ours.
func (c *Conn) lost(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.ws.Close()

	reason := err.Error()
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		reason = fmt.Sprintf("close %d: %s", ce.Code, ce.Text)
	}
	c.log.Warn("[READ] connection lost", zap.String("reason", reason))
	c.queue = append(c.queue, Event{Kind: ConnectionLost, Params: map[string]any{ParamReason: reason}})
}

func (c *Conn) route(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindLogin, protocol.KindJoinRoom, protocol.KindError:
		select {
		case c.replies <- env:
		default:
			c.log.Warn("[READ] unsolicited reply", zap.String("kind", env.Kind), zap.String("error", env.Error))
		}
		return
	}

	ev, ok := eventFromEnvelope(env)
	if !ok {
		c.log.Debug("[READ] ignoring frame", zap.String("kind", env.Kind))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.InQueueSize > 0 && len(c.queue) >= c.opts.InQueueSize {
		c.log.Warn("[READ] inbound queue full, dropping event", zap.Stringer("event", ev.Kind))
		return
	}
	c.queue = append(c.queue, ev)
}

func eventFromEnvelope(env protocol.Envelope) (Event, bool) {
	switch env.Kind {
	case protocol.KindExtension:
		return Event{Kind: ExtensionResponse, Params: map[string]any{
			ParamCmd:    env.Cmd,
			ParamParams: env.Params,
		}}, true
	case protocol.KindPublicMessage:
		return messageEvent(PublicMessage, env), true
	case protocol.KindAdminMessage:
		return messageEvent(AdminMessage, env), true
	case protocol.KindPrivateMessage:
		return messageEvent(PrivateMessage, env), true
	case protocol.KindUserExitRoom:
		params := map[string]any{}
		if env.User != nil {
			params[ParamUser] = *env.User
		}
		if env.Room != nil {
			params[ParamRoom] = *env.Room
		}
		return Event{Kind: UserExitRoom, Params: params}, true
	}
	return Event{}, false
}

func messageEvent(kind Kind, env protocol.Envelope) Event {
	params := map[string]any{ParamMessage: env.Message}
	if env.Sender != nil {
		params[ParamSender] = *env.Sender
	}
	return Event{Kind: kind, Params: params}
}
