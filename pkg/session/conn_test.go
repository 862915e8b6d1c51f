package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vergame/client/pkg/protocol"
)

// peer is the server side of one test connection.
type peer struct {
	ws       *websocket.Conn
	mu       sync.Mutex
	received chan protocol.Envelope
}

func (p *peer) write(t *testing.T, env protocol.Envelope) {
	t.Helper()
	data, err := protocol.MarshalFrame(env)
	if err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (p *peer) reply(env protocol.Envelope) {
	data, _ := protocol.MarshalFrame(env)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ws.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) kick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server restart")
	p.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	p.ws.Close()
}

// serve answers login and joinRoom and records every other frame.
func (p *peer) serve() {
	for {
		_, data, err := p.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.UnmarshalFrame(data)
		if err != nil {
			continue
		}
		switch env.Kind {
		case protocol.KindLogin:
			if env.Name == "banned" {
				p.reply(protocol.Envelope{Kind: protocol.KindError, RequestID: env.RequestID, Error: "user banned"})
				continue
			}
			p.reply(protocol.Envelope{Kind: protocol.KindLogin, RequestID: env.RequestID,
				User: &protocol.User{ID: 42, Name: env.Name}})
		case protocol.KindJoinRoom:
			p.reply(protocol.Envelope{Kind: protocol.KindJoinRoom, RequestID: env.RequestID,
				Room: &protocol.Room{ID: 3, Name: env.Name}})
		default:
			p.received <- env
		}
	}
}

func startServer(t *testing.T) (string, <-chan *peer) {
	t.Helper()
	peers := make(chan *peer, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p := &peer{ws: ws, received: make(chan protocol.Envelope, 16)}
		peers <- p
		p.serve()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), peers
}

func dial(t *testing.T, opts Options) (*Conn, *peer) {
	t.Helper()
	url, peers := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, opts)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })

	select {
	case p := <-peers:
		return c, p
	case <-ctx.Done():
		t.Fatal("server never saw the connection")
		return nil, nil
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.SendRate = 0
	return opts
}

// pump calls ProcessEvents until cond holds.
func pump(t *testing.T, c *Conn, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.ProcessEvents()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestLoginAndJoinRoom(t *testing.T) {
	c, p := dial(t, testOptions())
	ctx := context.Background()

	me, err := c.Login(ctx, "alice")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if me.ID != 42 || c.MySelf().ID != 42 {
		t.Errorf("MySelf() = %+v, want id 42", c.MySelf())
	}
	if c.LastJoinedRoom() != nil {
		t.Error("LastJoinedRoom() set before joining")
	}

	if _, err := c.JoinRoom(ctx, "Lobby"); err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}
	room := c.LastJoinedRoom()
	if room == nil || room.ID != 3 || room.Name != "Lobby" {
		t.Fatalf("LastJoinedRoom() = %+v", room)
	}

	if err := c.Send(protocol.NewExtensionRequest(protocol.CmdSpawnMe, nil, *room)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	env := <-p.received
	if env.Cmd != protocol.CmdSpawnMe || env.RoomID != 3 || env.RequestID == "" {
		t.Errorf("server received %+v", env)
	}
	if string(env.Params) != "{}" {
		t.Errorf("params = %s, want {}", env.Params)
	}
}

func TestLoginRejected(t *testing.T) {
	c, _ := dial(t, testOptions())
	if _, err := c.Login(context.Background(), "banned"); err == nil || !strings.Contains(err.Error(), "user banned") {
		t.Errorf("Login() error = %v, want server error", err)
	}
}

func TestEventsWaitForProcessEvents(t *testing.T) {
	c, p := dial(t, testOptions())

	var cmds []string
	c.AddEventListener(ExtensionResponse, func(ev Event) {
		cmd, _ := ev.Cmd()
		cmds = append(cmds, cmd)
	})
	for _, cmd := range []string{"a", "b", "c"} {
		p.write(t, protocol.Envelope{Kind: protocol.KindExtension, Cmd: cmd, Params: json.RawMessage(`{}`)})
	}
	if len(cmds) != 0 {
		t.Fatalf("listener fired outside ProcessEvents: %v", cmds)
	}

	pump(t, c, func() bool { return len(cmds) == 3 })
	if strings.Join(cmds, ",") != "a,b,c" {
		t.Errorf("order = %v, want [a b c]", cmds)
	}
}

func TestMessageAndExitEvents(t *testing.T) {
	c, p := dial(t, testOptions())

	var got []Event
	for _, k := range []Kind{PublicMessage, UserExitRoom} {
		c.AddEventListener(k, func(ev Event) { got = append(got, ev) })
	}
	bob := &protocol.User{ID: 9, Name: "bob"}
	p.write(t, protocol.Envelope{Kind: protocol.KindPublicMessage, Message: "hi", Sender: bob})
	p.write(t, protocol.Envelope{Kind: protocol.KindUserExitRoom, User: bob, Room: &protocol.Room{ID: 3, Name: "Lobby"}})

	pump(t, c, func() bool { return len(got) == 2 })
	if msg, _ := got[0].Message(); msg != "hi" {
		t.Errorf("message = %q", msg)
	}
	if s, ok := got[0].Sender(); !ok || s.ID != 9 {
		t.Errorf("sender = %+v", s)
	}
	if r, ok := got[1].Room(); !ok || r.Name != "Lobby" {
		t.Errorf("room = %+v", r)
	}
}

func TestServerCloseQueuesConnectionLost(t *testing.T) {
	c, p := dial(t, testOptions())

	var reasons []string
	c.AddEventListener(ConnectionLost, func(ev Event) {
		reason, _ := ev.Params[ParamReason].(string)
		reasons = append(reasons, reason)
	})
	p.kick()

	pump(t, c, func() bool { return len(reasons) == 1 })
	if !strings.Contains(reasons[0], "server restart") {
		t.Errorf("reason = %q", reasons[0])
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after server close")
	}
	if err := c.Send(&protocol.PublicMessageRequest{Message: "hi"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c, _ := dial(t, testOptions())

	fired := 0
	c.AddEventListener(ConnectionLost, func(Event) { fired++ })

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit")
	}
	c.ProcessEvents()
	if fired != 0 {
		t.Errorf("ConnectionLost fired %d times after local disconnect", fired)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
}

func TestSendRateLimit(t *testing.T) {
	opts := testOptions()
	opts.SendRate = 0.001
	opts.SendBurst = 2
	c, _ := dial(t, opts)

	req := &protocol.PublicMessageRequest{Message: "spam", RoomID: 3}
	for i := 0; i < 2; i++ {
		if err := c.Send(req); err != nil {
			t.Fatalf("Send() #%d error = %v", i+1, err)
		}
	}
	if err := c.Send(req); !errors.Is(err, ErrRateLimited) {
		t.Errorf("third Send() error = %v, want ErrRateLimited", err)
	}
}

func TestInboundQueueBounded(t *testing.T) {
	opts := testOptions()
	opts.InQueueSize = 2
	c, p := dial(t, opts)

	for i := 0; i < 3; i++ {
		p.write(t, protocol.Envelope{Kind: protocol.KindExtension, Cmd: "x", Params: json.RawMessage(`{}`)})
	}
	// the login reply is read after the three frames above
	if _, err := c.Login(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	n := 0
	c.AddEventListener(ExtensionResponse, func(Event) { n++ })
	c.ProcessEvents()
	if n != 2 {
		t.Errorf("processed %d events, want 2", n)
	}
}

func TestRemoveAllEventListeners(t *testing.T) {
	c, p := dial(t, testOptions())

	n := 0
	c.AddEventListener(ExtensionResponse, func(Event) { n++ })
	c.RemoveAllEventListeners()
	p.write(t, protocol.Envelope{Kind: protocol.KindExtension, Cmd: "x", Params: json.RawMessage(`{}`)})
	if _, err := c.Login(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	c.ProcessEvents()
	if n != 0 {
		t.Errorf("removed listener fired %d times", n)
	}
}

func TestHolder(t *testing.T) {
	h := NewHolder()
	if h.IsInitialized() {
		t.Error("empty holder reports initialized")
	}
	c, _ := dial(t, testOptions())
	h.Set(c)
	if !h.IsInitialized() {
		t.Error("holder with live session reports uninitialized")
	}
	c.Disconnect()
	if h.IsInitialized() {
		t.Error("holder with closed session reports initialized")
	}
	h.Clear()
	if h.Get() != nil {
		t.Error("Get() after Clear is not nil")
	}
}
