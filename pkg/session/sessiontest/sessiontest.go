// Package sessiontest provides an in-memory session.Session for tests.
package sessiontest

import (
	"encoding/json"
	"sync"

	"github.com/vergame/client/pkg/protocol"
	"github.com/vergame/client/pkg/session"
)

// Session records sent requests and lets a test queue server events.
type Session struct {
	mu        sync.Mutex
	connected bool
	myself    protocol.User
	room      *protocol.Room
	queue     []session.Event
	listeners map[session.Kind][]session.Listener
	sent      []protocol.Envelope

	// SendErr, when set, is returned by every Send.
	SendErr error

	Disconnects int
}

// New returns a connected session for user id in room.
func New(id int, room *protocol.Room) *Session {
	return &Session{
		connected: true,
		myself:    protocol.User{ID: id, Name: "player"},
		room:      room,
		listeners: make(map[session.Kind][]session.Listener),
	}
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) MySelf() protocol.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.myself
}

func (s *Session) LastJoinedRoom() *protocol.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) AddEventListener(kind session.Kind, l session.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[kind] = append(s.listeners[kind], l)
}

func (s *Session) RemoveAllEventListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[session.Kind][]session.Listener)
}

// ListenerCount returns the number of listeners bound for kind.
func (s *Session) ListenerCount(kind session.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[kind])
}

func (s *Session) ProcessEvents() {
	s.mu.Lock()
	events := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, ev := range events {
		s.mu.Lock()
		ls := append([]session.Listener(nil), s.listeners[ev.Kind]...)
		s.mu.Unlock()
		for _, l := range ls {
			l(ev)
		}
	}
}

func (s *Session) Send(req protocol.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return session.ErrNotConnected
	}
	if s.SendErr != nil {
		return s.SendErr
	}
	env, err := req.Envelope()
	if err != nil {
		return err
	}
	s.sent = append(s.sent, env)
	return nil
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.Disconnects++
	}
	s.connected = false
	return nil
}

// Drop simulates the transport losing the connection: it marks the
// session closed and queues ConnectionLost.
func (s *Session) Drop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.queue = append(s.queue, session.Event{
		Kind:   session.ConnectionLost,
		Params: map[string]any{session.ParamReason: reason},
	})
}

// Push queues a raw event.
func (s *Session) Push(ev session.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, ev)
}

// PushExtension queues an extension response with a JSON params body.
func (s *Session) PushExtension(cmd, params string) {
	s.Push(session.Event{Kind: session.ExtensionResponse, Params: map[string]any{
		session.ParamCmd:    cmd,
		session.ParamParams: json.RawMessage(params),
	}})
}

// PushMessage queues a chat event of kind from sender.
func (s *Session) PushMessage(kind session.Kind, text string, sender protocol.User) {
	s.Push(session.Event{Kind: kind, Params: map[string]any{
		session.ParamMessage: text,
		session.ParamSender:  sender,
	}})
}

// Sent returns a copy of every envelope sent so far.
func (s *Session) Sent() []protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Envelope(nil), s.sent...)
}
