package session

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/vergame/client/pkg/protocol"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrRateLimited  = errors.New("send rate limit exceeded")
)

// Kind identifies a session event.
type Kind int

const (
	ExtensionResponse Kind = iota + 1
	UserExitRoom
	ConnectionLost
	PublicMessage
	AdminMessage
	PrivateMessage
)

func (k Kind) String() string {
	switch k {
	case ExtensionResponse:
		return "extensionResponse"
	case UserExitRoom:
		return "userExitRoom"
	case ConnectionLost:
		return "connectionLost"
	case PublicMessage:
		return "publicMessage"
	case AdminMessage:
		return "adminMessage"
	case PrivateMessage:
		return "privateMessage"
	default:
		return "unknown"
	}
}

// Event parameter keys.
const (
	ParamCmd     = "cmd"
	ParamParams  = "params"
	ParamUser    = "user"
	ParamRoom    = "room"
	ParamMessage = "message"
	ParamSender  = "sender"
	ParamReason  = "reason"
)

// Event is one queued notification from the server.
type Event struct {
	Kind   Kind
	Params map[string]any
}

// Cmd returns the extension command name, if present.
func (e Event) Cmd() (string, bool) {
	s, ok := e.Params[ParamCmd].(string)
	return s, ok
}

// Payload returns the extension params, if present.
func (e Event) Payload() (json.RawMessage, bool) {
	p, ok := e.Params[ParamParams].(json.RawMessage)
	return p, ok
}

// Message returns the chat text of a message event.
func (e Event) Message() (string, bool) {
	s, ok := e.Params[ParamMessage].(string)
	return s, ok
}

// Sender returns the sender of a message event.
func (e Event) Sender() (protocol.User, bool) {
	u, ok := e.Params[ParamSender].(protocol.User)
	return u, ok
}

// User returns the user of a room event.
func (e Event) User() (protocol.User, bool) {
	u, ok := e.Params[ParamUser].(protocol.User)
	return u, ok
}

// Room returns the room of a room event.
func (e Event) Room() (protocol.Room, bool) {
	r, ok := e.Params[ParamRoom].(protocol.Room)
	return r, ok
}

// Listener receives events during ProcessEvents.
type Listener func(Event)

// Session is one established, logged-in connection to the game server.
//
// Events received from the server are queued until ProcessEvents is called;
// listeners then run synchronously on the caller's goroutine, in arrival order.
type Session interface {
	IsConnected() bool
	// MySelf returns the local user as assigned by the server at login.
	MySelf() protocol.User
	// LastJoinedRoom returns the current room, or nil if none was joined.
	LastJoinedRoom() *protocol.Room
	AddEventListener(kind Kind, l Listener)
	RemoveAllEventListeners()
	ProcessEvents()
	Send(req protocol.Request) error
	Disconnect() error
}

// Holder hands an established session from the bootstrap (login screen)
// to whatever runs the game scene.
type Holder struct {
	mu sync.RWMutex
	s  Session
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Set(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.s = s
}

// Get returns the held session, or nil.
func (h *Holder) Get() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.s
}

// IsInitialized reports whether a connected session is held.
func (h *Holder) IsInitialized() bool {
	s := h.Get()
	return s != nil && s.IsConnected()
}

func (h *Holder) Clear() {
	h.Set(nil)
}

// listenerSet is shared by session implementations.
type listenerSet struct {
	mu        sync.Mutex
	listeners map[Kind][]Listener
}

func (ls *listenerSet) add(kind Kind, l Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.listeners == nil {
		ls.listeners = make(map[Kind][]Listener)
	}
	ls.listeners[kind] = append(ls.listeners[kind], l)
}

func (ls *listenerSet) clear() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.listeners = nil
}

func (ls *listenerSet) fire(ev Event) {
	ls.mu.Lock()
	out := make([]Listener, len(ls.listeners[ev.Kind]))
	copy(out, ls.listeners[ev.Kind])
	ls.mu.Unlock()

	for _, l := range out {
		l(ev)
	}
}
