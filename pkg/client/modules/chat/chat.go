package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vergame/client/pkg/chat"
	"github.com/vergame/client/pkg/client"
	"github.com/vergame/client/pkg/protocol"
	"github.com/vergame/client/pkg/session"
)

const ModuleName = "chat"

// Display shows chat lines to the player.
type Display interface {
	Show(line chat.Line)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(line chat.Line)

func (f DisplayFunc) Show(line chat.Line) { f(line) }

type Module struct {
	client  *client.Client
	display Display
	history *chat.History

	onMessage     []func(line chat.Line)
	onChatCommand []func(player json.RawMessage)
}

// New creates the chat module. display may be nil.
func New(display Display, historySize int) *Module {
	return &Module{
		display: display,
		history: chat.NewHistory(historySize),
	}
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Init(c *client.Client) {
	m.client = c
	c.Handle(protocol.CmdReceiveChatMsg, m.handleReceiveChatMsg)
	c.OnMessage(m.handleMessage)
	c.OnUserExitRoom(m.handleUserExitRoom)
}

func (m *Module) Reset() {}

// From retrieves the chat module from a client.
func From(c *client.Client) *Module {
	mod := c.Module(ModuleName)
	if mod == nil {
		return nil
	}
	return mod.(*Module)
}

// History returns the lines received so far.
func (m *Module) History() *chat.History { return m.history }

// events

func (m *Module) OnMessage(cb func(line chat.Line)) { m.onMessage = append(m.onMessage, cb) }

// OnChatCommand fires for every receiveChatMsg extension response.
func (m *Module) OnChatCommand(cb func(player json.RawMessage)) {
	m.onChatCommand = append(m.onChatCommand, cb)
}

// receiveChatMsg carries nothing this client renders yet.
func (m *Module) handleReceiveChatMsg(msg protocol.Message) error {
	d, ok := msg.(protocol.ReceiveChatMsg)
	if !ok {
		return fmt.Errorf("receiveChatMsg: unexpected message %T", msg)
	}
	for _, cb := range m.onChatCommand {
		cb(d.Player)
	}
	return nil
}

func (m *Module) handleMessage(kind session.Kind, text string, sender protocol.User) {
	line := chat.Line{
		Channel:  channelOf(kind),
		SenderID: sender.ID,
		Sender:   sender.Name,
		Text:     text,
		At:       time.Now(),
	}
	m.publish(line)
}

func (m *Module) handleUserExitRoom(user protocol.User, room protocol.Room) {
	m.publish(chat.Line{
		Channel:  chat.ChannelSystem,
		SenderID: user.ID,
		Sender:   user.Name,
		Text:     fmt.Sprintf("%s left %s", user.Name, room.Name),
		At:       time.Now(),
	})
}

func (m *Module) publish(line chat.Line) {
	m.history.Add(line)
	if m.display != nil {
		m.display.Show(line)
	}
	for _, cb := range m.onMessage {
		cb(line)
	}
}

// SendMessage broadcasts message to the current room.
func (m *Module) SendMessage(message string) error {
	return m.client.BroadcastChat(message)
}

// SendPrivate sends message to one user.
func (m *Module) SendPrivate(userID int, message string) error {
	return m.client.SendPrivateChat(userID, message)
}

func channelOf(kind session.Kind) chat.Channel {
	switch kind {
	case session.AdminMessage:
		return chat.ChannelAdmin
	case session.PrivateMessage:
		return chat.ChannelPrivate
	default:
		return chat.ChannelPublic
	}
}
