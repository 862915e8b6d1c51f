package chat_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vergame/client/pkg/chat"
	"github.com/vergame/client/pkg/client"
	chatmod "github.com/vergame/client/pkg/client/modules/chat"
	"github.com/vergame/client/pkg/protocol"
	"github.com/vergame/client/pkg/session"
	"github.com/vergame/client/pkg/session/sessiontest"
)

func setup(t *testing.T) (*client.Client, *sessiontest.Session, *[]chat.Line) {
	t.Helper()
	sess := sessiontest.New(1, &protocol.Room{ID: 4, Name: "Lobby"})
	holder := session.NewHolder()
	holder.Set(sess)

	var shown []chat.Line
	c := client.New(holder, nil)
	c.Register(chatmod.New(chatmod.DisplayFunc(func(l chat.Line) { shown = append(shown, l) }), 10))
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	return c, sess, &shown
}

func TestIncomingMessagesReachDisplay(t *testing.T) {
	c, sess, shown := setup(t)
	alice := protocol.User{ID: 2, Name: "alice"}

	sess.PushMessage(session.PublicMessage, "hi", alice)
	sess.PushMessage(session.AdminMessage, "restart", protocol.User{ID: 0, Name: "admin"})
	sess.PushMessage(session.PrivateMessage, "psst", alice)
	sess.Push(session.Event{Kind: session.UserExitRoom, Params: map[string]any{
		session.ParamUser: alice,
		session.ParamRoom: protocol.Room{ID: 4, Name: "Lobby"},
	}})
	c.Tick()

	want := []struct {
		channel chat.Channel
		text    string
	}{
		{chat.ChannelPublic, "hi"},
		{chat.ChannelAdmin, "restart"},
		{chat.ChannelPrivate, "psst"},
		{chat.ChannelSystem, "alice left Lobby"},
	}
	if len(*shown) != len(want) {
		t.Fatalf("shown %d lines, want %d", len(*shown), len(want))
	}
	for i, w := range want {
		got := (*shown)[i]
		if got.Channel != w.channel || got.Text != w.text {
			t.Errorf("line %d = %s %q, want %s %q", i, got.Channel, got.Text, w.channel, w.text)
		}
	}
	if h := chatmod.From(c).History(); h.Len() != 4 {
		t.Errorf("History().Len() = %d, want 4", h.Len())
	}
}

func TestReceiveChatMsgFiresChatCommand(t *testing.T) {
	c, sess, shown := setup(t)
	var players []json.RawMessage
	chatmod.From(c).OnChatCommand(func(p json.RawMessage) { players = append(players, p) })

	sess.PushExtension(protocol.CmdReceiveChatMsg, `{"player":{"name":"bob"}}`)
	c.Tick()

	if len(players) != 1 || string(players[0]) != `{"name":"bob"}` {
		t.Errorf("chat command players = %q", players)
	}
	if len(*shown) != 0 {
		t.Errorf("receiveChatMsg displayed %d lines, want 0", len(*shown))
	}
	if c.Stats().Dispatched != 1 {
		t.Errorf("Dispatched = %d, want 1", c.Stats().Dispatched)
	}
}

func TestSendGoesThroughClient(t *testing.T) {
	c, sess, _ := setup(t)
	m := chatmod.From(c)

	if err := m.SendMessage("hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if err := m.SendPrivate(2, "hey"); err != nil {
		t.Fatalf("SendPrivate() error = %v", err)
	}
	if err := m.SendMessage(""); !errors.Is(err, client.ErrEmptyMessage) {
		t.Errorf("SendMessage(\"\") error = %v, want ErrEmptyMessage", err)
	}

	sent := sess.Sent()
	if len(sent) != 3 {
		t.Fatalf("sent %d, want 3 (spawnMe + 2 chats)", len(sent))
	}
	if sent[1].Kind != protocol.KindPublicMessage || sent[1].RoomID != 4 {
		t.Errorf("public = %+v", sent[1])
	}
	if sent[2].Kind != protocol.KindPrivateMessage || sent[2].Recipient != 2 {
		t.Errorf("private = %+v", sent[2])
	}
}
