package chat

import (
	"sync"
	"time"
)

const MaxChatHistory = 1000

// Channel is where a line came from.
type Channel string

const (
	ChannelPublic  Channel = "public"
	ChannelAdmin   Channel = "admin"
	ChannelPrivate Channel = "private"
	ChannelSystem  Channel = "system"
)

// Line is one chat message as shown to the player.
type Line struct {
	Channel  Channel
	SenderID int
	Sender   string
	Text     string
	At       time.Time
}

// History keeps the most recent chat lines.
type History struct {
	mu    sync.RWMutex
	max   int
	lines []Line
}

// NewHistory returns a history holding at most max lines; zero or less uses MaxChatHistory.
func NewHistory(max int) *History {
	if max <= 0 {
		max = MaxChatHistory
	}
	return &History{max: max, lines: make([]Line, 0, min(max, 64))}
}

func (h *History) Add(l Line) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, l)
	if len(h.lines) > h.max {
		h.lines = h.lines[len(h.lines)-h.max:]
	}
}

// Last returns up to count of the newest lines, oldest first.
func (h *History) Last(count int) []Line {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count = max(0, min(count, len(h.lines)))
	start := len(h.lines) - count
	out := make([]Line, len(h.lines)-start)
	copy(out, h.lines[start:])
	return out
}

// BySender returns every kept line sent by senderID.
func (h *History) BySender(senderID int) []Line {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Line
	for _, l := range h.lines {
		if l.SenderID == senderID {
			out = append(out, l)
		}
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lines)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = h.lines[:0]
}
