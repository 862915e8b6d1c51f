package chat

import (
	"fmt"
	"testing"
)

func TestHistoryTrims(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(Line{Channel: ChannelPublic, Text: fmt.Sprintf("msg %d", i)})
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	got := h.Last(10)
	for i, want := range []string{"msg 2", "msg 3", "msg 4"} {
		if got[i].Text != want {
			t.Errorf("Last(10)[%d] = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestHistoryLast(t *testing.T) {
	h := NewHistory(0)
	if got := h.Last(5); len(got) != 0 {
		t.Errorf("Last(5) on empty history = %d lines, want 0", len(got))
	}

	h.Add(Line{Text: "a"})
	h.Add(Line{Text: "b"})
	got := h.Last(1)
	if len(got) != 1 || got[0].Text != "b" {
		t.Errorf("Last(1) = %+v, want [b]", got)
	}
}

func TestHistoryLastOutOfRange(t *testing.T) {
	h := NewHistory(10)
	h.Add(Line{Text: "a"})
	h.Add(Line{Text: "b"})

	tests := []struct {
		count int
		want  int
	}{
		{-1, 0},
		{0, 0},
		{2, 2},
		{99, 2},
	}
	for _, tt := range tests {
		if got := h.Last(tt.count); len(got) != tt.want {
			t.Errorf("Last(%d) = %d lines, want %d", tt.count, len(got), tt.want)
		}
	}
}

func TestHistoryBySender(t *testing.T) {
	h := NewHistory(10)
	h.Add(Line{SenderID: 1, Text: "hi"})
	h.Add(Line{SenderID: 2, Text: "yo"})
	h.Add(Line{SenderID: 1, Text: "bye"})

	got := h.BySender(1)
	if len(got) != 2 || got[0].Text != "hi" || got[1].Text != "bye" {
		t.Errorf("BySender(1) = %+v, want [hi bye]", got)
	}

	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", h.Len())
	}
}
