package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/lu-zhengda/courier/internal/domain"
)

func TestRelativeDate(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{49 * time.Hour, "2d"},
		{30 * 24 * time.Hour, "May 16"},
	}
	for _, tt := range tests {
		if got := relativeDate(now.Add(-tt.age), now); got != tt.want {
			t.Errorf("relativeDate(-%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hell…"},
		{"héllo", 1, "h"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRenderMessage(t *testing.T) {
	read := now
	msg := &domain.InboxMessage{
		ID:      "m1",
		Title:   "Your order shipped",
		Preview: "Tracking inside",
		Created: now,
		Read:    &read,
		Tags:    []string{"orders", "shipping"},
		Actions: []domain.Action{{Content: "Track", Href: "https://example.com/track"}},
		Data:    map[string]any{"order": 1, "carrier": "ups"},
	}

	got := renderMessage(msg, 40)
	for _, want := range []string{
		"Your order shipped",
		"read",
		"orders, shipping",
		"Tracking inside",
		"[Track]",
		"https://example.com/track",
		"carrier, order",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renderMessage() missing %q in:\n%s", want, got)
		}
	}
}

func TestReaderRefreshKeepsScroll(t *testing.T) {
	msg := &domain.InboxMessage{ID: "m1", Title: "t", Body: strings.Repeat("line\n", 50)}

	var r readerModel
	r.SetSize(40, 5)
	r.Show(msg)
	r.scrollOffset = 3

	updated := msg.Clone()
	updated.MarkRead(now)
	r.Refresh(updated)

	if r.scrollOffset != 3 {
		t.Errorf("scrollOffset = %d, want 3", r.scrollOffset)
	}
	if !r.message.IsRead() {
		t.Error("reader should show the updated message")
	}

	r.Refresh(&domain.InboxMessage{ID: "other"})
	if r.MessageID() != "m1" {
		t.Errorf("Refresh() with another id replaced the message with %q", r.MessageID())
	}
}

func TestTabsView(t *testing.T) {
	tabs := newTabs("user-1")
	tabs.width = 80
	tabs.unread = 3
	tabs.counts[domain.FeedTypeFeed] = 12

	view := tabs.View()
	for _, want := range []string{"Inbox (12)", "Archive", "3", "user-1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q in %q", want, view)
		}
	}

	if got := tabs.next(); got != domain.FeedTypeArchive {
		t.Errorf("next() = %v, want archive", got)
	}
	if got := tabs.next(); got != domain.FeedTypeFeed {
		t.Errorf("next() = %v, want feed", got)
	}
}
