package domain

import (
	"testing"
	"time"
)

func TestFeedType_String(t *testing.T) {
	tests := []struct {
		feed FeedType
		want string
	}{
		{FeedTypeFeed, "feed"},
		{FeedTypeArchive, "archive"},
		{FeedType(7), "feed(7)"},
	}
	for _, tt := range tests {
		if got := tt.feed.String(); got != tt.want {
			t.Errorf("FeedType(%d).String() = %q, want %q", int(tt.feed), got, tt.want)
		}
	}
}

func TestParseFeedType(t *testing.T) {
	tests := []struct {
		in      string
		want    FeedType
		wantErr bool
	}{
		{"feed", FeedTypeFeed, false},
		{"ARCHIVE", FeedTypeArchive, false},
		{"", FeedTypeFeed, false},
		{"trash", FeedTypeFeed, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFeedType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFeedType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFeedType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMessageSet_FindAndUnread(t *testing.T) {
	now := time.Now()
	set := &MessageSet{Messages: []*InboxMessage{
		{ID: "a"},
		{ID: "b", Read: &now},
		{ID: "c"},
	}}

	idx, msg := set.Find("b")
	if idx != 1 || msg == nil || msg.ID != "b" {
		t.Errorf("Find(b) = %d, %v; want 1, b", idx, msg)
	}
	if idx, msg := set.Find("zzz"); idx != -1 || msg != nil {
		t.Errorf("Find(zzz) = %d, %v; want -1, nil", idx, msg)
	}
	if !set.Contains("c") {
		t.Error("expected Contains(c) = true")
	}
	if got := set.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() = %d, want 2", got)
	}
}

func TestMessageSet_CloneIsDeep(t *testing.T) {
	set := &MessageSet{
		Messages:         []*InboxMessage{{ID: "a"}},
		TotalCount:       4,
		CanPaginate:      true,
		PaginationCursor: "cur",
	}
	c := set.Clone()
	c.Messages[0].MarkRead(time.Now())
	c.Messages = append(c.Messages, &InboxMessage{ID: "b"})

	if set.Messages[0].IsRead() {
		t.Error("clone shares message pointers with original")
	}
	if len(set.Messages) != 1 {
		t.Errorf("original length = %d, want 1", len(set.Messages))
	}
	if c.TotalCount != 4 || !c.CanPaginate || c.PaginationCursor != "cur" {
		t.Errorf("clone paging fields = %+v", c)
	}

	var nilSet *MessageSet
	if got := nilSet.Clone(); got == nil || len(got.Messages) != 0 {
		t.Errorf("nil Clone() = %+v, want empty set", got)
	}
}
