package domain

import (
	"fmt"
	"strings"
)

// FeedType names one of the two inbox partitions.
type FeedType int

const (
	FeedTypeFeed FeedType = iota
	FeedTypeArchive
)

// FeedTypes lists both partitions in display order.
var FeedTypes = []FeedType{FeedTypeFeed, FeedTypeArchive}

func (f FeedType) String() string {
	switch f {
	case FeedTypeFeed:
		return "feed"
	case FeedTypeArchive:
		return "archive"
	default:
		return fmt.Sprintf("feed(%d)", int(f))
	}
}

// ParseFeedType converts "feed" or "archive" (case-insensitive) to a FeedType.
func ParseFeedType(s string) (FeedType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feed", "inbox", "":
		return FeedTypeFeed, nil
	case "archive", "archived":
		return FeedTypeArchive, nil
	default:
		return FeedTypeFeed, fmt.Errorf("unknown feed type: %q", s)
	}
}

// MessageSet is one page or one whole partition of inbox messages, newest first.
type MessageSet struct {
	Messages []*InboxMessage

	// TotalCount is server-reported and may exceed len(Messages) while paging.
	TotalCount       int
	CanPaginate      bool
	PaginationCursor string
}

// Find returns the index and message with the given ID, or -1 and nil.
func (s *MessageSet) Find(id string) (int, *InboxMessage) {
	for i, m := range s.Messages {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

// Contains reports whether a message with the given ID is present.
func (s *MessageSet) Contains(id string) bool {
	i, _ := s.Find(id)
	return i >= 0
}

// UnreadCount counts the loaded messages that have not been read.
func (s *MessageSet) UnreadCount() int {
	n := 0
	for _, m := range s.Messages {
		if !m.IsRead() {
			n++
		}
	}
	return n
}

// Clone deep-copies the set, including every message.
func (s *MessageSet) Clone() *MessageSet {
	if s == nil {
		return &MessageSet{}
	}
	c := *s
	c.Messages = make([]*InboxMessage, len(s.Messages))
	for i, m := range s.Messages {
		c.Messages[i] = m.Clone()
	}
	return &c
}

// Values returns copies of the messages as values, for rendering.
func (s *MessageSet) Values() []InboxMessage {
	out := make([]InboxMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, *m.Clone())
	}
	return out
}
