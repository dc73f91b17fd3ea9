package domain

import (
	"maps"
	"time"
)

// TrackingIDs holds the per-event tokens the server attached to a delivery.
type TrackingIDs struct {
	Open    string
	Click   string
	Read    string
	Unread  string
	Deliver string
	Archive string
}

type Action struct {
	Content string
	Href    string
	Data    map[string]any
}

// InboxMessage is a single inbox entry. Read, Opened and Archived are nil
// until the corresponding event happens.
type InboxMessage struct {
	ID          string
	Title       string
	Body        string
	Preview     string
	Created     time.Time
	Read        *time.Time
	Opened      *time.Time
	Archived    *time.Time
	Actions     []Action
	Data        map[string]any
	Tags        []string
	TrackingIDs TrackingIDs
}

func (m *InboxMessage) IsRead() bool     { return m.Read != nil }
func (m *InboxMessage) IsOpened() bool   { return m.Opened != nil }
func (m *InboxMessage) IsArchived() bool { return m.Archived != nil }

// Subtitle returns the body, falling back to the preview text.
func (m *InboxMessage) Subtitle() string {
	if m.Body != "" {
		return m.Body
	}
	return m.Preview
}

// MarkRead sets the read timestamp. It reports whether the message changed.
func (m *InboxMessage) MarkRead(at time.Time) bool {
	if m.Read != nil {
		return false
	}
	m.Read = &at
	return true
}

// MarkUnread clears the read timestamp. It reports whether the message changed.
func (m *InboxMessage) MarkUnread() bool {
	if m.Read == nil {
		return false
	}
	m.Read = nil
	return true
}

// MarkOpened sets the opened timestamp. It reports whether the message changed.
func (m *InboxMessage) MarkOpened(at time.Time) bool {
	if m.Opened != nil {
		return false
	}
	m.Opened = &at
	return true
}

// MarkArchived sets the archived timestamp. It reports whether the message changed.
func (m *InboxMessage) MarkArchived(at time.Time) bool {
	if m.Archived != nil {
		return false
	}
	m.Archived = &at
	return true
}

// Clone returns a copy that shares no mutable state with m.
func (m *InboxMessage) Clone() *InboxMessage {
	if m == nil {
		return nil
	}
	c := *m
	c.Read = cloneTime(m.Read)
	c.Opened = cloneTime(m.Opened)
	c.Archived = cloneTime(m.Archived)
	if m.Actions != nil {
		c.Actions = make([]Action, len(m.Actions))
		for i, a := range m.Actions {
			a.Data = maps.Clone(a.Data)
			c.Actions[i] = a
		}
	}
	c.Data = maps.Clone(m.Data)
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
