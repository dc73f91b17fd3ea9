package inbox

import "github.com/lu-zhengda/courier/internal/domain"

type EventType string

const (
	EventLoading            EventType = "loading"
	EventError              EventType = "error"
	EventLoaded             EventType = "loaded"
	EventMessagesChanged    EventType = "messages_changed"
	EventMessage            EventType = "message"
	EventTotalCountUpdated  EventType = "total_count_updated"
	EventUnreadCountUpdated EventType = "unread_count_updated"
	EventPageAdded          EventType = "page_added"
)

// Event is delivered to inbox listeners. Every message carried by an event
// is a private copy.
type Event interface {
	EventType() EventType
}

// Emitter receives store events. It is called with the store locked and
// must not call back into the store synchronously.
type Emitter func(Event)

type LoadingEvent struct {
	IsRefresh bool
}

type ErrorEvent struct {
	Err error
}

// LoadedEvent carries the whole inbox after a fetch, or as a replay for a
// listener that joins an initialized inbox.
type LoadedEvent struct {
	Snapshot Snapshot
}

type MessagesChangedEvent struct {
	Feed        domain.FeedType
	Messages    []*domain.InboxMessage
	TotalCount  int
	CanPaginate bool
}

type MessageEventKind int

const (
	MessageAdded MessageEventKind = iota
	MessageRead
	MessageUnread
	MessageOpened
	MessageArchived
)

func (k MessageEventKind) String() string {
	switch k {
	case MessageAdded:
		return "added"
	case MessageRead:
		return "read"
	case MessageUnread:
		return "unread"
	case MessageOpened:
		return "opened"
	case MessageArchived:
		return "archived"
	default:
		return "unknown"
	}
}

type MessageEvent struct {
	Feed    domain.FeedType
	Index   int
	Message *domain.InboxMessage
	Kind    MessageEventKind
}

type TotalCountUpdatedEvent struct {
	Feed       domain.FeedType
	TotalCount int
}

type UnreadCountUpdatedEvent struct {
	UnreadCount int
}

type PageAddedEvent struct {
	Feed        domain.FeedType
	Messages    []*domain.InboxMessage
	TotalCount  int
	CanPaginate bool
	IsFirstPage bool
}

func (LoadingEvent) EventType() EventType            { return EventLoading }
func (ErrorEvent) EventType() EventType              { return EventError }
func (LoadedEvent) EventType() EventType             { return EventLoaded }
func (MessagesChangedEvent) EventType() EventType    { return EventMessagesChanged }
func (MessageEvent) EventType() EventType            { return EventMessage }
func (TotalCountUpdatedEvent) EventType() EventType  { return EventTotalCountUpdated }
func (UnreadCountUpdatedEvent) EventType() EventType { return EventUnreadCountUpdated }
func (PageAddedEvent) EventType() EventType          { return EventPageAdded }

// Snapshot is a detached copy of both partitions and the unread counter.
type Snapshot struct {
	Feed        *domain.MessageSet
	Archive     *domain.MessageSet
	UnreadCount int
}

// Set returns the partition for feed.
func (s Snapshot) Set(feed domain.FeedType) *domain.MessageSet {
	if feed == domain.FeedTypeArchive {
		return s.Archive
	}
	return s.Feed
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Feed:        s.Feed.Clone(),
		Archive:     s.Archive.Clone(),
		UnreadCount: s.UnreadCount,
	}
}

func cloneMessages(msgs []*domain.InboxMessage) []*domain.InboxMessage {
	out := make([]*domain.InboxMessage, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
