package provider

import (
	"context"

	"github.com/lu-zhengda/courier/internal/domain"
)

type PageOptions struct {
	Feed   domain.FeedType
	Limit  int
	Cursor string
}

type MutationKind int

const (
	MutationRead MutationKind = iota
	MutationUnread
	MutationOpen
	MutationArchive
	MutationClick
	MutationMarkAllRead
)

func (k MutationKind) String() string {
	switch k {
	case MutationRead:
		return "read"
	case MutationUnread:
		return "unread"
	case MutationOpen:
		return "opened"
	case MutationArchive:
		return "archive"
	case MutationClick:
		return "clicked"
	case MutationMarkAllRead:
		return "markAllRead"
	default:
		return "unknown"
	}
}

// Mutation is a server-side write. MessageID is empty for MutationMarkAllRead;
// TrackingID is only used by MutationClick.
type Mutation struct {
	Kind       MutationKind
	MessageID  string
	TrackingID string
}

//go:generate mockgen -destination=mocks/mock_provider.go github.com/lu-zhengda/courier/internal/provider InboxProvider,Socket

// InboxProvider is the transport the inbox core depends on.
type InboxProvider interface {
	FetchPage(ctx context.Context, opts PageOptions) (*domain.MessageSet, error)
	FetchUnreadCount(ctx context.Context) (int, error)
	Mutate(ctx context.Context, m Mutation) error
	OpenSocket(h SocketHandlers) (Socket, error)
}

// Socket is one realtime connection for the signed-in user.
type Socket interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	KeepAlive(ctx context.Context) error
	Disconnect() error
}

type SocketEventType int

const (
	SocketEventMarkAllRead SocketEventType = iota
	SocketEventRead
	SocketEventUnread
	SocketEventOpened
	SocketEventArchive
	SocketEventClicked
)

func (t SocketEventType) String() string {
	switch t {
	case SocketEventMarkAllRead:
		return "mark-all-read"
	case SocketEventRead:
		return "read"
	case SocketEventUnread:
		return "unread"
	case SocketEventOpened:
		return "opened"
	case SocketEventArchive:
		return "archive"
	case SocketEventClicked:
		return "clicked"
	default:
		return "unknown"
	}
}

// ParseSocketEventType maps a wire event name to its type.
func ParseSocketEventType(s string) (SocketEventType, bool) {
	switch s {
	case "mark-all-read":
		return SocketEventMarkAllRead, true
	case "read":
		return SocketEventRead, true
	case "unread":
		return SocketEventUnread, true
	case "opened":
		return SocketEventOpened, true
	case "archive", "archived":
		return SocketEventArchive, true
	case "clicked", "click":
		return SocketEventClicked, true
	}
	return 0, false
}

type SocketEvent struct {
	Type      SocketEventType
	MessageID string
}

// SocketHandlers are invoked from the socket's read goroutine.
type SocketHandlers struct {
	OnMessage func(*domain.InboxMessage)
	OnEvent   func(SocketEvent)
	OnError   func(error)
}

type TokenProvider interface {
	PutToken(ctx context.Context, token domain.PushToken) error
	DeleteToken(ctx context.Context, token string) error
}

type SendRequest struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]any
}

type MessageSender interface {
	Send(ctx context.Context, req SendRequest) (string, error)
}

// Provider is everything a signed-in session needs from the server.
type Provider interface {
	InboxProvider
	TokenProvider
	MessageSender
}
