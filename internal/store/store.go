package store

import (
	"context"
	"errors"

	"github.com/lu-zhengda/courier/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for the application. Secrets are
// not stored here; see CredentialStore.
type Store interface {
	// Sessions
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	CurrentSession(ctx context.Context) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	DeleteSession(ctx context.Context, userID string) error

	// Push tokens
	UpsertPushToken(ctx context.Context, token *domain.PushToken) error
	ListPushTokens(ctx context.Context, userID string) ([]domain.PushToken, error)
	DeletePushToken(ctx context.Context, userID, token string) error

	// Inbox state
	GetInboxState(ctx context.Context, userID string) (*InboxState, error)
	SetInboxState(ctx context.Context, state *InboxState) error

	// Lifecycle
	Close() error
}

// InboxState holds per-user inbox preferences.
type InboxState struct {
	UserID          string
	PaginationLimit int
	LastSync        int64 // Unix timestamp
}

// Credentials are the secret parts of a session.
type Credentials struct {
	AccessToken string `json:"access_token,omitempty"`
	ClientKey   string `json:"client_key,omitempty"`
}

type CredentialStore interface {
	SaveCredentials(userID string, creds Credentials) error
	LoadCredentials(userID string) (*Credentials, error)
	DeleteCredentials(userID string) error
}
