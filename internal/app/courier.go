package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
	"github.com/lu-zhengda/courier/internal/provider"
	courierapi "github.com/lu-zhengda/courier/internal/provider/courier"
	"github.com/lu-zhengda/courier/internal/store"
)

// ProviderFactory builds the transport for a signed-in session.
type ProviderFactory func(domain.Session) provider.Provider

// Options configures a Courier. Store and Credentials are optional; without
// them sessions live in memory only.
type Options struct {
	Store           store.Store
	Credentials     store.CredentialStore
	Factory         ProviderFactory
	API             courierapi.Options
	KeepAlive       time.Duration
	FetchTimeout    time.Duration
	PaginationLimit int
	DefaultUser     string
	Now             func() time.Time
}

// Courier owns the current session, the transport built for it and the
// inbox module that syncs it.
type Courier struct {
	mu       sync.Mutex
	session  *domain.Session
	provider provider.Provider

	opts  Options
	Inbox *InboxModule
}

func NewCourier(opts Options) *Courier {
	if opts.Factory == nil {
		api := opts.API
		if api.Timeout == 0 {
			api.Timeout = opts.FetchTimeout
		}
		opts.Factory = func(s domain.Session) provider.Provider {
			return courierapi.New(s, api)
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PaginationLimit == 0 {
		opts.PaginationLimit = domain.DefaultPaginationLimit
	}
	return &Courier{
		opts: opts,
		Inbox: NewInboxModule(ModuleOptions{
			PaginationLimit: opts.PaginationLimit,
			KeepAlive:       opts.KeepAlive,
			FetchTimeout:    opts.FetchTimeout,
		}),
	}
}

var (
	sharedOnce sync.Once
	shared     *Courier
)

// Shared returns a process-wide Courier with default options, created on
// first use.
func Shared() *Courier {
	sharedOnce.Do(func() {
		shared = NewCourier(Options{})
	})
	return shared
}

func (c *Courier) log() *log.Entry {
	e := log.WithField("component", "courier")
	if s := c.Session(); s != nil {
		e = e.WithField("user", s.UserID)
	}
	return e
}

// SignIn validates and persists session, then restarts the inbox for it.
// The previous session, if any, is torn down first.
func (c *Courier) SignIn(ctx context.Context, session domain.Session) error {
	if err := courierapi.ValidateSession(session, c.opts.Now()); err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = c.opts.Now()
	}

	if c.opts.Store != nil {
		if err := c.opts.Store.SaveSession(ctx, &session); err != nil {
			return fmt.Errorf("failed to sign in: %w", err)
		}
	}
	if c.opts.Credentials != nil {
		creds := store.Credentials{AccessToken: session.AccessToken, ClientKey: session.ClientKey}
		if err := c.opts.Credentials.SaveCredentials(session.UserID, creds); err != nil {
			return fmt.Errorf("failed to sign in: %w", err)
		}
	}

	c.activate(ctx, session)
	c.log().Info("signed_in")
	return nil
}

// activate installs session without persisting it and reloads the inbox if
// anyone is listening.
func (c *Courier) activate(ctx context.Context, session domain.Session) {
	limit := c.opts.PaginationLimit
	if c.opts.Store != nil {
		state, err := c.opts.Store.GetInboxState(ctx, session.UserID)
		if err != nil {
			log.WithError(err).WithField("user", session.UserID).Warn("inbox_state_load_failed")
		} else if state.PaginationLimit > 0 {
			limit = state.PaginationLimit
		}
	}

	p := c.opts.Factory(session)
	c.mu.Lock()
	c.session = &session
	c.provider = p
	c.mu.Unlock()

	c.Inbox.SetPaginationLimit(limit)
	c.Inbox.SetSession(&session, p)

	if c.Inbox.ListenerCount() > 0 {
		if err := c.Inbox.GetInbox(ctx, false); err != nil {
			c.log().WithError(err).Debug("inbox_reload_failed")
		}
	}
}

// SignOut removes the user's push tokens from the server, forgets the
// persisted session and resets the inbox. Listeners are told the user is
// signed out.
func (c *Courier) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session, p := c.session, c.provider
	c.session, c.provider = nil, nil
	c.mu.Unlock()

	c.Inbox.SetSession(nil, nil)
	defer c.Inbox.notify(inbox.ErrorEvent{Err: domain.ErrNotSignedIn})

	if session == nil {
		return nil
	}
	entry := log.WithField("component", "courier").WithField("user", session.UserID)

	var errs []error
	if c.opts.Store != nil {
		tokens, err := c.opts.Store.ListPushTokens(ctx, session.UserID)
		if err != nil {
			entry.WithError(err).Warn("push_tokens_list_failed")
		}
		for _, t := range tokens {
			if err := p.DeleteToken(ctx, t.Token); err != nil {
				entry.WithError(err).WithField("token", t.Token).Warn("push_token_delete_failed")
			}
		}
		if err := c.opts.Store.DeleteSession(ctx, session.UserID); err != nil {
			errs = append(errs, err)
		}
	}
	if c.opts.Credentials != nil {
		if err := c.opts.Credentials.DeleteCredentials(session.UserID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	entry.Info("signed_out")
	return nil
}

// Restore signs in with the persisted session for the configured default
// user, or the most recently active one. It reports whether a session was
// restored.
func (c *Courier) Restore(ctx context.Context) (bool, error) {
	if c.opts.Store == nil || c.opts.Credentials == nil {
		return false, nil
	}

	var (
		session *domain.Session
		err     error
	)
	if c.opts.DefaultUser != "" {
		session, err = c.opts.Store.GetSession(ctx, c.opts.DefaultUser)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
	} else {
		session, err = c.opts.Store.CurrentSession(ctx)
	}
	if err != nil {
		return false, fmt.Errorf("failed to restore session: %w", err)
	}
	if session == nil {
		return false, nil
	}

	creds, err := c.opts.Credentials.LoadCredentials(session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to restore session: %w", err)
	}
	session.AccessToken = creds.AccessToken
	session.ClientKey = creds.ClientKey

	if err := courierapi.ValidateSession(*session, c.opts.Now()); err != nil {
		return false, fmt.Errorf("failed to restore session: %w", err)
	}
	c.activate(ctx, *session)
	c.log().Debug("session_restored")
	return true, nil
}

// Session returns a copy of the current session, or nil when signed out.
func (c *Courier) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Courier) IsSignedIn() bool {
	return c.Session().IsSignedIn()
}

func (c *Courier) current() (*domain.Session, provider.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.IsSignedIn() || c.provider == nil {
		return nil, nil, domain.ErrNotSignedIn
	}
	s := *c.session
	return &s, c.provider, nil
}

// SetPaginationLimit clamps n, applies it to the inbox and persists it for
// the signed-in user. It returns the applied value.
func (c *Courier) SetPaginationLimit(ctx context.Context, n int) (int, error) {
	n = c.Inbox.SetPaginationLimit(n)
	session := c.Session()
	if session == nil || c.opts.Store == nil {
		return n, nil
	}
	state, err := c.opts.Store.GetInboxState(ctx, session.UserID)
	if err != nil {
		return n, fmt.Errorf("failed to save pagination limit: %w", err)
	}
	state.PaginationLimit = n
	if err := c.opts.Store.SetInboxState(ctx, state); err != nil {
		return n, fmt.Errorf("failed to save pagination limit: %w", err)
	}
	return n, nil
}

// RegisterPushToken registers a device token for the signed-in user.
func (c *Courier) RegisterPushToken(ctx context.Context, token, providerKey string) error {
	session, p, err := c.current()
	if err != nil {
		return err
	}
	if providerKey == "" {
		providerKey = domain.PushProviderFCM
	}
	t := domain.PushToken{
		UserID:    session.UserID,
		Token:     token,
		Provider:  providerKey,
		CreatedAt: c.opts.Now(),
	}
	if err := p.PutToken(ctx, t); err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	if c.opts.Store != nil {
		if err := c.opts.Store.UpsertPushToken(ctx, &t); err != nil {
			return fmt.Errorf("failed to register push token: %w", err)
		}
	}
	return nil
}

func (c *Courier) UnregisterPushToken(ctx context.Context, token string) error {
	session, p, err := c.current()
	if err != nil {
		return err
	}
	if err := p.DeleteToken(ctx, token); err != nil {
		return fmt.Errorf("failed to unregister push token: %w", err)
	}
	if c.opts.Store != nil {
		if err := c.opts.Store.DeletePushToken(ctx, session.UserID, token); err != nil {
			return fmt.Errorf("failed to unregister push token: %w", err)
		}
	}
	return nil
}

// PushTokens lists the tokens registered from this machine for the
// signed-in user.
func (c *Courier) PushTokens(ctx context.Context) ([]domain.PushToken, error) {
	session, _, err := c.current()
	if err != nil {
		return nil, err
	}
	if c.opts.Store == nil {
		return nil, nil
	}
	return c.opts.Store.ListPushTokens(ctx, session.UserID)
}

// Send delivers a message through the Courier send API. An empty recipient
// means the signed-in user.
func (c *Courier) Send(ctx context.Context, req provider.SendRequest) (string, error) {
	session, p, err := c.current()
	if err != nil {
		return "", err
	}
	if req.UserID == "" {
		req.UserID = session.UserID
	}
	id, err := p.Send(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return id, nil
}

// Close shuts the inbox down. The store is owned by the caller.
func (c *Courier) Close() {
	c.Inbox.Close()
}
