package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
	"github.com/lu-zhengda/courier/internal/provider"
	"github.com/lu-zhengda/courier/internal/store"
	"github.com/lu-zhengda/courier/internal/store/sqlite"
)

type courierFixture struct {
	courier *Courier
	db      *sqlite.DB
	creds   *store.KeyringCredentialStore
	fp      *fakeProvider
	built   []domain.Session
}

func newCourierFixture(t *testing.T, opts Options) *courierFixture {
	t.Helper()
	keyring.MockInit()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &courierFixture{db: db, creds: store.NewKeyringCredentialStore(), fp: seededProvider()}
	opts.Store = db
	opts.Credentials = f.creds
	opts.Factory = func(s domain.Session) provider.Provider {
		f.built = append(f.built, s)
		return f.fp
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return baseTime }
	}
	f.courier = NewCourier(opts)
	t.Cleanup(f.courier.Close)
	return f
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestSignInPersistsSession(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()

	token := signedToken(t, baseTime.Add(time.Hour))
	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", AccessToken: token, TenantID: "t"}))

	assert.True(t, f.courier.IsSignedIn())
	require.Len(t, f.built, 1)
	assert.Equal(t, token, f.built[0].AccessToken)

	saved, err := f.db.GetSession(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "t", saved.TenantID)
	assert.Empty(t, saved.AccessToken, "secrets stay out of sqlite")

	creds, err := f.creds.LoadCredentials("user-1")
	require.NoError(t, err)
	assert.Equal(t, token, creds.AccessToken)
}

func TestSignInRejectsInvalidSessions(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		session domain.Session
		expired bool
	}{
		{"missing user", domain.Session{ClientKey: "k"}, false},
		{"missing credentials", domain.Session{UserID: "u"}, false},
		{"expired jwt", domain.Session{UserID: "u", AccessToken: signedToken(t, baseTime.Add(-time.Minute))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.courier.SignIn(ctx, tt.session)
			require.Error(t, err)
			assert.Equal(t, tt.expired, errors.Is(err, domain.ErrSessionExpired))
			assert.False(t, f.courier.IsSignedIn())
		})
	}
	assert.Empty(t, f.built)
}

func TestSignInLoadsInboxForListeners(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()

	rec := &recorder{}
	f.courier.Inbox.AddListener(rec)
	f.courier.Inbox.Flush()
	require.ErrorIs(t, rec.errors()[0], domain.ErrNotSignedIn)

	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))
	f.courier.Inbox.Flush()

	assert.Equal(t, StateInitialized, f.courier.Inbox.State())
	assert.True(t, rec.has(inbox.EventLoaded))
	assert.Equal(t, []string{"a", "b"}, feedIDs(f.courier.Inbox.Snapshot().Feed))
}

func TestSignOut(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()

	rec := &recorder{}
	f.courier.Inbox.AddListener(rec)
	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))
	require.NoError(t, f.courier.RegisterPushToken(ctx, "device-1", ""))
	f.courier.Inbox.Flush()
	rec.reset()

	require.NoError(t, f.courier.SignOut(ctx))
	f.courier.Inbox.Flush()

	assert.False(t, f.courier.IsSignedIn())
	assert.Equal(t, []string{"device-1"}, f.fp.deleted)

	snap := f.courier.Inbox.Snapshot()
	assert.Empty(t, snap.Feed.Messages)
	assert.Empty(t, snap.Archive.Messages)
	_, _, disconnected := f.fp.socket(0).state()
	assert.True(t, disconnected)

	errs := rec.errors()
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[len(errs)-1], domain.ErrNotSignedIn)

	_, err := f.db.GetSession(ctx, "user-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.creds.LoadCredentials("user-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.courier.Send(ctx, provider.SendRequest{Title: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestRestore(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()

	ok, err := f.courier.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing persisted yet")

	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k", TenantID: "t"}))

	other := NewCourier(Options{Store: f.db, Credentials: f.creds, Factory: func(s domain.Session) provider.Provider {
		f.built = append(f.built, s)
		return f.fp
	}})
	defer other.Close()

	ok, err = other.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	s := other.Session()
	require.NotNil(t, s)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "k", s.ClientKey)
	assert.Equal(t, "t", s.TenantID)
}

func TestRestoreDefaultUser(t *testing.T) {
	f := newCourierFixture(t, Options{DefaultUser: "someone-else"})
	ctx := context.Background()
	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))
	require.NoError(t, f.courier.SignOut(ctx))
	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-2", ClientKey: "k"}))

	ok, err := f.courier.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "default user has no persisted session")
}

func TestPaginationLimitPersisted(t *testing.T) {
	f := newCourierFixture(t, Options{PaginationLimit: 20})
	ctx := context.Background()

	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))
	assert.Equal(t, 20, f.courier.Inbox.PaginationLimit(), "config default applies without stored state")

	n, err := f.courier.SetPaginationLimit(ctx, 10000)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	state, err := f.db.GetInboxState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 100, state.PaginationLimit)

	f.courier.Inbox.SetPaginationLimit(5)
	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))
	assert.Equal(t, 100, f.courier.Inbox.PaginationLimit(), "stored limit is reapplied on sign in")
}

func TestPushTokens(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, f.courier.RegisterPushToken(ctx, "device-1", ""), domain.ErrNotSignedIn)

	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))
	require.NoError(t, f.courier.RegisterPushToken(ctx, "device-1", ""))
	require.NoError(t, f.courier.RegisterPushToken(ctx, "device-2", "apn"))

	tokens, err := f.courier.PushTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, domain.PushProviderFCM, f.fp.tokens["device-1"].Provider)

	require.NoError(t, f.courier.UnregisterPushToken(ctx, "device-1"))
	tokens, err = f.courier.PushTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "device-2", tokens[0].Token)
}

func TestSendDefaultsToCurrentUser(t *testing.T) {
	f := newCourierFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.courier.SignIn(ctx, domain.Session{UserID: "user-1", ClientKey: "k"}))

	id, err := f.courier.Send(ctx, provider.SendRequest{Title: "hi", Body: "there"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)
	require.Len(t, f.fp.sent, 1)
	assert.Equal(t, "user-1", f.fp.sent[0].UserID)
}
