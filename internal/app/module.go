package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
	"github.com/lu-zhengda/courier/internal/provider"
)

type State int

const (
	StateUninitialized State = iota
	StateFetching
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateFetching:
		return "fetching"
	case StateInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type ModuleOptions struct {
	PaginationLimit int
	KeepAlive       time.Duration
	FetchTimeout    time.Duration
}

// InboxModule drives the inbox for the current session: it loads both
// partitions, keeps the realtime socket open while anyone is listening and
// routes user actions and socket events into the data store.
//
// Every load bumps a generation counter. Results and socket events that
// belong to an older generation are dropped, so a response arriving after
// sign-out or teardown never repopulates the store.
type InboxModule struct {
	mu      sync.Mutex
	state   State
	session *domain.Session
	client  provider.InboxProvider
	limit   int
	gen     uint64

	store   *inbox.DataStore
	service *DataService
	disp    *dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	tasks  conc.WaitGroup
}

func NewInboxModule(opts ModuleOptions) *InboxModule {
	limit := opts.PaginationLimit
	if limit == 0 {
		limit = domain.DefaultPaginationLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &InboxModule{
		limit:   domain.ClampPaginationLimit(limit),
		service: NewDataService(opts.KeepAlive, opts.FetchTimeout),
		disp:    newDispatcher(),
		ctx:     ctx,
		cancel:  cancel,
	}
	m.store = inbox.NewDataStore(m.disp.broadcast)
	return m
}

func (m *InboxModule) log() *log.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := log.WithField("component", "inbox_module")
	if m.session != nil {
		e = e.WithField("user", m.session.UserID)
	}
	return e
}

// SetSession installs a new session and transport, tearing down the current
// inbox. A nil session signs out.
func (m *InboxModule) SetSession(session *domain.Session, client provider.InboxProvider) {
	m.mu.Lock()
	m.session = session
	m.client = client
	m.mu.Unlock()
	m.teardown()
}

// AddListener registers l and returns its id. A listener joining a loaded
// inbox is sent the current snapshot; the first listener starts the load.
func (m *InboxModule) AddListener(l Listener) string {
	id := m.disp.add(l)

	m.mu.Lock()
	signedIn := m.session.IsSignedIn()
	state := m.state
	m.mu.Unlock()

	if !signedIn {
		m.disp.send(id, inbox.ErrorEvent{Err: domain.ErrNotSignedIn})
		return id
	}

	switch state {
	case StateUninitialized:
		m.tasks.Go(func() {
			if err := m.GetInbox(m.ctx, false); err != nil {
				m.log().WithError(err).Debug("inbox_initial_load_failed")
			}
		})
	case StateInitialized:
		m.disp.send(id, inbox.LoadedEvent{Snapshot: m.store.Snapshot()})
	}
	return id
}

// RemoveListener unregisters a listener. Removing the last one closes the
// socket and empties the store.
func (m *InboxModule) RemoveListener(id string) {
	removed, remaining := m.disp.remove(id)
	if removed && remaining == 0 {
		m.teardown()
	}
}

func (m *InboxModule) RemoveAllListeners() {
	m.disp.removeAll()
	m.teardown()
}

func (m *InboxModule) ListenerCount() int {
	return m.disp.count()
}

func (m *InboxModule) teardown() {
	m.mu.Lock()
	m.gen++
	m.state = StateUninitialized
	m.mu.Unlock()

	m.service.Stop()
	m.store.Dispose()
}

// current reports whether gen is still the live generation.
func (m *InboxModule) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// GetInbox loads both partitions and the unread count, connects the socket
// and replaces the store contents. On refresh each partition is fetched
// with a limit large enough to cover what is already loaded.
func (m *InboxModule) GetInbox(ctx context.Context, isRefresh bool) error {
	if m.disp.count() == 0 {
		return domain.ErrNotInitialized
	}

	m.mu.Lock()
	if !m.session.IsSignedIn() || m.client == nil {
		m.mu.Unlock()
		m.disp.broadcast(inbox.ErrorEvent{Err: domain.ErrNotSignedIn})
		return domain.ErrNotSignedIn
	}
	m.gen++
	gen := m.gen
	client := m.client
	limit := m.limit
	m.state = StateFetching
	m.mu.Unlock()

	feedLimit, archiveLimit := limit, limit
	if isRefresh {
		held := m.store.Snapshot()
		feedLimit = domain.RefreshLimit(limit, len(held.Feed.Messages))
		archiveLimit = domain.RefreshLimit(limit, len(held.Archive.Messages))
	}

	m.disp.broadcast(inbox.LoadingEvent{IsRefresh: isRefresh})

	snap, err := m.service.GetInboxData(ctx, client, feedLimit, archiveLimit, isRefresh)
	var sock provider.Socket
	if err == nil && m.current(gen) {
		sock, err = m.service.ConnectWebSocket(ctx, m.ctx, &m.tasks, gen, client, m.socketHandlers(gen))
	}
	if err != nil {
		return m.failLoad(gen, fmt.Errorf("failed to load inbox: %w", err))
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.service.Release(sock)
		m.log().Debug("inbox_load_superseded")
		return nil
	}
	m.store.ReloadSnapshot(snap)
	m.state = StateInitialized
	m.mu.Unlock()

	m.log().WithField("feed", len(snap.Feed.Messages)).
		WithField("archive", len(snap.Archive.Messages)).
		WithField("unread", snap.UnreadCount).
		Info("inbox_loaded")

	m.disp.broadcast(inbox.LoadedEvent{Snapshot: m.store.Snapshot()})
	return nil
}

func (m *InboxModule) failLoad(gen uint64, err error) error {
	m.mu.Lock()
	stale := m.gen != gen
	if !stale {
		m.state = StateUninitialized
	}
	m.mu.Unlock()
	if stale {
		return nil
	}

	m.service.Stop()
	m.log().WithError(err).Warn("inbox_load_failed")
	m.disp.broadcast(inbox.ErrorEvent{Err: err})
	return err
}

// Refresh reloads the inbox, keeping at least as many messages as are
// currently loaded.
func (m *InboxModule) Refresh(ctx context.Context) error {
	return m.GetInbox(ctx, true)
}

func (m *InboxModule) socketHandlers(gen uint64) provider.SocketHandlers {
	return provider.SocketHandlers{
		OnMessage: func(msg *domain.InboxMessage) {
			if !m.current(gen) {
				return
			}
			m.store.AddMessage(msg, 0, domain.FeedTypeFeed)
		},
		OnEvent: func(e provider.SocketEvent) {
			if !m.current(gen) {
				return
			}
			m.applySocketEvent(e)
		},
		OnError: func(err error) {
			if !m.current(gen) {
				return
			}
			m.disp.broadcast(inbox.ErrorEvent{Err: err})
		},
	}
}

// applySocketEvent mirrors a server-side change locally. Nothing is sent
// back to the server.
func (m *InboxModule) applySocketEvent(e provider.SocketEvent) {
	ctx := m.ctx
	var errs []error
	switch e.Type {
	case provider.SocketEventMarkAllRead:
		_, err := m.store.ReadAllMessages(ctx, nil)
		errs = append(errs, err)
	case provider.SocketEventRead:
		for _, feed := range domain.FeedTypes {
			_, err := m.store.ReadMessage(ctx, nil, feed, e.MessageID)
			errs = append(errs, err)
		}
	case provider.SocketEventUnread:
		for _, feed := range domain.FeedTypes {
			_, err := m.store.UnreadMessage(ctx, nil, feed, e.MessageID)
			errs = append(errs, err)
		}
	case provider.SocketEventOpened:
		for _, feed := range domain.FeedTypes {
			_, err := m.store.OpenMessage(ctx, nil, feed, e.MessageID)
			errs = append(errs, err)
		}
	case provider.SocketEventArchive:
		_, err := m.store.ArchiveMessage(ctx, nil, domain.FeedTypeFeed, e.MessageID)
		errs = append(errs, err)
	case provider.SocketEventClicked:
	}

	for _, err := range errs {
		if err != nil && !errors.Is(err, domain.ErrMessageNotFound) {
			m.log().WithError(err).WithField("event", e.Type).Warn("socket_event_failed")
		}
	}
}

// FetchNextPage loads the next page of a partition. It returns nil when
// nothing is listening, the user is signed out, the partition has no more
// pages, or a request for it is already in flight.
func (m *InboxModule) FetchNextPage(ctx context.Context, feed domain.FeedType) (*domain.MessageSet, error) {
	if m.disp.count() == 0 {
		return nil, nil
	}

	m.mu.Lock()
	signedIn := m.session.IsSignedIn() && m.client != nil
	client, limit, gen := m.client, m.limit, m.gen
	m.mu.Unlock()
	if !signedIn {
		return nil, nil
	}

	set := m.store.Feed(feed)
	if !set.CanPaginate || set.PaginationCursor == "" {
		return nil, nil
	}

	page, err := m.service.NextPage(ctx, client, feed, limit, set.PaginationCursor)
	if err != nil {
		if m.current(gen) {
			m.disp.broadcast(inbox.ErrorEvent{Err: err})
		}
		return nil, err
	}
	if page == nil || !m.current(gen) {
		return nil, nil
	}

	m.store.AddPage(page, feed)
	return page, nil
}

// activeClient returns the transport for a user action, or the guard error
// that prevents it.
func (m *InboxModule) activeClient() (provider.InboxProvider, error) {
	m.mu.Lock()
	signedIn := m.session.IsSignedIn() && m.client != nil
	state, client := m.state, m.client
	m.mu.Unlock()

	switch {
	case !signedIn:
		m.disp.broadcast(inbox.ErrorEvent{Err: domain.ErrNotSignedIn})
		return nil, domain.ErrNotSignedIn
	case state != StateInitialized:
		m.disp.broadcast(inbox.ErrorEvent{Err: domain.ErrNotInitialized})
		return nil, domain.ErrNotInitialized
	}
	return client, nil
}

type storeMutation func(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, id string) (bool, error)

func (m *InboxModule) mutateMessage(ctx context.Context, id string, fn storeMutation) (bool, error) {
	client, err := m.activeClient()
	if err != nil {
		return false, err
	}
	feed, ok := m.store.Locate(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	return fn(ctx, client, feed, id)
}

func (m *InboxModule) ReadMessage(ctx context.Context, id string) (bool, error) {
	return m.mutateMessage(ctx, id, m.store.ReadMessage)
}

func (m *InboxModule) UnreadMessage(ctx context.Context, id string) (bool, error) {
	return m.mutateMessage(ctx, id, m.store.UnreadMessage)
}

func (m *InboxModule) OpenMessage(ctx context.Context, id string) (bool, error) {
	return m.mutateMessage(ctx, id, m.store.OpenMessage)
}

func (m *InboxModule) ClickMessage(ctx context.Context, id string) (bool, error) {
	return m.mutateMessage(ctx, id, m.store.ClickMessage)
}

// ArchiveMessage archives a feed message. Messages already in the archive
// are left alone.
func (m *InboxModule) ArchiveMessage(ctx context.Context, id string) (bool, error) {
	return m.mutateMessage(ctx, id, m.store.ArchiveMessage)
}

func (m *InboxModule) ReadAllMessages(ctx context.Context) (bool, error) {
	client, err := m.activeClient()
	if err != nil {
		return false, err
	}
	return m.store.ReadAllMessages(ctx, client)
}

// SetPaginationLimit clamps and stores the page size used for later
// requests. It returns the stored value.
func (m *InboxModule) SetPaginationLimit(n int) int {
	n = domain.ClampPaginationLimit(n)
	m.mu.Lock()
	m.limit = n
	m.mu.Unlock()
	return n
}

func (m *InboxModule) PaginationLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}

func (m *InboxModule) Snapshot() inbox.Snapshot {
	return m.store.Snapshot()
}

func (m *InboxModule) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Flush waits until every event emitted so far has been delivered.
func (m *InboxModule) Flush() {
	m.disp.flush()
}

func (m *InboxModule) notify(e inbox.Event) {
	m.disp.broadcast(e)
}

// Close tears the inbox down, waits for background work and stops event
// delivery. The module cannot be used afterwards.
func (m *InboxModule) Close() {
	m.teardown()
	m.cancel()
	m.tasks.Wait()
	m.disp.close()
}
