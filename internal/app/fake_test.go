package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
	"github.com/lu-zhengda/courier/internal/provider"
)

var baseTime = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newMessage(id string, age time.Duration, read bool) *domain.InboxMessage {
	m := &domain.InboxMessage{
		ID:      id,
		Title:   "title " + id,
		Created: baseTime.Add(-age),
		TrackingIDs: domain.TrackingIDs{
			Click: "click-" + id,
		},
	}
	if read {
		at := baseTime
		m.Read = &at
	}
	return m
}

func newSet(cursor string, msgs ...*domain.InboxMessage) *domain.MessageSet {
	return &domain.MessageSet{
		Messages:         msgs,
		TotalCount:       len(msgs),
		CanPaginate:      cursor != "",
		PaginationCursor: cursor,
	}
}

// fakeProvider serves canned pages. Pages are keyed by feed and cursor; the
// first page of a partition uses the empty cursor.
type fakeProvider struct {
	mu        sync.Mutex
	pages     map[domain.FeedType]map[string]*domain.MessageSet
	unread    int
	fetchErr  error
	mutateErr error

	// When block is set, FetchPage signals entered and waits for block.
	block   chan struct{}
	entered chan struct{}

	// When connectGate is set, the next socket opened signals
	// connectEntered from Connect and waits for connectGate.
	connectGate    chan struct{}
	connectEntered chan struct{}

	limits    []int
	mutations []provider.Mutation
	tokens    map[string]domain.PushToken
	deleted   []string
	sent      []provider.SendRequest
	sockets   []*fakeSocket
}

var _ provider.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		pages: map[domain.FeedType]map[string]*domain.MessageSet{
			domain.FeedTypeFeed:    {},
			domain.FeedTypeArchive: {},
		},
		tokens: make(map[string]domain.PushToken),
	}
}

func (f *fakeProvider) setPage(feed domain.FeedType, cursor string, set *domain.MessageSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[feed][cursor] = set
}

func (f *fakeProvider) FetchPage(ctx context.Context, opts provider.PageOptions) (*domain.MessageSet, error) {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.limits = append(f.limits, opts.Limit)
	f.mu.Unlock()

	if block != nil {
		entered <- struct{}{}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	set, ok := f.pages[opts.Feed][opts.Cursor]
	if !ok {
		return newSet(""), nil
	}
	return set.Clone(), nil
}

func (f *fakeProvider) FetchUnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread, nil
}

func (f *fakeProvider) Mutate(ctx context.Context, m provider.Mutation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, m)
	return f.mutateErr
}

func (f *fakeProvider) OpenSocket(h provider.SocketHandlers) (provider.Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSocket{handlers: h, gate: f.connectGate, entered: f.connectEntered}
	f.connectGate, f.connectEntered = nil, nil
	f.sockets = append(f.sockets, s)
	return s, nil
}

func (f *fakeProvider) PutToken(ctx context.Context, token domain.PushToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeProvider) DeleteToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeProvider) Send(ctx context.Context, req provider.SendRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return fmt.Sprintf("req-%d", len(f.sent)), nil
}

func (f *fakeProvider) socket(i int) *fakeSocket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.sockets) {
		return nil
	}
	return f.sockets[i]
}

func (f *fakeProvider) socketCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sockets)
}

func (f *fakeProvider) recordedMutations() []provider.Mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Mutation(nil), f.mutations...)
}

func (f *fakeProvider) recordedLimits() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits...)
}

type fakeSocket struct {
	handlers provider.SocketHandlers
	gate     chan struct{}
	entered  chan struct{}

	mu           sync.Mutex
	connected    bool
	subscribed   bool
	disconnected bool
	keepAlives   int
}

func (s *fakeSocket) Connect(ctx context.Context) error {
	if s.gate != nil {
		s.entered <- struct{}{}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *fakeSocket) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = true
	return nil
}

func (s *fakeSocket) KeepAlive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAlives++
	return nil
}

func (s *fakeSocket) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
	return nil
}

func (s *fakeSocket) state() (connected, subscribed, disconnected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, s.subscribed, s.disconnected
}

func (s *fakeSocket) keepAliveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keepAlives
}

// recorder is a Listener that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []inbox.Event
}

func (r *recorder) OnInboxEvent(e inbox.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []inbox.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inbox.Event(nil), r.events...)
}

func (r *recorder) types() []inbox.EventType {
	var out []inbox.EventType
	for _, e := range r.all() {
		out = append(out, e.EventType())
	}
	return out
}

func (r *recorder) has(t inbox.EventType) bool {
	for _, e := range r.all() {
		if e.EventType() == t {
			return true
		}
	}
	return false
}

func (r *recorder) errors() []error {
	var out []error
	for _, e := range r.all() {
		if ev, ok := e.(inbox.ErrorEvent); ok {
			out = append(out, ev.Err)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
