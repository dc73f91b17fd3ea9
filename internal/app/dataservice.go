package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
	"github.com/lu-zhengda/courier/internal/provider"
)

// DataService wraps the transport calls the inbox module makes: the initial
// fan-out fetch, single-flight paging per partition and the realtime socket.
type DataService struct {
	keepAlive time.Duration
	timeout   time.Duration

	mu         sync.Mutex
	socket     provider.Socket
	stopSocket context.CancelFunc
	socketGen  uint64

	// In-flight flags hold the token of the request that set them, or 0.
	requests        atomic.Uint64
	feedInFlight    atomic.Uint64
	archiveInFlight atomic.Uint64
}

// errSocketSuperseded is returned when a load from an older generation
// finishes connecting after a newer one installed its socket.
var errSocketSuperseded = errors.New("socket superseded by a newer load")

// NewDataService creates a service that sends keep-alive frames every
// keepAlive and bounds each fetch by timeout. Zero disables either.
func NewDataService(keepAlive, timeout time.Duration) *DataService {
	return &DataService{keepAlive: keepAlive, timeout: timeout}
}

func (d *DataService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

// GetInboxData fetches the first feed page, the first archive page and the
// unread count concurrently. The first failure cancels the others.
func (d *DataService) GetInboxData(ctx context.Context, client provider.InboxProvider, feedLimit, archiveLimit int, isRefresh bool) (inbox.Snapshot, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	log.WithField("refresh", isRefresh).
		WithField("feed_limit", feedLimit).
		WithField("archive_limit", archiveLimit).
		Debug("inbox_fetch_started")

	var snap inbox.Snapshot
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		set, err := client.FetchPage(ctx, provider.PageOptions{Feed: domain.FeedTypeFeed, Limit: feedLimit})
		if err != nil {
			return fmt.Errorf("failed to fetch feed: %w", err)
		}
		snap.Feed = set
		return nil
	})
	p.Go(func(ctx context.Context) error {
		set, err := client.FetchPage(ctx, provider.PageOptions{Feed: domain.FeedTypeArchive, Limit: archiveLimit})
		if err != nil {
			return fmt.Errorf("failed to fetch archive: %w", err)
		}
		snap.Archive = set
		return nil
	})
	p.Go(func(ctx context.Context) error {
		n, err := client.FetchUnreadCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch unread count: %w", err)
		}
		snap.UnreadCount = n
		return nil
	})
	if err := p.Wait(); err != nil {
		return inbox.Snapshot{}, err
	}
	return snap, nil
}

// ConnectWebSocket opens, connects and subscribes a socket for load
// generation gen and installs it in place of any open socket. A socket from
// a generation older than the installed one is disconnected and
// errSocketSuperseded returned. Keep-alive frames are sent from a task on
// tasks until life is cancelled or the socket is stopped.
func (d *DataService) ConnectWebSocket(ctx, life context.Context, tasks *conc.WaitGroup, gen uint64, client provider.InboxProvider, h provider.SocketHandlers) (provider.Socket, error) {
	sock, err := client.OpenSocket(h)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket: %w", err)
	}
	if err := sock.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect socket: %w", err)
	}
	if err := sock.Subscribe(ctx); err != nil {
		_ = sock.Disconnect()
		return nil, fmt.Errorf("failed to subscribe socket: %w", err)
	}

	d.mu.Lock()
	if gen < d.socketGen {
		d.mu.Unlock()
		disconnect(sock, nil)
		log.WithField("gen", gen).Debug("socket_superseded")
		return nil, errSocketSuperseded
	}
	prev, prevStop := d.socket, d.stopSocket
	sockCtx, stop := context.WithCancel(life)
	d.socket, d.stopSocket, d.socketGen = sock, stop, gen
	d.mu.Unlock()

	disconnect(prev, prevStop)

	if d.keepAlive > 0 {
		tasks.Go(func() { d.keepAliveLoop(sockCtx, sock) })
	}
	return sock, nil
}

func (d *DataService) keepAliveLoop(ctx context.Context, sock provider.Socket) {
	ticker := time.NewTicker(d.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.KeepAlive(ctx); err != nil {
				log.WithError(err).Warn("socket_keep_alive_failed")
			}
		}
	}
}

func (d *DataService) inFlight(feed domain.FeedType) *atomic.Uint64 {
	if feed == domain.FeedTypeArchive {
		return &d.archiveInFlight
	}
	return &d.feedInFlight
}

// NextPage fetches the page after cursor. It returns nil without calling
// the server if a request for the same partition is already in flight.
func (d *DataService) NextPage(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, limit int, cursor string) (*domain.MessageSet, error) {
	flag := d.inFlight(feed)
	token := d.requests.Add(1)
	if !flag.CompareAndSwap(0, token) {
		log.WithField("feed", feed).Debug("inbox_page_in_flight")
		return nil, nil
	}
	// A Stop during the request may have handed the flag to a newer one.
	defer flag.CompareAndSwap(token, 0)

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	page, err := client.FetchPage(ctx, provider.PageOptions{Feed: feed, Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next %s page: %w", feed, err)
	}
	return page, nil
}

func (d *DataService) GetNextFeedPage(ctx context.Context, client provider.InboxProvider, limit int, cursor string) (*domain.MessageSet, error) {
	return d.NextPage(ctx, client, domain.FeedTypeFeed, limit, cursor)
}

func (d *DataService) GetNextArchivePage(ctx context.Context, client provider.InboxProvider, limit int, cursor string) (*domain.MessageSet, error) {
	return d.NextPage(ctx, client, domain.FeedTypeArchive, limit, cursor)
}

// Stop closes the socket and clears the in-flight flags.
func (d *DataService) Stop() {
	d.closeSocket()
	d.feedInFlight.Store(0)
	d.archiveInFlight.Store(0)
}

// Release closes sock if it is still the open socket.
func (d *DataService) Release(sock provider.Socket) {
	d.mu.Lock()
	owned := sock != nil && d.socket == sock
	d.mu.Unlock()
	if owned {
		d.closeSocket()
	}
}

func (d *DataService) closeSocket() {
	d.mu.Lock()
	sock, stop := d.socket, d.stopSocket
	d.socket, d.stopSocket = nil, nil
	d.mu.Unlock()

	disconnect(sock, stop)
}

func disconnect(sock provider.Socket, stop context.CancelFunc) {
	if stop != nil {
		stop()
	}
	if sock != nil {
		if err := sock.Disconnect(); err != nil {
			log.WithError(err).Debug("socket_disconnect_failed")
		}
	}
}
