package inbox

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/provider"
)

// DataStore holds the feed and archive partitions and the unread counter.
//
// Mutations are applied optimistically: the local change and its events
// happen first, then the server call is made without holding the lock. If
// the server call fails the whole pre-mutation snapshot is restored, which
// also discards any unrelated change that landed in between.
//
// Passing a nil client to a mutation applies it locally only.
type DataStore struct {
	mu      sync.Mutex
	feed    *domain.MessageSet
	archive *domain.MessageSet
	unread  int
	emit    Emitter
	now     func() time.Time
}

func NewDataStore(emit Emitter) *DataStore {
	if emit == nil {
		emit = func(Event) {}
	}
	return &DataStore{
		feed:    &domain.MessageSet{},
		archive: &domain.MessageSet{},
		emit:    emit,
		now:     time.Now,
	}
}

func (s *DataStore) set(feed domain.FeedType) *domain.MessageSet {
	if feed == domain.FeedTypeArchive {
		return s.archive
	}
	return s.feed
}

func (s *DataStore) log() *log.Entry {
	return log.WithField("component", "inbox_store")
}

// UpdateDataSet replaces a partition wholesale.
func (s *DataStore) UpdateDataSet(set *domain.MessageSet, feed domain.FeedType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := set.Clone()
	if feed == domain.FeedTypeArchive {
		s.archive = c
	} else {
		s.feed = c
	}

	s.emit(TotalCountUpdatedEvent{Feed: feed, TotalCount: c.TotalCount})
	s.emit(PageAddedEvent{
		Feed:        feed,
		Messages:    cloneMessages(c.Messages),
		TotalCount:  c.TotalCount,
		CanPaginate: c.CanPaginate,
		IsFirstPage: true,
	})
	s.emitChangedLocked(feed)
}

// AddPage appends a fetched page to the tail of a partition. Messages that
// are already present are skipped. It returns the messages actually added.
func (s *DataStore) AddPage(page *domain.MessageSet, feed domain.FeedType) []*domain.InboxMessage {
	if page == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.set(feed)
	added := make([]*domain.InboxMessage, 0, len(page.Messages))
	for _, m := range page.Messages {
		if set.Contains(m.ID) {
			continue
		}
		c := m.Clone()
		set.Messages = append(set.Messages, c)
		added = append(added, c.Clone())
	}
	set.TotalCount = page.TotalCount
	set.CanPaginate = page.CanPaginate
	set.PaginationCursor = page.PaginationCursor

	s.log().WithField("feed", feed).WithField("added", len(added)).Debug("inbox_page_added")

	s.emit(PageAddedEvent{
		Feed:        feed,
		Messages:    cloneMessages(added),
		TotalCount:  set.TotalCount,
		CanPaginate: set.CanPaginate,
		IsFirstPage: false,
	})
	s.emit(TotalCountUpdatedEvent{Feed: feed, TotalCount: set.TotalCount})
	return added
}

// AddMessage inserts msg at index, appending when index is out of range.
// It reports false if a message with the same ID is already present.
func (s *DataStore) AddMessage(msg *domain.InboxMessage, index int, feed domain.FeedType) bool {
	if msg == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.set(feed)
	if set.Contains(msg.ID) {
		return false
	}
	if index < 0 || index > len(set.Messages) {
		index = len(set.Messages)
	}
	c := msg.Clone()
	set.Messages = slices.Insert(set.Messages, index, c)
	set.TotalCount++

	s.emit(MessageEvent{Feed: feed, Index: index, Message: c.Clone(), Kind: MessageAdded})
	s.emit(TotalCountUpdatedEvent{Feed: feed, TotalCount: set.TotalCount})
	if feed == domain.FeedTypeFeed && !c.IsRead() {
		s.unread++
		s.emit(UnreadCountUpdatedEvent{UnreadCount: s.unread})
	}
	s.emitChangedLocked(feed)
	return true
}

// ReadMessage marks a message read. It reports false when the message was
// already read.
func (s *DataStore) ReadMessage(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, id string) (bool, error) {
	return s.mutate(ctx, client, provider.Mutation{Kind: provider.MutationRead, MessageID: id}, func() ([]domain.FeedType, error) {
		set := s.set(feed)
		idx, m := set.Find(id)
		if m == nil {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrMessageNotFound, id, feed)
		}
		if !m.MarkRead(s.now()) {
			return nil, nil
		}
		s.emit(MessageEvent{Feed: feed, Index: idx, Message: m.Clone(), Kind: MessageRead})
		if feed == domain.FeedTypeFeed {
			s.unread = max(s.unread-1, 0)
			s.emit(UnreadCountUpdatedEvent{UnreadCount: s.unread})
		}
		s.emitChangedLocked(feed)
		return []domain.FeedType{feed}, nil
	})
}

// UnreadMessage clears the read state of a message. It reports false when
// the message was already unread.
func (s *DataStore) UnreadMessage(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, id string) (bool, error) {
	return s.mutate(ctx, client, provider.Mutation{Kind: provider.MutationUnread, MessageID: id}, func() ([]domain.FeedType, error) {
		set := s.set(feed)
		idx, m := set.Find(id)
		if m == nil {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrMessageNotFound, id, feed)
		}
		if !m.MarkUnread() {
			return nil, nil
		}
		s.emit(MessageEvent{Feed: feed, Index: idx, Message: m.Clone(), Kind: MessageUnread})
		if feed == domain.FeedTypeFeed {
			s.unread++
			s.emit(UnreadCountUpdatedEvent{UnreadCount: s.unread})
		}
		s.emitChangedLocked(feed)
		return []domain.FeedType{feed}, nil
	})
}

// OpenMessage marks a message opened. The unread counter is not affected.
func (s *DataStore) OpenMessage(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, id string) (bool, error) {
	return s.mutate(ctx, client, provider.Mutation{Kind: provider.MutationOpen, MessageID: id}, func() ([]domain.FeedType, error) {
		set := s.set(feed)
		idx, m := set.Find(id)
		if m == nil {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrMessageNotFound, id, feed)
		}
		if !m.MarkOpened(s.now()) {
			return nil, nil
		}
		s.emit(MessageEvent{Feed: feed, Index: idx, Message: m.Clone(), Kind: MessageOpened})
		s.emitChangedLocked(feed)
		return []domain.FeedType{feed}, nil
	})
}

// ArchiveMessage moves a message from the feed partition into the archive.
// Archiving from the archive partition is a no-op.
func (s *DataStore) ArchiveMessage(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, id string) (bool, error) {
	if feed != domain.FeedTypeFeed {
		return false, nil
	}
	return s.mutate(ctx, client, provider.Mutation{Kind: provider.MutationArchive, MessageID: id}, func() ([]domain.FeedType, error) {
		idx, m := s.feed.Find(id)
		if m == nil {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrMessageNotFound, id, feed)
		}
		if m.IsArchived() {
			return nil, nil
		}

		s.feed.Messages = slices.Delete(s.feed.Messages, idx, idx+1)
		s.feed.TotalCount = max(s.feed.TotalCount-1, 0)
		wasUnread := !m.IsRead()
		if wasUnread {
			s.unread = max(s.unread-1, 0)
		}

		archived := m.Clone()
		archived.MarkArchived(s.now())
		if i, _ := s.archive.Find(id); i >= 0 {
			s.archive.Messages = slices.Delete(s.archive.Messages, i, i+1)
			s.archive.TotalCount = max(s.archive.TotalCount-1, 0)
		}
		at := s.findInsertIndex(archived)
		s.archive.Messages = slices.Insert(s.archive.Messages, at, archived)
		s.archive.TotalCount++

		s.emit(MessageEvent{Feed: domain.FeedTypeFeed, Index: idx, Message: archived.Clone(), Kind: MessageArchived})
		s.emit(MessageEvent{Feed: domain.FeedTypeArchive, Index: at, Message: archived.Clone(), Kind: MessageAdded})
		s.emit(TotalCountUpdatedEvent{Feed: domain.FeedTypeFeed, TotalCount: s.feed.TotalCount})
		s.emit(TotalCountUpdatedEvent{Feed: domain.FeedTypeArchive, TotalCount: s.archive.TotalCount})
		if wasUnread {
			s.emit(UnreadCountUpdatedEvent{UnreadCount: s.unread})
		}
		s.emitChangedLocked(domain.FeedTypeFeed)
		s.emitChangedLocked(domain.FeedTypeArchive)
		return []domain.FeedType{domain.FeedTypeFeed, domain.FeedTypeArchive}, nil
	})
}

// findInsertIndex places msg near its chronological position in the
// archive: it sorts the archive plus msg by creation time, newest first,
// and returns one before msg's sorted position.
func (s *DataStore) findInsertIndex(msg *domain.InboxMessage) int {
	all := make([]*domain.InboxMessage, 0, len(s.archive.Messages)+1)
	all = append(all, s.archive.Messages...)
	all = append(all, msg)
	slices.SortStableFunc(all, func(a, b *domain.InboxMessage) int {
		return b.Created.Compare(a.Created)
	})
	found := slices.Index(all, msg)
	return min(max(found-1, 0), len(s.archive.Messages))
}

// ClickMessage sends the click tracking call for a message. Local state is
// not changed. It reports false when the message has no click tracking id
// or the call fails.
func (s *DataStore) ClickMessage(ctx context.Context, client provider.InboxProvider, feed domain.FeedType, id string) (bool, error) {
	s.mu.Lock()
	_, m := s.set(feed).Find(id)
	var trackingID string
	if m != nil {
		trackingID = m.TrackingIDs.Click
	}
	s.mu.Unlock()

	if m == nil {
		return false, fmt.Errorf("%w: %s in %s", domain.ErrMessageNotFound, id, feed)
	}
	if trackingID == "" || client == nil {
		return false, nil
	}

	err := client.Mutate(ctx, provider.Mutation{Kind: provider.MutationClick, MessageID: id, TrackingID: trackingID})
	if err != nil {
		err = fmt.Errorf("failed to track click: %w", err)
		s.mu.Lock()
		s.emit(ErrorEvent{Err: err})
		s.mu.Unlock()
		return false, err
	}
	return true, nil
}

// ReadAllMessages marks every message in both partitions read and zeroes
// the unread counter. The server call is always made, since the server may
// hold unread messages that are not loaded.
func (s *DataStore) ReadAllMessages(ctx context.Context, client provider.InboxProvider) (bool, error) {
	return s.mutate(ctx, client, provider.Mutation{Kind: provider.MutationMarkAllRead}, func() ([]domain.FeedType, error) {
		at := s.now()
		for _, feed := range domain.FeedTypes {
			for i, m := range s.set(feed).Messages {
				if m.MarkRead(at) {
					s.emit(MessageEvent{Feed: feed, Index: i, Message: m.Clone(), Kind: MessageRead})
				}
			}
		}
		s.unread = 0
		s.emit(UnreadCountUpdatedEvent{UnreadCount: 0})
		for _, feed := range domain.FeedTypes {
			s.emitChangedLocked(feed)
		}
		return domain.FeedTypes, nil
	})
}

// mutate runs apply under the lock, then sends m to the server. apply
// returns the partitions it touched, or none if nothing changed.
func (s *DataStore) mutate(ctx context.Context, client provider.InboxProvider, m provider.Mutation, apply func() ([]domain.FeedType, error)) (bool, error) {
	s.mu.Lock()
	before := s.snapshotLocked()
	touched, err := apply()
	s.mu.Unlock()

	if err != nil {
		return false, err
	}
	if len(touched) == 0 {
		return false, nil
	}
	if client == nil {
		return true, nil
	}

	if err := client.Mutate(ctx, m); err != nil {
		err = fmt.Errorf("failed to mark message %s: %w", m.Kind, err)
		s.rollback(before, touched, err)
		return false, err
	}
	return true, nil
}

func (s *DataStore) rollback(snap Snapshot, touched []domain.FeedType, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log().WithError(cause).WithField("feeds", touched).Warn("inbox_rollback")

	s.restoreLocked(snap)
	for _, feed := range touched {
		s.emitChangedLocked(feed)
	}
	s.emit(UnreadCountUpdatedEvent{UnreadCount: s.unread})
	s.emit(ErrorEvent{Err: cause})
}

// UpdateUnreadCount sets the unread counter, clamped at zero.
func (s *DataStore) UpdateUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = max(n, 0)
	s.emit(UnreadCountUpdatedEvent{UnreadCount: s.unread})
}

func (s *DataStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Feed returns a copy of one partition.
func (s *DataStore) Feed(feed domain.FeedType) *domain.MessageSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(feed).Clone()
}

// Locate reports which partition holds the message with the given ID.
func (s *DataStore) Locate(id string) (domain.FeedType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, feed := range domain.FeedTypes {
		if s.set(feed).Contains(id) {
			return feed, true
		}
	}
	return domain.FeedTypeFeed, false
}

func (s *DataStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *DataStore) snapshotLocked() Snapshot {
	return Snapshot{
		Feed:        s.feed.Clone(),
		Archive:     s.archive.Clone(),
		UnreadCount: s.unread,
	}
}

// ReloadSnapshot replaces all state with a copy of snap. No events are
// emitted; the caller announces the reload.
func (s *DataStore) ReloadSnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked(snap.Clone())
}

func (s *DataStore) restoreLocked(snap Snapshot) {
	s.feed = snap.Feed
	if s.feed == nil {
		s.feed = &domain.MessageSet{}
	}
	s.archive = snap.Archive
	if s.archive == nil {
		s.archive = &domain.MessageSet{}
	}
	s.unread = max(snap.UnreadCount, 0)
}

// Dispose empties both partitions and zeroes the unread counter.
func (s *DataStore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = &domain.MessageSet{}
	s.archive = &domain.MessageSet{}
	s.unread = 0
}

func (s *DataStore) emitChangedLocked(feed domain.FeedType) {
	set := s.set(feed)
	s.emit(MessagesChangedEvent{
		Feed:        feed,
		Messages:    cloneMessages(set.Messages),
		TotalCount:  set.TotalCount,
		CanPaginate: set.CanPaginate,
	})
}
