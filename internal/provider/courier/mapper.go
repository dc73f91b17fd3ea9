package courier

import (
	"time"

	"github.com/lu-zhengda/courier/internal/domain"
)

// mapPage converts a messages connection into a domain MessageSet. The
// server's start cursor is the cursor for the following page.
func mapPage(conn messagesConnection) *domain.MessageSet {
	set := &domain.MessageSet{
		Messages:    make([]*domain.InboxMessage, 0, len(conn.Nodes)),
		TotalCount:  conn.TotalCount,
		CanPaginate: conn.PageInfo.HasNextPage,
	}
	if conn.PageInfo.StartCursor != nil {
		set.PaginationCursor = *conn.PageInfo.StartCursor
	}
	for _, n := range conn.Nodes {
		if n.MessageID == "" {
			continue
		}
		set.Messages = append(set.Messages, mapNode(n))
	}
	if set.PaginationCursor == "" {
		set.CanPaginate = false
	}
	return set
}

// mapNode converts a single message node to a domain InboxMessage.
func mapNode(n messageNode) *domain.InboxMessage {
	m := &domain.InboxMessage{
		ID:       n.MessageID,
		Title:    n.Title,
		Body:     n.Body,
		Preview:  n.Preview,
		Created:  parseTime(n.Created),
		Read:     parseOptionalTime(n.Read),
		Opened:   parseOptionalTime(n.Opened),
		Archived: parseOptionalTime(n.Archived),
		Data:     n.Data,
		Tags:     n.Tags,
	}
	for _, a := range n.Actions {
		m.Actions = append(m.Actions, domain.Action{Content: a.Content, Href: a.Href, Data: a.Data})
	}
	if n.TrackingIDs != nil {
		m.TrackingIDs = domain.TrackingIDs{
			Open:    n.TrackingIDs.OpenTrackingID,
			Click:   n.TrackingIDs.ClickTrackingID,
			Read:    n.TrackingIDs.ReadTrackingID,
			Unread:  n.TrackingIDs.UnreadTrackingID,
			Deliver: n.TrackingIDs.DeliverTrackingID,
			Archive: n.TrackingIDs.ArchiveTrackingID,
		}
	}
	return m
}

// parseTime parses an RFC 3339 timestamp. Returns zero time on failure.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseOptionalTime maps a nullable timestamp. A non-empty value that does
// not parse still counts as set.
func parseOptionalTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	return &t
}
