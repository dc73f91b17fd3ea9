package cli

import (
	"time"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
)

// ---------------------------------------------------------------------------
// Session JSON type (whoami)
// ---------------------------------------------------------------------------

type jsonSession struct {
	SignedIn  bool     `json:"signed_in"`
	UserID    string   `json:"user_id,omitempty"`
	TenantID  string   `json:"tenant_id,omitempty"`
	Auth      string   `json:"auth,omitempty"`
	ExpiresAt string   `json:"expires_at,omitempty"`
	Expired   bool     `json:"expired,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

func toJSONSession(s *domain.Session, now time.Time) jsonSession {
	if !s.IsSignedIn() {
		return jsonSession{SignedIn: false}
	}
	out := jsonSession{
		SignedIn: true,
		UserID:   s.UserID,
		TenantID: s.TenantID,
		Auth:     "client_key",
	}
	if s.AccessToken != "" {
		out.Auth = "token"
	}
	if claims := sessionClaims(s); claims != nil {
		out.Auth = "jwt"
		out.Scopes = claims.Scopes()
		out.Expired = claims.Expired(now)
		if claims.ExpiresAt != nil {
			out.ExpiresAt = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Message JSON types (inbox list)
// ---------------------------------------------------------------------------

type jsonMessage struct {
	ID       string              `json:"id"`
	Title    string              `json:"title,omitempty"`
	Body     string              `json:"body,omitempty"`
	Preview  string              `json:"preview,omitempty"`
	Created  string              `json:"created"`
	Read     bool                `json:"read"`
	Opened   bool                `json:"opened"`
	Archived bool                `json:"archived"`
	Tags     []string            `json:"tags,omitempty"`
	Actions  []jsonMessageAction `json:"actions,omitempty"`
}

type jsonMessageAction struct {
	Content string `json:"content"`
	Href    string `json:"href,omitempty"`
}

type jsonFeed struct {
	Feed        string        `json:"feed"`
	TotalCount  int           `json:"total_count"`
	UnreadCount int           `json:"unread_count"`
	CanPaginate bool          `json:"can_paginate"`
	Messages    []jsonMessage `json:"messages"`
}

func toJSONMessage(m *domain.InboxMessage) jsonMessage {
	out := jsonMessage{
		ID:       m.ID,
		Title:    m.Title,
		Body:     m.Body,
		Preview:  m.Preview,
		Created:  m.Created.Format(time.RFC3339),
		Read:     m.IsRead(),
		Opened:   m.IsOpened(),
		Archived: m.IsArchived(),
		Tags:     m.Tags,
	}
	for _, a := range m.Actions {
		out.Actions = append(out.Actions, jsonMessageAction{Content: a.Content, Href: a.Href})
	}
	return out
}

func toJSONMessages(msgs []*domain.InboxMessage) []jsonMessage {
	out := make([]jsonMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toJSONMessage(m))
	}
	return out
}

func toJSONFeed(feed domain.FeedType, snap inbox.Snapshot) jsonFeed {
	set := snap.Set(feed)
	return jsonFeed{
		Feed:        feed.String(),
		TotalCount:  set.TotalCount,
		UnreadCount: snap.UnreadCount,
		CanPaginate: set.CanPaginate,
		Messages:    toJSONMessages(set.Messages),
	}
}

// ---------------------------------------------------------------------------
// Push token JSON type (token list)
// ---------------------------------------------------------------------------

type jsonPushToken struct {
	Token     string `json:"token"`
	Provider  string `json:"provider"`
	CreatedAt string `json:"created_at"`
}

func toJSONPushTokens(tokens []domain.PushToken) []jsonPushToken {
	out := make([]jsonPushToken, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, jsonPushToken{
			Token:     t.Token,
			Provider:  t.Provider,
			CreatedAt: t.CreatedAt.Format(time.DateOnly),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Event JSON type (inbox watch)
// ---------------------------------------------------------------------------

type jsonEvent struct {
	Type        string        `json:"type"`
	Feed        string        `json:"feed,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	Index       *int          `json:"index,omitempty"`
	Count       *int          `json:"count,omitempty"`
	Refresh     bool          `json:"refresh,omitempty"`
	Error       string        `json:"error,omitempty"`
	Messages    []jsonMessage `json:"messages,omitempty"`
	CanPaginate bool          `json:"can_paginate,omitempty"`
}

func toJSONEvent(e inbox.Event) jsonEvent {
	out := jsonEvent{Type: string(e.EventType())}
	switch ev := e.(type) {
	case inbox.LoadingEvent:
		out.Refresh = ev.IsRefresh
	case inbox.ErrorEvent:
		if ev.Err != nil {
			out.Error = ev.Err.Error()
		}
	case inbox.LoadedEvent:
		n := ev.Snapshot.UnreadCount
		out.Count = &n
		if feed := ev.Snapshot.Feed; feed != nil {
			out.Messages = toJSONMessages(feed.Messages)
			out.CanPaginate = feed.CanPaginate
		}
	case inbox.MessagesChangedEvent:
		out.Feed = ev.Feed.String()
		n := ev.TotalCount
		out.Count = &n
		out.CanPaginate = ev.CanPaginate
	case inbox.MessageEvent:
		out.Feed = ev.Feed.String()
		out.Kind = ev.Kind.String()
		i := ev.Index
		out.Index = &i
		out.Messages = []jsonMessage{toJSONMessage(ev.Message)}
	case inbox.TotalCountUpdatedEvent:
		out.Feed = ev.Feed.String()
		n := ev.TotalCount
		out.Count = &n
	case inbox.UnreadCountUpdatedEvent:
		n := ev.UnreadCount
		out.Count = &n
	case inbox.PageAddedEvent:
		out.Feed = ev.Feed.String()
		out.Messages = toJSONMessages(ev.Messages)
		out.CanPaginate = ev.CanPaginate
	}
	return out
}

// ---------------------------------------------------------------------------
// Action JSON type (signin, signout, message actions, tokens, send)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK        bool   `json:"ok"`
	Action    string `json:"action"`
	Changed   *bool  `json:"changed,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Token     string `json:"token,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}
