package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
)

var created = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func sampleMessages() []*domain.InboxMessage {
	read := created.Add(time.Hour)
	return []*domain.InboxMessage{
		{
			ID:      "msg-1",
			Title:   "Welcome",
			Body:    "Hello there",
			Created: created,
			Tags:    []string{"onboarding"},
			Actions: []domain.Action{{Content: "Open", Href: "https://example.com"}},
		},
		{
			ID:      "msg-2",
			Title:   "Invoice",
			Preview: "Your invoice is ready",
			Created: created.Add(-time.Hour),
			Read:    &read,
		},
	}
}

func TestToJSONMessages(t *testing.T) {
	got := toJSONMessages(sampleMessages())

	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].ID != "msg-1" {
		t.Errorf("got ID %q, want %q", got[0].ID, "msg-1")
	}
	if got[0].Read {
		t.Error("msg-1 should be unread")
	}
	if !got[1].Read {
		t.Error("msg-2 should be read")
	}
	if got[0].Created != "2025-06-15T10:00:00Z" {
		t.Errorf("got created %q, want %q", got[0].Created, "2025-06-15T10:00:00Z")
	}
	if len(got[0].Actions) != 1 || got[0].Actions[0].Href != "https://example.com" {
		t.Errorf("got actions %+v, want one action with href", got[0].Actions)
	}

	// Verify JSON round-trip.
	var buf bytes.Buffer
	if err := fprintJSON(&buf, got); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	var parsed []jsonMessage
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if parsed[1].Preview != "Your invoice is ready" {
		t.Errorf("round-trip: got preview %q", parsed[1].Preview)
	}
}

func TestToJSONMessages_Empty(t *testing.T) {
	got := toJSONMessages(nil)
	if len(got) != 0 {
		t.Errorf("got %d messages for nil input, want 0", len(got))
	}

	var buf bytes.Buffer
	if err := fprintJSON(&buf, got); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("got %q, want %q", got, "[]\n")
	}
}

func TestToJSONFeed(t *testing.T) {
	snap := inbox.Snapshot{
		Feed:        &domain.MessageSet{Messages: sampleMessages(), TotalCount: 10, CanPaginate: true},
		Archive:     &domain.MessageSet{},
		UnreadCount: 4,
	}

	tests := []struct {
		feed      domain.FeedType
		wantName  string
		wantCount int
		wantMsgs  int
		wantMore  bool
	}{
		{domain.FeedTypeFeed, "feed", 10, 2, true},
		{domain.FeedTypeArchive, "archive", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			got := toJSONFeed(tt.feed, snap)
			if got.Feed != tt.wantName {
				t.Errorf("got feed %q, want %q", got.Feed, tt.wantName)
			}
			if got.TotalCount != tt.wantCount {
				t.Errorf("got total_count %d, want %d", got.TotalCount, tt.wantCount)
			}
			if len(got.Messages) != tt.wantMsgs {
				t.Errorf("got %d messages, want %d", len(got.Messages), tt.wantMsgs)
			}
			if got.CanPaginate != tt.wantMore {
				t.Errorf("got can_paginate %v, want %v", got.CanPaginate, tt.wantMore)
			}
			if got.UnreadCount != 4 {
				t.Errorf("got unread_count %d, want 4", got.UnreadCount)
			}
		})
	}
}

func TestToJSONSession(t *testing.T) {
	now := created
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": "user_id:u1 read:messages",
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	tests := []struct {
		name       string
		session    *domain.Session
		wantAuth   string
		wantSigned bool
		wantScopes int
		wantExpiry bool
	}{
		{"nil", nil, "", false, 0, false},
		{"client key", &domain.Session{UserID: "u1", ClientKey: "k"}, "client_key", true, 0, false},
		{"opaque token", &domain.Session{UserID: "u1", AccessToken: "opaque"}, "token", true, 0, false},
		{"jwt", &domain.Session{UserID: "u1", AccessToken: token}, "jwt", true, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toJSONSession(tt.session, now)
			if got.SignedIn != tt.wantSigned {
				t.Errorf("got signed_in %v, want %v", got.SignedIn, tt.wantSigned)
			}
			if got.Auth != tt.wantAuth {
				t.Errorf("got auth %q, want %q", got.Auth, tt.wantAuth)
			}
			if len(got.Scopes) != tt.wantScopes {
				t.Errorf("got scopes %v, want %d", got.Scopes, tt.wantScopes)
			}
			if (got.ExpiresAt != "") != tt.wantExpiry {
				t.Errorf("got expires_at %q, want present=%v", got.ExpiresAt, tt.wantExpiry)
			}
			if got.Expired {
				t.Error("session should not be expired")
			}
		})
	}
}

func TestToJSONPushTokens(t *testing.T) {
	got := toJSONPushTokens([]domain.PushToken{
		{UserID: "u1", Token: "tok-1", Provider: domain.PushProviderFCM, CreatedAt: created},
	})
	if len(got) != 1 {
		t.Fatalf("got %d tokens, want 1", len(got))
	}
	if got[0].Provider != "firebase-fcm" {
		t.Errorf("got provider %q, want %q", got[0].Provider, "firebase-fcm")
	}
	if got[0].CreatedAt != "2025-06-15" {
		t.Errorf("got created_at %q, want %q", got[0].CreatedAt, "2025-06-15")
	}
}

func TestToJSONEvent(t *testing.T) {
	msgs := sampleMessages()
	tests := []struct {
		name      string
		event     inbox.Event
		wantType  string
		wantFeed  string
		wantCount int
		wantMsgs  int
	}{
		{"loading", inbox.LoadingEvent{IsRefresh: true}, "loading", "", -1, 0},
		{"error", inbox.ErrorEvent{Err: errors.New("boom")}, "error", "", -1, 0},
		{"loaded", inbox.LoadedEvent{Snapshot: inbox.Snapshot{Feed: &domain.MessageSet{Messages: msgs}, UnreadCount: 1}}, "loaded", "", 1, 2},
		{"message", inbox.MessageEvent{Feed: domain.FeedTypeArchive, Index: 0, Message: msgs[0], Kind: inbox.MessageArchived}, "message", "archive", -1, 1},
		{"total", inbox.TotalCountUpdatedEvent{Feed: domain.FeedTypeFeed, TotalCount: 7}, "total_count_updated", "feed", 7, 0},
		{"unread", inbox.UnreadCountUpdatedEvent{UnreadCount: 0}, "unread_count_updated", "", 0, 0},
		{"page", inbox.PageAddedEvent{Feed: domain.FeedTypeFeed, Messages: msgs}, "page_added", "feed", -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toJSONEvent(tt.event)
			if got.Type != tt.wantType {
				t.Errorf("got type %q, want %q", got.Type, tt.wantType)
			}
			if got.Feed != tt.wantFeed {
				t.Errorf("got feed %q, want %q", got.Feed, tt.wantFeed)
			}
			switch {
			case tt.wantCount < 0 && got.Count != nil:
				t.Errorf("got count %d, want none", *got.Count)
			case tt.wantCount >= 0 && (got.Count == nil || *got.Count != tt.wantCount):
				t.Errorf("got count %v, want %d", got.Count, tt.wantCount)
			}
			if len(got.Messages) != tt.wantMsgs {
				t.Errorf("got %d messages, want %d", len(got.Messages), tt.wantMsgs)
			}
		})
	}
}

func TestToJSONEvent_ZeroCountIsPresent(t *testing.T) {
	var buf bytes.Buffer
	if err := fprintJSON(&buf, toJSONEvent(inbox.UnreadCountUpdatedEvent{UnreadCount: 0})); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if string(raw["count"]) != "0" {
		t.Errorf("got count %s, want 0", raw["count"])
	}
}

func TestJSONAction_OmitsEmpty(t *testing.T) {
	input := jsonAction{OK: true, Action: "read-all"}

	var buf bytes.Buffer
	if err := fprintJSON(&buf, input); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	omittedFields := []string{"changed", "message_id", "user_id", "token", "request_id", "limit"}
	for _, field := range omittedFields {
		if _, ok := raw[field]; ok {
			t.Errorf("field %q should be omitted when empty, got %s", field, string(raw[field]))
		}
	}

	requiredFields := []string{"ok", "action"}
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			t.Errorf("field %q should always be present", field)
		}
	}
}

func TestJSONAction_ChangedFalseIsPresent(t *testing.T) {
	changed := false
	var buf bytes.Buffer
	if err := fprintJSON(&buf, jsonAction{OK: true, Action: "read", Changed: &changed, MessageID: "m"}); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	var got jsonAction
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if got.Changed == nil || *got.Changed {
		t.Errorf("got changed %v, want false", got.Changed)
	}
}
