package courier

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2025-06-15T10:30:00Z", time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"fractional", "2025-06-15T10:30:00.123Z", time.Date(2025, 6, 15, 10, 30, 0, 123000000, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTime(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseOptionalTime(t *testing.T) {
	if got := parseOptionalTime(nil); got != nil {
		t.Errorf("parseOptionalTime(nil) = %v, want nil", got)
	}
	if got := parseOptionalTime(strPtr("")); got != nil {
		t.Errorf("parseOptionalTime(\"\") = %v, want nil", got)
	}
	if got := parseOptionalTime(strPtr("true")); got == nil {
		t.Error("parseOptionalTime(\"true\") = nil, want non-nil")
	}
}

func TestMapNode(t *testing.T) {
	n := messageNode{
		MessageID: "msg-1",
		Title:     "Hello",
		Preview:   "Preview text",
		Created:   "2025-06-15T10:30:00Z",
		Read:      strPtr("2025-06-15T11:00:00Z"),
		Tags:      []string{"promo"},
		Data:      map[string]any{"k": "v"},
		Actions:   []actionNode{{Content: "Open", Href: "https://example.com"}},
		TrackingIDs: &trackingNode{
			ClickTrackingID: "click-1",
			OpenTrackingID:  "open-1",
		},
	}

	m := mapNode(n)
	if m.ID != "msg-1" {
		t.Errorf("ID = %q, want %q", m.ID, "msg-1")
	}
	if m.Subtitle() != "Preview text" {
		t.Errorf("Subtitle() = %q, want %q", m.Subtitle(), "Preview text")
	}
	if !m.IsRead() {
		t.Error("expected message to be read")
	}
	if m.IsOpened() || m.IsArchived() {
		t.Error("expected message to be unopened and not archived")
	}
	if m.TrackingIDs.Click != "click-1" || m.TrackingIDs.Open != "open-1" {
		t.Errorf("TrackingIDs = %+v", m.TrackingIDs)
	}
	if len(m.Actions) != 1 || m.Actions[0].Href != "https://example.com" {
		t.Errorf("Actions = %+v", m.Actions)
	}
	want := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	if !m.Created.Equal(want) {
		t.Errorf("Created = %v, want %v", m.Created, want)
	}
}

func TestMapPage(t *testing.T) {
	tests := []struct {
		name            string
		conn            messagesConnection
		wantLen         int
		wantCursor      string
		wantCanPaginate bool
	}{
		{
			name: "has next page",
			conn: messagesConnection{
				TotalCount: 40,
				PageInfo:   pageInfo{StartCursor: strPtr("cur-2"), HasNextPage: true},
				Nodes:      []messageNode{{MessageID: "a"}, {MessageID: "b"}},
			},
			wantLen:         2,
			wantCursor:      "cur-2",
			wantCanPaginate: true,
		},
		{
			name: "last page",
			conn: messagesConnection{
				TotalCount: 2,
				PageInfo:   pageInfo{StartCursor: strPtr("cur-3"), HasNextPage: false},
				Nodes:      []messageNode{{MessageID: "a"}},
			},
			wantLen:    1,
			wantCursor: "cur-3",
		},
		{
			name: "next page without cursor",
			conn: messagesConnection{
				PageInfo: pageInfo{HasNextPage: true},
				Nodes:    []messageNode{{MessageID: "a"}, {MessageID: ""}},
			},
			wantLen: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := mapPage(tt.conn)
			if len(set.Messages) != tt.wantLen {
				t.Errorf("len(Messages) = %d, want %d", len(set.Messages), tt.wantLen)
			}
			if set.PaginationCursor != tt.wantCursor {
				t.Errorf("PaginationCursor = %q, want %q", set.PaginationCursor, tt.wantCursor)
			}
			if set.CanPaginate != tt.wantCanPaginate {
				t.Errorf("CanPaginate = %v, want %v", set.CanPaginate, tt.wantCanPaginate)
			}
			if set.TotalCount != tt.conn.TotalCount {
				t.Errorf("TotalCount = %d, want %d", set.TotalCount, tt.conn.TotalCount)
			}
		})
	}
}
