package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
)

// printJSON encodes v as indented JSON to stdout.
func printJSON(v any) error {
	return fprintJSON(os.Stdout, v)
}

// fprintJSON encodes v as indented JSON to w.
func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var actionPast = map[string]string{
	"read":    "marked read",
	"unread":  "marked unread",
	"open":    "marked opened",
	"archive": "archived",
	"click":   "click tracked",
}

func actionSummary(action, id string, changed bool) string {
	past, ok := actionPast[action]
	if !ok {
		past = action
	}
	if !changed {
		return fmt.Sprintf("Message %s unchanged (already %s or not applicable).", id, past)
	}
	return fmt.Sprintf("Message %s %s.", id, past)
}

// formatEvent renders an inbox event as one line for inbox watch.
func formatEvent(e inbox.Event) string {
	switch ev := e.(type) {
	case inbox.LoadingEvent:
		if ev.IsRefresh {
			return "refreshing"
		}
		return "loading"
	case inbox.ErrorEvent:
		return fmt.Sprintf("error: %v", ev.Err)
	case inbox.LoadedEvent:
		return fmt.Sprintf("loaded: %d feed, %d archived, %d unread",
			setLen(ev.Snapshot.Feed), setLen(ev.Snapshot.Archive), ev.Snapshot.UnreadCount)
	case inbox.MessagesChangedEvent:
		return fmt.Sprintf("%s changed: %d messages, total %d", ev.Feed, len(ev.Messages), ev.TotalCount)
	case inbox.MessageEvent:
		title := ""
		if ev.Message != nil {
			title = " " + truncate(oneLine(ev.Message.Title), 40)
		}
		return fmt.Sprintf("%s %s at %d: %s%s", ev.Feed, ev.Kind, ev.Index, messageID(ev), title)
	case inbox.TotalCountUpdatedEvent:
		return fmt.Sprintf("%s total: %d", ev.Feed, ev.TotalCount)
	case inbox.UnreadCountUpdatedEvent:
		return fmt.Sprintf("unread: %d", ev.UnreadCount)
	case inbox.PageAddedEvent:
		return fmt.Sprintf("%s page: +%d, total %d", ev.Feed, len(ev.Messages), ev.TotalCount)
	default:
		return string(e.EventType())
	}
}

func setLen(s *domain.MessageSet) int {
	if s == nil {
		return 0
	}
	return len(s.Messages)
}

func messageID(ev inbox.MessageEvent) string {
	if ev.Message == nil {
		return "?"
	}
	return ev.Message.ID
}
