package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lu-zhengda/courier/internal/domain"
)

type closeReaderMsg struct{}

// readerModel shows one message in a scrollable pane.
type readerModel struct {
	message      *domain.InboxMessage
	content      string
	scrollOffset int
	maxScroll    int
	width        int
	height       int
	focused      bool
	visible      bool
}

func newReader() readerModel {
	return readerModel{}
}

func (r readerModel) Update(msg tea.Msg) (readerModel, tea.Cmd) {
	if !r.focused || !r.visible {
		return r, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.scrollOffset > 0 {
				r.scrollOffset--
			}

		case key.Matches(msg, keys.Down):
			if r.scrollOffset < r.maxScroll {
				r.scrollOffset++
			}

		case key.Matches(msg, keys.Back):
			return r, func() tea.Msg { return closeReaderMsg{} }

		case key.Matches(msg, keys.Archive):
			return r, r.actionCmd("archive")

		case key.Matches(msg, keys.Unread):
			return r, r.actionCmd("toggle")

		case key.Matches(msg, keys.Click):
			return r, r.actionCmd("click")
		}
	}

	return r, nil
}

func (r readerModel) actionCmd(action string) tea.Cmd {
	if r.message == nil {
		return nil
	}
	id := r.message.ID
	return func() tea.Msg {
		return messageActionMsg{messageID: id, action: action}
	}
}

func (r readerModel) View() string {
	if !r.visible || r.width == 0 || r.height == 0 {
		return ""
	}
	if r.content == "" {
		return mutedTextStyle.Render("No message selected")
	}

	lines := strings.Split(r.content, "\n")
	visibleHeight := max(r.height, 1)
	start := min(r.scrollOffset, len(lines))
	end := min(start+visibleHeight, len(lines))
	return strings.Join(lines[start:end], "\n")
}

// Show displays msg and resets the scroll position.
func (r *readerModel) Show(msg *domain.InboxMessage) {
	r.message = msg
	r.visible = true
	r.scrollOffset = 0
	r.content = renderMessage(msg, r.width)
	r.recalcMaxScroll()
}

// Refresh re-renders the shown message from a newer copy without moving
// the scroll position.
func (r *readerModel) Refresh(msg *domain.InboxMessage) {
	if !r.visible || r.message == nil || msg == nil || msg.ID != r.message.ID {
		return
	}
	r.message = msg
	r.content = renderMessage(msg, r.width)
	r.recalcMaxScroll()
}

func (r *readerModel) Close() {
	r.visible = false
	r.message = nil
	r.content = ""
	r.scrollOffset = 0
	r.maxScroll = 0
}

func (r *readerModel) SetSize(w, h int) {
	r.width = w
	r.height = h
	if r.message != nil {
		r.content = renderMessage(r.message, r.width)
	}
	r.recalcMaxScroll()
}

func (r readerModel) IsVisible() bool {
	return r.visible
}

// MessageID returns the id of the shown message, or "" when closed.
func (r readerModel) MessageID() string {
	if r.message == nil {
		return ""
	}
	return r.message.ID
}

func (r *readerModel) recalcMaxScroll() {
	if r.content == "" {
		r.maxScroll = 0
		r.scrollOffset = 0
		return
	}
	lines := strings.Count(r.content, "\n") + 1
	r.maxScroll = max(lines-max(r.height, 1), 0)
	if r.scrollOffset > r.maxScroll {
		r.scrollOffset = r.maxScroll
	}
}

// renderMessage formats a message with its headers, body and actions.
func renderMessage(msg *domain.InboxMessage, width int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(msg.Title))
	b.WriteByte('\n')

	b.WriteString(mutedTextStyle.Render("Date:    "))
	b.WriteString(msg.Created.Format("Jan 2, 2006 3:04 PM"))
	b.WriteByte('\n')

	status := "unread"
	switch {
	case msg.IsArchived():
		status = "archived"
	case msg.IsRead():
		status = "read"
	}
	if msg.IsOpened() {
		status += ", opened"
	}
	b.WriteString(mutedTextStyle.Render("Status:  "))
	b.WriteString(status)
	b.WriteByte('\n')

	if len(msg.Tags) > 0 {
		b.WriteString(mutedTextStyle.Render("Tags:    "))
		b.WriteString(strings.Join(msg.Tags, ", "))
		b.WriteByte('\n')
	}

	b.WriteString(mutedTextStyle.Render(strings.Repeat("─", max(width, 20))))
	b.WriteByte('\n')

	if body := msg.Subtitle(); body != "" {
		b.WriteByte('\n')
		b.WriteString(body)
		b.WriteByte('\n')
	}

	if len(msg.Actions) > 0 {
		b.WriteByte('\n')
		for _, a := range msg.Actions {
			b.WriteString("[")
			b.WriteString(a.Content)
			b.WriteString("]")
			if a.Href != "" {
				b.WriteString(" ")
				b.WriteString(mutedTextStyle.Render(a.Href))
			}
			b.WriteByte('\n')
		}
	}

	if len(msg.Data) > 0 {
		fields := make([]string, 0, len(msg.Data))
		for k := range msg.Data {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		b.WriteByte('\n')
		b.WriteString(mutedTextStyle.Render("Data: " + strings.Join(fields, ", ")))
	}

	return strings.TrimRight(b.String(), "\n")
}
