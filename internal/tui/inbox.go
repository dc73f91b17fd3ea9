package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lu-zhengda/courier/internal/domain"
)

// Messages emitted by inboxModel.

type messageSelectedMsg struct {
	message *domain.InboxMessage
}

type messageActionMsg struct {
	messageID string
	action    string
}

// inboxModel displays one partition of the inbox.
type inboxModel struct {
	messages    []*domain.InboxMessage
	canPaginate bool
	cursor      int
	offset      int
	width       int
	height      int
	focused     bool
	now         func() time.Time
}

func newInbox() inboxModel {
	return inboxModel{now: time.Now}
}

func (m inboxModel) Update(msg tea.Msg) (inboxModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustScroll()
			}

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.messages)-1 {
				m.cursor++
				m.adjustScroll()
			}

		case key.Matches(msg, keys.Enter):
			sel := m.Selected()
			if sel == nil {
				return m, nil
			}
			return m, func() tea.Msg { return messageSelectedMsg{message: sel} }

		case key.Matches(msg, keys.Archive):
			return m, m.actionCmd("archive")

		case key.Matches(msg, keys.Unread):
			return m, m.actionCmd("toggle")

		case key.Matches(msg, keys.Click):
			return m, m.actionCmd("click")
		}
	}

	return m, nil
}

func (m inboxModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if len(m.messages) == 0 {
		return mutedTextStyle.Render("No messages")
	}

	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(m.messages) {
		end = len(m.messages)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		if i > m.offset {
			b.WriteByte('\n')
		}
		line := m.renderRow(m.messages[i])
		if i == m.cursor && m.focused {
			line = selectedStyle.Width(m.width).Render(line)
		}
		b.WriteString(line)
	}
	if end == len(m.messages) && m.canPaginate && end-m.offset < visible {
		b.WriteByte('\n')
		b.WriteString(mutedTextStyle.Render("n: load more"))
	}
	return b.String()
}

// SetMessages replaces the rows, keeping the cursor on the same message
// when it is still present.
func (m *inboxModel) SetMessages(set *domain.MessageSet) {
	var selected string
	if sel := m.Selected(); sel != nil {
		selected = sel.ID
	}

	m.messages = nil
	m.canPaginate = false
	if set != nil {
		m.messages = set.Messages
		m.canPaginate = set.CanPaginate
	}

	if selected != "" {
		for i, msg := range m.messages {
			if msg.ID == selected {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
}

// Reset moves the cursor back to the top.
func (m *inboxModel) Reset() {
	m.cursor = 0
	m.offset = 0
}

func (m *inboxModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.adjustScroll()
}

// Selected returns the highlighted message, or nil for an empty list.
func (m inboxModel) Selected() *domain.InboxMessage {
	if m.cursor < 0 || m.cursor >= len(m.messages) {
		return nil
	}
	return m.messages[m.cursor]
}

func (m inboxModel) visibleRows() int {
	if m.height < 1 {
		return 1
	}
	return m.height
}

func (m *inboxModel) adjustScroll() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m *inboxModel) clampCursor() {
	if len(m.messages) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.messages) {
		m.cursor = len(m.messages) - 1
	}
	m.adjustScroll()
}

func (m inboxModel) actionCmd(action string) tea.Cmd {
	sel := m.Selected()
	if sel == nil {
		return nil
	}
	id := sel.ID
	return func() tea.Msg {
		return messageActionMsg{messageID: id, action: action}
	}
}

func (m inboxModel) renderRow(msg *domain.InboxMessage) string {
	dot := "  "
	if !msg.IsRead() {
		dot = dotStyle.Render("● ")
	}

	date := relativeDate(msg.Created, m.now())
	titleWidth := 24
	dateWidth := len(date)
	subtitleWidth := m.width - titleWidth - dateWidth - 6 // dot(2) + two "  " gaps(4)
	if subtitleWidth < 10 {
		subtitleWidth = 10
	}

	titleCol := lipgloss.NewStyle().Width(titleWidth).Render(truncate(msg.Title, titleWidth))
	subtitleCol := lipgloss.NewStyle().Width(subtitleWidth).Render(truncate(oneLine(msg.Subtitle()), subtitleWidth))
	dateCol := mutedTextStyle.Width(dateWidth).Render(date)

	line := dot + titleCol + "  " + subtitleCol + "  " + dateCol
	if !msg.IsRead() {
		line = unreadStyle.Render(line)
	}
	return line
}

// --- utility functions ---

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func relativeDate(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
