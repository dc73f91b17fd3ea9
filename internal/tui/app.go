package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lu-zhengda/courier/internal/app"
	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
)

type pane int

const (
	paneList pane = iota
	paneReader
)

// Inbox is the part of the inbox module the viewer drives.
type Inbox interface {
	Snapshot() inbox.Snapshot
	Refresh(ctx context.Context) error
	FetchNextPage(ctx context.Context, feed domain.FeedType) (*domain.MessageSet, error)
	ReadMessage(ctx context.Context, id string) (bool, error)
	UnreadMessage(ctx context.Context, id string) (bool, error)
	OpenMessage(ctx context.Context, id string) (bool, error)
	ClickMessage(ctx context.Context, id string) (bool, error)
	ArchiveMessage(ctx context.Context, id string) (bool, error)
	ReadAllMessages(ctx context.Context) (bool, error)
}

// --- async result messages ---

type inboxEventMsg struct {
	event inbox.Event
}

type eventsClosedMsg struct{}

type actionDoneMsg struct {
	action    string
	messageID string
	changed   bool
}

type pageLoadedMsg struct {
	feed  domain.FeedType
	added int
}

type errMsg struct {
	err error
}

// --- root model ---

type model struct {
	ctx    context.Context
	source Inbox
	events <-chan inbox.Event

	snap   inbox.Snapshot
	loaded bool

	tabs   tabsModel
	list   inboxModel
	reader readerModel

	activePane pane
	statusBar  statusBar

	width  int
	height int
}

// NewModel creates the root model. Inbox events must be delivered on
// events by a listener registered with the same inbox.
func NewModel(ctx context.Context, source Inbox, events <-chan inbox.Event, user string) model {
	list := newInbox()
	list.focused = true

	return model{
		ctx:        ctx,
		source:     source,
		events:     events,
		tabs:       newTabs(user),
		list:       list,
		reader:     newReader(),
		activePane: paneList,
		statusBar:  newStatusBar(),
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// waitForEvent blocks on the listener channel and hands the next event
// to Update.
func waitForEvent(events <-chan inbox.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return inboxEventMsg{event: e}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.width = msg.Width
		m.tabs.width = msg.Width
		m.resizeSubModels()
		return m, nil

	case inboxEventMsg:
		m.handleEvent(msg.event)
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.statusBar.setError("Disconnected from inbox")
		return m, nil

	case actionDoneMsg:
		if !msg.changed {
			m.statusBar.setMessage(fmt.Sprintf("Nothing to %s", msg.action))
			return m, nil
		}
		m.statusBar.setMessage(actionStatus(msg.action))
		return m, nil

	case pageLoadedMsg:
		if msg.added == 0 {
			m.statusBar.setMessage(fmt.Sprintf("No more %s messages", msg.feed))
			return m, nil
		}
		m.statusBar.setMessage(fmt.Sprintf("Loaded %d more %s messages", msg.added, msg.feed))
		return m, nil

	case errMsg:
		m.statusBar.setError(fmt.Sprintf("Error: %v", msg.err))
		return m, nil

	// --- sub-model emitted messages ---
	case messageSelectedMsg:
		m.reader.Show(msg.message)
		m.setFocus(paneReader)
		m.statusBar.readerVisible = true
		m.resizeSubModels()
		cmd := m.openCmd(msg.message.ID)
		return m, cmd

	case messageActionMsg:
		cmd := m.messageAction(msg.messageID, msg.action)
		return m, cmd

	case closeReaderMsg:
		m.closeReader()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			feed := m.tabs.next()
			m.list.Reset()
			m.list.SetMessages(m.snap.Set(feed))
			m.statusBar.setMessage(fmt.Sprintf("Showing %s", feedNames[feed]))
			return m, nil

		case key.Matches(msg, keys.Refresh):
			m.statusBar.setMessage("Refreshing...")
			return m, m.refreshCmd()

		case key.Matches(msg, keys.NextPage):
			m.statusBar.setMessage("Loading more...")
			return m, m.nextPageCmd(m.tabs.active)

		case key.Matches(msg, keys.ReadAll):
			return m, m.readAllCmd()

		case key.Matches(msg, keys.Back) && m.reader.IsVisible() && m.activePane == paneList:
			m.closeReader()
			return m, nil
		}

		var cmd tea.Cmd
		switch m.activePane {
		case paneList:
			m.list, cmd = m.list.Update(msg)
		case paneReader:
			m.reader, cmd = m.reader.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

// handleEvent folds one inbox event into the view.
func (m *model) handleEvent(e inbox.Event) {
	switch ev := e.(type) {
	case inbox.LoadingEvent:
		if ev.IsRefresh {
			m.statusBar.setMessage("Refreshing...")
		} else {
			m.statusBar.setMessage("Loading inbox...")
		}
		return

	case inbox.ErrorEvent:
		if errors.Is(ev.Err, domain.ErrNotSignedIn) {
			m.statusBar.setError("Not signed in. Run `courier signin` first.")
			return
		}
		m.statusBar.setError(fmt.Sprintf("Error: %v", ev.Err))
		return

	case inbox.LoadedEvent:
		m.loaded = true
		m.applySnapshot(ev.Snapshot)
		m.statusBar.setMessage(fmt.Sprintf("Loaded %d messages, %d unread",
			setLen(ev.Snapshot.Feed), ev.Snapshot.UnreadCount))
		return

	case inbox.MessageEvent:
		if ev.Kind == inbox.MessageAdded && ev.Feed == domain.FeedTypeFeed && ev.Message != nil {
			m.statusBar.setMessage(fmt.Sprintf("New message: %s", truncate(ev.Message.Title, 40)))
		}
	}

	if m.loaded {
		m.applySnapshot(m.source.Snapshot())
	}
}

func (m *model) applySnapshot(snap inbox.Snapshot) {
	m.snap = snap
	for _, f := range domain.FeedTypes {
		if set := snap.Set(f); set != nil {
			m.tabs.counts[f] = set.TotalCount
		} else {
			m.tabs.counts[f] = 0
		}
	}
	m.tabs.unread = snap.UnreadCount
	m.list.SetMessages(snap.Set(m.tabs.active))
	if id := m.reader.MessageID(); id != "" {
		m.reader.Refresh(m.find(id))
	}
}

func (m model) find(id string) *domain.InboxMessage {
	for _, f := range domain.FeedTypes {
		if set := m.snap.Set(f); set != nil {
			if _, msg := set.Find(id); msg != nil {
				return msg
			}
		}
	}
	return nil
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	contentWidth := m.width - 2
	contentHeight := m.height - 4 // tabs + status bar + list border

	var content string
	if m.reader.IsVisible() {
		listHeight := contentHeight / 2
		readerHeight := contentHeight - listHeight

		listView := listStyle.
			Width(contentWidth).
			Height(listHeight).
			Render(m.list.View())

		readerView := readerStyle.
			Width(contentWidth).
			Height(readerHeight).
			Render(m.reader.View())

		content = lipgloss.JoinVertical(lipgloss.Left, listView, readerView)
	} else {
		content = listStyle.
			Width(contentWidth).
			Height(contentHeight).
			Render(m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.tabs.View(), content, m.statusBar.View())
}

// --- focus management ---

func (m *model) setFocus(p pane) {
	m.activePane = p
	m.list.focused = p == paneList
	m.reader.focused = p == paneReader
}

func (m *model) closeReader() {
	m.reader.Close()
	m.statusBar.readerVisible = false
	m.setFocus(paneList)
	m.resizeSubModels()
}

func (m *model) resizeSubModels() {
	contentWidth := m.width - 2
	contentHeight := m.height - 4

	// listStyle: Border(2h + 2v) + Padding(2h + 0v) = 4h, 2v
	if m.reader.IsVisible() {
		listHeight := contentHeight / 2
		readerHeight := contentHeight - listHeight
		m.list.SetSize(contentWidth-4, listHeight-2)
		// readerStyle: Border(2h + 2v) + Padding(4h + 2v) = 6h, 4v
		m.reader.SetSize(contentWidth-6, readerHeight-4)
	} else {
		m.list.SetSize(contentWidth-4, contentHeight-2)
	}
}

// --- async commands ---

// openCmd marks a message opened and then read, as opening it in the
// reader does both.
func (m model) openCmd(id string) tea.Cmd {
	return func() tea.Msg {
		opened, err := m.source.OpenMessage(m.ctx, id)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to open message: %w", err)}
		}
		read, err := m.source.ReadMessage(m.ctx, id)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to mark message read: %w", err)}
		}
		return actionDoneMsg{action: "open", messageID: id, changed: opened || read}
	}
}

func (m *model) messageAction(id, action string) tea.Cmd {
	type mutation func(ctx context.Context, id string) (bool, error)

	var fn mutation
	switch action {
	case "toggle":
		if msg := m.find(id); msg != nil && msg.IsRead() {
			action, fn = "unread", m.source.UnreadMessage
		} else {
			action, fn = "read", m.source.ReadMessage
		}
	case "archive":
		fn = m.source.ArchiveMessage
		if m.reader.MessageID() == id {
			m.closeReader()
		}
	case "click":
		fn = m.source.ClickMessage
	default:
		return func() tea.Msg { return errMsg{err: fmt.Errorf("unknown action: %s", action)} }
	}

	ctx := m.ctx
	return func() tea.Msg {
		changed, err := fn(ctx, id)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to %s: %w", action, err)}
		}
		return actionDoneMsg{action: action, messageID: id, changed: changed}
	}
}

func (m model) readAllCmd() tea.Cmd {
	return func() tea.Msg {
		changed, err := m.source.ReadAllMessages(m.ctx)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to mark all read: %w", err)}
		}
		return actionDoneMsg{action: "read all", changed: changed}
	}
}

func (m model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.source.Refresh(m.ctx); err != nil {
			return errMsg{err: fmt.Errorf("failed to refresh: %w", err)}
		}
		return nil
	}
}

func (m model) nextPageCmd(feed domain.FeedType) tea.Cmd {
	return func() tea.Msg {
		page, err := m.source.FetchNextPage(m.ctx, feed)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to load more: %w", err)}
		}
		if page == nil {
			return pageLoadedMsg{feed: feed}
		}
		return pageLoadedMsg{feed: feed, added: len(page.Messages)}
	}
}

func actionStatus(action string) string {
	switch action {
	case "open":
		return "Message opened"
	case "read":
		return "Marked read"
	case "unread":
		return "Marked unread"
	case "archive":
		return "Archived"
	case "click":
		return "Click tracked"
	case "read all":
		return "All messages marked read"
	default:
		return action + " done"
	}
}

func setLen(s *domain.MessageSet) int {
	if s == nil {
		return 0
	}
	return len(s.Messages)
}

// Run registers the viewer as an inbox listener and starts the Bubble Tea
// program. The listener is removed when the program exits.
func Run(c *app.Courier) error {
	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan inbox.Event, 64)
	id := c.Inbox.AddListener(app.ChanListener{C: events, Done: ctx.Done()})
	defer func() {
		cancel()
		c.Inbox.RemoveListener(id)
	}()

	user := ""
	if s := c.Session(); s != nil {
		user = s.UserID
	}

	prog := tea.NewProgram(
		NewModel(ctx, c.Inbox, events, user),
		tea.WithAltScreen(),
	)
	_, err := prog.Run()
	return err
}
