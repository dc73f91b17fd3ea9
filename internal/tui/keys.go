package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Unread   key.Binding
	Archive  key.Binding
	ReadAll  key.Binding
	Click    key.Binding
	Tab      key.Binding
	NextPage key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Unread:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "read/unread")),
	Archive:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
	ReadAll:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "read all")),
	Click:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "click")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "feed/archive")),
	NextPage: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
