package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lu-zhengda/courier/internal/domain"
)

var feedNames = map[domain.FeedType]string{
	domain.FeedTypeFeed:    "Inbox",
	domain.FeedTypeArchive: "Archive",
}

// tabsModel renders the partition switcher with the unread badge.
type tabsModel struct {
	active domain.FeedType
	counts map[domain.FeedType]int
	unread int
	user   string
	width  int
}

func newTabs(user string) tabsModel {
	return tabsModel{
		active: domain.FeedTypeFeed,
		counts: make(map[domain.FeedType]int),
		user:   user,
	}
}

// next cycles to the following partition and returns it.
func (t *tabsModel) next() domain.FeedType {
	for i, f := range domain.FeedTypes {
		if f == t.active {
			t.active = domain.FeedTypes[(i+1)%len(domain.FeedTypes)]
			break
		}
	}
	return t.active
}

func (t tabsModel) View() string {
	var parts []string
	parts = append(parts, titleStyle.Render("courier"))
	for _, f := range domain.FeedTypes {
		label := feedNames[f]
		if n := t.counts[f]; n > 0 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		style := tabStyle
		if f == t.active {
			style = activeTabStyle
		}
		tab := style.Render(label)
		if f == domain.FeedTypeFeed && t.unread > 0 {
			tab += badgeStyle.Render(fmt.Sprint(t.unread))
		}
		parts = append(parts, tab)
	}
	left := strings.Join(parts, " ")

	right := ""
	if t.user != "" {
		right = mutedTextStyle.Render(t.user)
	}
	gap := t.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
