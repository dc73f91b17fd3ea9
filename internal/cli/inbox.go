package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/courier/internal/app"
	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/inbox"
)

// maxLookupPages bounds how far message actions page through the inbox
// looking for an id that is not on the first page.
const maxLookupPages = 10

func newInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Read and update the inbox",
	}
	cmd.AddCommand(newInboxListCmd())
	cmd.AddCommand(newMessageActionCmd("read", "Mark a message read", (*app.InboxModule).ReadMessage))
	cmd.AddCommand(newMessageActionCmd("unread", "Mark a message unread", (*app.InboxModule).UnreadMessage))
	cmd.AddCommand(newMessageActionCmd("open", "Mark a message opened", (*app.InboxModule).OpenMessage))
	cmd.AddCommand(newMessageActionCmd("archive", "Archive a message", (*app.InboxModule).ArchiveMessage))
	cmd.AddCommand(newMessageActionCmd("click", "Track a click on a message", (*app.InboxModule).ClickMessage))
	cmd.AddCommand(newReadAllCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newLimitCmd())
	return cmd
}

// attachment is a listener registered for the duration of one command.
type attachment struct {
	events <-chan inbox.Event
	done   chan struct{}
	id     string
	inbox  *app.InboxModule
}

func (a *attachment) detach() {
	close(a.done)
	a.inbox.RemoveListener(a.id)
}

// attachInbox registers a listener, which starts the initial load, and
// waits for the first LoadedEvent.
func attachInbox(ctx context.Context, m *app.InboxModule) (*attachment, inbox.Snapshot, error) {
	events := make(chan inbox.Event, 64)
	a := &attachment{events: events, done: make(chan struct{}), inbox: m}
	a.id = m.AddListener(app.ChanListener{C: events, Done: a.done})

	for {
		select {
		case <-ctx.Done():
			a.detach()
			return nil, inbox.Snapshot{}, ctx.Err()
		case e := <-events:
			switch ev := e.(type) {
			case inbox.LoadedEvent:
				return a, ev.Snapshot, nil
			case inbox.ErrorEvent:
				a.detach()
				return nil, inbox.Snapshot{}, ev.Err
			}
		}
	}
}

// loadPages fetches up to pages-1 further pages of feed.
func loadPages(ctx context.Context, m *app.InboxModule, feed domain.FeedType, pages int) error {
	for i := 1; i < pages; i++ {
		page, err := m.FetchNextPage(ctx, feed)
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}
	}
	return nil
}

// findMessage pages through both partitions until id is loaded.
func findMessage(ctx context.Context, m *app.InboxModule, id string) error {
	for i := 0; i < maxLookupPages; i++ {
		snap := m.Snapshot()
		if snap.Feed.Contains(id) || snap.Archive.Contains(id) {
			return nil
		}
		more := false
		for _, feed := range domain.FeedTypes {
			page, err := m.FetchNextPage(ctx, feed)
			if err != nil {
				return err
			}
			more = more || page != nil
		}
		if !more {
			break
		}
	}
	snap := m.Snapshot()
	if snap.Feed.Contains(id) || snap.Archive.Contains(id) {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
}

func newInboxListCmd() *cobra.Command {
	var archiveFlag bool
	var pagesFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inbox messages",
		Long:  "List messages in the feed (default) or the archive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			a, _, err := attachInbox(ctx, c.Inbox)
			if err != nil {
				return fmt.Errorf("failed to load inbox: %w", err)
			}
			defer a.detach()

			feed := domain.FeedTypeFeed
			if archiveFlag {
				feed = domain.FeedTypeArchive
			}
			if err := loadPages(ctx, c.Inbox, feed, pagesFlag); err != nil {
				return fmt.Errorf("failed to load more messages: %w", err)
			}

			snap := c.Inbox.Snapshot()
			if jsonFlag {
				return printJSON(toJSONFeed(feed, snap))
			}

			set := snap.Set(feed)
			if len(set.Messages) == 0 {
				fmt.Println("No messages found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UNREAD\tTITLE\tPREVIEW\tCREATED\tID")
			for _, m := range set.Messages {
				unread := " "
				if !m.IsRead() {
					unread = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					unread,
					truncate(m.Title, 40),
					truncate(oneLine(m.Subtitle()), 50),
					m.Created.Format("Jan 2, 2006"),
					m.ID,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d of %d shown, %d unread", len(set.Messages), set.TotalCount, snap.UnreadCount)
			if set.CanPaginate {
				fmt.Print(" (more available, use --pages)")
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&archiveFlag, "archive", false, "list archived messages")
	cmd.Flags().IntVar(&pagesFlag, "pages", 1, "number of pages to load")
	return cmd
}

type messageAction func(m *app.InboxModule, ctx context.Context, id string) (bool, error)

func newMessageActionCmd(name, short string, action messageAction) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <message-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			a, _, err := attachInbox(ctx, c.Inbox)
			if err != nil {
				return fmt.Errorf("failed to load inbox: %w", err)
			}
			defer a.detach()

			if err := findMessage(ctx, c.Inbox, id); err != nil {
				return err
			}
			changed, err := action(c.Inbox, ctx, id)
			if err != nil {
				return fmt.Errorf("failed to %s %s: %w", name, id, err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: name, Changed: &changed, MessageID: id})
			}
			fmt.Println(actionSummary(name, id, changed))
			return nil
		},
	}
}

func newReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every message read",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			a, _, err := attachInbox(ctx, c.Inbox)
			if err != nil {
				return fmt.Errorf("failed to load inbox: %w", err)
			}
			defer a.detach()

			changed, err := c.Inbox.ReadAllMessages(ctx)
			if err != nil {
				return fmt.Errorf("failed to mark all read: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "read-all", Changed: &changed})
			}
			fmt.Println("All messages marked read.")
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream inbox events until interrupted",
		Long:  "Load the inbox, keep the realtime connection open and print every event. With --json each event is one JSON line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c, cleanup, err := openSignedIn(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			events := make(chan inbox.Event, 64)
			done := make(chan struct{})
			id := c.Inbox.AddListener(app.ChanListener{C: events, Done: done})
			defer func() {
				close(done)
				c.Inbox.RemoveListener(id)
			}()

			enc := json.NewEncoder(os.Stdout)
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-events:
					if jsonFlag {
						if err := enc.Encode(toJSONEvent(e)); err != nil {
							return fmt.Errorf("failed to encode event: %w", err)
						}
						continue
					}
					fmt.Println(formatEvent(e))
				}
			}
		},
	}
}

func newLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limit [n]",
		Short: "Show or set the page size",
		Long:  "Show or set how many messages each page request asks for. Values are clamped to 1..100.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			limit := c.Inbox.PaginationLimit()
			action := "limit"
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid limit %q: %w", args[0], err)
				}
				limit, err = c.SetPaginationLimit(cmd.Context(), n)
				if err != nil {
					return err
				}
				action = "set-limit"
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: action, Limit: limit})
			}
			fmt.Printf("Page size: %d\n", limit)
			return nil
		},
	}
}
