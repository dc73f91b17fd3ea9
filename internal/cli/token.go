package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/provider"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage push notification tokens",
	}
	cmd.AddCommand(newTokenAddCmd())
	cmd.AddCommand(newTokenRemoveCmd())
	cmd.AddCommand(newTokenListCmd())
	return cmd
}

func newTokenAddCmd() *cobra.Command {
	var providerFlag string

	cmd := &cobra.Command{
		Use:   "add <token>",
		Short: "Register a device token for the signed-in user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := c.RegisterPushToken(cmd.Context(), args[0], providerFlag); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "token-add", Token: args[0]})
			}
			fmt.Println("Token registered.")
			return nil
		},
	}

	cmd.Flags().StringVar(&providerFlag, "provider", domain.PushProviderFCM, "push provider key")
	return cmd
}

func newTokenRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <token>",
		Short: "Unregister a device token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := c.UnregisterPushToken(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "token-remove", Token: args[0]})
			}
			fmt.Println("Token removed.")
			return nil
		},
	}
}

func newTokenListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List device tokens registered from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tokens, err := c.PushTokens(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONPushTokens(tokens))
			}
			if len(tokens) == 0 {
				fmt.Println("No tokens registered.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tPROVIDER\tCREATED")
			for _, t := range tokens {
				fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(t.Token, 48), t.Provider, t.CreatedAt.Format(time.DateOnly))
			}
			return w.Flush()
		},
	}
}

func newSendCmd() *cobra.Command {
	var userFlag, titleFlag, bodyFlag string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to a user's inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			if titleFlag == "" {
				return fmt.Errorf("--title is required")
			}

			body := bodyFlag
			if body == "-" {
				b, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read body from stdin: %w", err)
				}
				body = strings.TrimRight(string(b), "\n")
			}

			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := c.Send(cmd.Context(), provider.SendRequest{
				UserID: userFlag,
				Title:  titleFlag,
				Body:   body,
			})
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "send", UserID: userFlag, RequestID: id})
			}
			fmt.Printf("Message sent (request %s).\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "recipient user id (defaults to the signed-in user)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "message title")
	cmd.Flags().StringVar(&bodyFlag, "body", "", "message body (use '-' to read from stdin)")
	return cmd
}
