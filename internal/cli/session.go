package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/courier/internal/domain"
	courierapi "github.com/lu-zhengda/courier/internal/provider/courier"
)

func newSignInCmd() *cobra.Command {
	var userFlag, tokenFlag, clientKeyFlag, tenantFlag string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to a Courier inbox",
		Long:  "Sign in with a JWT access token or a client key. Secrets are stored in the OS keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user is required")
			}

			c, cfg, cleanup, err := openCourier()
			if err != nil {
				return err
			}
			defer cleanup()

			clientKey := clientKeyFlag
			if clientKey == "" && tokenFlag == "" {
				clientKey = cfg.Courier.ClientKey
			}
			if clientKey == "" && tokenFlag == "" {
				return fmt.Errorf("one of --token or --client-key is required")
			}

			session := domain.Session{
				UserID:      userFlag,
				AccessToken: tokenFlag,
				ClientKey:   clientKey,
				TenantID:    tenantFlag,
			}
			if err := c.SignIn(cmd.Context(), session); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "signin", UserID: userFlag})
			}
			fmt.Printf("Signed in as %s\n", userFlag)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	cmd.Flags().StringVar(&tokenFlag, "token", "", "JWT access token")
	cmd.Flags().StringVar(&clientKeyFlag, "client-key", "", "client key (defaults to [courier] client_key)")
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant id")
	return cmd
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if isNotSignedIn(err) {
				fmt.Println("Not signed in.")
				return nil
			}
			if err != nil {
				return err
			}
			defer cleanup()

			user := c.Session().UserID
			if err := c.SignOut(cmd.Context()); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "signout", UserID: user})
			}
			fmt.Printf("Signed out %s\n", user)
			return nil
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := openSignedIn(cmd.Context())
			if isNotSignedIn(err) {
				if jsonFlag {
					return printJSON(jsonSession{SignedIn: false})
				}
				fmt.Println("Not signed in.")
				return nil
			}
			if err != nil {
				return err
			}
			defer cleanup()

			s := c.Session()
			out := toJSONSession(s, time.Now())
			if jsonFlag {
				return printJSON(out)
			}

			fmt.Printf("User:    %s\n", out.UserID)
			if out.TenantID != "" {
				fmt.Printf("Tenant:  %s\n", out.TenantID)
			}
			fmt.Printf("Auth:    %s\n", out.Auth)
			if out.ExpiresAt != "" {
				fmt.Printf("Expires: %s\n", out.ExpiresAt)
			}
			if len(out.Scopes) > 0 {
				fmt.Printf("Scopes:  %v\n", out.Scopes)
			}
			return nil
		},
	}
}

// sessionClaims returns the token claims for JWT sessions, or nil.
func sessionClaims(s *domain.Session) *courierapi.Claims {
	if !s.HasJWT() {
		return nil
	}
	claims, err := courierapi.ParseClaims(s.AccessToken)
	if err != nil {
		return nil
	}
	return claims
}
