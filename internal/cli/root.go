package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/courier/internal/app"
	"github.com/lu-zhengda/courier/internal/config"
	"github.com/lu-zhengda/courier/internal/domain"
	courierapi "github.com/lu-zhengda/courier/internal/provider/courier"
	"github.com/lu-zhengda/courier/internal/store"
	"github.com/lu-zhengda/courier/internal/store/sqlite"
	"github.com/lu-zhengda/courier/internal/tui"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool

	logLevelFlag string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "courier",
		Short:   "Courier inbox client",
		Long:    "A terminal client for the Courier inbox with realtime updates.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if logLevelFlag != "" {
				cfg.Log.Level = logLevelFlag
			}
			return cfg.Log.ConfigureLogging(os.Stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
				switch shell {
				case "bash":
					return cmd.Root().GenBashCompletion(os.Stdout)
				case "zsh":
					return cmd.Root().GenZshCompletion(os.Stdout)
				case "fish":
					return cmd.Root().GenFishCompletion(os.Stdout, true)
				default:
					return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
				}
			}

			c, cleanup, err := openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.Run(c)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("courier %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	root.Flags().MarkHidden("generate-completion")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.AddCommand(newSignInCmd())
	root.AddCommand(newSignOutCmd())
	root.AddCommand(newWhoAmICmd())
	root.AddCommand(newInboxCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newSendCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB creates the data directory and opens the SQLite database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "courier.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// courierOptions maps config onto app options.
func courierOptions(cfg *config.Config, st store.Store, creds store.CredentialStore) app.Options {
	return app.Options{
		Store:       st,
		Credentials: creds,
		API: courierapi.Options{
			InboxURL:    cfg.Courier.InboxURL,
			RealtimeURL: cfg.Courier.RealtimeURL,
			APIURL:      cfg.Courier.APIURL,
		},
		KeepAlive:       cfg.Inbox.KeepAliveInterval(),
		FetchTimeout:    cfg.Inbox.FetchTimeoutDuration(),
		PaginationLimit: cfg.Inbox.PaginationLimit,
		DefaultUser:     cfg.Session.DefaultUser,
	}
}

// openCourier builds a Courier backed by the local database and the OS
// keyring. The returned cleanup closes both.
func openCourier() (*app.Courier, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, nil, nil, err
	}
	c := app.NewCourier(courierOptions(cfg, db, store.NewKeyringCredentialStore()))
	cleanup := func() {
		c.Close()
		db.Close()
	}
	return c, cfg, cleanup, nil
}

// openSignedIn is openCourier plus a restored session.
func openSignedIn(ctx context.Context) (*app.Courier, func(), error) {
	c, _, cleanup, err := openCourier()
	if err != nil {
		return nil, nil, err
	}
	ok, err := c.Restore(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if !ok {
		cleanup()
		return nil, nil, errNoSession
	}
	return c, cleanup, nil
}

var errNoSession = fmt.Errorf("no session; run 'courier signin' first: %w", domain.ErrNotSignedIn)

// isNotSignedIn reports whether err means the user must sign in again.
func isNotSignedIn(err error) bool {
	return errors.Is(err, domain.ErrNotSignedIn) || errors.Is(err, domain.ErrSessionExpired)
}
