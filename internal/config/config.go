package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lu-zhengda/courier/internal/domain"
)

const appName = "courier"

// Config holds all courier configuration.
type Config struct {
	Courier CourierConfig `toml:"courier"`
	Inbox   InboxConfig   `toml:"inbox"`
	Log     LogConfig     `toml:"log"`
	Session SessionConfig `toml:"session"`
}

// CourierConfig holds API endpoints and the default client key.
// Empty endpoints mean production.
type CourierConfig struct {
	InboxURL    string `toml:"inbox_url"`
	RealtimeURL string `toml:"realtime_url"`
	APIURL      string `toml:"api_url"`
	ClientKey   string `toml:"client_key"`
}

// InboxConfig holds inbox synchronization settings.
type InboxConfig struct {
	PaginationLimit int    `toml:"pagination_limit"`
	KeepAlive       string `toml:"keep_alive"`
	FetchTimeout    string `toml:"fetch_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SessionConfig holds session selection settings.
type SessionConfig struct {
	DefaultUser string `toml:"default_user"`
}

const (
	defaultKeepAlive    = 5 * time.Minute
	defaultFetchTimeout = 30 * time.Second
)

func defaults() Config {
	return Config{
		Inbox: InboxConfig{
			PaginationLimit: domain.DefaultPaginationLimit,
			KeepAlive:       defaultKeepAlive.String(),
			FetchTimeout:    defaultFetchTimeout.String(),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads config from path. If path is empty, returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Inbox.PaginationLimit = domain.ClampPaginationLimit(cfg.Inbox.PaginationLimit)
	return &cfg, nil
}

// KeepAliveInterval parses keep_alive, falling back to the default.
func (c InboxConfig) KeepAliveInterval() time.Duration {
	return parseDuration(c.KeepAlive, defaultKeepAlive)
}

// FetchTimeoutDuration parses fetch_timeout, falling back to the default.
func (c InboxConfig) FetchTimeoutDuration() time.Duration {
	return parseDuration(c.FetchTimeout, defaultFetchTimeout)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ConfigDir returns the courier config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the courier data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}
