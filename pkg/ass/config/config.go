// Package config builds a storage client from options, the process
// environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/smooth-storage/pkg/ass"
	"github.com/tendant/smooth-storage/pkg/ass/client"
)

// Config holds everything needed to talk to one storage account. Either
// AccountFile or all of URL, Account and APIKey must be set.
type Config struct {
	URL         string
	Account     string
	APIKey      string
	AccountFile string
	Timeout     time.Duration
	LogLevel    string
}

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Timeout:  client.DefaultTimeout,
		LogLevel: "info",
	}
}

// Validate checks that a credential source is configured and that every
// value is usable.
func (c *Config) Validate() error {
	if c.AccountFile == "" {
		var missing []string
		if c.URL == "" {
			missing = append(missing, "url")
		}
		if c.Account == "" {
			missing = append(missing, "account")
		}
		if c.APIKey == "" {
			missing = append(missing, "api key")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing %s: set an account file or url, account and api key", strings.Join(missing, ", "))
		}
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level parses LogLevel ("debug", "info", "warn" or "error").
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Credential loads the account file when one is configured, otherwise it
// builds the credential from URL, Account and APIKey.
func (c *Config) Credential() (ass.Credential, error) {
	if c.AccountFile != "" {
		return ass.LoadCredential(c.AccountFile)
	}
	return ass.NewCredential(c.URL, c.Account, c.APIKey)
}

// ClientOptions returns the client options implied by the configuration.
func (c *Config) ClientOptions(logger *slog.Logger) []client.Option {
	return []client.Option{
		client.WithTimeout(c.Timeout),
		client.WithLogger(logger),
	}
}

// NewClient resolves the credential and creates a client. Extra options are
// applied after the configured ones.
func (c *Config) NewClient(logger *slog.Logger, opts ...client.Option) (*client.Client, error) {
	cred, err := c.Credential()
	if err != nil {
		return nil, err
	}
	return client.New(cred, append(c.ClientOptions(logger), opts...)...), nil
}
