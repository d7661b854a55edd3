package config

import (
	"fmt"
	"time"
)

// WithURL sets the storage base URL
func WithURL(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("url cannot be empty")
		}
		c.URL = url
		return nil
	}
}

// WithAccount sets the account name
func WithAccount(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("account cannot be empty")
		}
		c.Account = name
		return nil
	}
}

// WithAPIKey sets the account API key
func WithAPIKey(key string) Option {
	return func(c *Config) error {
		if key == "" {
			return fmt.Errorf("api key cannot be empty")
		}
		c.APIKey = key
		return nil
	}
}

// WithAccountFile reads the credential from a JSON account file instead of
// URL, account and API key.
func WithAccountFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("account file cannot be empty")
		}
		c.AccountFile = path
		return nil
	}
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got: %s", d)
		}
		c.Timeout = d
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.LogLevel = level
		return nil
	}
}
