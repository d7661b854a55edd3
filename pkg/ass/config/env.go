package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envConfig maps environment variables. Unset variables leave the current
// value untouched, so defaults and earlier options survive.
type envConfig struct {
	URL         string        `env:"ASS_URL" env-description:"storage base URL, e.g. https://storage.example.com"`
	Account     string        `env:"ASS_ACCOUNT" env-description:"account name"`
	APIKey      string        `env:"ASS_APIKEY" env-description:"account API key"`
	AccountFile string        `env:"ASS_ACCOUNT_FILE" env-description:"JSON account file with url, name and apikey"`
	Timeout     time.Duration `env:"ASS_TIMEOUT" env-description:"request timeout (default 30s)"`
	LogLevel    string        `env:"ASS_LOG_LEVEL" env-description:"debug, info, warn or error (default info)"`
}

// WithEnv applies ASS_* environment variable overrides.
//
//	ASS_URL, ASS_ACCOUNT, ASS_APIKEY - inline credential
//	ASS_ACCOUNT_FILE                 - account file, used instead of the inline credential
//	ASS_TIMEOUT                      - Go duration, e.g. "45s"
//	ASS_LOG_LEVEL                    - debug, info, warn or error
func WithEnv() Option {
	return func(c *Config) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.URL != "" {
			c.URL = env.URL
		}
		if env.Account != "" {
			c.Account = env.Account
		}
		if env.APIKey != "" {
			c.APIKey = env.APIKey
		}
		if env.AccountFile != "" {
			c.AccountFile = env.AccountFile
		}
		if env.LogLevel != "" {
			c.LogLevel = env.LogLevel
		}
		if env.Timeout != 0 {
			c.Timeout = env.Timeout
		}

		return nil
	}
}

// WithDotEnv loads variables from .env style files into the process
// environment. Variables already set win over file values and missing files
// are ignored. Combine with WithEnv, which must come after it.
func WithDotEnv(paths ...string) Option {
	return func(c *Config) error {
		if len(paths) == 0 {
			paths = []string{".env"}
		}
		for _, p := range paths {
			if err := godotenv.Load(p); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return fmt.Errorf("failed to load %s: %w", p, err)
			}
		}
		return nil
	}
}

// Usage describes the environment variables understood by WithEnv.
func Usage() string {
	header := "Environment variables:"
	text, err := cleanenv.GetDescription(&envConfig{}, &header)
	if err != nil {
		return header
	}
	return text
}
