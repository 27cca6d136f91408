package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/onemec/gmeet-slash-cmd/internal/google"
	"github.com/onemec/gmeet-slash-cmd/internal/instrumentation"
	"github.com/onemec/gmeet-slash-cmd/internal/kv"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
)

// Config is the complete service configuration.
type Config struct {
	// Google OAuth client registered for the Calendar API.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// PublicBaseURL is the externally reachable host serving /auth.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	StorageType      string `env:"STORAGE_TYPE" envDefault:"memory"`
	StorageKeyPrefix string `env:"STORAGE_KEY_PREFIX" envDefault:"gmeet:"`
	RedisURL         string `env:"REDIS_URL"`
	ValkeyURL        string `env:"VALKEY_URL"`
	ValkeyPassword   string `env:"VALKEY_PASSWORD"`
	ValkeyTLS        bool   `env:"VALKEY_TLS_ENABLED" envDefault:"false"`
	ValkeyDB         int    `env:"VALKEY_DB" envDefault:"0"`
	SQLitePath       string `env:"SQLITE_PATH"`
	DatabaseURL      string `env:"DATABASE_URL"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsAddr    string `env:"METRICS_ADDR" envDefault:":9090"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Instrumentation instrumentation.Config
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses the configuration from vars instead of the environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if err := c.OAuth().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		errs = append(errs, errors.New("METRICS_ADDR is required when metrics are enabled"))
	}
	if err := c.Storage().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q, must be one of: text, json", c.LogFormat))
	}
	if err := c.Instrumentation.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// OAuth returns the Google OAuth client configuration.
func (c Config) OAuth() google.Config {
	return google.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURL,
	}
}

// Storage returns the key-value backend configuration.
func (c Config) Storage() kv.Config {
	return kv.Config{
		Type:      kv.StorageType(c.StorageType),
		KeyPrefix: c.StorageKeyPrefix,
		Redis:     kv.RedisConfig{URL: c.RedisURL},
		Valkey: kv.ValkeyConfig{
			URL:        c.ValkeyURL,
			Password:   c.ValkeyPassword,
			TLSEnabled: c.ValkeyTLS,
			DB:         c.ValkeyDB,
		},
		SQL: kv.SQLConfig{
			SQLitePath:  c.SQLitePath,
			DatabaseURL: c.DatabaseURL,
		},
	}
}
