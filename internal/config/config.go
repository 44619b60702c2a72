// Package config defines service configuration and its layered loader.
package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver is sqlite or postgres; DBDSN is passed to the driver as is.
	DBDriver string `koanf:"db_driver"`
	DBDSN    string `koanf:"db_dsn"`

	// AdminEmail is the single address allowed to run admin operations.
	AdminEmail string `koanf:"admin_email"`

	// BaseURL is the public site address used in verification links.
	BaseURL string `koanf:"base_url"`

	// Mail delivery. An empty MailAPIKey logs mail instead of sending it.
	MailAPIKey    string `koanf:"mail_api_key"`
	MailAPIURL    string `koanf:"mail_api_url"`
	MailFrom      string `koanf:"mail_from"`
	MailQueueSize int    `koanf:"mail_queue_size"`
	MailWorkers   int    `koanf:"mail_workers"`
	MailTimeoutMS int    `koanf:"mail_timeout_ms"`

	// RateLimitRPS and RateLimitBurst bound write endpoints per client.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
	// TrustProxy keys rate limits on X-Forwarded-For. Off unless a reverse
	// proxy sets the header.
	TrustProxy bool `koanf:"trust_proxy"`

	VerificationTTLHours int `koanf:"verification_ttl_hours"`

	// LockDate seeds the informational lock date on first start (RFC 3339).
	LockDate string `koanf:"lock_date"`
}

// New returns a Config with defaults suitable for local development.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            logger.FormatText,
		Addr:                 ":8080",
		DBDriver:             repository.DriverSQLite,
		DBDSN:                "file:stork.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		BaseURL:              "http://localhost:3000",
		MailFrom:             "Stork <noreply@stork.local>",
		MailQueueSize:        1024,
		MailWorkers:          2,
		MailTimeoutMS:        10_000,
		RateLimitRPS:         1,
		RateLimitBurst:       5,
		VerificationTTLHours: 24,
		LockDate:             "2026-02-01T00:00:00Z",
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != repository.DriverSQLite && c.DBDriver != repository.DriverPostgres:
		return fmt.Errorf("%w: db_driver must be %q or %q, got %q",
			ErrInvalidConfig, repository.DriverSQLite, repository.DriverPostgres, c.DBDriver)
	case strings.TrimSpace(c.DBDSN) == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.MailQueueSize <= 0:
		return fmt.Errorf("%w: mail_queue_size must be positive", ErrInvalidConfig)
	case c.MailWorkers <= 0:
		return fmt.Errorf("%w: mail_workers must be positive", ErrInvalidConfig)
	case c.MailTimeoutMS <= 0:
		return fmt.Errorf("%w: mail_timeout_ms must be positive", ErrInvalidConfig)
	case c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0:
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	case c.VerificationTTLHours <= 0:
		return fmt.Errorf("%w: verification_ttl_hours must be positive", ErrInvalidConfig)
	}

	if c.AdminEmail != "" {
		if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
			return fmt.Errorf("%w: admin_email: %w", ErrInvalidConfig, err)
		}
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute URL, got %q", ErrInvalidConfig, c.BaseURL)
	}
	if c.LockDate != "" {
		if _, err := c.ParsedLockDate(); err != nil {
			return fmt.Errorf("%w: lock_date: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ParsedLockDate parses LockDate. The zero time means unset.
func (c *Config) ParsedLockDate() (time.Time, error) {
	if c.LockDate == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, c.LockDate)
}

// MailTimeout returns MailTimeoutMS as a duration.
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.MailTimeoutMS) * time.Millisecond
}

// VerificationTTL returns VerificationTTLHours as a duration.
func (c *Config) VerificationTTL() time.Duration {
	return time.Duration(c.VerificationTTLHours) * time.Hour
}
