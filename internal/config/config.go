// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Durations are stored as integer milliseconds and exposed through helpers.
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/killwatch/internal/adapters/redisq"
)

// Default configuration values.
const (
	DefaultSourceURL           = "https://zkillredisq.stream/listen.php"
	DefaultReconnectIntervalMS = 5_000
	DefaultNormalKillmailAgeMS = 45_000
	DefaultMaxKillmailAgeMS    = 5 * 60 * 1_000
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SourceURL is the RedisQ listen endpoint.
	SourceURL string `koanf:"source_url"`

	// QueueID identifies this consumer to RedisQ. Generated when empty.
	QueueID string `koanf:"queue_id"`

	// ReconnectIntervalMS is the base backoff after a failed fetch.
	ReconnectIntervalMS int `koanf:"reconnect_interval_ms"`

	// TrimIntervalMS is the period of the retention trim loop.
	TrimIntervalMS int `koanf:"trim_interval_ms"`

	// RateLimitMultiplier scales the reconnect interval after an HTTP 429.
	RateLimitMultiplier int `koanf:"rate_limit_multiplier"`

	// PollDelayMS is the pause between successful poll cycles.
	PollDelayMS int `koanf:"poll_delay_ms"`

	// NormalKillmailAgeMS is the retention window for a killmail with scaled value 1.
	NormalKillmailAgeMS int `koanf:"normal_killmail_age_ms"`

	// MaxKillmailAgeMS rejects killmails whose event time is older than this.
	MaxKillmailAgeMS int `koanf:"max_killmail_age_ms"`

	// HTTPTimeoutMS bounds a single upstream request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// ConnectionStaleMS marks the upstream as disconnected when no ping arrived within it.
	ConnectionStaleMS int `koanf:"connection_stale_ms"`

	// Scale* configure the default logarithmic value scaler.
	ScaleReferenceValue float64 `koanf:"scale_reference_value"`
	ScaleMin            float64 `koanf:"scale_min"`
	ScaleMax            float64 `koanf:"scale_max"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		SourceURL:           DefaultSourceURL,
		ReconnectIntervalMS: DefaultReconnectIntervalMS,
		TrimIntervalMS:      DefaultReconnectIntervalMS,
		RateLimitMultiplier: 2,
		PollDelayMS:         0,
		NormalKillmailAgeMS: DefaultNormalKillmailAgeMS,
		MaxKillmailAgeMS:    DefaultMaxKillmailAgeMS,
		HTTPTimeoutMS:       30_000,
		ConnectionStaleMS:   30_000,
		ScaleReferenceValue: 100_000_000,
		ScaleMin:            0.25,
		ScaleMax:            8,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.SourceURL == "" {
		errs = append(errs, errors.New("source_url must not be empty"))
	} else if err := redisq.ValidateURL(c.SourceURL); err != nil {
		errs = append(errs, fmt.Errorf("source_url: %w", err))
	}

	positive := []struct {
		name string
		val  int
	}{
		{"reconnect_interval_ms", c.ReconnectIntervalMS},
		{"trim_interval_ms", c.TrimIntervalMS},
		{"normal_killmail_age_ms", c.NormalKillmailAgeMS},
		{"max_killmail_age_ms", c.MaxKillmailAgeMS},
		{"http_timeout_ms", c.HTTPTimeoutMS},
		{"connection_stale_ms", c.ConnectionStaleMS},
	}
	for _, p := range positive {
		if p.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.val))
		}
	}

	if c.PollDelayMS < 0 {
		errs = append(errs, fmt.Errorf("poll_delay_ms must not be negative, got %d", c.PollDelayMS))
	}
	if c.RateLimitMultiplier < 1 {
		errs = append(errs, fmt.Errorf("rate_limit_multiplier must be at least 1, got %d", c.RateLimitMultiplier))
	}
	if c.ScaleReferenceValue <= 0 {
		errs = append(errs, fmt.Errorf("scale_reference_value must be positive, got %g", c.ScaleReferenceValue))
	}
	if c.ScaleMin < 0 || c.ScaleMax < c.ScaleMin {
		errs = append(errs, fmt.Errorf("scale bounds must satisfy 0 <= scale_min <= scale_max, got [%g, %g]", c.ScaleMin, c.ScaleMax))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ReconnectInterval returns ReconnectIntervalMS as a duration.
func (c *Config) ReconnectInterval() time.Duration { return ms(c.ReconnectIntervalMS) }

// TrimInterval returns TrimIntervalMS as a duration.
func (c *Config) TrimInterval() time.Duration { return ms(c.TrimIntervalMS) }

// PollDelay returns PollDelayMS as a duration.
func (c *Config) PollDelay() time.Duration { return ms(c.PollDelayMS) }

// NormalKillmailAge returns NormalKillmailAgeMS as a duration.
func (c *Config) NormalKillmailAge() time.Duration { return ms(c.NormalKillmailAgeMS) }

// MaxKillmailAge returns MaxKillmailAgeMS as a duration.
func (c *Config) MaxKillmailAge() time.Duration { return ms(c.MaxKillmailAgeMS) }

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration { return ms(c.HTTPTimeoutMS) }

// ConnectionStale returns ConnectionStaleMS as a duration.
func (c *Config) ConnectionStale() time.Duration { return ms(c.ConnectionStaleMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
