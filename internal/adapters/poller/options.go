package poller

import (
	"time"

	"github.com/okian/killwatch/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithName sets the poller name for identification and logging.
func WithName(name string) Option {
	return func(p *Poller) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(logger logger.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the clock used for the stale check.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPollDelay sets the pause after a successful cycle.
func WithPollDelay(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.pollDelay = d
		}
	}
}

// WithReconnectInterval sets the backoff after a failed cycle.
func WithReconnectInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.reconnect = d
		}
	}
}

// WithRateLimitMultiplier sets the reconnect interval multiplier used after a 429.
func WithRateLimitMultiplier(m int) Option {
	return func(p *Poller) {
		if m >= 1 {
			p.rateLimitMultiplier = m
		}
	}
}

// WithMaxAge sets the event age beyond which a killmail is discarded as stale.
func WithMaxAge(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

// WithObserver registers a hook called after every completed cycle.
func WithObserver(fn func(CycleResult)) Option {
	return func(p *Poller) {
		p.observer = fn
	}
}
