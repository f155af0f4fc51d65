// Package connection tracks upstream liveness from poller pings.
package connection

import (
	"sync/atomic"
	"time"

	"github.com/okian/killwatch/pkg/metrics"
)

const defaultStaleAfter = 30 * time.Second

// Pinger receives one ping per upstream response.
type Pinger interface {
	ReceivePing()
}

// Status is a point-in-time view of upstream liveness.
type Status struct {
	Connected bool
	LastPing  time.Time
	Pings     uint64
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithStaleAfter sets how long after the last ping the upstream counts as disconnected.
func WithStaleAfter(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.staleAfter = d
		}
	}
}

// WithClock overrides the clock used to stamp pings.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker is a lock-free Pinger.
type Tracker struct {
	lastPing   atomic.Int64 // unix nanos, 0 before the first ping
	pings      atomic.Uint64
	staleAfter time.Duration
	now        func() time.Time
}

var _ Pinger = (*Tracker)(nil)

// NewTracker creates a tracker with configuration options.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		staleAfter: defaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReceivePing implements Pinger.
func (t *Tracker) ReceivePing() {
	now := t.now()
	t.lastPing.Store(now.UnixNano())
	t.pings.Add(1)
	metrics.RecordPing(float64(now.UnixNano()) / float64(time.Second))
}

// Status reports liveness as of now.
func (t *Tracker) Status(now time.Time) Status {
	ns := t.lastPing.Load()
	s := Status{Pings: t.pings.Load()}
	if ns == 0 {
		return s
	}
	s.LastPing = time.Unix(0, ns).UTC()
	s.Connected = now.Sub(s.LastPing) < t.staleAfter
	return s
}
