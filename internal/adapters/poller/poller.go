// Package poller drives the RedisQ long-poll loop and feeds the retention store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/killwatch/internal/adapters/redisq"
	"github.com/okian/killwatch/internal/domain/connection"
	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/internal/domain/parser"
	"github.com/okian/killwatch/pkg/logger"
	"github.com/okian/killwatch/pkg/metrics"
)

// Default poller configuration constants.
const (
	defaultReconnectInterval   = 5 * time.Second
	defaultRateLimitMultiplier = 2
	defaultMaxAge              = 5 * time.Minute
)

// State is the poller's position in its fetch loop.
type State int32

// Poller states.
const (
	StateIdle State = iota
	StateFetching
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Store is the subset of the retention store the poller writes to.
type Store interface {
	Contains(ctx context.Context, id int64) bool
	Insert(ctx context.Context, k model.Killmail)
}

// Parser turns an upstream package into a Killmail.
type Parser interface {
	Parse(pkg *model.Package) (model.Killmail, error)
}

// CycleResult describes one completed fetch cycle.
type CycleResult struct {
	Outcome    string
	KillmailID int64
	Delay      time.Duration
	Err        error
}

// Poller fetches one package at a time and applies it to the store.
type Poller struct {
	fetcher redisq.Fetcher
	store   Store
	parser  Parser
	pinger  connection.Pinger
	name    string

	pollDelay           time.Duration
	reconnect           time.Duration
	rateLimitMultiplier int
	maxAge              time.Duration
	now                 func() time.Time
	observer            func(CycleResult)

	state atomic.Int32

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// New creates a poller with configuration options.
func New(fetcher redisq.Fetcher, store Store, parser Parser, pinger connection.Pinger, opts ...Option) *Poller {
	p := &Poller{
		fetcher:             fetcher,
		store:               store,
		parser:              parser,
		pinger:              pinger,
		name:                "poller",
		reconnect:           defaultReconnectInterval,
		rateLimitMultiplier: defaultRateLimitMultiplier,
		maxAge:              defaultMaxAge,
		now:                 time.Now,
		shutdown:            make(chan struct{}),
		done:                make(chan struct{}),
		logger:              logger.Get().Named("poller"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.name != "poller" {
		p.logger = p.logger.Named(p.name)
	}

	p.setState(StateIdle)
	return p
}

// State returns the current state. Safe to call from any goroutine.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
	metrics.UpdatePollerState(int(s))
}

// Run polls until ctx is cancelled or Shutdown is called. Transient errors
// never end the loop. Run must be called at most once.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)
	defer p.setState(StateStopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	p.logger.Info(ctx, "poller started",
		logger.Duration("reconnectInterval", p.reconnect),
		logger.Duration("maxKillmailAge", p.maxAge),
	)

	for {
		res, ok := p.cycle(ctx)
		if !ok {
			p.logger.Info(ctx, "poller stopped")
			return
		}

		metrics.RecordPollCycle(res.Outcome)
		if res.Err != nil {
			p.setState(StateBackoff)
			metrics.RecordBackoff(res.Delay.Seconds())
		} else {
			p.setState(StateIdle)
		}
		if p.observer != nil {
			p.observer(res)
		}

		timer := time.NewTimer(res.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info(ctx, "poller stopped")
			return
		case <-timer.C:
		}
	}
}

// Shutdown stops the loop and waits for it to exit.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// cycle performs one fetch and applies its result. ok is false when ctx was
// cancelled, in which case any fetched result has been discarded.
func (p *Poller) cycle(ctx context.Context) (CycleResult, bool) {
	if ctx.Err() != nil {
		return CycleResult{}, false
	}
	p.setState(StateFetching)

	pkg, err := p.fetcher.Fetch(ctx)
	if ctx.Err() != nil {
		return CycleResult{}, false
	}
	if err != nil {
		return p.fetchFailed(ctx, err), true
	}

	p.pinger.ReceivePing()
	return p.apply(ctx, pkg), ctx.Err() == nil
}

func (p *Poller) fetchFailed(ctx context.Context, err error) CycleResult {
	if errors.Is(err, redisq.ErrRateLimited) {
		delay := time.Duration(p.rateLimitMultiplier) * p.reconnect
		metrics.RecordErrorByComponent("poller", metrics.OutcomeRateLimited)
		p.logger.Warn(ctx, "upstream rate limited", logger.Duration("backoff", delay))
		return CycleResult{Outcome: metrics.OutcomeRateLimited, Delay: delay, Err: err}
	}
	// Only a rate limit withholds the liveness ping.
	p.pinger.ReceivePing()
	metrics.RecordErrorByComponent("poller", metrics.OutcomeFetchError)
	p.logger.Error(ctx, "upstream fetch failed", logger.Error(err), logger.Duration("backoff", p.reconnect))
	return CycleResult{Outcome: metrics.OutcomeFetchError, Delay: p.reconnect, Err: err}
}

// apply runs the fixed decision order for a 2xx response.
func (p *Poller) apply(ctx context.Context, pkg *model.Package) CycleResult {
	if pkg == nil {
		return CycleResult{Outcome: metrics.OutcomeEmpty, Delay: p.pollDelay}
	}
	if pkg.Killmail == nil {
		p.logger.Warn(ctx, "package without killmail", logger.Int64("killID", pkg.KillID))
		return CycleResult{Outcome: metrics.OutcomeNoKillmail, KillmailID: pkg.KillID, Delay: p.pollDelay}
	}

	id := pkg.Killmail.KillmailID
	eventTime, err := parser.EventTime(pkg.Killmail)
	if err != nil {
		return p.parseFailed(ctx, id, err)
	}
	if age := p.now().Sub(eventTime); age > p.maxAge {
		p.logger.Debug(ctx, "discarding stale killmail", logger.Int64("killmailID", id), logger.Duration("age", age))
		return CycleResult{Outcome: metrics.OutcomeStale, KillmailID: id, Delay: p.pollDelay}
	}
	if p.store.Contains(ctx, id) {
		p.logger.Debug(ctx, "discarding duplicate killmail", logger.Int64("killmailID", id))
		return CycleResult{Outcome: metrics.OutcomeDuplicate, KillmailID: id, Delay: p.pollDelay}
	}

	km, err := p.parser.Parse(pkg)
	if err != nil {
		return p.parseFailed(ctx, id, err)
	}
	if ctx.Err() != nil {
		return CycleResult{}
	}
	p.store.Insert(ctx, km)
	p.logger.Debug(ctx, "killmail accepted",
		logger.Int64("killmailID", km.ID),
		logger.Float64("totalValue", km.TotalValue),
		logger.Float64("scaledValue", km.ScaledValue),
	)
	return CycleResult{Outcome: metrics.OutcomeAccepted, KillmailID: km.ID, Delay: p.pollDelay}
}

func (p *Poller) parseFailed(ctx context.Context, id int64, err error) CycleResult {
	metrics.RecordErrorByComponent("poller", metrics.OutcomeParseError)
	p.logger.Error(ctx, "killmail rejected", logger.Int64("killmailID", id), logger.Error(err))
	return CycleResult{Outcome: metrics.OutcomeParseError, KillmailID: id, Delay: p.reconnect, Err: err}
}
