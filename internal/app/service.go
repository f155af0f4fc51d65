// Package service wires the ingestion pipeline and exposes the consumer-facing
// store interface used by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/killwatch/internal/adapters/poller"
	"github.com/okian/killwatch/internal/adapters/redisq"
	"github.com/okian/killwatch/internal/adapters/repository"
	"github.com/okian/killwatch/internal/domain/connection"
	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/internal/domain/parser"
	"github.com/okian/killwatch/internal/domain/scaling"
	"github.com/okian/killwatch/internal/domain/types"
	"github.com/okian/killwatch/pkg/logger"
	"github.com/okian/killwatch/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultSourceURL           = "https://zkillredisq.stream/listen.php"
	defaultTrimInterval        = 5 * time.Second
	defaultReconnectInterval   = 5 * time.Second
	defaultRateLimitMultiplier = 2
	defaultNormalKillmailAge   = 45 * time.Second
	defaultMaxKillmailAge      = 5 * time.Minute
	defaultHTTPTimeout         = 30 * time.Second
	defaultConnectionStale     = 30 * time.Second
	pollerShutdownTimeout      = 5 * time.Second
)

// Service owns the retention store, the poller and the trim loop.
type Service struct {
	// mu serializes Start and Stop. Readers never take it.
	mu sync.Mutex

	// Core components
	store   *repository.RetentionStore
	tracker *connection.Tracker
	parser  *parser.Parser
	fetcher redisq.Fetcher
	poller  atomic.Pointer[poller.Poller]

	// Configuration
	sourceURL           string
	queueID             string
	trimInterval        time.Duration
	reconnectInterval   time.Duration
	rateLimitMultiplier int
	pollDelay           time.Duration
	normalKillmailAge   time.Duration
	maxKillmailAge      time.Duration
	httpTimeout         time.Duration
	connectionStale     time.Duration
	scale               scaling.Func
	now                 func() time.Time
	observer            func(poller.CycleResult)

	// State
	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSourceURL sets the RedisQ listen endpoint.
func WithSourceURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.sourceURL = u
		}
	}
}

// WithQueueID sets the RedisQ queue identifier. Empty generates one.
func WithQueueID(id string) Option {
	return func(s *Service) {
		s.queueID = id
	}
}

// WithFetcher replaces the upstream client, bypassing WithSourceURL.
func WithFetcher(f redisq.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithTrimInterval sets how often expired killmails are trimmed.
func WithTrimInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.trimInterval = d
		}
	}
}

// WithReconnectInterval sets the poller backoff after a failed cycle.
func WithReconnectInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reconnectInterval = d
		}
	}
}

// WithRateLimitMultiplier sets the reconnect multiplier applied after a 429.
func WithRateLimitMultiplier(m int) Option {
	return func(s *Service) {
		if m >= 1 {
			s.rateLimitMultiplier = m
		}
	}
}

// WithPollDelay sets the pause between successful cycles.
func WithPollDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.pollDelay = d
		}
	}
}

// WithKillmailAges sets the normal retention window and the stale cutoff.
func WithKillmailAges(normal, maxAge time.Duration) Option {
	return func(s *Service) {
		if normal > 0 {
			s.normalKillmailAge = normal
		}
		if maxAge > 0 {
			s.maxKillmailAge = maxAge
		}
	}
}

// WithHTTPTimeout sets the upstream request timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.httpTimeout = d
		}
	}
}

// WithConnectionStale sets how long after the last ping the upstream counts as disconnected.
func WithConnectionStale(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connectionStale = d
		}
	}
}

// WithScaler sets the value scaling function.
func WithScaler(f scaling.Func) Option {
	return func(s *Service) {
		if f != nil {
			s.scale = f
		}
	}
}

// WithClock overrides the clock used for parsing, stale checks and trim.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCycleObserver registers a hook called after every poll cycle.
func WithCycleObserver(fn func(poller.CycleResult)) Option {
	return func(s *Service) {
		s.observer = fn
	}
}

// New constructs a Service. The store and connection tracker are usable
// immediately; polling and trimming begin with Start.
func New(opts ...Option) *Service {
	s := &Service{
		sourceURL:           defaultSourceURL,
		trimInterval:        defaultTrimInterval,
		reconnectInterval:   defaultReconnectInterval,
		rateLimitMultiplier: defaultRateLimitMultiplier,
		normalKillmailAge:   defaultNormalKillmailAge,
		maxKillmailAge:      defaultMaxKillmailAge,
		httpTimeout:         defaultHTTPTimeout,
		connectionStale:     defaultConnectionStale,
		scale:               scaling.NewLogarithmic().Func(),
		now:                 time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.store = repository.NewRetentionStore(repository.WithNormalAge(s.normalKillmailAge))
	s.tracker = connection.NewTracker(
		connection.WithStaleAfter(s.connectionStale),
		connection.WithClock(s.now),
	)
	s.parser = parser.New(s.scale, parser.WithClock(s.now))

	return s
}

// Start launches the poller and the trim loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting killmail service...")

	if s.fetcher == nil {
		client, err := redisq.NewClient(s.sourceURL,
			redisq.WithQueueID(s.queueID),
			redisq.WithTimeout(s.httpTimeout),
		)
		if err != nil {
			return fmt.Errorf("start service: %w", err)
		}
		s.fetcher = client
		s.logger.Info(ctx, "using redisq upstream",
			logger.String("url", s.sourceURL),
			logger.String("queueID", client.QueueID()),
		)
	}

	pollOpts := []poller.Option{
		poller.WithLogger(s.logger.Named("poller")),
		poller.WithClock(s.now),
		poller.WithPollDelay(s.pollDelay),
		poller.WithReconnectInterval(s.reconnectInterval),
		poller.WithRateLimitMultiplier(s.rateLimitMultiplier),
		poller.WithMaxAge(s.maxKillmailAge),
	}
	if s.observer != nil {
		pollOpts = append(pollOpts, poller.WithObserver(s.observer))
	}
	p := poller.New(s.fetcher, s.store, s.parser, s.tracker, pollOpts...)
	s.poller.Store(p)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		p.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.trimLoop(runCtx)
	}()

	s.started.Store(true)
	s.logger.Info(ctx, "killmail service started",
		logger.Duration("trimInterval", s.trimInterval),
		logger.Duration("reconnectInterval", s.reconnectInterval),
		logger.Duration("normalKillmailAge", s.normalKillmailAge),
		logger.Duration("maxKillmailAge", s.maxKillmailAge),
	)

	return nil
}

// Stop gracefully shuts down the poller and the trim loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping killmail service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, pollerShutdownTimeout)
	defer cancel()
	if err := s.poller.Load().Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "poller shutdown", logger.Error(err))
	}

	s.cancel()
	s.wg.Wait()

	s.started.Store(false)
	s.logger.Info(ctx, "killmail service stopped")
}

// trimLoop evicts expired killmails every trimInterval.
func (s *Service) trimLoop(ctx context.Context) {
	ticker := time.NewTicker(s.trimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.TrimKillmails(ctx); n > 0 {
				s.logger.Debug(ctx, "trimmed killmails", logger.Int("removed", n))
			}
		}
	}
}

// ReceiveKillmail inserts a parsed killmail, replacing any with the same id.
func (s *Service) ReceiveKillmail(ctx context.Context, k model.Killmail) {
	s.store.Insert(ctx, k)
}

// TrimKillmails evicts every expired killmail as of the service clock.
func (s *Service) TrimKillmails(ctx context.Context) int {
	return s.store.Trim(ctx, s.now())
}

// ReceivePing forwards a liveness notification to the connection tracker.
func (s *Service) ReceivePing() {
	s.tracker.ReceivePing()
}

// Focus selects id, or clears the selection when id is not retained.
func (s *Service) Focus(ctx context.Context, id int64) {
	s.store.Focus(ctx, id)
}

// Unfocus clears the selection if id is focused.
func (s *Service) Unfocus(ctx context.Context, id int64) {
	s.store.Unfocus(ctx, id)
}

// Killmails returns every retained killmail, newest first.
func (s *Service) Killmails(ctx context.Context) []types.Killmail {
	all := s.store.All(ctx)
	out := make([]types.Killmail, len(all))
	for i, k := range all {
		out[i] = types.FromKillmail(k, s.normalKillmailAge)
	}
	return out
}

// Killmail returns one retained killmail or repository.ErrNotFound.
func (s *Service) Killmail(ctx context.Context, id int64) (types.Killmail, error) {
	k, err := s.store.Get(ctx, id)
	if err != nil {
		return types.Killmail{}, err
	}
	return types.FromKillmail(k, s.normalKillmailAge), nil
}

// Focused returns the current focus selection.
func (s *Service) Focused(ctx context.Context) types.Focus {
	k, ok := s.store.Focused(ctx)
	if !ok {
		return types.Focus{}
	}
	v := types.FromKillmail(k, s.normalKillmailAge)
	return types.Focus{Focused: true, Killmail: &v}
}

// PollerState returns the poller state name, or "stopped" before Start.
func (s *Service) PollerState() string {
	p := s.poller.Load()
	if p == nil {
		return poller.StateStopped.String()
	}
	return p.State().String()
}

// ConnectionStatus reports upstream liveness.
func (s *Service) ConnectionStatus(_ context.Context) types.Connection {
	st := s.tracker.Status(s.now())
	return types.Connection{
		Connected: st.Connected,
		LastPing:  st.LastPing,
		Pings:     st.Pings,
		State:     s.PollerState(),
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	ctx := context.Background()
	retained := s.store.Count(ctx)
	_, focused := s.store.Focused(ctx)
	conn := s.tracker.Status(s.now())

	metrics.UpdateKillmailsRetained(retained)

	return map[string]interface{}{
		"started":             s.started.Load(),
		"pollerState":         s.PollerState(),
		"retained":            retained,
		"focused":             focused,
		"connected":           conn.Connected,
		"pings":               conn.Pings,
		"trimIntervalMs":      s.trimInterval.Milliseconds(),
		"reconnectIntervalMs": s.reconnectInterval.Milliseconds(),
		"normalKillmailAgeMs": s.normalKillmailAge.Milliseconds(),
		"maxKillmailAgeMs":    s.maxKillmailAge.Milliseconds(),
	}
}
