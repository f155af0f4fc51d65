package redisqsim

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/pkg/logger"
)

// Stats counts what the simulator has served.
type Stats struct {
	Requests    int64 `json:"requests"`
	Packages    int64 `json:"packages"`
	Empty       int64 `json:"empty"`
	RateLimited int64 `json:"rate_limited"`
	Errors      int64 `json:"errors"`
	Stale       int64 `json:"stale"`
	Duplicates  int64 `json:"duplicates"`
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithSeed seeds the synthetic data generator.
func WithSeed(seed uint64) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// WithClock overrides the clock used for killmail timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNullProbability sets the chance of answering {"package":null}.
func WithNullProbability(p float64) Option {
	return func(s *Server) {
		if p >= 0 && p <= 1 {
			s.nullProbability = p
		}
	}
}

// WithStaleProbability sets the chance of serving an old killmail.
func WithStaleProbability(p float64) Option {
	return func(s *Server) {
		if p >= 0 && p <= 1 {
			s.staleProbability = p
		}
	}
}

// WithDuplicateProbability sets the chance of replaying the previous killmail.
func WithDuplicateProbability(p float64) Option {
	return func(s *Server) {
		if p >= 0 && p <= 1 {
			s.duplicateProbability = p
		}
	}
}

// WithRateLimitEvery answers every nth request with 429. Zero disables.
func WithRateLimitEvery(n int64) Option {
	return func(s *Server) {
		if n >= 0 {
			s.rateLimitEvery = n
		}
	}
}

// WithErrorEvery answers every nth request with 503. Zero disables.
func WithErrorEvery(n int64) Option {
	return func(s *Server) {
		if n >= 0 {
			s.errorEvery = n
		}
	}
}

// WithGzip compresses bodies for clients that accept gzip.
func WithGzip(enabled bool) Option {
	return func(s *Server) {
		s.gzip = enabled
	}
}

// WithLogger sets a custom logger for the simulator.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server is a RedisQ-compatible http.Handler.
type Server struct {
	seed                 uint64
	now                  func() time.Time
	nullProbability      float64
	staleProbability     float64
	duplicateProbability float64
	rateLimitEvery       int64
	errorEvery           int64
	gzip                 bool
	logger               logger.Logger

	gen *Generator

	mu       sync.Mutex
	scripted []*model.Package
	last     *model.Package

	requests    atomic.Int64
	packages    atomic.Int64
	empty       atomic.Int64
	rateLimited atomic.Int64
	errors      atomic.Int64
	stale       atomic.Int64
	duplicates  atomic.Int64
}

// NewServer creates a simulator with configuration options.
func NewServer(opts ...Option) *Server {
	s := &Server{
		seed: 1,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gen = NewGenerator(s.seed, s.now)
	return s
}

// Generator returns the server's data generator.
func (s *Server) Generator() *Generator {
	return s.gen
}

// Enqueue schedules packages to be served, in order, ahead of random data.
// A nil entry is served as {"package":null}.
func (s *Server) Enqueue(pkgs ...*model.Package) {
	s.mu.Lock()
	s.scripted = append(s.scripted, pkgs...)
	s.mu.Unlock()
}

// Stats returns a snapshot of the served counters.
func (s *Server) Stats() Stats {
	return Stats{
		Requests:    s.requests.Load(),
		Packages:    s.packages.Load(),
		Empty:       s.empty.Load(),
		RateLimited: s.rateLimited.Load(),
		Errors:      s.errors.Load(),
		Stale:       s.stale.Load(),
		Duplicates:  s.duplicates.Load(),
	}
}

// ServeHTTP answers one listen request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	n := s.requests.Add(1)

	switch {
	case s.rateLimitEvery > 0 && n%s.rateLimitEvery == 0:
		s.rateLimited.Add(1)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	case s.errorEvery > 0 && n%s.errorEvery == 0:
		s.errors.Add(1)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	pkg := s.pick()
	if pkg == nil {
		s.empty.Add(1)
	} else {
		s.packages.Add(1)
	}
	s.write(w, r, model.Response{Package: pkg})
}

// pick chooses the next package to serve. Nil means no event.
func (s *Server) pick() *model.Package {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.scripted) > 0 {
		pkg := s.scripted[0]
		s.scripted = s.scripted[1:]
		if pkg != nil {
			s.last = pkg
		}
		return pkg
	}

	if s.gen.float() < s.nullProbability {
		return nil
	}
	if s.last != nil && s.gen.float() < s.duplicateProbability {
		s.duplicates.Add(1)
		return s.last
	}
	if s.gen.float() < s.staleProbability {
		s.stale.Add(1)
		s.last = s.gen.NextStale()
		return s.last
	}
	s.last = s.gen.Next()
	return s.last
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, doc model.Response) {
	body, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if s.gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, err = gz.Write(body)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	} else {
		_, err = w.Write(body)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn(r.Context(), "write response", logger.Error(err))
	}
}
