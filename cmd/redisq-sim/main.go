package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/okian/killwatch/internal/redisqsim"
	"github.com/okian/killwatch/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = ":9090"
	defaultNull       = 0.3
	defaultLatency    = 200 * time.Millisecond
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", defaultAddr, "Listen address")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		null      = flag.Float64("null", defaultNull, "Probability of an empty package")
		stale     = flag.Float64("stale", 0.05, "Probability of a stale killmail")
		duplicate = flag.Float64("duplicate", 0.05, "Probability of replaying the previous killmail")
		every429  = flag.Int64("rate-limit-every", 0, "Answer every nth request with 429 (0 disables)")
		every5xx  = flag.Int64("error-every", 0, "Answer every nth request with 503 (0 disables)")
		latency   = flag.Duration("latency", defaultLatency, "Delay before answering, simulating the long poll")
		gzip      = flag.Bool("gzip", true, "Compress responses for clients that accept gzip")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("redisq-sim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := redisqsim.NewServer(
		redisqsim.WithSeed(*seed),
		redisqsim.WithNullProbability(*null),
		redisqsim.WithStaleProbability(*stale),
		redisqsim.WithDuplicateProbability(*duplicate),
		redisqsim.WithRateLimitEvery(*every429),
		redisqsim.WithErrorEvery(*every5xx),
		redisqsim.WithGzip(*gzip),
		redisqsim.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/listen.php", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-time.After(*latency):
		case <-req.Context().Done():
			return
		}
		sim.ServeHTTP(w, req)
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sim.Stats())
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving simulated RedisQ",
			logger.String("addr", *addr),
			logger.Float64("null", *null),
			logger.Int64("rateLimitEvery", *every429),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "simulator server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "simulator shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "simulator stopped", logger.Any("stats", sim.Stats()))
}
