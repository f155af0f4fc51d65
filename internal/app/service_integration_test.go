package service_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/killwatch/internal/adapters/poller"
	service "github.com/okian/killwatch/internal/app"
	"github.com/okian/killwatch/internal/domain/scaling"
	"github.com/okian/killwatch/internal/redisqsim"
	"github.com/okian/killwatch/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type cycleLog struct {
	mu      sync.Mutex
	results []poller.CycleResult
}

func (l *cycleLog) observe(r poller.CycleResult) {
	l.mu.Lock()
	l.results = append(l.results, r)
	l.mu.Unlock()
}

func (l *cycleLog) outcomes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.results))
	for i, r := range l.results {
		out[i] = r.Outcome
	}
	return out
}

func (l *cycleLog) find(outcome string) (poller.CycleResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.results {
		if r.Outcome == outcome {
			return r, true
		}
	}
	return poller.CycleResult{}, false
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service polling a simulated upstream", t, func() {
		ctx := context.Background()
		clk := newClock(epoch)
		sim := redisqsim.NewServer(
			redisqsim.WithClock(clk.now),
			redisqsim.WithNullProbability(1),
			redisqsim.WithRateLimitEvery(5),
			redisqsim.WithGzip(true),
		)
		gen := sim.Generator()
		fresh, stale := gen.Next(), gen.NextStale()
		second := gen.Next()
		sim.Enqueue(fresh, fresh, stale, second)

		srv := httptest.NewServer(sim)
		defer srv.Close()

		log := &cycleLog{}
		svc := service.New(
			service.WithSourceURL(srv.URL+"/listen.php"),
			service.WithQueueID("integration"),
			service.WithClock(clk.now),
			service.WithScaler(scaling.Constant(1)),
			service.WithReconnectInterval(10*time.Millisecond),
			service.WithTrimInterval(10*time.Millisecond),
			service.WithPollDelay(time.Millisecond),
			service.WithCycleObserver(log.observe),
		)
		defer svc.Stop()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the scripted packages have been served", func() {
			So(eventually(func() bool {
				_, ok := log.find(metrics.OutcomeRateLimited)
				return ok
			}), ShouldBeTrue)

			Convey("Then only fresh unique killmails should be retained", func() {
				all := svc.Killmails(ctx)
				So(len(all), ShouldEqual, 2)
				ids := map[int64]bool{all[0].ID: true, all[1].ID: true}
				So(ids[fresh.KillID], ShouldBeTrue)
				So(ids[second.KillID], ShouldBeTrue)
				So(ids[stale.KillID], ShouldBeFalse)

				outcomes := log.outcomes()
				So(outcomes[:4], ShouldResemble, []string{
					metrics.OutcomeAccepted,
					metrics.OutcomeDuplicate,
					metrics.OutcomeStale,
					metrics.OutcomeAccepted,
				})
			})

			Convey("And the 429 should back off for twice the reconnect interval", func() {
				r, _ := log.find(metrics.OutcomeRateLimited)
				So(r.Delay, ShouldEqual, 20*time.Millisecond)
			})

			Convey("And the upstream should count as connected", func() {
				st := svc.ConnectionStatus(ctx)
				So(st.Connected, ShouldBeTrue)
				So(st.Pings, ShouldBeGreaterThanOrEqualTo, uint64(4))
			})

			Convey("And advancing the clock should let the trim loop evict them", func() {
				svc.Focus(ctx, fresh.KillID)
				clk.advance(time.Minute)
				So(eventually(func() bool { return len(svc.Killmails(ctx)) == 0 }), ShouldBeTrue)
				So(svc.Focused(ctx).Focused, ShouldBeFalse)
			})
		})
	})
}
