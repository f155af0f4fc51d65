package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector should be registered", func() {
				So(manager, ShouldNotBeNil)
				manager.pollCycles.WithLabelValues(OutcomeAccepted).Inc()
				manager.httpRequests.WithLabelValues("killmails", "GET", "200").Inc()
				manager.httpRequestDuration.WithLabelValues("killmails", "GET", "200").Observe(1)
				manager.errors.WithLabelValues("poller", "fetch_error").Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldEqual, 16)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("poll"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names should use them", func() {
				manager.killmailsInserted.Inc()
				count, err := testutil.GatherAndCount(registry, "test_poll_killmails_inserted_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When empty options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "killwatch")
				So(manager.subsystem, ShouldEqual, "ingest")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording poll outcomes", func() {
			before := testutil.ToFloat64(globalManager.pollCycles.WithLabelValues(OutcomeStale))
			RecordPollCycle(OutcomeStale)

			Convey("Then the labelled counter should advance", func() {
				So(testutil.ToFloat64(globalManager.pollCycles.WithLabelValues(OutcomeStale)), ShouldEqual, before+1)
			})
		})

		Convey("When recording store activity", func() {
			inserted := testutil.ToFloat64(globalManager.killmailsInserted)
			trimmed := testutil.ToFloat64(globalManager.killmailsTrimmed)

			RecordKillmailInserted()
			RecordKillmailsTrimmed(3)
			RecordKillmailsTrimmed(0)
			UpdateKillmailsRetained(7)
			UpdateFocused(true)

			Convey("Then counters and gauges should reflect it", func() {
				So(testutil.ToFloat64(globalManager.killmailsInserted), ShouldEqual, inserted+1)
				So(testutil.ToFloat64(globalManager.killmailsTrimmed), ShouldEqual, trimmed+3)
				So(testutil.ToFloat64(globalManager.killmailsRetained), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.focused), ShouldEqual, 1)

				UpdateFocused(false)
				So(testutil.ToFloat64(globalManager.focused), ShouldEqual, 0)
			})
		})

		Convey("When recording pings and poller state", func() {
			pings := testutil.ToFloat64(globalManager.pings)
			RecordPing(1700000000)
			UpdatePollerState(2)

			Convey("Then gauges should be set", func() {
				So(testutil.ToFloat64(globalManager.pings), ShouldEqual, pings+1)
				So(testutil.ToFloat64(globalManager.lastPingUnix), ShouldEqual, 1700000000)
				So(testutil.ToFloat64(globalManager.pollerState), ShouldEqual, 2)
			})
		})

		Convey("When recording latency and system metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordFetchLatency(12)
					RecordBackoff(5)
					RecordHTTPRequest("stats", "GET", "200")
					RecordHTTPRequestDuration("stats", "GET", "200", 1.5)
					RecordErrorByComponent("poller", "fetch_error")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
