package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("feed"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "feed")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10})
			})

			Convey("Then metrics are registered on that registry", func() {
				manager.digestsBuilt.WithLabelValues("coach", OutcomeOK).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_feed_builds_total")
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "huddle")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestDigestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording a digest build", func() {
			before := testutil.ToFloat64(globalManager.digestsBuilt.WithLabelValues("player", OutcomeOK))
			RecordDigestBuilt("player", OutcomeOK)

			Convey("Then the counter increases by one", func() {
				after := testutil.ToFloat64(globalManager.digestsBuilt.WithLabelValues("player", OutcomeOK))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording dropped comments", func() {
			c := globalManager.commentsDropped.WithLabelValues("coach", "self_authored")
			before := testutil.ToFloat64(c)
			RecordCommentsDropped("coach", "self_authored", 3)
			RecordCommentsDropped("coach", "self_authored", 0)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 3)
			})
		})

		Convey("When recording lookups", func() {
			c := globalManager.lookups.WithLabelValues("author", OutcomeNotFound)
			before := testutil.ToFloat64(c)
			RecordLookup("author", OutcomeNotFound)

			Convey("Then the labelled counter increases", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordDigestDuration("coach", 12)
				RecordDigestSize("coach", 4)
				RecordFanoutTaskLatency("resolve", 2)
				UpdateFanoutWorkers("resolve", 8)
				RecordHTTPRequest("digest", "GET", "200")
				RecordHTTPRequestDuration("digest", "GET", "200", 5)
				RecordErrorByEndpoint("digest", "GET", "server_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)

			Convey("Then the fan-out gauge holds the last value", func() {
				So(testutil.ToFloat64(globalManager.fanoutWorkers.WithLabelValues("resolve")), ShouldEqual, 8)
			})
		})

		Convey("Then the registry is the custom one", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
