package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with defaults on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the manager should be initialized", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "venturerank")
				So(manager.subsystem, ShouldEqual, "leaderboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			buckets := []float64{1, 5, 10}
			manager := NewManager(
				WithNamespace("testns"),
				WithSubsystem("testsub"),
				WithHistogramBuckets(buckets),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "testns")
				So(manager.subsystem, ShouldEqual, "testsub")
				So(manager.histogramBuckets, ShouldResemble, buckets)
			})
		})

		Convey("When creating with empty option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be retained", func() {
				So(manager.namespace, ShouldEqual, "venturerank")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager backed by an isolated registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording vote outcomes", func() {
			manager.votesAccepted.Inc()
			manager.votesRejected.Inc()
			manager.votesRateLimited.Inc()

			families, err := registry.Gather()

			Convey("Then the counters should be gatherable", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When recording cache and leaderboard activity", func() {
			manager.cacheHits.Inc()
			manager.cacheMisses.Inc()
			manager.leaderboardEntries.Set(42)
			manager.leaderboardComputeDuration.Observe(12.5)

			families, err := registry.Gather()

			Convey("Then gathering should succeed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When recording HTTP request metrics", func() {
			manager.httpRequests.WithLabelValues("/leaderboard/top", "GET", "200").Inc()
			manager.httpRequestDuration.WithLabelValues("/leaderboard/top", "GET", "200").Observe(3.0)

			families, err := registry.Gather()

			Convey("Then the labeled series should exist", func() {
				So(err, ShouldBeNil)
				found := false
				for _, fam := range families {
					if fam.GetName() == "venturerank_leaderboard_http_requests_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the package level helpers", t, func() {
		Convey("When invoking the recorders", func() {
			recorders := []func(){
				RecordVoteAccepted,
				RecordVoteRejected,
				RecordVoteRateLimited,
				RecordLeaderboardError,
				RecordCacheHit,
				RecordCacheMiss,
				RecordCacheError,
				RecordCacheInvalidation,
				RecordCacheInvalidationError,
				RecordStoreError,
			}
			for _, record := range recorders {
				record()
			}
			RecordComputeDuration(8.0)
			UpdateLeaderboardEntries(10)
			RecordHTTPRequest("/healthz", "GET", "200")
			RecordHTTPRequestDuration("/healthz", "GET", "200", 1.5)

			Convey("Then the shared registry should gather without error", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
