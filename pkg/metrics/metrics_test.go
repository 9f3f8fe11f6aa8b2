package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created and enabled", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithPoolSizeBuckets([]float64{1, 10}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.latencyBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.poolSizeBuckets, ShouldResemble, []float64{1, 10})
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
				So(manager.Enabled(), ShouldBeFalse)
			})

			Convey("And the prefix should be part of metric names", func() {
				manager.surveysSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_pfx_surveys_submitted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When reading the global refresh interval", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})

		Convey("When passing empty option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithPoolSizeBuckets([]float64{}),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "mingle")
				So(manager.subsystem, ShouldEqual, "matching")
				So(manager.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
				So(manager.poolSizeBuckets, ShouldResemble, defaultPoolSizeBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording survey submissions", func() {
			before := testutil.ToFloat64(globalManager.surveysSubmitted)
			RecordSurveySubmitted()
			RecordSurveySubmitted()

			Convey("Then the counter should advance", func() {
				So(testutil.ToFloat64(globalManager.surveysSubmitted), ShouldEqual, before+2)
			})
		})

		Convey("When recording matching runs by outcome", func() {
			before := testutil.ToFloat64(globalManager.matchingRuns.WithLabelValues("success"))
			RecordMatchingRun("success", 12.5)

			Convey("Then only that outcome should advance", func() {
				So(testutil.ToFloat64(globalManager.matchingRuns.WithLabelValues("success")), ShouldEqual, before+1)
			})
		})

		Convey("When recording store operations", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("memory", "put_grid"))
			RecordStoreOperation("memory", "put_grid", 1, false)
			RecordStoreOperation("memory", "put_grid", 1, true)

			Convey("Then only failures should count as errors", func() {
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("memory", "put_grid")), ShouldEqual, before+1)
			})
		})

		Convey("When updating breaker state", func() {
			UpdateBreakerState("store", 2)

			Convey("Then the gauge should reflect it", func() {
				So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("store")), ShouldEqual, 2)
			})
		})

		Convey("When recording the remaining helpers", func() {
			Convey("Then none of them should panic", func() {
				So(func() {
					RecordCandidatePoolSize(4)
					RecordInterestLookupLatency(3)
					RecordGridWrite(3)
					RecordHTTPRequest("matchmaking", "POST", "200")
					RecordHTTPRequestDuration("matchmaking", "POST", "200", 7)
					RecordErrorByComponent("service", "internal")
					RecordErrorByType("internal", "high")
					RecordErrorByEndpoint("matchmaking", "POST", "server_error")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering from the registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then mingle metrics should be exposed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
