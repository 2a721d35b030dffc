package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with its defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "hockeyplots")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.enabled, ShouldBeFalse)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And a labelled metric should carry the const label", func() {
				manager.gamesInserted.Add(2)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, mf := range families {
					if mf.GetName() != "test_unit_games_inserted_total" {
						continue
					}
					found = true
					So(mf.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 2)
					So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto should panic on the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording reconciliation metrics", func() {
			So(func() {
				RecordReconcilePass("ok", 12*time.Millisecond)
				RecordGamesInserted(3)
				RecordScoresInserted(2)
				RecordScoresAttached(1)
				RecordGamesSkipped("known", 40)
				RecordGamesSkipped("preseason", 0)
				RecordPersistenceError("insert_game")
				UpdateLedgerSize(1312, 80)
			}, ShouldNotPanic)
		})

		Convey("When recording feed and handoff metrics", func() {
			So(func() {
				RecordFeedRequest("200", 40*time.Millisecond)
				RecordFeedCacheLookup("hit")
				UpdateFetchesInFlight(2)
				RecordFetch("ok")
				RecordBatchDropped("handoff_full")
				UpdateHandoffDepth(1)
				UpdateHandoffCapacity(4)
			}, ShouldNotPanic)
		})

		Convey("When recording derivation, HTTP and system metrics", func() {
			So(func() {
				RecordSeriesBuild(3 * time.Millisecond)
				RecordHTTPRequest("/v1/series", "GET", "200", time.Millisecond)
				RecordErrorByComponent("feed", "status")
				UpdateSystemStats()
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry should expose them", func() {
			RecordGamesInserted(1)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := map[string]bool{}
			for _, mf := range families {
				names[mf.GetName()] = true
			}
			So(names["hockeyplots_games_inserted_total"], ShouldBeTrue)
			So(names["hockeyplots_reconcile_duration_seconds"], ShouldBeTrue)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			So(Enabled(), ShouldBeTrue)
		})
	})
}
