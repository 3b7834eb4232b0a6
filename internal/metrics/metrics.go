// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsFetchedTotal       *prometheus.CounterVec
	recordsPersistedTotal     *prometheus.CounterVec
	sourceErrorsTotal         *prometheus.CounterVec
	notificationsCreatedTotal prometheus.Counter
	recordsDeletedTotal       *prometheus.CounterVec
	activeFetchWorkers        prometheus.Gauge
	ingestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		recordsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_records_fetched_total",
				Help: "Total raw records fetched from upstream sources, labeled by source.",
			},
			[]string{"source"},
		)

		recordsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_records_persisted_total",
				Help: "Total records upserted into the store, labeled by source and outcome (new or refresh).",
			},
			[]string{"source", "outcome"},
		)

		sourceErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_source_errors_total",
				Help: "Total upstream fetch failures, labeled by source.",
			},
			[]string{"source"},
		)

		notificationsCreatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "radar_notifications_created_total",
				Help: "Total notifications generated by subscription matching.",
			},
		)

		recordsDeletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_records_deleted_total",
				Help: "Total records removed by retention cleanup, labeled by class.",
			},
			[]string{"class"},
		)

		activeFetchWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "radar_active_fetch_workers",
				Help: "Number of workers currently executing a source query.",
			},
		)

		ingestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radar_ingest_duration_seconds",
				Help:    "Histogram of ingest run durations, labeled by pipeline.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"pipeline"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetched adds raw fetched records for a source.
func ObserveFetched(source string, n int) {
	if n > 0 {
		recordsFetchedTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObservePersisted increments the persisted counter for a source; outcome is
// "new" or "refresh".
func ObservePersisted(source, outcome string) {
	recordsPersistedTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveSourceError increments the fetch failure counter for a source.
func ObserveSourceError(source string) {
	sourceErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveNotifications adds generated notifications.
func ObserveNotifications(n int) {
	if n > 0 {
		notificationsCreatedTotal.Add(float64(n))
	}
}

// ObserveDeleted adds retention deletions for a record class.
func ObserveDeleted(class string, n int64) {
	if n > 0 {
		recordsDeletedTotal.WithLabelValues(class).Add(float64(n))
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeFetchWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeFetchWorkers.Dec()
}

// ObserveIngestDuration records the wall time of one ingest run.
func ObserveIngestDuration(pipeline string, d time.Duration) {
	ingestDurationSeconds.WithLabelValues(pipeline).Observe(d.Seconds())
}
