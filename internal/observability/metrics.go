package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solar_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the collectors and API.
type Metrics struct {
	// Collector metrics.
	CollectorRuns     *prometheus.CounterVec   // labels: collector, outcome={success,error,skipped}
	CollectorDuration *prometheus.HistogramVec // labels: collector
	RowsAppended      *prometheus.CounterVec   // labels: collector
	ItemsSkipped      *prometheus.CounterVec   // labels: collector, reason

	// Upstream fetch metrics.
	FetchAttempts *prometheus.CounterVec // labels: outcome={success,rate_limited,http_error,transport_error}
	FetchBackoff  prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: layer={memory,redis,s3,lru}, result={hit,miss}

	// Prediction metrics.
	Predictions        *prometheus.CounterVec // labels: endpoint, outcome
	PredictionDuration prometheus.Histogram

	SchedulerJobs   *prometheus.CounterVec // labels: job, outcome
	EventsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CollectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_runs_total",
			Help:      "Collector runs by collector and outcome.",
		}, []string{"collector", "outcome"}),
		CollectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collector_duration_seconds",
			Help:      "Duration of a complete collector run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"collector"}),
		RowsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_appended_total",
			Help:      "Rows appended to stored time series.",
		}, []string{"collector"}),
		ItemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Items skipped during collection, by reason.",
		}, []string{"collector", "reason"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Upstream HTTP attempts by outcome.",
		}, []string{"outcome"}),
		FetchBackoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_backoff_seconds",
			Help:      "Waits spent backing off after rate-limited responses.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Coordinate cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Scoring server round-trip duration.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SchedulerJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs_total",
			Help:      "Scheduled update jobs by step and outcome.",
		}, []string{"job", "outcome"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Ingest events written to Kafka.",
		}),
	}

	prometheus.MustRegister(
		m.CollectorRuns,
		m.CollectorDuration,
		m.RowsAppended,
		m.ItemsSkipped,
		m.FetchAttempts,
		m.FetchBackoff,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.Predictions,
		m.PredictionDuration,
		m.SchedulerJobs,
		m.EventsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CollectorRuns:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "collector_runs_total"}, []string{"collector", "outcome"}),
		CollectorDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "collector_duration_seconds"}, []string{"collector"}),
		RowsAppended:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rows_appended_total"}, []string{"collector"}),
		ItemsSkipped:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "items_skipped_total"}, []string{"collector", "reason"}),
		FetchAttempts:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "fetch_attempts_total"}, []string{"outcome"}),
		FetchBackoff:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "fetch_backoff_seconds"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"layer", "result"}),
		Predictions:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "predictions_total"}, []string{"endpoint", "outcome"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "prediction_duration_seconds"}),
		SchedulerJobs:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "scheduler_jobs_total"}, []string{"job", "outcome"}),
		EventsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total"}),
	}
}
