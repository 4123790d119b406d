package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest job.
type Metrics struct {
	ZoneIngests        *prometheus.CounterVec // labels: outcome={ok,no_advisory,error}
	ForecastsWritten   *prometheus.CounterVec // labels: result={inserted,updated}
	DateParseFallbacks prometheus.Counter
	FetchDuration      prometheus.Histogram
	IngestRunning      prometheus.Gauge
}

// NewMetrics creates and registers all ingest metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ZoneIngests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slope_ingest",
			Name:      "zone_ingests_total",
			Help:      "Zone ingestion attempts by outcome.",
		}, []string{"outcome"}),
		ForecastsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slope_ingest",
			Name:      "forecasts_written_total",
			Help:      "Canonical forecast upserts by result.",
		}, []string{"result"}),
		DateParseFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slope_ingest",
			Name:      "date_parse_fallbacks_total",
			Help:      "Advisories whose issue date was unparseable and fell back to today.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slope_ingest",
			Name:      "fetch_duration_seconds",
			Help:      "Provider fetch duration per zone, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slope_ingest",
			Name:      "running",
			Help:      "1 while an ingest run is active, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ZoneIngests,
		m.ForecastsWritten,
		m.DateParseFallbacks,
		m.FetchDuration,
		m.IngestRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ZoneIngests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "slope_ingest", Name: "zone_ingests_total"}, []string{"outcome"}),
		ForecastsWritten:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "slope_ingest", Name: "forecasts_written_total"}, []string{"result"}),
		DateParseFallbacks: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "slope_ingest", Name: "date_parse_fallbacks_total"}),
		FetchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "slope_ingest", Name: "fetch_duration_seconds"}),
		IngestRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "slope_ingest", Name: "running"}),
	}
}
