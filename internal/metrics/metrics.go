// Package metrics holds the Prometheus collectors of the tracker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts finished analysis runs by input source and outcome.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildbattle_analyses_total",
			Help: "Total number of analysis runs",
		},
		[]string{"source", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildbattle_analysis_duration_seconds",
			Help:    "Duration of analysis runs in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"source"},
	)

	PlayersParsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guildbattle_players_parsed",
			Help:    "Number of canonical players produced per analysis",
			Buckets: []float64{0, 5, 10, 20, 30, 40, 50, 75, 100},
		},
	)

	// ScreenshotsTotal counts screenshots by how their text was resolved:
	// parsed, fallback or empty.
	ScreenshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildbattle_screenshots_total",
			Help: "Total number of screenshots processed",
		},
		[]string{"method", "resolution"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildbattle_upstream_requests_total",
			Help: "Requests made to external services",
		},
		[]string{"service", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildbattle_upstream_request_duration_seconds",
			Help:    "Latency of requests to external services",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guildbattle_upstream_breaker_state",
			Help: "Circuit breaker state per external service (0 closed, 1 half-open, 2 open)",
		},
		[]string{"service"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildbattle_http_requests_total",
			Help: "HTTP requests served, by method and status code",
		},
		[]string{"method", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildbattle_http_request_duration_seconds",
			Help:    "Latency of served HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PanicsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guildbattle_http_panics_recovered_total",
			Help: "Handler panics turned into 500 responses",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildbattle_events_published_total",
			Help: "Analysis events published to the message bus",
		},
		[]string{"outcome"},
	)
)

func RecordAnalysis(source string, err error, players int, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AnalysesTotal.WithLabelValues(source, outcome).Inc()
	AnalysisDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err == nil {
		PlayersParsed.Observe(float64(players))
	}
}

func RecordUpstream(service, outcome string, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(service, outcome).Inc()
	UpstreamDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}
