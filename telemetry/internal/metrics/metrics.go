package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addin_telemetry_requests_total",
			Help: "Total number of telemetry proxy requests by outcome",
		},
		[]string{"outcome"},
	)

	EventsForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addin_telemetry_events_forwarded_total",
			Help: "Total number of events accepted by the collector",
		},
	)

	EventBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addin_telemetry_event_bytes_total",
			Help: "Total bytes of telemetry payload received",
		},
	)

	// Collector metrics
	ForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "addin_telemetry_forward_duration_seconds",
			Help:    "Duration of collector forwards in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CollectorResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addin_telemetry_collector_responses_total",
			Help: "Collector replies by HTTP status code",
		},
		[]string{"code"},
	)

	// Mirror metrics
	MirrorErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addin_telemetry_mirror_errors_total",
			Help: "Total number of failed mirror publishes",
		},
	)
)

// Outcome label values.
const (
	OutcomePreflight     = "preflight"
	OutcomeConfigError   = "config_error"
	OutcomeBadRequest    = "bad_request"
	OutcomeUpstreamError = "upstream_error"
	OutcomeSuccess       = "success"
)
