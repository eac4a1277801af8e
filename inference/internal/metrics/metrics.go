package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addin_inference_requests_total",
			Help: "Total number of inference proxy requests by outcome",
		},
		[]string{"outcome"},
	)

	// Upstream metrics
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "addin_inference_upstream_duration_seconds",
			Help:    "Duration of upstream model invocations in seconds, including draining the body",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"mode"},
	)

	UpstreamErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addin_inference_upstream_errors_total",
			Help: "Total number of failed upstream model invocations",
		},
	)
)

// Outcome label values.
const (
	OutcomePreflight          = "preflight"
	OutcomeMissingCredentials = "missing_credentials"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUpstreamError      = "upstream_error"
	OutcomeSuccess            = "success"
)
