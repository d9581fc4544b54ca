// Package metrics defines the Prometheus collectors for Unify. Collectors
// are registered on the default registry at init and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayRequests counts gateway operations by outcome. The outcome is
	// "success" or the error kind the backend failure was mapped to.
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unify_gateway_requests_total",
			Help: "Gateway operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// ValidationRejections counts submissions blocked by local validation
	// before the gateway was called.
	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unify_validation_rejections_total",
			Help: "Form submissions rejected by local validation",
		},
		[]string{"form", "field"},
	)

	Panics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unify_handler_panics_total",
			Help: "Handler panics caught by the recovery middleware",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unify_http_requests_total",
			Help: "HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unify_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
