package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by flow (password|code|register|refresh) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightingale_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"flow", "result"},
	)

	// CodesIssued counts verification codes dispatched, labelled by purpose.
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightingale_codes_issued_total",
			Help: "Total number of verification codes issued",
		},
		[]string{"purpose"},
	)

	// CodeVerifications counts code verification outcomes (success|mismatch|expired|error).
	CodeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightingale_code_verifications_total",
			Help: "Total number of verification code checks",
		},
		[]string{"purpose", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nightingale_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
