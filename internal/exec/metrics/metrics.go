package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks operation attempts per resource
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbexec_attempts_total",
			Help: "Total number of operation attempts",
		},
		[]string{"operation", "resource"},
	)

	// RetriesTotal tracks retries per resource
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbexec_retries_total",
			Help: "Total number of retries after transient failures",
		},
		[]string{"operation", "resource"},
	)

	// OutcomesTotal tracks terminal outcomes per resource
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbexec_outcomes_total",
			Help: "Total number of terminal outcomes",
		},
		[]string{"operation", "resource", "result"},
	)

	// BackoffSeconds tracks backoff delay before retries
	BackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dbexec_backoff_seconds",
			Help:    "Backoff delay before retries in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// ProbeFailuresTotal tracks failed liveness probes per resource
	ProbeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbexec_probe_failures_total",
			Help: "Total number of failed handle liveness probes",
		},
		[]string{"resource"},
	)

	// PoolUsage tracks connection pool usage percentage per resource
	PoolUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dbexec_pool_usage_percent",
			Help: "Connection pool usage percentage",
		},
		[]string{"resource"},
	)
)

// OutcomeLabel maps a terminal outcome to the metrics result label.
func OutcomeLabel(success, transient bool) string {
	switch {
	case success:
		return "success"
	case transient:
		return "transient_failure"
	default:
		return "permanent_failure"
	}
}
