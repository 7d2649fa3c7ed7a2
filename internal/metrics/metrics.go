package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Proxy-path metrics. Outcome labels: success, provider_error,
// quota_exceeded.
var (
	ProxyCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_calls_total",
			Help: "Total proxied generation calls by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Wall-clock latency of generation provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	QuotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Calls rejected because the key's quota was exhausted.",
		},
	)

	LedgerWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_write_failures_total",
			Help: "Call ledger appends that failed and were swallowed.",
		},
	)
)
