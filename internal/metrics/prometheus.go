// Package metrics provides Prometheus metrics collection for the gateway.
// It tracks provider call counts, latencies, costs, and cache activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "queryplex"

// LatencyBuckets defines histogram buckets for provider latency (seconds).
var LatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 15.0, 30.0, 45.0, 60.0,
}

var (
	// ProviderRequests counts provider invocations by outcome.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider invocations",
		},
		[]string{"provider", "request_type", "outcome"},
	)

	// ProviderLatency tracks provider call latency.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider", "request_type"},
	)

	// ProviderCost accumulates provider spend in USD.
	ProviderCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cost_usd_total",
			Help:      "Cumulative provider cost in USD",
		},
		[]string{"provider", "request_type"},
	)

	// CacheHits counts response cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total response cache hits",
		},
	)

	// CacheMisses counts response cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total response cache misses",
		},
	)

	// RequestsHandled counts top-level handled requests by status.
	RequestsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_handled_total",
			Help:      "Total handled requests",
		},
		[]string{"request_type", "status"},
	)
)

// RecordCall records one provider call outcome across all collectors.
func RecordCall(provider, requestType string, success bool, latencySeconds, cost float64) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	ProviderRequests.WithLabelValues(provider, requestType, outcome).Inc()
	ProviderLatency.WithLabelValues(provider, requestType).Observe(latencySeconds)
	if cost > 0 {
		ProviderCost.WithLabelValues(provider, requestType).Add(cost)
	}
}
