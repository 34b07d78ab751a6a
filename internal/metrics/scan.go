package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan pipeline Prometheus metrics.
var (
	WorkItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldeater",
			Name:      "work_items_total",
			Help:      "Total number of executed work items",
		},
		[]string{"platform", "status"}, // "ok" / "failed"
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "goldeater",
			Name:      "provider_request_duration_seconds",
			Help:      "AI provider request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"platform"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldeater",
			Name:      "provider_tokens_total",
			Help:      "Total tokens reported by AI providers",
		},
		[]string{"platform"},
	)

	MalformedResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldeater",
			Name:      "malformed_responses_total",
			Help:      "Provider responses that could not be parsed into recommendations",
		},
		[]string{"platform"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldeater",
			Name:      "resolutions_total",
			Help:      "Business name resolutions by outcome",
		},
		[]string{"outcome"}, // "resolved" / "not_found" / "error"
	)

	PlacesCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldeater",
			Name:      "places_cache_total",
			Help:      "Places resolution cache hits and misses",
		},
		[]string{"result"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldeater",
			Name:      "runs_total",
			Help:      "Total number of scan runs by final status",
		},
		[]string{"status"},
	)
)

var registerScanOnce sync.Once

// RegisterScanMetrics registers the scan pipeline metrics with the default registry.
func RegisterScanMetrics() {
	registerScanOnce.Do(func() {
		prometheus.MustRegister(
			WorkItemsTotal,
			ProviderRequestDuration,
			ProviderTokensTotal,
			MalformedResponsesTotal,
			ResolutionsTotal,
			PlacesCacheTotal,
			RunsTotal,
		)
	})
}
