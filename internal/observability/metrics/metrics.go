package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workforce_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workforce_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	hireDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workforce_hire_duration_seconds",
		Help:    "Duration of contract creation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workforce_status_transitions_total",
		Help: "Count of employment status transitions by target status and result",
	}, []string{"status", "result"})

	capacityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workforce_capacity_rejections_total",
		Help: "Count of operations rejected because a position had no open seats",
	}, []string{"operation"})

	activeHeadcount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workforce_active_headcount",
		Help: "Number of contracts currently in an active-like status",
	})

	dashboardCacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workforce_dashboard_cache_total",
		Help: "Dashboard cache lookups by outcome",
	}, []string{"outcome"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveHire records the duration of a contract creation attempt with a result label.
func ObserveHire(result string, duration time.Duration) {
	hireDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveTransition increments the transition counter for the given target status.
func ObserveTransition(status, result string) {
	statusTransitions.WithLabelValues(status, result).Inc()
}

// ObserveCapacityRejection counts a capacity rejection for the named operation.
func ObserveCapacityRejection(operation string) {
	capacityRejections.WithLabelValues(operation).Inc()
}

// IncrementHeadcount increments the active headcount gauge.
func IncrementHeadcount() {
	activeHeadcount.Inc()
}

// DecrementHeadcount decrements the active headcount gauge.
func DecrementHeadcount() {
	activeHeadcount.Dec()
}

// SetHeadcount sets the active headcount gauge to a specific count.
func SetHeadcount(count int) {
	if count < 0 {
		count = 0
	}
	activeHeadcount.Set(float64(count))
}

// ObserveDashboardCache records a dashboard cache lookup outcome (hit, miss, bypass).
func ObserveDashboardCache(outcome string) {
	dashboardCacheOps.WithLabelValues(outcome).Inc()
}
