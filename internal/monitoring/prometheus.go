// Package monitoring provides Prometheus self-metrics for PULSE-CORE.
//
// Available metrics:
//   - pulse_core_http_requests_total{method, endpoint, status_code}
//   - pulse_core_http_request_duration_seconds{method, endpoint}
//   - pulse_core_cache_operations_total{endpoint, result}
//   - pulse_core_backend_queries_total{backend, environment, status}
//   - pulse_core_backend_query_duration_seconds{backend, environment}
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_core_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_core_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_core_cache_operations_total",
			Help: "Endpoint cache lookups by result (hit, miss, bypass)",
		},
		[]string{"endpoint", "result"},
	)

	backendQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_core_backend_queries_total",
			Help: "Backend queries by status",
		},
		[]string{"backend", "environment", "status"},
	)

	backendQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_core_backend_query_duration_seconds",
			Help:    "Backend query latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "environment"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		cacheOperationsTotal,
		backendQueriesTotal,
		backendQueryDuration,
	)
}

// SetupPrometheusMetrics mounts the scrape endpoint.
func SetupPrometheusMetrics(router *gin.Engine, path string) {
	if path == "" {
		path = "/metrics"
	}
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware records request counts and latency per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RecordCacheOperation records one endpoint-cache lookup outcome.
func RecordCacheOperation(endpoint, result string) {
	cacheOperationsTotal.WithLabelValues(endpoint, result).Inc()
}

// RecordBackendQuery records one backend query with its outcome.
func RecordBackendQuery(backend, environment string, took time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	backendQueriesTotal.WithLabelValues(backend, environment, status).Inc()
	backendQueryDuration.WithLabelValues(backend, environment).Observe(took.Seconds())
}
