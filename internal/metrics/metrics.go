package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_requests_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	// Authentication metrics
	authResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_resolutions_total",
			Help: "Total number of identity resolutions",
		},
		[]string{"mode", "outcome"}, // required/active/admin/optional, success/denied
	)

	// Quota metrics
	quotaDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_denied_total",
			Help: "Total number of anonymous searches denied by the quota guard",
		},
	)

	// Search metrics
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_searches_total",
			Help: "Total number of listing searches",
		},
		[]string{"identity_kind"}, // user or anonymous
	)

	// Rate limiting metrics
	rateLimitDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_dropped_total",
			Help: "Total number of requests dropped due to rate limiting",
		},
		[]string{"key_type"}, // user or ip
	)

	// Idempotency metrics
	idempotencyHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Total number of idempotency hits",
		},
		[]string{"type"}, // hit or miss
	)

	// DynamoDB metrics
	dynamoOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynamodb_operations_total",
			Help: "Total number of DynamoDB operations",
		},
		[]string{"table", "operation", "status"},
	)

	dynamoOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynamodb_operation_duration_seconds",
			Help:    "DynamoDB operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"table", "operation"},
	)
)

// Init registers all metrics with the default registry
func Init() error {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		authResolutionsTotal,
		quotaDeniedTotal,
		searchesTotal,
		rateLimitDroppedTotal,
		idempotencyHitsTotal,
		dynamoOperationsTotal,
		dynamoOperationDuration,
	)

	return nil
}

// HTTPMetricsMiddleware records HTTP metrics
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)

		return err
	}
}

// RecordAuthResolution records the outcome of an identity resolution
func RecordAuthResolution(mode, outcome string) {
	authResolutionsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordQuotaDenial records an anonymous search denied by the quota guard
func RecordQuotaDenial() {
	quotaDeniedTotal.Inc()
}

// RecordSearch records a listing search attributed to an identity kind
func RecordSearch(identityKind string) {
	searchesTotal.WithLabelValues(identityKind).Inc()
}

// RecordRateLimitDrop records rate limit drops
func RecordRateLimitDrop(keyType string) {
	rateLimitDroppedTotal.WithLabelValues(keyType).Inc()
}

// RecordIdempotencyHit records idempotency cache hits/misses
func RecordIdempotencyHit(hitType string) {
	idempotencyHitsTotal.WithLabelValues(hitType).Inc()
}

// RecordDynamoOperation records DynamoDB operations
func RecordDynamoOperation(table, operation, status string, duration time.Duration) {
	dynamoOperationsTotal.WithLabelValues(table, operation, status).Inc()
	dynamoOperationDuration.WithLabelValues(table, operation).Observe(duration.Seconds())
}

// PrometheusHandler returns the Prometheus metrics handler, bridged from
// net/http onto fasthttp.
func PrometheusHandler() fiber.Handler {
	promHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		promHandler(c.Context())
		return nil
	}
}
