package prometheus

import (
	"net/http"
	"time"

	"github.com/opticshop/optics/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every optics collector. Metrics are created unregistered so
// tests can use them without InitMetrics.
var Registry = prometheus.NewRegistry()

var (
	// HTTP request metrics
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// StatusCodeCategoryCounter counts responses by 2xx, 4xx, 5xx
	StatusCodeCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category", "method", "path"},
	)

	RateLimitedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Authentication metrics
	AuthAttemptsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_errors_total",
			Help: "Total number of authentication errors by type",
		},
		[]string{"error_type"},
	)

	// Tenant context metrics
	TenantContextMissingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_context_missing_total",
			Help: "Total number of requests without tenant context",
		},
	)

	// Database operation metrics
	DbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// EntityOperationsCounter counts handler operations per entity
	EntityOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_operations_total",
			Help: "Total number of operations per entity",
		},
		[]string{"entity", "operation"},
	)

	// Checkout metrics
	CheckoutsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Total number of checkouts by outcome",
		},
		[]string{"outcome"},
	)

	InventoryDecrementFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_decrement_failures_total",
			Help: "Total number of inventory decrements that failed after an order was saved",
		},
	)

	MailsSentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mails_sent_total",
			Help: "Total number of outgoing emails by result",
		},
		[]string{"template", "result"},
	)
)

// InitMetrics registers the collectors under the configured prefix
func InitMetrics(cfg *config.Config) {
	Registry = prometheus.NewRegistry()
	reg := prometheus.WrapRegistererWithPrefix(cfg.Metrics.Prefix+"_", Registry)

	reg.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		StatusCodeCategoryCounter,
		RateLimitedCounter,
		AuthAttemptsCounter,
		AuthSuccessCounter,
		AuthErrorsCounter,
		TenantContextMissingCounter,
		DbOperationDuration,
		EntityOperationsCounter,
		CheckoutsCounter,
		InventoryDecrementFailures,
		MailsSentCounter,
	)
	Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordOperation increments the counter for an entity operation
func RecordOperation(entity, operation string) {
	EntityOperationsCounter.WithLabelValues(entity, operation).Inc()
}

// RecordAuthError increments the auth error counter for the error type
func RecordAuthError(errorType string) {
	AuthErrorsCounter.WithLabelValues(errorType).Inc()
}

// RecordStatus increments the status category counter
func RecordStatus(status int, method, path string) {
	var category string
	switch {
	case status >= 200 && status < 300:
		category = "2xx"
	case status >= 400 && status < 500:
		category = "4xx"
	case status >= 500 && status < 600:
		category = "5xx"
	default:
		return
	}
	StatusCodeCategoryCounter.WithLabelValues(category, method, path).Inc()
}
