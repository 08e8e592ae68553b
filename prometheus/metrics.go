package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Authentication error counter
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "configuration_error", ...
	)

	// Requests rejected for lacking an organization context
	TenantContextMissingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "practice_tenant_context_missing_total",
			Help: "Total number of requests rejected for missing organization context",
		},
	)

	// Tenant-scoped resource operations
	ResourceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_resource_operations_total",
			Help: "Total number of tenant-scoped resource operations",
		},
		[]string{"resource", "operation"},
	)

	// Sale operations by outcome
	SaleOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_sale_operations_total",
			Help: "Total number of sale operations",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "amount_mismatch", "error"
	)

	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "practice_login_total",
			Help: "Total number of login attempts",
		},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "practice_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "practice_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(TenantContextMissingCounter)
	prometheus.MustRegister(ResourceOperationCounter)
	prometheus.MustRegister(SaleOperationCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordResourceOperation records a tenant-scoped resource operation
func RecordResourceOperation(resource, operation string) {
	ResourceOperationCounter.With(prometheus.Labels{"resource": resource, "operation": operation}).Inc()
}

// RecordSaleOperation records a sale operation and its outcome
func RecordSaleOperation(operation, outcome string) {
	SaleOperationCounter.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}
