package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"schema-registry/internal/model"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpRequestSize     *prometheus.HistogramVec
	HttpResponseSize    *prometheus.HistogramVec

	// Policy validation metrics
	ValidationsTotal      *prometheus.CounterVec
	PolicyViolationsTotal *prometheus.CounterVec

	// Registry lifecycle metrics
	RegistryOperationsTotal *prometheus.CounterVec

	// Audit trail metrics
	AuditWriteFailuresTotal *prometheus.CounterVec
}

var (
	metrics *PrometheusMetrics
)

// InitMetrics initializes all Prometheus metrics
func InitMetrics() {
	metrics = &PrometheusMetrics{
		// HTTP request metrics
		HttpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schema_registry_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HttpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schema_registry_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HttpRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schema_registry_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),
		HttpResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schema_registry_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		// Policy validation metrics
		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schema_registry_validations_total",
				Help: "Total number of policy validation runs",
			},
			[]string{"outcome"},
		),
		PolicyViolationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schema_registry_policy_violations_total",
				Help: "Total number of policy violations reported",
			},
			[]string{"rule", "severity"},
		),

		// Registry lifecycle metrics
		RegistryOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schema_registry_operations_total",
				Help: "Total number of registry operations",
			},
			[]string{"operation", "status"},
		),

		// Audit trail metrics
		AuditWriteFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schema_registry_audit_write_failures_total",
				Help: "Total number of failed audit trail writes",
			},
			[]string{"action"},
		),
	}
}

// GetMetrics returns the initialized metrics
func GetMetrics() *PrometheusMetrics {
	return metrics
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		// Start timer
		start := time.Now()

		// Process request
		c.Next()

		// Calculate metrics
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()

		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		// Record metrics
		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)

		// Record request size if available
		if c.Request.ContentLength > 0 {
			metrics.HttpRequestSize.WithLabelValues(method, endpoint).Observe(float64(c.Request.ContentLength))
		}

		// Record response size if available
		if c.Writer.Size() > 0 {
			metrics.HttpResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// RecordValidation records one validation run and its reported violations
func RecordValidation(outcome string, violations []model.Violation) {
	if metrics == nil {
		return
	}

	metrics.ValidationsTotal.WithLabelValues(outcome).Inc()
	for _, v := range violations {
		metrics.PolicyViolationsTotal.WithLabelValues(v.Rule, string(v.Severity)).Inc()
	}
}

// RecordRegistryOperation records a registry lifecycle operation outcome
func RecordRegistryOperation(operation, status string) {
	if metrics == nil {
		return
	}

	metrics.RegistryOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordAuditWriteFailure records a failed audit trail write
func RecordAuditWriteFailure(action string) {
	if metrics == nil {
		return
	}

	metrics.AuditWriteFailuresTotal.WithLabelValues(action).Inc()
}
