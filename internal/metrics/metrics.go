package metrics

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
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	enrollmentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_transitions_total",
			Help: "Enrollment state transitions by trigger and outcome",
		},
		[]string{"source", "outcome"},
	)

	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Gateway webhook deliveries by result",
		},
		[]string{"result"},
	)

	gatewayOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_orders_total",
			Help: "Gateway order creation calls by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(enrollmentTransitionsTotal)
	prometheus.MustRegister(webhookDeliveriesTotal)
	prometheus.MustRegister(gatewayOrdersTotal)
}

// Transition outcomes.
const (
	OutcomePaid     = "paid"
	OutcomeNoop     = "noop"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordTransition(source, outcome string) {
	enrollmentTransitionsTotal.WithLabelValues(source, outcome).Inc()
}

func RecordWebhook(result string) {
	webhookDeliveriesTotal.WithLabelValues(result).Inc()
}

func RecordGatewayOrder(result string) {
	gatewayOrdersTotal.WithLabelValues(result).Inc()
}
