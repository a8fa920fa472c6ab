package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkaday_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkaday_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkaday_logins_total",
		Help: "OAuth callbacks by outcome.",
	}, []string{"outcome"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkaday_webhook_events_total",
		Help: "Payment webhook notifications by outcome.",
	}, []string{"outcome"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkaday_exports_total",
		Help: "Profile exports by result.",
	}, []string{"result"})

	healthProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkaday_health_probes_total",
		Help: "Dependency health probes by component and result.",
	}, []string{"component", "result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLogin records the terminal state of an OAuth callback.
func RecordLogin(outcome string) {
	loginsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhookEvent records how a payment notification was handled.
func RecordWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordExport records a profile export attempt.
func RecordExport(success bool) {
	if success {
		exportsTotal.WithLabelValues("success").Inc()
	} else {
		exportsTotal.WithLabelValues("failure").Inc()
	}
}

// RecordHealthProbe records a dependency probe result.
func RecordHealthProbe(component string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	healthProbesTotal.WithLabelValues(component, result).Inc()
}
