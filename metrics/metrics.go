// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PromotionOutcomes counts promoted objects by outcome (skipped, promoted, recovered, fatal).
	PromotionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkblog_promotion_outcomes_total",
		Help: "Temp to permanent promotions by outcome",
	}, []string{"outcome"})

	// SweptObjects counts temp objects removed by a sweep, by sweep kind.
	SweptObjects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkblog_swept_objects_total",
		Help: "Temp objects deleted by sweeps",
	}, []string{"kind"})

	// SweepFailures counts sweeps whose deletion step failed.
	SweepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkblog_sweep_failures_total",
		Help: "Sweeps that failed to delete temp objects",
	}, []string{"kind"})

	// PublishTotal counts publish attempts by result.
	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkblog_publish_total",
		Help: "Post publish attempts by result",
	}, []string{"result"})

	// PublishDuration records the end to end publish latency.
	PublishDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inkblog_publish_duration_seconds",
		Help:    "Time spent publishing a post including media promotion",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequests counts handled HTTP requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkblog_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPLatency records HTTP handler latency.
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkblog_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObservePublish records one publish attempt.
func ObservePublish(result string, start time.Time) {
	PublishTotal.WithLabelValues(result).Inc()
	PublishDuration.Observe(time.Since(start).Seconds())
}

// GinMiddleware records request counts and latency keyed by the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
