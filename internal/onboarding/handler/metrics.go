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
	importStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onboarding_import_starts_total",
		Help: "Authorization redirects issued for external profile import.",
	})

	importOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_import_outcomes_total",
		Help: "Completed import callbacks by outcome (connected or error code).",
	}, []string{"outcome"})

	extendedProfileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_extended_profile_total",
		Help: "Extended profile fetches by result (available or the reason it was not).",
	}, []string{"result"})

	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "onboarding_dependency_up",
		Help: "Whether the last probe of a dependency succeeded (1) or failed (0).",
	}, []string{"dependency"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "onboarding_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func recordOutcome(outcome string) {
	importOutcomesTotal.WithLabelValues(outcome).Inc()
}

func recordExtended(available bool, reason string) {
	if available {
		extendedProfileTotal.WithLabelValues("available").Inc()
		return
	}
	extendedProfileTotal.WithLabelValues(reason).Inc()
}

// RecordDependency sets the up gauge for a probed dependency.
func RecordDependency(dependency string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	dependencyUp.WithLabelValues(dependency).Set(v)
}
