package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/quicksand"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	qsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	qsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qs_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	qsScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_scans_total",
		Help: "Total engine invocations by outcome.",
	}, []string{"outcome"})

	qsScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qs_scan_duration_seconds",
		Help:    "Engine analysis duration in seconds.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	qsVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_verdicts_total",
		Help: "Total normalized verdicts by risk tier.",
	}, []string{"risk"})

	qsReadinessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_readiness_checks_total",
		Help: "Total engine readiness probes by result.",
	}, []string{"result"})
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
		method := c.Request.Method

		qsRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		qsRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordScan records one engine invocation. It matches engine.MetricsRecordFunc.
func RecordScan(outcome string, d time.Duration) {
	qsScansTotal.WithLabelValues(outcome).Inc()
	qsScanDuration.Observe(d.Seconds())
}

// RecordVerdict counts a normalized verdict. Engine-supplied labels outside
// the known tiers are folded into "other" to bound label cardinality.
func RecordVerdict(risk string) {
	switch quicksand.RiskTier(risk) {
	case quicksand.RiskHigh, quicksand.RiskMedium, quicksand.RiskLow, quicksand.RiskNone:
	default:
		risk = "other"
	}
	qsVerdictsTotal.WithLabelValues(risk).Inc()
}

// RecordHealthCheck records an engine readiness probe result.
func RecordHealthCheck(success bool) {
	if success {
		qsReadinessChecksTotal.WithLabelValues("success").Inc()
	} else {
		qsReadinessChecksTotal.WithLabelValues("failure").Inc()
	}
}
