// Package metrics holds the Prometheus collectors for the volunteer service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_cache_lookups_total",
			Help: "Cache lookups by cached view and result (hit, miss, error)",
		},
		[]string{"view", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_cache_invalidations_total",
			Help: "Cache invalidations triggered by volunteer writes, by result",
		},
		[]string{"result"},
	)

	// Rate limiting
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"action"},
	)

	RateLimitFailOpen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_fail_open_total",
			Help: "Rate-limit checks allowed because the counter store was unreachable",
		},
	)

	// Domain
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_registrations_total",
			Help: "Volunteer registrations by outcome",
		},
		[]string{"outcome"},
	)

	CaptchaVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captcha_verifications_total",
			Help: "Captcha verifications by result (passed, failed, skipped, error)",
		},
		[]string{"result"},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// RecordCacheLookup counts one cache read.
func RecordCacheLookup(view, result string) {
	CacheLookups.WithLabelValues(view, result).Inc()
}

// RecordHTTPRequest observes a completed request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
