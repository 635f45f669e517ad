// Package metrics exposes Prometheus collectors for the OpenID Connect
// middleware: request counts and latency per endpoint, grant outcomes,
// and continuation/code cache hit rates.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_requests_total",
			Help: "Total requests handled per endpoint and status code.",
		},
		[]string{"endpoint", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oidc_request_duration_seconds",
			Help:    "Request latency per endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	grantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_grants_total",
			Help: "Token grants issued or rejected per grant_type.",
		},
		[]string{"grant_type", "outcome"},
	)

	cacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_cache_operations_total",
			Help: "Continuation and authorization code cache operations.",
		},
		[]string{"cache", "result"},
	)
)

// Middleware wraps next, recording per-endpoint request counts and
// latency. label should be a stable endpoint name (e.g. "authorize",
// "token"), not the raw URL path, to keep cardinality bounded.
func Middleware(label string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		requestsTotal.WithLabelValues(label, r.Method, strconv.Itoa(sw.status)).Inc()
		requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	})
}

// RecordGrant records the outcome of a token grant attempt.
func RecordGrant(grantType, outcome string) {
	grantsTotal.WithLabelValues(grantType, outcome).Inc()
}

// RecordCacheOp records a continuation or authorization-code cache
// operation. cache is "continuation" or "code"; result is "hit", "miss"
// or "store".
func RecordCacheOp(cache, result string) {
	cacheOpsTotal.WithLabelValues(cache, result).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
