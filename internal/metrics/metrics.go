// Package metrics defines the Prometheus collectors of mailkeeper and the
// HTTP instrumentation middleware.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution results.
const (
	ResultOK     = "ok"
	ResultAbsent = "absent"
	ResultError  = "error"
)

var (
	credentialResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailkeeper_credential_resolutions_total",
		Help: "Credential resolutions by scheme and result.",
	}, []string{"scheme", "result"})

	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailkeeper_token_refresh_total",
		Help: "OAuth2 token refresh attempts by backend and result (ok or a failure reason).",
	}, []string{"backend", "result"})

	tokenRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailkeeper_token_refresh_duration_seconds",
		Help:    "Latency of OAuth2 token refresh calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailkeeper_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailkeeper_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func CredentialResolved(scheme, result string) {
	if scheme == "" {
		scheme = "unknown"
	}
	credentialResolutions.WithLabelValues(scheme, result).Inc()
}

// TokenRefreshed records one refresh attempt that started at start.
func TokenRefreshed(backend, result string, start time.Time) {
	backend = strings.ToLower(backend)
	tokenRefreshes.WithLabelValues(backend, result).Inc()
	tokenRefreshDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

// Middleware records request counts and latencies per chi route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
