// Package httpapi serves the OAuth2 redirect endpoints together with the
// health and metrics probes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/metrics"
)

// NewRouter wires the HTTP routes.
func NewRouter(svc AuthorizationService, logger logging.Logger) http.Handler {
	h := &handlers{svc: svc, logger: logger.With("module", "http")}

	// 5 requests per second, burst of 10
	limiter := NewIPRateLimiter(rate.Limit(5), 10, 5*time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/oauth2", func(r chi.Router) {
		r.Use(limiter.Middleware())
		r.Get("/authorize", h.authorize)
		r.Get("/callback", h.callback)
	})

	return r
}
