package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCredentialResolved(t *testing.T) {
	before := testutil.ToFloat64(credentialResolutions.WithLabelValues("basic", ResultOK))
	CredentialResolved("basic", ResultOK)
	assert.Equal(t, before+1, testutil.ToFloat64(credentialResolutions.WithLabelValues("basic", ResultOK)))

	before = testutil.ToFloat64(credentialResolutions.WithLabelValues("unknown", ResultError))
	CredentialResolved("", ResultError)
	assert.Equal(t, before+1, testutil.ToFloat64(credentialResolutions.WithLabelValues("unknown", ResultError)))
}

func TestTokenRefreshed(t *testing.T) {
	before := testutil.ToFloat64(tokenRefreshes.WithLabelValues("oauth2:google", "revoked"))
	TokenRefreshed("OAuth2:Google", "revoked", time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(tokenRefreshes.WithLabelValues("oauth2:google", "revoked")))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418")))
}

func TestHandler(t *testing.T) {
	CredentialResolved("none", ResultOK)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailkeeper_credential_resolutions_total")
}
