package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	identities   map[int64]*models.Identity
	authorizeErr error
	completeErr  error
	gotState     string
	gotCode      string
}

func newFakeService() *fakeService {
	identity := &models.Identity{ID: 1, Email: "alice@example.com"}
	mb := models.NewAccount(1, models.KindMailbox)
	mb.ID = 10
	mb.AuthBk = "oauth2:google"
	identity.Attach(mb)
	return &fakeService{identities: map[int64]*models.Identity{1: identity}}
}

func (f *fakeService) Identity(ctx context.Context, id int64) (*models.Identity, error) {
	identity, ok := f.identities[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return identity, nil
}

const signedLink = "signed"

func (f *fakeService) VerifyAuthorizeLink(identityID int64, kind models.Kind, token string) error {
	if token != signedLink {
		return common.ErrInvalidLink
	}
	return nil
}

func (f *fakeService) AuthorizeURL(ctx context.Context, a *models.Account) (string, error) {
	if f.authorizeErr != nil {
		return "", f.authorizeErr
	}
	return fmt.Sprintf("https://provider.example/auth?account=%d", a.ID), nil
}

func (f *fakeService) CompleteAuthorization(ctx context.Context, state, code string) (*models.Account, error) {
	f.gotState, f.gotCode = state, code
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.identities[1].Mailbox, nil
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAuthorize_Redirects(t *testing.T) {
	h := NewRouter(newFakeService(), logging.Nop())

	rec := get(t, h, "/oauth2/authorize?identity=1&kind=mailbox&link=signed")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://provider.example/auth?account=10", rec.Header().Get("Location"))
}

func TestAuthorize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"missing identity", "/oauth2/authorize?kind=mailbox&link=signed", nil, http.StatusBadRequest},
		{"bad kind", "/oauth2/authorize?identity=1&kind=pop", nil, http.StatusBadRequest},
		{"unknown identity", "/oauth2/authorize?identity=2&kind=mailbox&link=signed", nil, http.StatusNotFound},
		{"no smtp account", "/oauth2/authorize?identity=1&kind=smtp&link=signed", nil, http.StatusNotFound},
		{"not oauth", "/oauth2/authorize?identity=1&kind=mailbox&link=signed", common.ValidationErrors{"auth_bk": "not configured for OAuth2"}, http.StatusBadRequest},
		{"missing link", "/oauth2/authorize?identity=1&kind=mailbox", nil, http.StatusForbidden},
		{"forged link", "/oauth2/authorize?identity=1&kind=mailbox&link=forged", nil, http.StatusForbidden},
		{"internal", "/oauth2/authorize?identity=1&kind=mailbox&link=signed", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.authorizeErr = tt.err
			rec := get(t, NewRouter(svc, logging.Nop()), tt.target)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCallback_Success(t *testing.T) {
	svc := newFakeService()
	h := NewRouter(svc, logging.Nop())

	rec := get(t, h, "/oauth2/callback?state=st&code=c0de")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	assert.Equal(t, "st", svc.gotState)
	assert.Equal(t, "c0de", svc.gotCode)
}

func TestCallback_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		err      error
		want     int
		contains string
	}{
		{"provider denied", "/oauth2/callback?error=access_denied&error_description=user+said+no", nil, http.StatusBadRequest, "access_denied (user said no)"},
		{"missing code", "/oauth2/callback?state=st", nil, http.StatusBadRequest, "required"},
		{"invalid state", "/oauth2/callback?state=st&code=c", fmt.Errorf("%w: expired", common.ErrInvalidState), http.StatusBadRequest, "expired"},
		{"exchange failed", "/oauth2/callback?state=st&code=c", fmt.Errorf("%w: invalid_grant", common.ErrAuthentication), http.StatusBadGateway, "provider failed"},
		{"validation", "/oauth2/callback?state=st&code=c", common.ValidationErrors{"resource_owner_email": "mismatch"}, http.StatusBadRequest, "resource_owner_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.completeErr = tt.err
			rec := get(t, NewRouter(svc, logging.Nop()), tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewRouter(newFakeService(), logging.Nop())

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	get(t, h, "/oauth2/authorize?identity=1&kind=mailbox&link=signed")
	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/oauth2/authorize")
}

func TestRouter_RateLimitsOAuthRoutes(t *testing.T) {
	h := NewRouter(newFakeService(), logging.Nop())

	codes := map[int]int{}
	for i := 0; i < 30; i++ {
		codes[get(t, h, "/oauth2/authorize?identity=1&kind=mailbox&link=signed").Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests])

	// probes are not limited
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}
