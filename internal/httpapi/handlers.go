package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// AuthorizationService is the part of services.AccountService the HTTP
// endpoint needs.
type AuthorizationService interface {
	Identity(ctx context.Context, id int64) (*models.Identity, error)
	VerifyAuthorizeLink(identityID int64, kind models.Kind, token string) error
	AuthorizeURL(ctx context.Context, a *models.Account) (string, error)
	CompleteAuthorization(ctx context.Context, state, code string) (*models.Account, error)
}

type handlers struct {
	svc    AuthorizationService
	logger logging.Logger
}

// authorize redirects the browser to the provider consent page for one
// account: GET /oauth2/authorize?identity=<id>&kind=mailbox|smtp&link=<token>.
// The link token is issued by the admin command line.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	id, err := strconv.ParseInt(q.Get("identity"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "identity is required", http.StatusBadRequest)
		return
	}
	kind, err := models.ParseKind(q.Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.VerifyAuthorizeLink(id, kind, q.Get("link")); err != nil {
		h.logger.Warn(ctx, "Rejected authorization link", "identity", id, "kind", kind, "error", err)
		http.Error(w, "invalid or expired authorization link", http.StatusForbidden)
		return
	}

	identity, err := h.svc.Identity(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a := identity.Mailbox
	if kind == models.KindSMTP {
		a = identity.SMTP
	}
	if a == nil {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}

	url, err := h.svc.AuthorizeURL(ctx, a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info(ctx, "Authorization started", "account", a.ID, "auth_bk", a.AuthBk)
	http.Redirect(w, r, url, http.StatusFound)
}

// callback completes the authorization-code flow:
// GET /oauth2/callback?state=...&code=...
func (h *handlers) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		msg := "authorization denied: " + e
		if d := q.Get("error_description"); d != "" {
			msg += " (" + d + ")"
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		http.Error(w, "state and code are required", http.StatusBadRequest)
		return
	}

	a, err := h.svc.CompleteAuthorization(ctx, state, code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info(ctx, "Authorization completed", "account", a.ID, "auth_bk", a.AuthBk)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Authorization complete for %s (%s). You can close this window.\n", a.Address(), a.Kind)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := common.AsValidation(err); ok {
		http.Error(w, v.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, common.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrAuthentication):
		h.logger.Warn(r.Context(), "Authorization failed", "error", err)
		http.Error(w, "authorization with the provider failed", http.StatusBadGateway)
	default:
		h.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
