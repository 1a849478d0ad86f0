// Package resolver is the credential broker. It turns an account and a
// backend identifier into a decrypted credential, refreshing expired OAuth2
// tokens on request, and persists new credential material.
//
// Absent credentials are reported as (nil, nil). Errors are reserved for
// infrastructure failures and configuration-format violations such as an
// unknown scheme (common.ErrUnknownCredentialType). Token refresh failures
// never surface as errors: they are recorded through the ActivityLogger and
// the credential is reported absent.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/configstore"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/metrics"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// Stored field names.
const (
	FieldUsername           = "username"
	FieldPassword           = "passwd"
	FieldAccessToken        = "access_token"
	FieldRefreshToken       = "refresh_token"
	FieldResourceOwnerEmail = "resource_owner_email"
	FieldConfigSignature    = "config_signature"
	FieldExpires            = "expires"
)

// ActivityLogger records the outcome of a fetch, send or refresh attempt.
// A nil errMsg means success.
type ActivityLogger interface {
	LogActivity(ctx context.Context, account *models.Account, errMsg *string) error
}

// AccountWriter persists an account after its backend selection changed.
type AccountWriter interface {
	SaveAccount(ctx context.Context, account *models.Account) error
}

type Resolver struct {
	store          configstore.Store
	codec          *cryptox.Codec
	registry       *backends.Registry
	logger         logging.Logger
	refreshTimeout time.Duration

	activity ActivityLogger
	accounts AccountWriter

	now func() time.Time
}

func New(store configstore.Store, codec *cryptox.Codec, registry *backends.Registry, logger logging.Logger, refreshTimeout time.Duration) *Resolver {
	return &Resolver{
		store:          store,
		codec:          codec,
		registry:       registry,
		logger:         logger,
		refreshTimeout: refreshTimeout,
		now:            time.Now,
	}
}

// Bind attaches the activity log and the account writer. Both are usually
// the account service, which itself depends on the resolver.
func (r *Resolver) Bind(activity ActivityLogger, accounts AccountWriter) {
	r.activity = activity
	r.accounts = accounts
}

// Registry returns the backend registry the resolver dispatches to.
func (r *Resolver) Registry() *backends.Registry {
	return r.registry
}

// effectiveAuthBk applies the scheme-prefix guard. It returns "" when authBk
// cannot be resolved for a.
func effectiveAuthBk(a *models.Account, authBk string) string {
	switch {
	case authBk == "":
		return a.AuthBk
	case strings.EqualFold(authBk, string(authbk.None)):
		return string(authbk.None)
	case a.AuthBk != "" && authbk.Matches(authBk, a.AuthBk):
		return a.AuthBk
	default:
		return ""
	}
}

// Credentials resolves the credential of a for authBk (the account's own
// backend when empty). A non-empty authBk that the configured backend does
// not start with, other than "none", yields absent. With refresh set, the
// cache is bypassed and an expired OAuth2 token is refreshed.
func (r *Resolver) Credentials(ctx context.Context, scope *Scope, a *models.Account, authBk string, refresh bool) (credentials.Credential, error) {
	effective := effectiveAuthBk(a, authBk)
	if effective == "" {
		return nil, nil
	}

	if !refresh {
		if c, ok := scope.get(a, effective); ok {
			return c, nil
		}
	}

	cred, err := r.resolve(ctx, scope, a, effective, refresh)
	scheme := string(authbk.SchemeOf(effective))
	switch {
	case err != nil:
		metrics.CredentialResolved(scheme, metrics.ResultError)
		return nil, err
	case cred == nil:
		metrics.CredentialResolved(scheme, metrics.ResultAbsent)
	default:
		metrics.CredentialResolved(scheme, metrics.ResultOK)
	}

	scope.put(a, effective, cred)
	return cred, nil
}

// FreshCredentials is Credentials with refresh set.
func (r *Resolver) FreshCredentials(ctx context.Context, scope *Scope, a *models.Account, authBk string) (credentials.Credential, error) {
	return r.Credentials(ctx, scope, a, authBk, true)
}

func (r *Resolver) resolve(ctx context.Context, scope *Scope, a *models.Account, authBk string, refresh bool) (credentials.Credential, error) {
	scheme, err := authbk.Parse(authBk)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case authbk.Mailbox:
		if a.Identity == nil || a.Identity.Mailbox == nil || a.Identity.Mailbox == a {
			return nil, nil
		}
		return r.Credentials(ctx, scope, a.Identity.Mailbox, "", refresh)
	case authbk.None:
		return credentials.NoAuth{Username: a.Address()}, nil
	case authbk.Basic:
		return r.basic(ctx, a)
	case authbk.OAuth2:
		return r.oauth2(ctx, scope, a, authBk, refresh)
	}
	return nil, fmt.Errorf("%w: %q", common.ErrUnknownCredentialType, authBk)
}

func (r *Resolver) basic(ctx context.Context, a *models.Account) (credentials.Credential, error) {
	ns := a.Namespace()
	values, err := r.store.GetAll(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	username, stored := values[FieldUsername], values[FieldPassword]
	if username == "" || stored == "" {
		return nil, nil
	}

	password, err := r.codec.Decrypt(stored, cryptox.ContextKey(ns, username))
	if err != nil {
		r.logger.Warn(ctx, "stored password does not decrypt", "account", a.ID, "kind", a.Kind)
		return nil, nil
	}
	return credentials.BasicAuth{Username: username, Password: password}, nil
}

func (r *Resolver) readOAuth2(ctx context.Context, a *models.Account) (*credentials.OAuth2Auth, error) {
	ns := a.Namespace()
	values, err := r.store.GetAll(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	storedAccess := values[FieldAccessToken]
	if storedAccess == "" {
		return nil, nil
	}
	owner := values[FieldResourceOwnerEmail]
	ctxKey := cryptox.ContextKey(ns, owner)

	access, err := r.codec.Decrypt(storedAccess, ctxKey)
	if err != nil {
		r.logger.Warn(ctx, "stored access token does not decrypt", "account", a.ID, "kind", a.Kind)
		return nil, nil
	}
	var refresh string
	if stored := values[FieldRefreshToken]; stored != "" {
		if refresh, err = r.codec.Decrypt(stored, ctxKey); err != nil {
			r.logger.Warn(ctx, "stored refresh token does not decrypt", "account", a.ID, "kind", a.Kind)
			return nil, nil
		}
	}

	cred := &credentials.OAuth2Auth{
		AccessToken:     access,
		RefreshToken:    refresh,
		ResourceOwner:   owner,
		ConfigSignature: values[FieldConfigSignature],
	}
	if exp := values[FieldExpires]; exp != "" {
		if t, err := time.Parse(time.RFC3339, exp); err == nil {
			cred.Expiry = t
		}
	}
	return cred, nil
}

func (r *Resolver) oauth2(ctx context.Context, scope *Scope, a *models.Account, authBk string, refresh bool) (credentials.Credential, error) {
	cred, err := r.readOAuth2(ctx, a)
	if err != nil || cred == nil {
		return nil, err
	}
	if refresh && cred.IsExpired(r.now()) {
		return r.refresh(ctx, scope, a, authBk, *cred)
	}
	return *cred, nil
}

func (r *Resolver) refresh(ctx context.Context, scope *Scope, a *models.Account, authBk string, cred credentials.OAuth2Auth) (credentials.Credential, error) {
	provider, err := r.registry.OAuth2(authBk)
	if err != nil {
		return nil, err
	}

	log := r.logger.With("account", a.ID, "kind", a.Kind, "auth_bk", authBk)
	start := time.Now()

	info, err := r.callRefresh(ctx, provider, cred.RefreshToken, a.BkID())
	if err != nil {
		rerr := backends.NewRefreshError(err)
		metrics.TokenRefreshed(authBk, string(rerr.Reason), start)
		log.Warn(ctx, "token refresh failed", "reason", rerr.Reason, "error", rerr.Err)
		r.recordFailure(ctx, a, rerr.Error())
		return nil, nil
	}
	metrics.TokenRefreshed(authBk, metrics.ResultOK, start)

	vars := credentials.Vars{
		AccessToken:        info.AccessToken,
		RefreshToken:       info.RefreshToken,
		ResourceOwnerEmail: cred.ResourceOwner,
		Expiry:             info.Expiry,
	}
	if vars.RefreshToken == "" {
		vars.RefreshToken = cred.RefreshToken
	}

	if err := r.UpdateCredentials(ctx, scope, a, authBk, vars); err != nil {
		log.Error(ctx, "storing refreshed token failed", "error", err)
		r.recordFailure(ctx, a, "storing refreshed token failed: "+err.Error())
		return nil, nil
	}
	log.Info(ctx, "token refreshed", "expires", info.Expiry)

	return r.Credentials(ctx, scope, a, authBk, false)
}

// callRefresh bounds the backend call by the refresh timeout and converts a
// panicking backend into an error.
func (r *Resolver) callRefresh(ctx context.Context, p backends.OAuth2Provider, refreshToken, ref string) (info *credentials.TokenInfo, err error) {
	if r.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.refreshTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			info, err = nil, fmt.Errorf("refresh panicked: %v", p)
		}
	}()

	info, err = p.RefreshToken(ctx, refreshToken, ref)
	if err == nil && (info == nil || info.AccessToken == "") {
		err = fmt.Errorf("provider returned no access token")
	}
	return info, err
}

func (r *Resolver) recordFailure(ctx context.Context, a *models.Account, msg string) {
	if r.activity == nil {
		return
	}
	if err := r.activity.LogActivity(ctx, a, &msg); err != nil {
		r.logger.Error(ctx, "recording account activity failed", "account", a.ID, "error", err)
	}
}
