package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// UpdateCredentials validates vars for authBk and replaces the stored
// credential fields of a in one write. Validation failures are returned as
// common.ValidationErrors and leave everything untouched.
func (r *Resolver) UpdateCredentials(ctx context.Context, scope *Scope, a *models.Account, authBk string, vars credentials.Vars) error {
	errs := common.ValidationErrors{}

	scheme, err := authbk.Parse(authBk)
	if err != nil {
		errs.Add("auth_bk", "unknown authentication type")
		return errs.Err()
	}
	if err := r.registry.Validate(authBk, a.Kind == models.KindSMTP); err != nil {
		errs.Add("auth_bk", "unsupported authentication backend")
		return errs.Err()
	}

	var values map[string]string
	switch scheme {
	case authbk.Basic:
		values, err = r.basicValues(ctx, a, vars, errs)
	case authbk.OAuth2:
		values, err = r.oauth2Values(ctx, a, vars, errs)
	default:
		errs.Add("auth_bk", "credentials cannot be stored for this authentication type")
	}
	if err != nil {
		return err
	}
	if err := errs.Err(); err != nil {
		return err
	}

	if err := r.store.ReplaceAll(ctx, a.Namespace(), values); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	if !strings.EqualFold(a.AuthBk, authBk) {
		previous := a.AuthBk
		a.AuthBk = authBk
		if r.accounts != nil {
			if err := r.accounts.SaveAccount(ctx, a); err != nil {
				a.AuthBk = previous
				return fmt.Errorf("save account: %w", err)
			}
		}
	}

	scope.Invalidate(a)
	return nil
}

func (r *Resolver) basicValues(ctx context.Context, a *models.Account, vars credentials.Vars, errs common.ValidationErrors) (map[string]string, error) {
	ns := a.Namespace()
	username := strings.TrimSpace(vars.Username)
	if username == "" {
		errs.Add("username", "username is required")
		return nil, nil
	}

	password := vars.Password
	if password == "" {
		current, err := r.store.GetAll(ctx, ns)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		// keep the stored password when only the username changes
		if old, stored := current[FieldUsername], current[FieldPassword]; old != "" && stored != "" {
			plain, err := r.codec.Decrypt(stored, cryptox.ContextKey(ns, old))
			if err != nil && !errors.Is(err, common.ErrDecrypt) {
				return nil, err
			}
			password = plain
		}
	}
	if password == "" {
		errs.Add("password", "password is required")
		return nil, nil
	}

	enc, err := r.codec.Encrypt(password, cryptox.ContextKey(ns, username))
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}
	return map[string]string{
		FieldUsername: username,
		FieldPassword: enc,
	}, nil
}

func (r *Resolver) oauth2Values(ctx context.Context, a *models.Account, vars credentials.Vars, errs common.ValidationErrors) (map[string]string, error) {
	if vars.AccessToken == "" {
		errs.Add("access_token", "access token is required")
	}
	owner := strings.TrimSpace(vars.ResourceOwnerEmail)
	if addr, err := mail.ParseAddress(owner); err != nil || addr.Address != owner {
		errs.Add("resource_owner_email", "a valid email address is required")
	}
	if len(errs) > 0 {
		return nil, nil
	}

	ns := a.Namespace()
	ctxKey := cryptox.ContextKey(ns, owner)

	access, err := r.codec.Encrypt(vars.AccessToken, ctxKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	values := map[string]string{
		FieldAccessToken:        access,
		FieldResourceOwnerEmail: owner,
	}
	if vars.RefreshToken != "" {
		refresh, err := r.codec.Encrypt(vars.RefreshToken, ctxKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		values[FieldRefreshToken] = refresh
	}
	if !vars.Expiry.IsZero() {
		values[FieldExpires] = vars.Expiry.UTC().Format(time.RFC3339)
	}

	sig, err := r.ConfigSignature(ctx, a)
	if err != nil {
		return nil, err
	}
	if sig != "" {
		values[FieldConfigSignature] = sig
	}
	return values, nil
}
