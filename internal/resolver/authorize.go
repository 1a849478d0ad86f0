package resolver

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// Instance returns the OAuth2 instance attached to a, or nil.
func (r *Resolver) Instance(ctx context.Context, a *models.Account) (*backends.Instance, error) {
	if !a.IsOAuth() || a.AuthID == "" {
		return nil, nil
	}
	p, err := r.registry.OAuth2(a.AuthBk)
	if err != nil {
		return nil, err
	}
	return p.PluginInstance(ctx, a.AuthID)
}

// ConfigSignature is the current signature of the account's OAuth2 instance,
// or "" when it has none.
func (r *Resolver) ConfigSignature(ctx context.Context, a *models.Account) (string, error) {
	inst, err := r.Instance(ctx, a)
	if err != nil || inst == nil {
		return "", err
	}
	return inst.Signature(), nil
}

// ShouldAuthorize reports whether the user has to go through the OAuth2
// authorization flow again. It only reads.
func (r *Resolver) ShouldAuthorize(ctx context.Context, a *models.Account) (bool, error) {
	inst, err := r.Instance(ctx, a)
	if err != nil || inst == nil || !inst.IsEnabled() {
		return false, err
	}

	cred, err := r.Credentials(ctx, nil, a, a.AuthBk, false)
	if err != nil {
		return false, err
	}
	tok, ok := cred.(credentials.OAuth2Auth)
	if !ok {
		return true, nil
	}
	if tok.IsExpired(r.now()) {
		return true, nil
	}
	return !strings.EqualFold(tok.ConfigSignature, inst.Signature()), nil
}
