package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/auth"
	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

// SaveBasicAuth stores a username and password for a and selects authBk.
// An empty password keeps the stored one.
func (s *AccountService) SaveBasicAuth(ctx context.Context, a *models.Account, authBk, username, password string) error {
	if authbk.SchemeOf(authBk) != authbk.Basic {
		errs := common.ValidationErrors{}
		errs.Add("auth_bk", "not a username and password backend")
		return errs
	}
	if err := s.resolver.UpdateCredentials(ctx, nil, a, authBk, credentials.Vars{Username: username, Password: password}); err != nil {
		return err
	}
	s.logger.Info(ctx, "basic credentials saved", "account", a.ID, "auth_bk", authBk)
	return nil
}

// SaveOAuth2Config creates or updates the OAuth2 client configuration of a.
// Tokens are stored later, by CompleteAuthorization.
func (s *AccountService) SaveOAuth2Config(ctx context.Context, a *models.Account, authBk string, cfg backends.InstanceConfig) (*backends.Instance, error) {
	p, err := s.resolver.Registry().OAuth2(authBk)
	if err != nil {
		errs := common.ValidationErrors{}
		errs.Add("auth_bk", "not an OAuth2 backend")
		return nil, errs
	}

	if a.AuthID != "" && strings.EqualFold(a.AuthBk, p.ID()) {
		current, err := p.PluginInstance(ctx, a.AuthID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			inst, err := p.UpdatePluginInstance(ctx, a.AuthID, cfg)
			if err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "oauth2 instance updated", "account", a.ID, "auth_bk", a.AuthBk, "auth_id", a.AuthID)
			return inst, nil
		}
	}

	inst, err := p.AddPluginInstance(ctx, cfg)
	if err != nil {
		return nil, err
	}

	previousBk, previousID := a.AuthBk, a.AuthID
	a.AuthBk, a.AuthID = p.ID(), inst.ID()
	if err := s.SaveAccount(ctx, a); err != nil {
		a.AuthBk, a.AuthID = previousBk, previousID
		_ = p.DeletePluginInstance(ctx, inst.ID())
		return nil, fmt.Errorf("error saving account: %w", err)
	}

	// drop the instance of a previously selected OAuth2 backend
	if previousID != "" && authbk.SchemeOf(previousBk) == authbk.OAuth2 {
		if old, err := s.resolver.Registry().OAuth2(previousBk); err == nil {
			if err := old.DeletePluginInstance(ctx, previousID); err != nil {
				s.logger.Warn(ctx, "stale oauth2 instance not deleted", "account", a.ID, "auth_id", previousID, "error", err)
			}
		}
	}

	s.logger.Info(ctx, "oauth2 instance added", "account", a.ID, "auth_bk", a.AuthBk, "auth_id", a.AuthID)
	return inst, nil
}

func (s *AccountService) enabledInstance(ctx context.Context, a *models.Account) (backends.OAuth2Provider, *backends.Instance, error) {
	errs := common.ValidationErrors{}
	p, err := s.resolver.Registry().OAuth2(a.AuthBk)
	if err != nil {
		errs.Add("auth_bk", "account is not configured for OAuth2")
		return nil, nil, errs
	}
	inst, err := s.resolver.Instance(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	if inst == nil || !inst.IsEnabled() {
		errs.Add("auth_bk", "configure an enabled OAuth2 client first")
		return nil, nil, errs
	}
	return p, inst, nil
}

// AuthorizeLink returns the server URL that starts authorization of a. The
// link carries a signed token, so the endpoint cannot be driven for an
// account by anyone who merely knows its identity id.
func (s *AccountService) AuthorizeLink(a *models.Account) (string, error) {
	tok, err := auth.GenerateLink(a.IdentityID, string(a.Kind), s.linkSecret, s.linkTTL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/oauth2/authorize?identity=%d&kind=%s&link=%s", s.publicURL, a.IdentityID, a.Kind, tok), nil
}

// VerifyAuthorizeLink checks the token of a link built by AuthorizeLink.
func (s *AccountService) VerifyAuthorizeLink(identityID int64, kind models.Kind, token string) error {
	return auth.ParseLink(token, identityID, string(kind), s.linkSecret)
}

// AuthorizeURL starts the authorization-code flow for a.
func (s *AccountService) AuthorizeURL(ctx context.Context, a *models.Account) (string, error) {
	p, inst, err := s.enabledInstance(ctx, a)
	if err != nil {
		return "", err
	}
	state, err := auth.GenerateState(a.ID, string(a.Kind), a.AuthBk, s.stateSecret, s.stateTTL)
	if err != nil {
		return "", err
	}
	return p.AuthorizeURL(inst, state), nil
}

// CompleteAuthorization handles the provider redirect: it checks state,
// exchanges code and stores the tokens.
func (s *AccountService) CompleteAuthorization(ctx context.Context, state, code string) (*models.Account, error) {
	claims, err := auth.ParseState(state, s.stateSecret)
	if err != nil {
		return nil, err
	}

	a, err := s.Account(ctx, claims.AccountID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %d is gone", common.ErrInvalidState, claims.AccountID)
	}
	if err != nil {
		return nil, err
	}
	if string(a.Kind) != claims.Kind || !strings.EqualFold(a.AuthBk, claims.AuthBk) {
		return nil, fmt.Errorf("%w: account configuration changed", common.ErrInvalidState)
	}

	p, inst, err := s.enabledInstance(ctx, a)
	if err != nil {
		return nil, err
	}

	info, err := p.Exchange(ctx, inst, code)
	if err != nil {
		s.logger.Warn(ctx, "authorization code exchange failed", "account", a.ID, "auth_bk", a.AuthBk, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}

	owner, err := p.ResourceOwner(ctx, inst, info.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}
	if owner == "" {
		owner = a.Address()
	}

	if err := s.resolver.UpdateCredentials(ctx, nil, a, a.AuthBk, credentials.Vars{
		AccessToken:        info.AccessToken,
		RefreshToken:       info.RefreshToken,
		ResourceOwnerEmail: owner,
		Expiry:             info.Expiry,
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "oauth2 authorization completed", "account", a.ID, "auth_bk", a.AuthBk, "owner", owner)
	return a, nil
}
