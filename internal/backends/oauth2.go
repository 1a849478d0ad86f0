package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/instances"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// OAuth2Backend implements OAuth2Provider for one provider. Client
// credentials live in per-account instances stored through an
// instances.Repository, with the client secret encrypted by the codec.
type OAuth2Backend struct {
	provider    config.ProviderConfig
	redirectURL string
	repo        instances.Repository
	codec       *cryptox.Codec
	httpClient  *http.Client

	// keySet builds the id_token key set; a seam for tests.
	keySet func(ctx context.Context, jwksURL string) oidc.KeySet
}

// NewOAuth2Backend validates p and builds the backend. redirectURL is used
// for instances that do not set their own.
func NewOAuth2Backend(p config.ProviderConfig, redirectURL string, repo instances.Repository, codec *cryptox.Codec) (*OAuth2Backend, error) {
	if scheme, err := authbk.Parse(p.ID); err != nil || scheme != authbk.OAuth2 || !strings.Contains(p.ID, ":") {
		return nil, fmt.Errorf("provider id %q must look like oauth2:<name>", p.ID)
	}
	switch p.Kind {
	case config.ProviderGoogle, config.ProviderMicrosoft:
	case config.ProviderGeneric:
		if p.AuthURL == "" || p.TokenURL == "" {
			return nil, fmt.Errorf("provider %q: generic providers need auth_url and token_url", p.ID)
		}
	default:
		return nil, fmt.Errorf("provider %q: unknown kind %q", p.ID, p.Kind)
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	return &OAuth2Backend{
		provider:    p,
		redirectURL: redirectURL,
		repo:        repo,
		codec:       codec,
		keySet: func(ctx context.Context, jwksURL string) oidc.KeySet {
			return oidc.NewRemoteKeySet(ctx, jwksURL)
		},
	}, nil
}

// WithHTTPClient sets the client used for token endpoint and JWKS calls.
func (b *OAuth2Backend) WithHTTPClient(c *http.Client) *OAuth2Backend {
	b.httpClient = c
	return b
}

func (b *OAuth2Backend) ID() string            { return b.provider.ID }
func (b *OAuth2Backend) Name() string          { return b.provider.Name }
func (b *OAuth2Backend) Scheme() authbk.Scheme { return authbk.OAuth2 }

func (b *OAuth2Backend) endpoint(tenant string) oauth2.Endpoint {
	var ep oauth2.Endpoint
	switch b.provider.Kind {
	case config.ProviderGoogle:
		ep = google.Endpoint
	case config.ProviderMicrosoft:
		if tenant == "" {
			tenant = "common"
		}
		ep = microsoft.AzureADEndpoint(tenant)
	}
	if b.provider.AuthURL != "" {
		ep.AuthURL = b.provider.AuthURL
	}
	if b.provider.TokenURL != "" {
		ep.TokenURL = b.provider.TokenURL
	}
	return ep
}

func (b *OAuth2Backend) oauthConfig(inst *Instance) *oauth2.Config {
	cfg := inst.Config()
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = b.provider.Scopes
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     inst.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
	}
}

func (b *OAuth2Backend) clientContext(ctx context.Context) context.Context {
	if b.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

// AuthorizeURL asks for offline access and forces the consent screen, so the
// provider always returns a refresh token.
func (b *OAuth2Backend) AuthorizeURL(inst *Instance, state string) string {
	return b.oauthConfig(inst).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

func (b *OAuth2Backend) Exchange(ctx context.Context, inst *Instance, code string) (*credentials.TokenInfo, error) {
	tok, err := b.oauthConfig(inst).Exchange(b.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tokenInfo(tok), nil
}

func tokenInfo(tok *oauth2.Token) *credentials.TokenInfo {
	info := &credentials.TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		info.IDToken = idToken
	}
	return info
}

type idClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

func (b *OAuth2Backend) ResourceOwner(ctx context.Context, inst *Instance, idToken string) (string, error) {
	if idToken == "" || b.provider.JWKSURL == "" {
		return "", nil
	}

	if b.httpClient != nil {
		ctx = oidc.ClientContext(ctx, b.httpClient)
	}
	verifier := oidc.NewVerifier(b.provider.Issuer, b.keySet(ctx, b.provider.JWKSURL), &oidc.Config{
		ClientID: inst.Config().ClientID,
		// Microsoft issuers embed the tenant id
		SkipIssuerCheck: b.provider.Issuer == "",
	})

	tok, err := verifier.Verify(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("verify id_token: %w", err)
	}
	var claims idClaims
	if err := tok.Claims(&claims); err != nil {
		return "", fmt.Errorf("id_token claims: %w", err)
	}
	if claims.Email != "" {
		return claims.Email, nil
	}
	return claims.PreferredUsername, nil
}

// authIDFromRef extracts the instance id from "<backend>:<accountId>:<authId>".
func (b *OAuth2Backend) authIDFromRef(accountRef string) (string, error) {
	rest, ok := cutPrefixFold(accountRef, b.provider.ID+":")
	if !ok {
		return "", fmt.Errorf("account reference %q does not belong to %s", accountRef, b.provider.ID)
	}
	_, authID, ok := strings.Cut(rest, ":")
	if !ok || authID == "" {
		return "", fmt.Errorf("account reference %q has no authorization id", accountRef)
	}
	return authID, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func (b *OAuth2Backend) RefreshToken(ctx context.Context, refreshToken, accountRef string) (*credentials.TokenInfo, error) {
	if refreshToken == "" {
		return nil, &RefreshError{Reason: ReasonRevoked, Err: errors.New("no refresh token stored")}
	}
	authID, err := b.authIDFromRef(accountRef)
	if err != nil {
		return nil, &RefreshError{Reason: ReasonOther, Err: err}
	}
	inst, err := b.PluginInstance(ctx, authID)
	if err != nil {
		return nil, NewRefreshError(err)
	}
	if inst == nil {
		return nil, &RefreshError{Reason: ReasonOther, Err: fmt.Errorf("authorization %s not found", authID)}
	}

	// an empty access token forces the token source to refresh
	src := b.oauthConfig(inst).TokenSource(b.clientContext(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, NewRefreshError(err)
	}
	return tokenInfo(tok), nil
}

func instanceContextKey(authID, backendID string) string {
	return cryptox.ContextKey("oauth2_instance:"+authID, strings.ToLower(backendID))
}

func (b *OAuth2Backend) fromRecord(rec *models.OAuth2Instance) (*Instance, error) {
	secret, err := b.codec.Decrypt(rec.ClientSecret, instanceContextKey(rec.ID, rec.Backend))
	if err != nil {
		return nil, fmt.Errorf("client secret of %s: %w", rec.ID, err)
	}
	cfg := InstanceConfig{
		ClientID:     rec.ClientID,
		ClientSecret: secret,
		Scopes:       rec.Scopes,
		RedirectURL:  rec.RedirectURL,
		Tenant:       rec.Tenant,
		Enabled:      rec.Enabled,
	}
	return NewInstance(rec.ID, b.provider.ID, cfg, b.endpoint(rec.Tenant)), nil
}

func (b *OAuth2Backend) toRecord(id string, cfg InstanceConfig) (*models.OAuth2Instance, error) {
	secret, err := b.codec.Encrypt(cfg.ClientSecret, instanceContextKey(id, b.provider.ID))
	if err != nil {
		return nil, err
	}
	return &models.OAuth2Instance{
		ID:           id,
		Backend:      b.provider.ID,
		ClientID:     cfg.ClientID,
		ClientSecret: secret,
		Scopes:       cfg.Scopes,
		RedirectURL:  cfg.RedirectURL,
		Tenant:       cfg.Tenant,
		Enabled:      cfg.Enabled,
	}, nil
}

func (b *OAuth2Backend) PluginInstance(ctx context.Context, authID string) (*Instance, error) {
	if authID == "" {
		return nil, nil
	}
	rec, err := b.repo.Get(ctx, authID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(rec.Backend, b.provider.ID) {
		return nil, nil
	}
	return b.fromRecord(rec)
}

func (b *OAuth2Backend) validate(cfg *InstanceConfig) error {
	verr := common.ValidationErrors{}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		verr.Add("client_id", "client id is required")
	}
	if cfg.ClientSecret == "" {
		verr.Add("client_secret", "client secret is required")
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = b.redirectURL
	}
	if b.provider.Kind != config.ProviderMicrosoft && cfg.Tenant != "" {
		verr.Add("tenant", "tenant is only supported by Microsoft")
	}
	return verr.Err()
}

func (b *OAuth2Backend) AddPluginInstance(ctx context.Context, cfg InstanceConfig) (*Instance, error) {
	if err := b.validate(&cfg); err != nil {
		return nil, err
	}
	rec, err := b.toRecord(uuid.NewString(), cfg)
	if err != nil {
		return nil, err
	}
	if err := b.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return NewInstance(rec.ID, rec.Backend, cfg, b.endpoint(cfg.Tenant)), nil
}

// UpdatePluginInstance replaces the configuration of authID. An empty client
// secret keeps the stored one.
func (b *OAuth2Backend) UpdatePluginInstance(ctx context.Context, authID string, cfg InstanceConfig) (*Instance, error) {
	existing, err := b.PluginInstance(ctx, authID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, common.ErrNotFound
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = existing.Config().ClientSecret
	}
	if err := b.validate(&cfg); err != nil {
		return nil, err
	}
	rec, err := b.toRecord(authID, cfg)
	if err != nil {
		return nil, err
	}
	if err := b.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return NewInstance(authID, b.provider.ID, cfg, b.endpoint(cfg.Tenant)), nil
}

// DeletePluginInstance is idempotent.
func (b *OAuth2Backend) DeletePluginInstance(ctx context.Context, authID string) error {
	err := b.repo.Delete(ctx, authID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}
