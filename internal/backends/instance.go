package backends

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

// InstanceConfig is the client configuration of one OAuth2 authorization.
type InstanceConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURL  string
	Tenant       string
	Enabled      bool
}

// Instance is an OAuth2 authorization owned by a backend. It is immutable;
// updates produce a new Instance.
type Instance struct {
	id        string
	backendID string
	cfg       InstanceConfig
	endpoint  oauth2.Endpoint
	signature string
}

// NewInstance builds an instance and computes its signature.
func NewInstance(id, backendID string, cfg InstanceConfig, endpoint oauth2.Endpoint) *Instance {
	return &Instance{
		id:        id,
		backendID: backendID,
		cfg:       cfg,
		endpoint:  endpoint,
		signature: Signature(backendID, cfg, endpoint),
	}
}

func (i *Instance) ID() string                { return i.id }
func (i *Instance) BackendID() string         { return i.backendID }
func (i *Instance) Signature() string         { return i.signature }
func (i *Instance) IsEnabled() bool           { return i.cfg.Enabled }
func (i *Instance) Endpoint() oauth2.Endpoint { return i.endpoint }

// Config returns a copy of the client configuration.
func (i *Instance) Config() InstanceConfig {
	c := i.cfg
	c.Scopes = append([]string(nil), i.cfg.Scopes...)
	return c
}

// Signature fingerprints everything that determines which tokens an
// authorization can mint. The enabled flag is not part of it.
func Signature(backendID string, cfg InstanceConfig, endpoint oauth2.Endpoint) string {
	scopes := append([]string(nil), cfg.Scopes...)
	sort.Strings(scopes)

	h := sha256.New()
	for _, part := range []string{
		backendID,
		cfg.ClientID,
		cfg.ClientSecret,
		strings.Join(scopes, " "),
		cfg.RedirectURL,
		cfg.Tenant,
		endpoint.AuthURL,
		endpoint.TokenURL,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
