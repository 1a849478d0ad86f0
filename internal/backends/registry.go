// Package backends holds the authentication backend registry and the OAuth2
// backends built on golang.org/x/oauth2.
//
// The registry is a static map populated at start-up from configuration.
// Identifiers are compared case-insensitively.
package backends

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
)

// Backend is any registered authentication backend.
type Backend interface {
	ID() string
	Name() string
	Scheme() authbk.Scheme
}

// OAuth2Provider is a backend implementing the authorization-code flow.
type OAuth2Provider interface {
	Backend
	AuthorizeURL(inst *Instance, state string) string
	Exchange(ctx context.Context, inst *Instance, code string) (*credentials.TokenInfo, error)
	// ResourceOwner extracts the owner address from a verified id_token.
	// It returns "" when the provider issued none.
	ResourceOwner(ctx context.Context, inst *Instance, idToken string) (string, error)
	// RefreshToken errors are *RefreshError.
	RefreshToken(ctx context.Context, refreshToken, accountRef string) (*credentials.TokenInfo, error)
	// PluginInstance returns (nil, nil) for an unknown authID.
	PluginInstance(ctx context.Context, authID string) (*Instance, error)
	AddPluginInstance(ctx context.Context, cfg InstanceConfig) (*Instance, error)
	UpdatePluginInstance(ctx context.Context, authID string, cfg InstanceConfig) (*Instance, error)
	DeletePluginInstance(ctx context.Context, authID string) error
}

// BasicBackend is the username/password backend. It is always registered.
type BasicBackend struct{}

func (BasicBackend) ID() string            { return string(authbk.Basic) }
func (BasicBackend) Name() string          { return "Username and password" }
func (BasicBackend) Scheme() authbk.Scheme { return authbk.Basic }

// pseudo is used for the SMTP-only choices "mailbox" and "none".
type pseudo struct {
	scheme authbk.Scheme
	name   string
}

func (p pseudo) ID() string            { return string(p.scheme) }
func (p pseudo) Name() string          { return p.name }
func (p pseudo) Scheme() authbk.Scheme { return p.scheme }

var (
	mailboxBackend Backend = pseudo{authbk.Mailbox, "Same as mailbox"}
	noneBackend    Backend = pseudo{authbk.None, "No authentication"}
)

type Registry struct {
	backends map[string]Backend
}

// NewRegistry registers BasicBackend followed by bs. Duplicate ids and ids
// whose scheme does not match the backend are rejected.
func NewRegistry(bs ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range append([]Backend{BasicBackend{}}, bs...) {
		key := strings.ToLower(b.ID())
		if _, ok := r.backends[key]; ok {
			return nil, fmt.Errorf("duplicate backend %q", b.ID())
		}
		scheme, err := authbk.Parse(b.ID())
		if err != nil {
			return nil, err
		}
		if scheme != b.Scheme() || scheme == authbk.Mailbox || scheme == authbk.None {
			return nil, fmt.Errorf("backend %q: invalid identifier for scheme %s", b.ID(), b.Scheme())
		}
		r.backends[key] = b
	}
	return r, nil
}

// Lookup returns the backend registered under authBk.
func (r *Registry) Lookup(authBk string) (Backend, error) {
	b, ok := r.backends[strings.ToLower(authBk)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownBackend, authBk)
	}
	return b, nil
}

// OAuth2 returns the OAuth2 backend registered under authBk.
func (r *Registry) OAuth2(authBk string) (OAuth2Provider, error) {
	b, err := r.Lookup(authBk)
	if err != nil {
		return nil, err
	}
	p, ok := b.(OAuth2Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an OAuth2 backend", common.ErrUnknownBackend, authBk)
	}
	return p, nil
}

// Supported lists the backends a mailbox account can use, basic first, then
// by id.
func (r *Registry) Supported() []Backend {
	out := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := out[i].Scheme() == authbk.Basic, out[j].Scheme() == authbk.Basic
		if bi != bj {
			return bi
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// SupportedSMTP adds the "mailbox" and "none" choices to Supported.
func (r *Registry) SupportedSMTP() []Backend {
	return append([]Backend{mailboxBackend, noneBackend}, r.Supported()...)
}

// Validate checks that authBk may be stored on an account of the given kind.
func (r *Registry) Validate(authBk string, smtp bool) error {
	scheme, err := authbk.Parse(authBk)
	if err != nil {
		return err
	}
	switch scheme {
	case authbk.None, authbk.Mailbox:
		if !smtp {
			return fmt.Errorf("%w: %q is only valid for SMTP", common.ErrUnknownBackend, authBk)
		}
		return nil
	}
	_, err = r.Lookup(authBk)
	return err
}
