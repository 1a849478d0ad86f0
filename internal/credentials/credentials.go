// Package credentials defines the credential values produced by the resolver.
//
// Values are immutable once built. A resolver returns exactly one of NoAuth,
// BasicAuth or OAuth2Auth, or nil when no credential is available.
package credentials

import (
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
)

// Credential is implemented by NoAuth, BasicAuth and OAuth2Auth.
type Credential interface {
	Scheme() authbk.Scheme
	// User is the login name presented to the mail server.
	User() string
}

// NoAuth is used for relays that accept unauthenticated mail from the
// identity's address.
type NoAuth struct {
	Username string
}

func (c NoAuth) Scheme() authbk.Scheme { return authbk.None }
func (c NoAuth) User() string          { return c.Username }

type BasicAuth struct {
	Username string
	Password string
}

func (c BasicAuth) Scheme() authbk.Scheme { return authbk.Basic }
func (c BasicAuth) User() string          { return c.Username }

// OAuth2Auth is a bearer token pair. ConfigSignature is the signature of the
// client configuration the token was issued under. A zero Expiry means the
// provider did not report one and the token is not considered expired.
type OAuth2Auth struct {
	AccessToken     string
	RefreshToken    string
	ResourceOwner   string
	ConfigSignature string
	Expiry          time.Time
}

func (c OAuth2Auth) Scheme() authbk.Scheme { return authbk.OAuth2 }
func (c OAuth2Auth) User() string          { return c.ResourceOwner }

// IsExpired reports whether the token is expired at now.
func (c OAuth2Auth) IsExpired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Vars carries new credential material to UpdateCredentials. Only the fields
// relevant to the target scheme are read.
type Vars struct {
	Username           string
	Password           string
	AccessToken        string
	RefreshToken       string
	ResourceOwnerEmail string
	Expiry             time.Time
}

// TokenInfo is what an OAuth2 backend returns from a code exchange or a
// refresh. RefreshToken is empty when the provider kept the old one.
type TokenInfo struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	IDToken      string
}
