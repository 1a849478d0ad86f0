// Package authbk parses authentication backend identifiers.
//
// An identifier is a scheme optionally followed by ":" and a provider name:
// "basic", "basic:imap", "oauth2:google", "none", "mailbox". The scheme
// selects how credentials are resolved; the full identifier selects the
// backend in the registry.
package authbk

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
)

type Scheme string

const (
	None    Scheme = "none"
	Mailbox Scheme = "mailbox"
	Basic   Scheme = "basic"
	OAuth2  Scheme = "oauth2"
)

// Parse returns the scheme of authBk. Unknown schemes are rejected with
// common.ErrUnknownCredentialType.
func Parse(authBk string) (Scheme, error) {
	prefix, _, _ := strings.Cut(authBk, ":")
	switch s := Scheme(strings.ToLower(prefix)); s {
	case None, Mailbox, Basic, OAuth2:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownCredentialType, authBk)
}

// SchemeOf is Parse without the error; unknown identifiers yield "".
func SchemeOf(authBk string) Scheme {
	s, _ := Parse(authBk)
	return s
}

// Matches reports whether requested may be resolved for an account
// configured with configured: true when configured starts with requested,
// compared case-insensitively.
func Matches(requested, configured string) bool {
	return strings.HasPrefix(strings.ToLower(configured), strings.ToLower(requested))
}
