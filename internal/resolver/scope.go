package resolver

import (
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

type scopeKey struct {
	identity int64
	account  int64
	kind     models.Kind
	authBk   string
}

// Scope caches resolved credentials for one logical request. A nil *Scope
// is valid and caches nothing. Not safe for concurrent use.
type Scope struct {
	entries map[scopeKey]credentials.Credential
}

func NewScope() *Scope {
	return &Scope{entries: make(map[scopeKey]credentials.Credential)}
}

func key(a *models.Account, authBk string) scopeKey {
	return scopeKey{identity: a.IdentityID, account: a.ID, kind: a.Kind, authBk: strings.ToLower(authBk)}
}

func (s *Scope) get(a *models.Account, authBk string) (credentials.Credential, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.entries[key(a, authBk)]
	return c, ok
}

func (s *Scope) put(a *models.Account, authBk string, c credentials.Credential) {
	if s == nil {
		return
	}
	k := key(a, authBk)
	if c == nil {
		delete(s.entries, k)
		return
	}
	s.entries[k] = c
}

// Invalidate drops every cached credential of a. Invalidating a mailbox
// also drops the entries of sibling accounts that borrow its credential
// through the mailbox scheme.
func (s *Scope) Invalidate(a *models.Account) {
	if s == nil {
		return
	}
	for k := range s.entries {
		switch {
		case k.account == a.ID && k.kind == a.Kind:
			delete(s.entries, k)
		case a.Kind == models.KindMailbox && k.identity == a.IdentityID &&
			authbk.SchemeOf(k.authBk) == authbk.Mailbox:
			delete(s.entries, k)
		}
	}
}

// Len is the number of cached credentials.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
