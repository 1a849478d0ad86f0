package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
)

type Kind string

const (
	KindMailbox Kind = "mailbox"
	KindSMTP    Kind = "smtp"
)

// ParseKind accepts "mailbox" or "smtp", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindMailbox, KindSMTP:
		return k, nil
	}
	return "", fmt.Errorf("unknown account kind %q", s)
}

const (
	ProtocolIMAP = "IMAP"
	ProtocolPOP  = "POP"
	ProtocolSMTP = "SMTP"
)

const (
	PostFetchArchive = "archive"
	PostFetchDelete  = "delete"
)

// State is the lifecycle state of an account, derived from its fields.
type State string

const (
	StateUnconfigured State = "unconfigured"
	StateConfiguring  State = "configuring"
	StateActive       State = "active"
	StateError        State = "error"
)

// Account is a mailbox (fetch) or SMTP (send) account of an identity.
// AuthBk is empty when no backend is selected. AuthID references the OAuth2
// instance owned by the backend, if any.
type Account struct {
	ID           int64
	IdentityID   int64
	Kind         Kind
	Active       bool
	Host         string
	Port         int
	Protocol     string
	AuthBk       string
	AuthID       string
	Errors       int
	LastError    string
	LastErrorAt  *time.Time
	LastActivity *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// mailbox only
	Folder         string
	ArchiveFolder  string
	PostFetch      string
	FetchFrequency int
	MaxFetch       int
	// smtp only
	AllowSpoofing bool

	// Identity is the owning identity. Set by the loader, never persisted.
	Identity *Identity
}

// NewAccount returns an inactive, unconfigured account of the given kind.
func NewAccount(identityID int64, kind Kind) *Account {
	a := &Account{IdentityID: identityID, Kind: kind}
	switch kind {
	case KindMailbox:
		a.Protocol = ProtocolIMAP
		a.Port = 993
		a.Folder = "INBOX"
		a.PostFetch = PostFetchArchive
		a.FetchFrequency = 5
		a.MaxFetch = 20
	case KindSMTP:
		a.Protocol = ProtocolSMTP
		a.Port = 587
	}
	return a
}

// Namespace returns the config store namespace of the account.
func (a *Account) Namespace() string {
	return common.Namespace(a.IdentityID, a.ID)
}

// BkID is the backend-scoped account reference passed to OAuth2 backends:
// "<authBk>:<accountId>", plus ":<authId>" when an instance is attached.
func (a *Account) BkID() string {
	ref := fmt.Sprintf("%s:%d", a.AuthBk, a.ID)
	if a.AuthID != "" {
		ref += ":" + a.AuthID
	}
	return ref
}

func (a *Account) IsOAuth() bool {
	return hasScheme(a.AuthBk, "oauth2")
}

func (a *Account) IsBasic() bool {
	return hasScheme(a.AuthBk, "basic")
}

func hasScheme(authBk, scheme string) bool {
	s, _, _ := strings.Cut(authBk, ":")
	return strings.EqualFold(s, scheme)
}

// State derives the lifecycle state.
func (a *Account) State() State {
	switch {
	case !a.Active && a.AuthBk == "":
		return StateUnconfigured
	case !a.Active:
		return StateConfiguring
	case a.Errors > 0:
		return StateError
	default:
		return StateActive
	}
}

// RecordError counts a failed fetch or send attempt.
func (a *Account) RecordError(msg string, at time.Time) {
	a.Errors++
	a.LastError = msg
	a.LastErrorAt = &at
}

// RecordSuccess clears the error state and stamps the last activity.
func (a *Account) RecordSuccess(at time.Time) {
	a.Errors = 0
	a.LastError = ""
	a.LastErrorAt = nil
	a.LastActivity = &at
}

// ResetActivity is applied when settings are saved.
func (a *Account) ResetActivity() {
	a.Errors = 0
	a.LastError = ""
	a.LastErrorAt = nil
	a.LastActivity = nil
}

// Address returns the owning identity's address, if loaded.
func (a *Account) Address() string {
	if a.Identity == nil {
		return ""
	}
	return a.Identity.Email
}

func (a *Account) String() string {
	return fmt.Sprintf("%s account %d (identity %d)", a.Kind, a.ID, a.IdentityID)
}
