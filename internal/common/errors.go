package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Credential errors.
	ErrAuthentication        = errors.New("authentication error")
	ErrUnknownCredentialType = errors.New("unknown credential type")
	ErrUnknownBackend        = errors.New("unknown authentication backend")
	ErrDecrypt               = errors.New("unable to decrypt value")

	// OAuth2 authorization flow errors.
	ErrInvalidState = errors.New("invalid authorization state")
	ErrInvalidLink  = errors.New("invalid authorization link")
)

// ValidationErrors maps a field name to a user-facing message.
// An empty map means no validation error.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := v.Fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the field names in sorted order.
func (v ValidationErrors) Fields() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Add records msg for field unless the field already has a message.
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Err returns v as an error, or nil when v is empty.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidation extracts ValidationErrors from err.
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
