package backends

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/oauth2"
)

// Reason classifies a failed token refresh.
type Reason string

const (
	// ReasonRevoked: the provider rejected the refresh token (invalid_grant).
	// Only re-authorization helps.
	ReasonRevoked Reason = "revoked"
	ReasonNetwork Reason = "network"
	ReasonTimeout Reason = "timeout"
	ReasonOther   Reason = "other"
)

// RefreshError is returned by RefreshToken.
type RefreshError struct {
	Reason Reason
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed (%s): %v", e.Reason, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// NewRefreshError classifies err.
func NewRefreshError(err error) *RefreshError {
	var re *RefreshError
	if errors.As(err, &re) {
		return re
	}
	return &RefreshError{Reason: classify(err), Err: err}
}

// ReasonOf returns the reason of a refresh error, or ReasonOther.
func ReasonOf(err error) Reason {
	var re *RefreshError
	if errors.As(err, &re) {
		return re.Reason
	}
	return classify(err)
}

func classify(err error) Reason {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.ErrorCode == "invalid_grant" {
			return ReasonRevoked
		}
		return ReasonOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var nErr net.Error
	if errors.As(err, &nErr) {
		if nErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonNetwork
	}
	return ReasonOther
}
