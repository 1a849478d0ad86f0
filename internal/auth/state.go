// Package auth signs and verifies the state parameter of the OAuth2
// authorization-code flow. The state is an HS256 JWT binding the redirect
// to one account and backend.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "mailkeeper"

// StateClaims identifies the account an authorization belongs to.
type StateClaims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"aid"`
	Kind      string `json:"kind"`
	AuthBk    string `json:"bk"`
}

func GenerateState(accountID int64, kind, authBk string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountID: accountID,
		Kind:      kind,
		AuthBk:    authBk,
	})

	s, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return s, nil
}

// ParseState verifies state. Any failure, expiry included, is
// common.ErrInvalidState.
func ParseState(state string, secretKey []byte) (*StateClaims, error) {
	claims := &StateClaims{}

	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", common.ErrInvalidState)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidState, err)
	}
	if !token.Valid || claims.AccountID == 0 {
		return nil, common.ErrInvalidState
	}
	return claims, nil
}
