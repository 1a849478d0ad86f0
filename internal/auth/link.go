package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const linkAudience = "authorize"

// LinkClaims grant one start of the authorization flow for an account,
// identified by its identity and kind.
type LinkClaims struct {
	jwt.RegisteredClaims
	IdentityID int64  `json:"iid"`
	Kind       string `json:"kind"`
}

// GenerateLink signs the token carried by an authorization link. It must be
// signed with a key distinct from the state key.
func GenerateLink(identityID int64, kind string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{linkAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		IdentityID: identityID,
		Kind:       kind,
	})

	s, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign link: %w", err)
	}
	return s, nil
}

// ParseLink verifies token and that it was issued for identityID and kind.
// Any failure is common.ErrInvalidLink.
func ParseLink(token string, identityID int64, kind string, secretKey []byte) error {
	claims := &LinkClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithAudience(linkAudience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: expired", common.ErrInvalidLink)
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidLink, err)
	}
	if claims.IdentityID != identityID || claims.Kind != kind {
		return fmt.Errorf("%w: issued for another account", common.ErrInvalidLink)
	}
	return nil
}
