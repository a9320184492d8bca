package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AlmostExpiredWindow is how close to expiry a token counts as "about to expire".
const AlmostExpiredWindow = 5 * time.Minute

var ErrMalformed = errors.New("malformed token")

var unverified = jwt.NewParser()

// Decode reads the claims of an access token without checking its signature.
// The client never holds the signing key; the server stays the authority.
func Decode(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, ErrMalformed
	}
	var claims AccessClaims
	if _, _, err := unverified.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &claims, nil
}

// IsExpired reports whether the token's exp claim is before now. A token that
// cannot be decoded is expired; a token without exp never expires.
func IsExpired(token string, now time.Time) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now)
}

func IsAlmostExpired(token string, now time.Time, window time.Duration) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(now) < window
}

// UserInfo returns the email (sub) and role embedded in the token.
func UserInfo(token string) (email, role string, err error) {
	claims, err := Decode(token)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Role, nil
}

func IsAdmin(token string) bool {
	_, role, err := UserInfo(token)
	return err == nil && role == RoleAdmin
}
