// Package auth inspects session credentials issued by the backend.
//
// The storefront never verifies signatures: the backend is the authority and
// rejects bad tokens with a 401. Inspection only lets a client drop a
// persisted credential that has visibly expired before it is ever sent.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Claims is the subset of token claims the storefront cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// IsJWT reports whether token looks like a compact JWS (three dot-separated parts).
func IsJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// Inspect parses token without verifying it.
func Inspect(token string) (*Claims, error) {
	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims := &Claims{}
	if sub, ok := parsed.Subject(); ok {
		claims.Subject = sub
	}
	if exp, ok := parsed.Expiration(); ok {
		claims.ExpiresAt = exp
	}
	return claims, nil
}

// Expired reports whether token is a JWT with an exp claim at or before now.
// Opaque tokens and JWTs without exp are never considered expired.
func Expired(token string, now time.Time) bool {
	if !IsJWT(token) {
		return false
	}
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}
