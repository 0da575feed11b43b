package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect when the token is not a compact JWS.
// Opaque tokens are valid bearer credentials; callers treat this as "unknown expiry".
var ErrNotJWT = errors.New("token is not a JWT")

// Claims is the LMS access-token payload.
type Claims struct {
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the token expiry lies before now minus leeway.
// Tokens without exp never expire on the client.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Time.Add(leeway))
}

// Inspect decodes token claims without verifying the signature.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrNotJWT
		}
		return nil, err
	}
	return claims, nil
}
