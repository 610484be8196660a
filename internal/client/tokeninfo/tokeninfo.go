// Package tokeninfo reads the claims of a bearer token for display.
//
// Signatures are NOT verified: the client has no key, and nothing here is
// used for authorization decisions. The backend remains the only judge of
// a token's validity.
package tokeninfo

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for opaque (non-JWT) tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims mirrors what the backend puts into its tokens.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Info struct {
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	HasExpiry bool
}

// Inspect decodes token without verifying it.
func Inspect(token string) (Info, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	info := Info{UserID: claims.UserID, Email: claims.Email}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
		info.HasExpiry = true
	}
	return info, nil
}

// Expired reports whether the token's exp claim is before now. Tokens
// without exp never expire locally.
func (i Info) Expired(now time.Time) bool {
	return i.HasExpiry && now.After(i.ExpiresAt)
}

// Remaining is the time left until expiry, or 0 if expired or unbounded.
func (i Info) Remaining(now time.Time) time.Duration {
	if !i.HasExpiry || !now.Before(i.ExpiresAt) {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}
