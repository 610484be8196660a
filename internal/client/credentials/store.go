// Package credentials persists the single bearer token of a session.
//
// The store is the only component that touches token storage. Read is
// side-effect free and reports "absent" rather than failing when nothing
// has been stored yet. Expiry is not tracked locally: a stale token is only
// discovered when the backend rejects it.
package credentials

import (
	"context"
	"errors"
)

// Storage keys inside the profile namespace.
const (
	TokenKey        = "auth_token"
	TokenSavedAtKey = "auth_token_saved_at"
	TokenSaltKey    = "auth_token_salt"
)

var (
	// ErrEmptyToken is returned by Save for an empty token.
	ErrEmptyToken = errors.New("empty token")
	// ErrUnreadableToken means a token is stored but cannot be unsealed
	// with the configured passphrase.
	ErrUnreadableToken = errors.New("stored token cannot be read")
)

// Store holds at most one bearer token.
type Store interface {
	Save(ctx context.Context, token string) error
	// Read returns ("", false, nil) when no token is stored.
	Read(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}
