// Package metadata is the key/value table behind the credential store.
// Every key lives in a profile namespace so one database file can hold
// independent sessions.
package metadata

import (
	"context"
)

// Repository is a profile-scoped key/value store. Get returns (nil, nil)
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
