// Package metadata is the client's local key/value storage, the equivalent of
// browser local storage: a single SQLite table of opaque values.
package metadata

import (
	"context"
)

// Repository stores raw values by key. Get on a missing key returns (nil, nil).
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
