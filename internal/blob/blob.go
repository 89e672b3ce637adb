// Package blob provides content-addressed storage for encoded image bytes.
//
// Keys are derived from content hashes upstream, so Put is idempotent by
// construction: writing the same key twice is a no-op and concurrent writers
// of the same key converge on one object.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("blob not found")

// Store persists encoded image bytes under caller-chosen keys.
type Store interface {
	// Put stores data under key with create-if-absent semantics.
	// Storing an existing key is not an error.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// URL returns a fetchable reference for the object. Depending on the
	// backend this is either a service-relative path or a presigned URL.
	URL(ctx context.Context, key string) (string, error)
}
