// Package store defines the key-value backing stores the forage driver
// persists data in.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key doesn't exist.
var ErrNotFound = errors.New("store: key not found")

// Store is the interface of a key-value backing store. Keys are arbitrary
// strings, and values opaque byte slices.
//
// Implementations must be safe for concurrent use, and must preserve the
// insertion order of keys. Overwriting an existing key keeps its original
// position.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key. It's not an error if the key doesn't exist.
	Delete(ctx context.Context, key string) error
	// Clear removes all keys that start with prefix. An empty prefix
	// removes all keys in the store.
	Clear(ctx context.Context, prefix string) error
	// Keys returns all keys that start with prefix, in insertion order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// MultiGet returns the values of the given keys. Keys that don't exist
	// are omitted from the result.
	MultiGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Close() error
}
