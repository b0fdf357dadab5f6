package facade

import "context"

// Driver is the capability set a backing store implements to plug into the
// facade.
type Driver interface {
	// Name is the unique identifier the driver is registered with.
	Name() string
	// Supported reports whether the driver can be used.
	Supported(ctx context.Context) bool
	// Open initializes the driver for the given configuration, and returns
	// the storage bound to it.
	Open(ctx context.Context, cfg Config) (Storage, error)
}

// IterateFunc is called for each entry visited by Storage.Iterate, with the
// 1-based ordinal of the entry. Returning stop == true ends the iteration,
// and result is returned by Iterate.
type IterateFunc func(value any, key string, ordinal int) (result any, stop bool)

// Storage is the set of operations of an opened driver. All keys are logical
// keys, as seen by facade callers.
type Storage interface {
	// GetItem returns the value of key, or nil if it doesn't exist.
	GetItem(ctx context.Context, key string) (any, error)
	// SetItem stores value under key, and returns value.
	SetItem(ctx context.Context, key string, value any) (any, error)
	// RemoveItem removes key. It's not an error if key doesn't exist.
	RemoveItem(ctx context.Context, key string) error
	// Clear removes all keys.
	Clear(ctx context.Context) error
	// Keys returns all keys, in insertion order.
	Keys(ctx context.Context) ([]string, error)
	// Iterate calls fn for each entry, in insertion order.
	Iterate(ctx context.Context, fn IterateFunc) (any, error)
	// Length returns the number of stored entries.
	Length(ctx context.Context) (int, error)
}
