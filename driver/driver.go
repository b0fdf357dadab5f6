// Package driver adapts a key-value backing store to the facade driver
// contract. Logical keys are prefixed with the configuration name, and values
// are converted to bytes with the serializer chosen at construction.
package driver

import (
	"context"
	"errors"
	"fmt"

	"go.hackfix.me/forage/facade"
	"go.hackfix.me/forage/serializer"
	"go.hackfix.me/forage/store"
)

// DefaultName is the identifier drivers are registered with by default.
const DefaultName = "storeDriver"

// Driver is a facade.Driver backed by a store.Store.
type Driver struct {
	name  string
	store store.Store
	codec *serializer.Codec
}

var _ facade.Driver = (*Driver)(nil)

// Option is a function that allows configuring a Driver.
type Option func(*Driver)

// WithName sets the identifier of the driver.
func WithName(name string) Option {
	return func(d *Driver) {
		d.name = name
	}
}

// WithoutSerialization returns a driver that stores values as they are. Only
// strings, byte slices and encoding.TextMarshaler values can be stored, and
// values are read back as strings.
func WithoutSerialization(st store.Store, opts ...Option) (*Driver, error) {
	return WithSerialization(st, serializer.Passthrough{}, opts...)
}

// WithSerialization returns a driver that converts values with ser.
func WithSerialization(st store.Store, ser serializer.Serializer, opts ...Option) (*Driver, error) {
	if st == nil {
		return nil, errors.New("store is nil")
	}

	codec, err := serializer.NewCodec(ser)
	if err != nil {
		return nil, err
	}

	d := &Driver{name: DefaultName, store: st, codec: codec}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// WithDefaultSerialization returns a driver that stores values as JSON.
func WithDefaultSerialization(st store.Store, opts ...Option) (*Driver, error) {
	return WithSerialization(st, serializer.Default(), opts...)
}

// Name returns the identifier of the driver.
func (d *Driver) Name() string {
	return d.name
}

// Supported always returns true, since the store was provided on
// construction.
func (d *Driver) Supported(_ context.Context) bool {
	return true
}

// Open returns the storage for the given configuration. All keys it handles
// are prefixed with the configuration name.
func (d *Driver) Open(_ context.Context, cfg facade.Config) (facade.Storage, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty name", facade.ErrInvalidConfig)
	}

	return &storage{
		ns:    newNamespace(cfg.Name),
		store: d.store,
		codec: d.codec,
	}, nil
}

type storage struct {
	ns    namespace
	store store.Store
	codec *serializer.Codec
}

var _ facade.Storage = (*storage)(nil)

func (s *storage) GetItem(ctx context.Context, key string) (any, error) {
	data, err := s.store.Get(ctx, s.ns.key(key))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return s.codec.Decode(ctx, data)
}

func (s *storage) SetItem(ctx context.Context, key string, value any) (any, error) {
	data, err := s.codec.Encode(ctx, value)
	if err != nil {
		return nil, err
	}

	if err = s.store.Set(ctx, s.ns.key(key), data); err != nil {
		return nil, err
	}

	return value, nil
}

func (s *storage) RemoveItem(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.ns.key(key))
}

func (s *storage) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.ns.prefix)
}

func (s *storage) Keys(ctx context.Context) ([]string, error) {
	physical, err := s.store.Keys(ctx, s.ns.prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(physical))
	for _, pk := range physical {
		if key, ok := s.ns.strip(pk); ok {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (s *storage) Iterate(ctx context.Context, fn facade.IterateFunc) (any, error) {
	physical, err := s.store.Keys(ctx, s.ns.prefix)
	if err != nil {
		return nil, err
	}

	values, err := s.store.MultiGet(ctx, physical)
	if err != nil {
		return nil, err
	}

	ordinal := 1
	for _, pk := range physical {
		key, ok := s.ns.strip(pk)
		if !ok {
			continue
		}
		data, ok := values[pk]
		if !ok {
			// Removed after listing.
			continue
		}

		val, err := s.codec.Decode(ctx, data)
		if err != nil {
			return nil, err
		}

		if res, stop := fn(val, key, ordinal); stop {
			return res, nil
		}
		ordinal++
	}

	return nil, nil
}

func (s *storage) Length(ctx context.Context) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}

	return len(keys), nil
}
