// Package facade is a generic key-value storage API backed by pluggable
// drivers.
//
// A Forage has its own driver table and configuration. Drivers are
// registered with DefineDriver, and one of them is selected and opened with
// SetDriver:
//
//	f := facade.New(facade.Config{Name: "myapp"})
//	if err := f.DefineDriver(drv); err != nil { ... }
//	if err := f.SetDriver(ctx, drv.Name()); err != nil { ... }
//	_, err := f.SetItem(ctx, "key", "value")
package facade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// DefaultName is the configuration name used when none is provided.
const DefaultName = "forage"

var (
	// ErrNoDriver is returned by operations called before SetDriver.
	ErrNoDriver = errors.New("no driver set")
	// ErrNoSupportedDriver is returned by SetDriver if none of the requested
	// drivers are defined and supported.
	ErrNoSupportedDriver = errors.New("no supported driver found")
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the configuration of a Forage instance.
type Config struct {
	// Name identifies the data of this instance. Drivers use it to isolate
	// the keys of different instances sharing a backing store.
	Name string
}

// Option is a function that allows configuring a Forage instance.
type Option func(*Forage)

// WithLogger sets the logger failed operations are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Forage) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Forage is a key-value storage instance.
type Forage struct {
	cfg    Config
	logger *slog.Logger

	mx      sync.RWMutex
	drivers map[string]Driver
	driver  string
	storage Storage
}

// New returns a new Forage instance with the given configuration. An empty
// name defaults to DefaultName.
func New(cfg Config, opts ...Option) *Forage {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	f := &Forage{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		drivers: make(map[string]Driver),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Config returns the configuration of the instance.
func (f *Forage) Config() Config {
	return f.cfg
}

// DefineDriver registers d. Registering a driver with an existing name
// replaces the previous one.
func (f *Forage) DefineDriver(d Driver) error {
	if d == nil {
		return errors.New("driver is nil")
	}
	if d.Name() == "" {
		return errors.New("driver name is empty")
	}

	f.mx.Lock()
	f.drivers[d.Name()] = d
	f.mx.Unlock()

	return nil
}

// SetDriver opens the first of the given drivers that is defined and
// supported, and uses it for all subsequent operations.
func (f *Forage) SetDriver(ctx context.Context, names ...string) error {
	f.mx.Lock()
	defer f.mx.Unlock()

	for _, name := range names {
		d, ok := f.drivers[name]
		if !ok {
			f.logger.Debug("driver not defined", "driver", name)
			continue
		}
		if !d.Supported(ctx) {
			f.logger.Debug("driver not supported", "driver", name)
			continue
		}

		storage, err := d.Open(ctx, f.cfg)
		if err != nil {
			return fmt.Errorf("failed opening driver '%s': %w", name, err)
		}
		f.driver, f.storage = name, storage

		return nil
	}

	return ErrNoSupportedDriver
}

// Driver returns the name of the driver in use, or an empty string if no
// driver is set.
func (f *Forage) Driver() string {
	f.mx.RLock()
	defer f.mx.RUnlock()
	return f.driver
}

func (f *Forage) getStorage() (Storage, error) {
	f.mx.RLock()
	defer f.mx.RUnlock()
	if f.storage == nil {
		return nil, ErrNoDriver
	}
	return f.storage, nil
}

func (f *Forage) logErr(ctx context.Context, op string, err error, args ...any) {
	args = append([]any{"op", op, "name", f.cfg.Name, "error", err}, args...)
	f.logger.ErrorContext(ctx, "storage operation failed", args...)
}

// GetItem returns the value of key, or nil if it doesn't exist.
func (f *Forage) GetItem(ctx context.Context, key string) (any, error) {
	s, err := f.getStorage()
	if err != nil {
		return nil, err
	}

	val, err := s.GetItem(ctx, key)
	if err != nil {
		f.logErr(ctx, "getItem", err, "key", key)
		return nil, err
	}

	return val, nil
}

// SetItem stores value under key. It returns value as it was passed in, not in
// its serialized form.
func (f *Forage) SetItem(ctx context.Context, key string, value any) (any, error) {
	s, err := f.getStorage()
	if err != nil {
		return nil, err
	}

	val, err := s.SetItem(ctx, key, value)
	if err != nil {
		f.logErr(ctx, "setItem", err, "key", key)
		return nil, err
	}

	return val, nil
}

// RemoveItem removes key. It's not an error if key doesn't exist.
func (f *Forage) RemoveItem(ctx context.Context, key string) error {
	s, err := f.getStorage()
	if err != nil {
		return err
	}

	if err = s.RemoveItem(ctx, key); err != nil {
		f.logErr(ctx, "removeItem", err, "key", key)
	}

	return err
}

// Clear removes all keys of this instance.
func (f *Forage) Clear(ctx context.Context) error {
	s, err := f.getStorage()
	if err != nil {
		return err
	}

	if err = s.Clear(ctx); err != nil {
		f.logErr(ctx, "clear", err)
	}

	return err
}

// Keys returns all keys, in insertion order.
func (f *Forage) Keys(ctx context.Context) ([]string, error) {
	s, err := f.getStorage()
	if err != nil {
		return nil, err
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		f.logErr(ctx, "keys", err)
		return nil, err
	}

	return keys, nil
}

// Key returns the n-th key in insertion order, starting at 0. It returns an
// empty string if n is out of range.
func (f *Forage) Key(ctx context.Context, n int) (string, error) {
	keys, err := f.Keys(ctx)
	if err != nil {
		return "", err
	}
	if n < 0 || n >= len(keys) {
		return "", nil
	}

	return keys[n], nil
}

// Iterate calls fn for each entry, in insertion order. If fn stops the
// iteration, its result is returned.
func (f *Forage) Iterate(ctx context.Context, fn IterateFunc) (any, error) {
	s, err := f.getStorage()
	if err != nil {
		return nil, err
	}

	res, err := s.Iterate(ctx, fn)
	if err != nil {
		f.logErr(ctx, "iterate", err)
		return nil, err
	}

	return res, nil
}

// Length returns the number of stored entries.
func (f *Forage) Length(ctx context.Context) (int, error) {
	s, err := f.getStorage()
	if err != nil {
		return 0, err
	}

	n, err := s.Length(ctx)
	if err != nil {
		f.logErr(ctx, "length", err)
		return 0, err
	}

	return n, nil
}
