package facade_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/forage/driver"
	"go.hackfix.me/forage/facade"
	"go.hackfix.me/forage/store/memory"
)

type unsupportedDriver struct{}

func (unsupportedDriver) Name() string                  { return "unsupported" }
func (unsupportedDriver) Supported(context.Context) bool { return false }
func (unsupportedDriver) Open(context.Context, facade.Config) (facade.Storage, error) {
	return nil, errors.New("should not be opened")
}

type brokenDriver struct{ err error }

func (brokenDriver) Name() string                  { return "broken" }
func (brokenDriver) Supported(context.Context) bool { return true }
func (d brokenDriver) Open(context.Context, facade.Config) (facade.Storage, error) {
	return nil, d.err
}

func TestForageNoDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := facade.New(facade.Config{})
	assert.Equal(t, facade.DefaultName, f.Config().Name)
	assert.Equal(t, "", f.Driver())

	_, err := f.GetItem(ctx, "key")
	assert.ErrorIs(t, err, facade.ErrNoDriver)
	_, err = f.SetItem(ctx, "key", "value")
	assert.ErrorIs(t, err, facade.ErrNoDriver)
	assert.ErrorIs(t, f.RemoveItem(ctx, "key"), facade.ErrNoDriver)
	assert.ErrorIs(t, f.Clear(ctx), facade.ErrNoDriver)
	_, err = f.Keys(ctx)
	assert.ErrorIs(t, err, facade.ErrNoDriver)
	_, err = f.Key(ctx, 0)
	assert.ErrorIs(t, err, facade.ErrNoDriver)
	_, err = f.Iterate(ctx, func(any, string, int) (any, bool) { return nil, false })
	assert.ErrorIs(t, err, facade.ErrNoDriver)
	_, err = f.Length(ctx)
	assert.ErrorIs(t, err, facade.ErrNoDriver)
}

func TestForageSetDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := facade.New(facade.Config{Name: "test"})

	assert.EqualError(t, f.DefineDriver(nil), "driver is nil")

	drv, err := driver.WithDefaultSerialization(memory.New())
	require.NoError(t, err)
	require.NoError(t, f.DefineDriver(drv))
	require.NoError(t, f.DefineDriver(unsupportedDriver{}))

	errOpen := errors.New("open failed")
	require.NoError(t, f.DefineDriver(brokenDriver{err: errOpen}))

	err = f.SetDriver(ctx, "undefined", "unsupported")
	assert.ErrorIs(t, err, facade.ErrNoSupportedDriver)
	assert.Equal(t, "", f.Driver())

	err = f.SetDriver(ctx, "broken")
	assert.ErrorIs(t, err, errOpen)
	assert.Equal(t, "", f.Driver())

	err = f.SetDriver(ctx, "undefined", "unsupported", driver.DefaultName, "broken")
	require.NoError(t, err)
	assert.Equal(t, driver.DefaultName, f.Driver())
}

func TestForageOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memory.New()
	drv, err := driver.WithDefaultSerialization(st)
	require.NoError(t, err)

	f := facade.New(facade.Config{Name: "test"})
	require.NoError(t, f.DefineDriver(drv))
	require.NoError(t, f.SetDriver(ctx, drv.Name()))

	ret, err := f.SetItem(ctx, "foo", "bar")
	require.NoError(t, err)
	assert.Equal(t, "bar", ret)
	_, err = f.SetItem(ctx, "bar", "foo")
	require.NoError(t, err)

	val, err := f.GetItem(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	keys, err := f.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, keys)

	for n, exp := range map[int]string{0: "foo", 1: "bar", 2: "", -1: ""} {
		key, err := f.Key(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, exp, key, n)
	}

	count, err := f.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	res, err := f.Iterate(ctx, func(value any, key string, ordinal int) (any, bool) {
		return value, ordinal == 2
	})
	require.NoError(t, err)
	assert.Equal(t, "foo", res)

	require.NoError(t, f.RemoveItem(ctx, "foo"))
	val, err = f.GetItem(ctx, "foo")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, f.Clear(ctx))
	count, err = f.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestForageInstancesIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memory.New()
	drv, err := driver.WithDefaultSerialization(st)
	require.NoError(t, err)

	newForage := func(name string) *facade.Forage {
		f := facade.New(facade.Config{Name: name})
		require.NoError(t, f.DefineDriver(drv))
		require.NoError(t, f.SetDriver(ctx, drv.Name()))
		return f
	}
	f1, f2 := newForage("one"), newForage("two")

	_, err = f1.SetItem(ctx, "key", 1)
	require.NoError(t, err)
	_, err = f2.SetItem(ctx, "key", 2)
	require.NoError(t, err)

	require.NoError(t, f1.Clear(ctx))

	val, err := f2.GetItem(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, 2.0, val)

	// A second facade has its own driver table.
	f3 := facade.New(facade.Config{Name: "three"})
	assert.ErrorIs(t, f3.SetDriver(ctx, drv.Name()), facade.ErrNoSupportedDriver)
}

func TestForageLogsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	drv, err := driver.WithoutSerialization(memory.New())
	require.NoError(t, err)

	f := facade.New(facade.Config{Name: "test"}, facade.WithLogger(logger))
	require.NoError(t, f.DefineDriver(drv))
	require.NoError(t, f.SetDriver(ctx, drv.Name()))

	_, err = f.GetItem(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = f.SetItem(ctx, "key", 42)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "storage operation failed")
	assert.Contains(t, buf.String(), "op=setItem")
	assert.Contains(t, buf.String(), "key=key")
}
