// Package storetest provides a conformance test suite for store.Store
// implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/forage/store"
)

// Run runs the conformance suite. newStore must return a new empty store for
// each call. The suite closes the stores it creates.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	open := func(t *testing.T) store.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("get_missing", func(t *testing.T) {
		s := open(t)
		val, err := s.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Nil(t, val)
	})

	t.Run("set_get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "a/key", []byte("value")))
		val, err := s.Get(ctx, "a/key")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), val)

		require.NoError(t, s.Set(ctx, "a/key", []byte("other")))
		val, err = s.Get(ctx, "a/key")
		require.NoError(t, err)
		assert.Equal(t, []byte("other"), val)
	})

	t.Run("empty_value", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "empty", []byte{}))
		val, err := s.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Len(t, val, 0)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "key", []byte("value")))
		require.NoError(t, s.Delete(ctx, "key"))
		_, err := s.Get(ctx, "key")
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Deleting a missing key is a no-op.
		assert.NoError(t, s.Delete(ctx, "key"))

		keys, err := s.Keys(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("keys_insertion_order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		keys, err := s.Keys(ctx, "")
		require.NoError(t, err)
		assert.NotNil(t, keys)
		assert.Empty(t, keys)

		for _, k := range []string{"ns/foo", "ns/bar", "other/x", "ns/baz"} {
			require.NoError(t, s.Set(ctx, k, []byte(k)))
		}
		// Overwriting keeps the original position.
		require.NoError(t, s.Set(ctx, "ns/foo", []byte("new")))

		keys, err = s.Keys(ctx, "ns/")
		require.NoError(t, err)
		assert.Equal(t, []string{"ns/foo", "ns/bar", "ns/baz"}, keys)

		keys, err = s.Keys(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"ns/foo", "ns/bar", "other/x", "ns/baz"}, keys)

		// A deleted and re-added key moves to the end.
		require.NoError(t, s.Delete(ctx, "ns/bar"))
		require.NoError(t, s.Set(ctx, "ns/bar", []byte("again")))
		keys, err = s.Keys(ctx, "ns/")
		require.NoError(t, err)
		assert.Equal(t, []string{"ns/foo", "ns/baz", "ns/bar"}, keys)
	})

	t.Run("multi_get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "a", []byte("1")))
		require.NoError(t, s.Set(ctx, "b", []byte("2")))

		vals, err := s.MultiGet(ctx, []string{"a", "missing", "b"})
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, vals)

		vals, err = s.MultiGet(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vals)
	})

	t.Run("clear_prefix", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, k := range []string{"one/a", "two/a", "one/b", "two/b"} {
			require.NoError(t, s.Set(ctx, k, []byte(k)))
		}

		require.NoError(t, s.Clear(ctx, "one/"))
		keys, err := s.Keys(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"two/a", "two/b"}, keys)

		_, err = s.Get(ctx, "one/a")
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.Clear(ctx, ""))
		keys, err = s.Keys(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("concurrent_set", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.Set(ctx, fmt.Sprintf("key%02d", i), []byte{byte(i)})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		keys, err := s.Keys(ctx, "key")
		require.NoError(t, err)
		assert.Len(t, keys, 20)
	})

	t.Run("concurrent_set_same_key", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "first", []byte("1")))

		var wg sync.WaitGroup
		errs := make(chan error, 50)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.Set(ctx, "ns/same", []byte{byte(i)})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		require.NoError(t, s.Set(ctx, "last", []byte("2")))

		keys, err := s.Keys(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "ns/same", "last"}, keys)

		val, err := s.Get(ctx, "ns/same")
		require.NoError(t, err)
		require.Len(t, val, 1)
		assert.Less(t, int(val[0]), 50)
	})
}
