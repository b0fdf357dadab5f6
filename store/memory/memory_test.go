package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/forage/store"
	"go.hackfix.me/forage/store/storetest"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestMemoryValueIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New()

	in := []byte("value")
	require.NoError(t, m.Set(ctx, "key", in))
	in[0] = 'X'

	out, err := m.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), out)

	out[0] = 'Y'
	out, err = m.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), out)
}
