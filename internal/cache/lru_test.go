package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLRUSetGetRemove(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(16)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Now().Add(time.Minute)))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, c.Remove(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(16)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Now().Add(-time.Second)))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
