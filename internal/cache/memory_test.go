package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))

	now = now.Add(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.evict()
	assert.Zero(t, c.Len())
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	for _, k := range []string{Key(KeyPrefixStats, "a"), Key(KeyPrefixStats, "b"), Key(KeyPrefixOperators, "all")} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}

	require.NoError(t, c.DeleteByPattern(ctx, Pattern(KeyPrefixStats)))

	assert.Equal(t, 1, c.Len())
	_, err := c.Get(ctx, Key(KeyPrefixOperators, "all"))
	assert.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	type payload struct {
		Total int `json:"total"`
	}

	require.NoError(t, SetJSON(ctx, c, "p", payload{Total: 3}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "p", &got))
	assert.Equal(t, 3, got.Total)

	assert.ErrorIs(t, GetJSON(ctx, NewNoOpCache(), "p", &got), ErrCacheMiss)
}
