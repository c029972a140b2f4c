package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchPopulatesOnMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "ledger", "docs", "all")
	require.NoError(t, err)

	loads := 0
	loader := func(ctx context.Context) (any, error) {
		loads++
		return []string{"doc-1", "doc-2"}, nil
	}

	var got []string
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, []string{"doc-1", "doc-2"}, got)
	require.Equal(t, 1, loads)

	// Second fetch under the same key is served from Redis.
	got = nil
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, []string{"doc-1", "doc-2"}, got)
	require.Equal(t, 1, loads)
}

func TestCacheBumpInvalidates(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	before, err := c.BuildKey(ctx, "ledger", "docs", "all")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "ledger", "docs", "all")
	require.NoError(t, err)

	// The version suffix moves, so stale payloads are simply never read again.
	require.NotEqual(t, before, after)
}

func TestNilCacheFallsThroughToLoader(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "ledger", "docs", "all")
	require.NoError(t, err)
	require.Equal(t, "ledger:docs:all", key)

	var got []string
	err = c.FetchJSON(ctx, key, &got, func(ctx context.Context) (any, error) {
		return []string{"doc-1"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"doc-1"}, got)

	require.NoError(t, c.Bump(ctx))
}
