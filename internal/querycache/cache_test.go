package querycache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/querycache"
)

func newCache(t *testing.T) *querycache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return querycache.New(client, time.Minute, nil)
}

func TestFetchPopulatesAndServesFromCache(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	key := querycache.Key("assets", "list", "page=1")

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return []string{"laptop", "monitor"}, nil
	}

	var first, second []string
	require.NoError(t, c.Fetch(ctx, key, &first, loader))
	require.NoError(t, c.Fetch(ctx, key, &second, loader))

	require.Equal(t, []string{"laptop", "monitor"}, second)
	require.Equal(t, 1, loads, "second fetch must come from cache")
}

func TestInvalidationForcesReload(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	key := querycache.Key("assets", "list", "page=1")

	version := 0
	loader := func(context.Context) (any, error) {
		version++
		return version, nil
	}

	var got int
	require.NoError(t, c.Fetch(ctx, key, &got, loader))
	require.Equal(t, 1, got)

	// A mutation declares the list identity stale; the next read reloads.
	c.Invalidate(ctx, key)

	require.NoError(t, c.Fetch(ctx, key, &got, loader))
	require.Equal(t, 2, got)
}

func TestInvalidatePrefixDropsAllPages(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return loads, nil
	}

	var v int
	require.NoError(t, c.Fetch(ctx, querycache.Key("assets", "list", "page=1"), &v, loader))
	require.NoError(t, c.Fetch(ctx, querycache.Key("assets", "list", "page=2"), &v, loader))
	require.Equal(t, 2, loads)

	c.InvalidatePrefix(ctx, querycache.Key("assets", "list"))

	require.NoError(t, c.Fetch(ctx, querycache.Key("assets", "list", "page=1"), &v, loader))
	require.NoError(t, c.Fetch(ctx, querycache.Key("assets", "list", "page=2"), &v, loader))
	require.Equal(t, 4, loads, "both pages must reload after prefix invalidation")
}

func TestNilClientDegradesToLoader(t *testing.T) {
	c := querycache.New(nil, time.Minute, nil)

	var got string
	err := c.Fetch(context.Background(), querycache.Key("x"), &got, func(context.Context) (any, error) {
		return "direct", nil
	})
	require.NoError(t, err)
	require.Equal(t, "direct", got)
}
