package ratecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Total string `json:"total"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestKeyIsStable(t *testing.T) {
	a, err := Key("quote", map[string]string{"cart": "abc"})
	require.NoError(t, err)
	b, err := Key("quote", map[string]string{"cart": "abc"})
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := Key("quote", map[string]string{"cart": "def"})
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	var got payload
	found, err := cache.GetJSON(ctx, "quote:k1", &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.SetJSON(ctx, "quote:k1", payload{Total: "97.20"}))
	found, err = cache.GetJSON(ctx, "quote:k1", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "97.20", got.Total)

	require.NoError(t, cache.Invalidate(ctx, "quote:k1"))
	found, err = cache.GetJSON(ctx, "quote:k1", &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, "quote:k1", payload{Total: "1.00"}))
	mr.FastForward(2 * time.Second)

	var got payload
	found, err := cache.GetJSON(ctx, "quote:k1", &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, "k", payload{}))
	found, err := cache.GetJSON(ctx, "k", &payload{})
	require.NoError(t, err)
	require.False(t, found)
}
