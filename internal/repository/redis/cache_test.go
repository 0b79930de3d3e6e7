package redis

import (
	"context"
	"testing"
	"time"

	"shorturl/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Hour), mr
}

func sampleURL(code string) *domain.URL {
	return domain.NewURL("https://example.com/"+code, code, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
}

func TestCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.GetURL(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_SetAndGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	url := sampleURL("abc1234")
	url.ID = 42
	url.ClickCount = 3

	require.NoError(t, cache.SetURL(ctx, "abc1234", url))

	got, err := cache.GetURL(ctx, "abc1234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "https://example.com/abc1234", got.OriginalURL)
	assert.True(t, got.CreatedAt.Equal(url.CreatedAt))
	assert.True(t, got.IsActive)
	assert.Equal(t, int64(3), got.ClickCount)
	assert.Equal(t, time.Hour, mr.TTL("url:abc1234"))
}

func TestCache_StaleWriteAfterDeleteIsIgnored(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	stale := sampleURL("gone123")

	// A lookup read the row, then the URL was deleted, then the lookup
	// tries to fill the cache.
	require.NoError(t, cache.DeleteURL(ctx, "gone123"))
	require.NoError(t, cache.SetURL(ctx, "gone123", stale))

	got, err := cache.GetURL(ctx, "gone123")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, tombstoneTTL, mr.TTL("url:gone123"))

	mr.FastForward(tombstoneTTL + time.Second)

	require.NoError(t, cache.SetURL(ctx, "gone123", stale))
	got, err = cache.GetURL(ctx, "gone123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "gone123", got.ShortCode)
}

func TestCache_DeleteInvalidatesLiveEntry(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetURL(ctx, "live123", sampleURL("live123")))
	require.NoError(t, cache.DeleteURL(ctx, "live123"))

	got, err := cache.GetURL(ctx, "live123")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_ClearOnlyTouchesURLKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetURL(ctx, "one1111", sampleURL("one1111")))
	require.NoError(t, cache.SetURL(ctx, "two2222", sampleURL("two2222")))
	require.NoError(t, cache.DeleteURL(ctx, "three33"))
	require.NoError(t, mr.Set("ratelimit:write:10.0.0.1", "2"))

	n, err := cache.Clear(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, mr.Exists("url:one1111"))
	assert.True(t, mr.Exists("ratelimit:write:10.0.0.1"))
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, NewCache(client, time.Minute).Ping(context.Background()))
}
