package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, scope string, limit int) (*RateLimiter, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, scope, limit, time.Minute), mr, client
}

func TestAllow_CountsDownThenBlocks(t *testing.T) {
	rl, mr, _ := newTestLimiter(t, "write", 3)
	ctx := context.Background()
	before := time.Now()

	for want := 2; want >= 0; want-- {
		d, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, want, d.Remaining)
	}

	d, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, d.ResetAt.Before(before.Truncate(time.Second)))
	assert.False(t, d.ResetAt.After(time.Now().Add(time.Minute+time.Second)))

	assert.True(t, mr.Exists("ratelimit:write:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:write:10.0.0.1"))
	assert.Equal(t, 3, rl.MaxRequests())
}

func TestAllow_WindowResets(t *testing.T) {
	rl, mr, _ := newTestLimiter(t, "write", 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	mr.FastForward(time.Minute + time.Second)

	d, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestAllow_KeysAndScopesAreIndependent(t *testing.T) {
	rl, _, client := newTestLimiter(t, "write", 1)
	ctx := context.Background()

	d, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = rl.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other client")

	other := New(client, "bulk", 1, time.Minute)
	d, err = other.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other scope")
}
