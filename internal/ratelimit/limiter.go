// Package ratelimit is a fixed-window request limiter backed by Redis, so
// every server instance shares the same counters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript counts one request in the window and reports
// {allowed, remaining, reset_unix}. It runs atomically inside Redis.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local current = redis.call('GET', key)
	if current == false then
		redis.call('SET', key, 1, 'EX', window)
		return {1, max_requests - 1, now + window}
	end

	current = tonumber(current)
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		redis.call('EXPIRE', key, window)
		ttl = window
	end
	if current < max_requests then
		redis.call('INCR', key)
		return {1, max_requests - current - 1, now + ttl}
	end
	return {0, 0, now + ttl}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter allows maxRequests per window for each (scope, key) pair.
type RateLimiter struct {
	client      *redis.Client
	scope       string
	maxRequests int
	window      time.Duration
}

// New returns a limiter. scope separates counters of different route groups,
// e.g. "create" and "bulk".
func New(client *redis.Client, scope string, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:      client,
		scope:       scope,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow counts a request for key (usually the client IP).
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.scope, key)

	windowSeconds := int(rl.window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	result, err := allowScript.Run(ctx, rl.client, []string{redisKey},
		rl.maxRequests,
		windowSeconds,
		time.Now().Unix(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit result: %v", result)
	}

	return Decision{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   time.Unix(result[2], 0),
	}, nil
}

// MaxRequests returns the maximum number of requests allowed per window
func (rl *RateLimiter) MaxRequests() int {
	return rl.maxRequests
}
