package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "url:"

// tombstone replaces an invalidated entry for tombstoneTTL. SetURL only
// writes absent keys, so a lookup that read the row before a delete cannot
// put the stale row back. tombstoneTTL must outlast a request's timeout.
const (
	tombstone    = "deleted"
	tombstoneTTL = 30 * time.Second
)

// Cache keeps resolved URL records in Redis for the redirect path.
// Entries are the JSON form of domain.URL under "url:{code}".
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new Redis cache
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

func key(shortCode string) string {
	return keyPrefix + shortCode
}

// GetURL retrieves a URL from cache
// Returns nil, nil on a miss
func (c *Cache) GetURL(ctx context.Context, shortCode string) (*domain.URL, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	data, err := c.client.Get(ctx, key(shortCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	if string(data) == tombstone {
		metrics.RecordCacheMiss()
		return nil, nil
	}

	metrics.RecordCacheHit()

	var url domain.URL
	if err := json.Unmarshal(data, &url); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached URL: %w", err)
	}

	return &url, nil
}

// SetURL stores a URL in cache unless the key already holds an entry or a
// tombstone.
func (c *Cache) SetURL(ctx context.Context, shortCode string, url *domain.URL) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("failed to marshal URL: %w", err)
	}

	if err := c.client.SetNX(ctx, key(shortCode), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// DeleteURL invalidates a URL by writing a tombstone over it.
// Used when URL is deactivated or deleted
func (c *Cache) DeleteURL(ctx context.Context, shortCode string) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	}()

	if err := c.client.Set(ctx, key(shortCode), tombstone, tombstoneTTL).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

// Clear removes all cached URLs and returns how many keys were dropped.
// The CLI runs it after bulk deletes such as purge-expired.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()

	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan error: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return 0, fmt.Errorf("redis delete error: %w", err)
		}
	}

	return len(keys), nil
}

// Ping checks the Redis connection for the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// InitRedis creates a new Redis client
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
