// Package bootstrap opens the backing stores selected by configuration.
// Both binaries (server and cli) share it.
package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"shorturl/internal/config"
	"shorturl/internal/repository"
	"shorturl/internal/repository/postgres"
	redisrepo "shorturl/internal/repository/redis"
	"shorturl/internal/repository/sqlite"
	"shorturl/pkg/logger"
)

// Stores groups the repositories and the handles that must be closed on exit.
type Stores struct {
	URLs   repository.URLRepository
	Clicks repository.ClickRepository
	DB     repository.Pinger

	// Redis and Cache are nil when Redis is disabled or unreachable.
	Redis *goredis.Client
	Cache *redisrepo.Cache

	closers []func()
}

// Close releases every handle in reverse opening order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Open connects the configured database driver and, when enabled, Redis.
// A Redis failure is logged and the stores continue without a cache.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Database.Driver {
	case "postgres":
		pool, err := postgres.InitDB(
			ctx,
			cfg.Database.DatabaseDSN(),
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		s.URLs = postgres.NewURLRepository(pool)
		s.Clicks = postgres.NewClickRepository(pool)
		s.DB = pool
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.URLs = sqlite.NewURLRepository(db)
		s.Clicks = sqlite.NewClickRepository(db)
		s.DB = db
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	log.Info("Database connection established", "driver", cfg.Database.Driver)

	if cfg.Redis.Enabled {
		client, err := redisrepo.InitRedis(ctx, cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("Redis unavailable, continuing without cache", "error", err)
			return s, nil
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Redis = client
		s.Cache = redisrepo.NewCache(client, cfg.Redis.CacheTTL)
		log.Info("Redis connection established", "addr", cfg.Redis.RedisAddr())
	}

	return s, nil
}
