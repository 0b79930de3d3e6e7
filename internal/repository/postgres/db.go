package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes we translate into domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

//go:embed schema.sql
var schemaSQL string

// InitDB initializes the database connection pool
// This is called once at application startup
func InitDB(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime time.Duration) (*pgxpool.Pool, error) {
	// Parse the connection string and create a config
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool settings
	config.MaxConns = int32(maxConns)          // Maximum number of connections
	config.MinConns = int32(minConns)          // Minimum number of idle connections
	config.MaxConnLifetime = maxLifetime       // Maximum lifetime of a connection
	config.MaxConnIdleTime = 30 * time.Minute  // Close idle connections after 30 minutes
	config.HealthCheckPeriod = 1 * time.Minute // Check connection health every minute

	// Create the connection pool
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the urls and clicks tables and their indexes if missing.
// Every statement is idempotent, so it runs on each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// No arguments: pgx sends this over the simple protocol, which accepts
	// several statements in one round trip.
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// track starts timing operation; call the returned func with the method's
// named error result:
//
//	defer track("get")(&err)
//
// Only infrastructure failures count as database errors; not-found and
// conflicts are normal outcomes.
func track(operation string) func(*error) {
	start := time.Now()
	return func(err *error) {
		metrics.DatabaseQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if *err != nil && domain.KindOf(*err) == "" {
			metrics.DatabaseErrorsTotal.WithLabelValues(operation).Inc()
		}
	}
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
