package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const urlColumns = `id, short_code, original_url, custom_alias, created_at,
		       expires_at, is_active, click_count`

// urlRepository is the PostgreSQL implementation of repository.URLRepository
// The lowercase name means it's private to this package
// We return it as the interface type (repository.URLRepository) for abstraction
type urlRepository struct {
	db *pgxpool.Pool // Connection pool for database connections
}

// NewURLRepository creates a new PostgreSQL URL repository
func NewURLRepository(db *pgxpool.Pool) repository.URLRepository {
	return &urlRepository{db: db}
}

// Create inserts a new URL into the database
//
// The unique indexes on short_code and custom_alias are the ONLY uniqueness check.
// Two concurrent inserts of the same code are serialized by Postgres and the loser
// gets SQLSTATE 23505, which we turn into a ConflictError.
func (r *urlRepository) Create(ctx context.Context, url *domain.URL) (err error) {
	defer track("create")(&err)

	query := `
		INSERT INTO urls (
			short_code, original_url, custom_alias, created_at,
			expires_at, is_active, click_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id
	`

	err = r.db.QueryRow(
		ctx,
		query,
		url.ShortCode,
		url.OriginalURL,
		url.CustomAlias, // Can be nil (NULL in database)
		url.CreatedAt,
		url.ExpiresAt, // Can be nil (NULL in database)
		url.IsActive,
		url.ClickCount,
	).Scan(&url.ID)

	if err != nil {
		if isPgError(err, uniqueViolation) {
			return domain.NewConflictError(url.ShortCode)
		}
		return fmt.Errorf("failed to create URL: %w", err)
	}

	return nil
}

// GetByShortCode retrieves a URL by its short code
func (r *urlRepository) GetByShortCode(ctx context.Context, shortCode string) (url *domain.URL, err error) {
	defer track("get")(&err)

	query := `SELECT ` + urlColumns + ` FROM urls WHERE short_code = $1`

	url, err = scanURL(r.db.QueryRow(ctx, query, shortCode))
	if err != nil {
		// pgx.ErrNoRows is returned when no rows match the query
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(shortCode)
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}

	return url, nil
}

// Delete removes a URL; Postgres cascades the delete to its clicks
func (r *urlRepository) Delete(ctx context.Context, shortCode string) (err error) {
	defer track("delete")(&err)

	result, err := r.db.Exec(ctx, `DELETE FROM urls WHERE short_code = $1`, shortCode)
	if err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError(shortCode)
	}

	return nil
}

// Deactivate performs a soft delete (sets is_active = false)
func (r *urlRepository) Deactivate(ctx context.Context, shortCode string) (err error) {
	defer track("deactivate")(&err)

	result, err := r.db.Exec(ctx, `UPDATE urls SET is_active = false WHERE short_code = $1`, shortCode)
	if err != nil {
		return fmt.Errorf("failed to deactivate URL: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError(shortCode)
	}

	return nil
}

// IncrementClicks atomically increases the click counter
// ATOMIC OPERATION: the addition happens inside Postgres, so concurrent
// redirects of the same code never overwrite each other's increment.
func (r *urlRepository) IncrementClicks(ctx context.Context, shortCode string) (err error) {
	defer track("increment_clicks")(&err)

	query := `
		UPDATE urls
		SET click_count = click_count + 1
		WHERE short_code = $1
	`

	result, err := r.db.Exec(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError(shortCode)
	}

	return nil
}

// List returns a page of active URLs ordered newest first.
// id breaks ties between rows created in the same instant, which keeps
// pagination deterministic.
func (r *urlRepository) List(ctx context.Context, offset, limit int) (urls []*domain.URL, total int64, err error) {
	defer track("list")(&err)

	if err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM urls WHERE is_active = true`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count URLs: %w", err)
	}

	query := `SELECT ` + urlColumns + `
		FROM urls
		WHERE is_active = true
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close() // Always close rows to free resources

	urls = make([]*domain.URL, 0, limit)
	for rows.Next() {
		url, err := scanURL(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}

	// Check for errors during iteration
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating URLs: %w", err)
	}

	return urls, total, nil
}

// RecomputeClicks makes click_count agree with the click rows again.
func (r *urlRepository) RecomputeClicks(ctx context.Context, urlID int64) (count int64, err error) {
	defer track("recompute_clicks")(&err)

	query := `
		UPDATE urls
		SET click_count = (SELECT COUNT(*) FROM clicks WHERE url_id = $1)
		WHERE id = $1
		RETURNING click_count
	`

	if err = r.db.QueryRow(ctx, query, urlID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewNotFoundError(fmt.Sprintf("id %d", urlID))
		}
		return 0, fmt.Errorf("failed to recompute clicks: %w", err)
	}

	return count, nil
}

// PurgeExpired deletes expired URLs (and, through the cascade, their clicks).
func (r *urlRepository) PurgeExpired(ctx context.Context, now time.Time) (n int64, err error) {
	defer track("purge_expired")(&err)

	result, err := r.db.Exec(ctx, `DELETE FROM urls WHERE expires_at IS NOT NULL AND expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired URLs: %w", err)
	}

	return result.RowsAffected(), nil
}

// scanURL reads one urls row selected with urlColumns.
// Both pgx.Row and pgx.Rows satisfy the Scan signature.
func scanURL(row pgx.Row) (*domain.URL, error) {
	url := &domain.URL{}
	err := row.Scan(
		&url.ID,
		&url.ShortCode,
		&url.OriginalURL,
		&url.CustomAlias, // pgx handles NULL -> nil conversion automatically
		&url.CreatedAt,
		&url.ExpiresAt,
		&url.IsActive,
		&url.ClickCount,
	)
	if err != nil {
		return nil, err
	}

	// timestamptz comes back in the local zone; the domain works in UTC.
	url.CreatedAt = url.CreatedAt.UTC()
	if url.ExpiresAt != nil {
		expiresAt := url.ExpiresAt.UTC()
		url.ExpiresAt = &expiresAt
	}

	return url, nil
}
