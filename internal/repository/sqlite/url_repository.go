package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/repository"
)

const urlColumns = `id, short_code, original_url, custom_alias, created_at, expires_at, is_active, click_count`

type urlRepository struct {
	db *sql.DB
}

// NewURLRepository returns the SQLite implementation of repository.URLRepository.
func NewURLRepository(d *DB) repository.URLRepository {
	return &urlRepository{db: d.db}
}

// Create inserts url; the unique index on short_code decides conflicts.
func (r *urlRepository) Create(ctx context.Context, url *domain.URL) (err error) {
	defer track("create")(&err)

	const q = `
INSERT INTO urls (short_code, original_url, custom_alias, created_at, expires_at, is_active, click_count)
VALUES (?, ?, ?, ?, ?, ?, ?);`

	var alias sql.NullString
	if url.CustomAlias != nil {
		alias = sql.NullString{String: *url.CustomAlias, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, q,
		url.ShortCode,
		url.OriginalURL,
		alias,
		url.CreatedAt.UTC(),
		nullTime(url.ExpiresAt),
		url.IsActive,
		url.ClickCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(url.ShortCode)
		}
		return fmt.Errorf("failed to create URL: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read URL id: %w", err)
	}
	url.ID = id
	return nil
}

func (r *urlRepository) GetByShortCode(ctx context.Context, shortCode string) (_ *domain.URL, err error) {
	defer track("get")(&err)

	q := `SELECT ` + urlColumns + ` FROM urls WHERE short_code = ? LIMIT 1;`

	url, err := scanURL(r.db.QueryRowContext(ctx, q, shortCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError(shortCode)
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}
	return url, nil
}

// Delete removes the row; foreign_keys=ON makes SQLite cascade to clicks.
func (r *urlRepository) Delete(ctx context.Context, shortCode string) (err error) {
	defer track("delete")(&err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM urls WHERE short_code = ?;`, shortCode)
	if err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}
	return requireAffected(res, shortCode)
}

func (r *urlRepository) Deactivate(ctx context.Context, shortCode string) (err error) {
	defer track("deactivate")(&err)

	res, err := r.db.ExecContext(ctx, `UPDATE urls SET is_active = 0 WHERE short_code = ?;`, shortCode)
	if err != nil {
		return fmt.Errorf("failed to deactivate URL: %w", err)
	}
	return requireAffected(res, shortCode)
}

func (r *urlRepository) IncrementClicks(ctx context.Context, shortCode string) (err error) {
	defer track("increment_clicks")(&err)

	res, err := r.db.ExecContext(ctx, `UPDATE urls SET click_count = click_count + 1 WHERE short_code = ?;`, shortCode)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	return requireAffected(res, shortCode)
}

func (r *urlRepository) List(ctx context.Context, offset, limit int) (_ []*domain.URL, _ int64, err error) {
	defer track("list")(&err)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM urls WHERE is_active = 1;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count URLs: %w", err)
	}

	q := `SELECT ` + urlColumns + `
FROM urls
WHERE is_active = 1
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`

	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close()

	urls := make([]*domain.URL, 0, limit)
	for rows.Next() {
		url, err := scanURL(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating URLs: %w", err)
	}

	return urls, total, nil
}

func (r *urlRepository) RecomputeClicks(ctx context.Context, urlID int64) (_ int64, err error) {
	defer track("recompute_clicks")(&err)

	const q = `
UPDATE urls
SET click_count = (SELECT COUNT(*) FROM clicks WHERE url_id = ?)
WHERE id = ?
RETURNING click_count;`

	var count int64
	if err := r.db.QueryRowContext(ctx, q, urlID, urlID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NewNotFoundError(fmt.Sprintf("id %d", urlID))
		}
		return 0, fmt.Errorf("failed to recompute clicks: %w", err)
	}
	return count, nil
}

func (r *urlRepository) PurgeExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	defer track("purge_expired")(&err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM urls WHERE expires_at IS NOT NULL AND expires_at < ?;`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired URLs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanURL(row rowScanner) (*domain.URL, error) {
	var (
		url     domain.URL
		alias   sql.NullString
		expires sql.NullTime
	)

	err := row.Scan(
		&url.ID,
		&url.ShortCode,
		&url.OriginalURL,
		&alias,
		&url.CreatedAt,
		&expires,
		&url.IsActive,
		&url.ClickCount,
	)
	if err != nil {
		return nil, err
	}

	url.CreatedAt = url.CreatedAt.UTC()
	if alias.Valid {
		a := alias.String
		url.CustomAlias = &a
	}
	if expires.Valid {
		t := expires.Time.UTC()
		url.ExpiresAt = &t
	}
	return &url, nil
}

func requireAffected(res sql.Result, shortCode string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError(shortCode)
	}
	return nil
}
