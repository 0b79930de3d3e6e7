package postgres

import (
	"context"
	"fmt"

	"shorturl/internal/domain"
	"shorturl/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// clickRepository is the PostgreSQL implementation for analytics
type clickRepository struct {
	db *pgxpool.Pool
}

// NewClickRepository creates a new PostgreSQL click repository
func NewClickRepository(db *pgxpool.Pool) repository.ClickRepository {
	return &clickRepository{db: db}
}

// Record inserts a click event and bumps the owner's click_count.
//
// Both writes share one transaction: either the event and the increment are
// committed together or neither is, so click_count can never exceed the
// number of click rows.
func (r *clickRepository) Record(ctx context.Context, click *domain.Click) (err error) {
	defer track("record_click")(&err)

	insert := `
		INSERT INTO clicks (
			url_id, clicked_at, user_agent, referrer, ip_hash
		) VALUES (
			$1, $2, $3, $4, $5
		) RETURNING id
	`

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(
			ctx,
			insert,
			click.URLID,
			click.ClickedAt,
			nullIfEmpty(click.UserAgent),
			nullIfEmpty(click.Referrer),
			nullIfEmpty(click.IPHash),
		).Scan(&click.ID)
		if err != nil {
			// The URL was deleted between the redirect and this write.
			if isPgError(err, foreignKeyViolation) {
				return domain.NewNotFoundError(fmt.Sprintf("id %d", click.URLID))
			}
			return fmt.Errorf("failed to create click event: %w", err)
		}

		tag, err := tx.Exec(ctx, `UPDATE urls SET click_count = click_count + 1 WHERE id = $1`, click.URLID)
		if err != nil {
			return fmt.Errorf("failed to increment clicks: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.NewNotFoundError(fmt.Sprintf("id %d", click.URLID))
		}
		return nil
	})

	return err
}

// ListByURL retrieves every click for a URL, oldest first
func (r *clickRepository) ListByURL(ctx context.Context, urlID int64) (clicks []*domain.Click, err error) {
	defer track("list_clicks")(&err)

	query := `
		SELECT id, url_id, clicked_at, user_agent, referrer, ip_hash
		FROM clicks
		WHERE url_id = $1
		ORDER BY clicked_at ASC, id ASC
	`

	// Query returns multiple rows, so we use Query instead of QueryRow
	rows, err := r.db.Query(ctx, query, urlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close() // Always close rows to free resources

	clicks = []*domain.Click{}
	for rows.Next() {
		var userAgent, referrer, ipHash *string
		click := &domain.Click{}
		err := rows.Scan(
			&click.ID,
			&click.URLID,
			&click.ClickedAt,
			&userAgent,
			&referrer,
			&ipHash,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		click.ClickedAt = click.ClickedAt.UTC()
		click.UserAgent = derefString(userAgent)
		click.Referrer = derefString(referrer)
		click.IPHash = derefString(ipHash)
		clicks = append(clicks, click)
	}

	// Check for errors during iteration
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

// CountByURL returns the total number of clicks for a URL
func (r *clickRepository) CountByURL(ctx context.Context, urlID int64) (count int64, err error) {
	defer track("count_clicks")(&err)

	if err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE url_id = $1`, urlID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get click count: %w", err)
	}

	return count, nil
}
