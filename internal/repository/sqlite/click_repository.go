package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"shorturl/internal/domain"
	"shorturl/internal/repository"
)

type clickRepository struct {
	db *sql.DB
}

// NewClickRepository returns the SQLite implementation of repository.ClickRepository.
func NewClickRepository(d *DB) repository.ClickRepository {
	return &clickRepository{db: d.db}
}

// Record writes the click and the counter bump in one transaction.
func (r *clickRepository) Record(ctx context.Context, click *domain.Click) (err error) {
	defer track("record_click")(&err)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
INSERT INTO clicks (url_id, clicked_at, user_agent, referrer, ip_hash)
VALUES (?, ?, ?, ?, ?);`,
		click.URLID,
		click.ClickedAt.UTC(),
		nullString(click.UserAgent),
		nullString(click.Referrer),
		nullString(click.IPHash),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewNotFoundError(fmt.Sprintf("id %d", click.URLID))
		}
		return fmt.Errorf("failed to create click event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read click id: %w", err)
	}

	upd, err := tx.ExecContext(ctx, `UPDATE urls SET click_count = click_count + 1 WHERE id = ?;`, click.URLID)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if err = requireAffected(upd, fmt.Sprintf("id %d", click.URLID)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit click: %w", err)
	}

	click.ID = id
	return nil
}

func (r *clickRepository) ListByURL(ctx context.Context, urlID int64) (_ []*domain.Click, err error) {
	defer track("list_clicks")(&err)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, url_id, clicked_at, user_agent, referrer, ip_hash
FROM clicks
WHERE url_id = ?
ORDER BY clicked_at ASC, id ASC;`, urlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close()

	clicks := []*domain.Click{}
	for rows.Next() {
		var (
			click                       domain.Click
			userAgent, referrer, ipHash sql.NullString
		)
		if err := rows.Scan(&click.ID, &click.URLID, &click.ClickedAt, &userAgent, &referrer, &ipHash); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		click.ClickedAt = click.ClickedAt.UTC()
		click.UserAgent = userAgent.String
		click.Referrer = referrer.String
		click.IPHash = ipHash.String
		clicks = append(clicks, &click)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

func (r *clickRepository) CountByURL(ctx context.Context, urlID int64) (_ int64, err error) {
	defer track("count_clicks")(&err)

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE url_id = ?;`, urlID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get click count: %w", err)
	}
	return count, nil
}
