package repository

import (
	"context"
	"time"

	"shorturl/internal/domain"
)

// URLRepository defines the interface for URL data access
// This is the "Repository Pattern" - it abstracts data storage
//
// Implementations MUST enforce uniqueness of short_code (and custom_alias) with a
// storage-level constraint and report a violation as a domain ConflictError.
// Callers never pre-check existence: the insert itself is the check.
type URLRepository interface {
	// Create inserts a new URL and fills in url.ID.
	// Returns domain.ErrConflict (by kind) when the short code is taken.
	Create(ctx context.Context, url *domain.URL) error

	// GetByShortCode retrieves a URL by its short code (custom aliases are stored
	// as short codes). Inactive and expired rows are returned too.
	GetByShortCode(ctx context.Context, shortCode string) (*domain.URL, error)

	// Delete removes the URL; its clicks go with it (ON DELETE CASCADE).
	Delete(ctx context.Context, shortCode string) error

	// Deactivate clears is_active so the code resolves as expired.
	Deactivate(ctx context.Context, shortCode string) error

	// IncrementClicks increases the click counter
	// This is done atomically in the database to avoid lost updates
	IncrementClicks(ctx context.Context, shortCode string) error

	// List returns one page of active URLs, newest first, and the active total.
	List(ctx context.Context, offset, limit int) ([]*domain.URL, int64, error)

	// RecomputeClicks resets click_count from the click rows and returns it.
	RecomputeClicks(ctx context.Context, urlID int64) (int64, error)

	// PurgeExpired deletes URLs whose expiry lies before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ClickRepository defines the interface for analytics data access
type ClickRepository interface {
	// Record inserts the click and increments the owning URL's click_count
	// in one transaction. On success click.ID is set.
	Record(ctx context.Context, click *domain.Click) error

	// ListByURL returns every click of a URL ordered by clicked_at, then id.
	ListByURL(ctx context.Context, urlID int64) ([]*domain.Click, error)

	// CountByURL returns the number of click rows for a URL.
	CountByURL(ctx context.Context, urlID int64) (int64, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
