package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/metrics"
	"shorturl/internal/repository"
	"shorturl/internal/shortcode"
	"shorturl/pkg/logger"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Cache interface for URL caching
// Using an interface allows for easy testing and swapping implementations.
// After DeleteURL, a SetURL for the same code must not take effect until any
// lookup that started before the delete has finished.
type Cache interface {
	GetURL(ctx context.Context, shortCode string) (*domain.URL, error)
	SetURL(ctx context.Context, shortCode string, url *domain.URL) error
	DeleteURL(ctx context.Context, shortCode string) error
}

// CodeGenerator draws candidate short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// ClickRecorder accepts clicks for deferred writing. Submit must not block.
type ClickRecorder interface {
	Submit(click *domain.Click) bool
}

// URLService handles business logic for URL operations
// This is the SERVICE LAYER - it sits between HTTP handlers and repositories
type URLService struct {
	urlRepo repository.URLRepository
	cache   Cache
	codes   CodeGenerator
	clicks  ClickRecorder
	log     *logger.Logger
	now     func() time.Time
}

// NewURLService creates a new URL service. A nil cache disables caching.
func NewURLService(urlRepo repository.URLRepository, cache Cache, codes CodeGenerator, clicks ClickRecorder, log *logger.Logger) *URLService {
	if cache == nil {
		cache = noopCache{}
	}
	return &URLService{
		urlRepo: urlRepo,
		cache:   cache,
		codes:   codes,
		clicks:  clicks,
		log:     log,
		now:     time.Now,
	}
}

// Create validates req and stores a new URL.
//
// With a custom alias the alias becomes the short code and a single insert
// decides: a taken alias is a ConflictError. Without one, fresh codes are
// drawn until an insert succeeds or shortcode.MaxAttempts is reached.
func (s *URLService) Create(ctx context.Context, req domain.CreateRequest) (*domain.URL, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.CustomAlias != "" {
		url := s.newURL(req, req.CustomAlias).WithCustomAlias(req.CustomAlias)
		if err := s.urlRepo.Create(ctx, url); err != nil {
			return nil, fmt.Errorf("failed to create URL: %w", err)
		}
		metrics.RecordURLCreated()
		return url, nil
	}

	for attempt := 1; attempt <= shortcode.MaxAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		url := s.newURL(req, code)
		err = s.urlRepo.Create(ctx, url)
		if err == nil {
			metrics.RecordURLCreated()
			return url, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to create URL: %w", err)
		}
		s.log.WithContext(ctx).Debug("short code collision", "code", code, "attempt", attempt)
	}

	s.log.WithContext(ctx).Error("short code generation exhausted", "attempts", shortcode.MaxAttempts)
	return nil, domain.NewGenerationExhaustedError(shortcode.MaxAttempts)
}

func (s *URLService) newURL(req domain.CreateRequest, code string) *domain.URL {
	url := domain.NewURL(req.URL, code, s.now())
	if d := req.ExpiresIn(); d > 0 {
		url.WithExpiration(d)
	}
	return url
}

// Resolve looks up code for a redirect and applies the access policy:
// unknown codes are NotFound, inactive or expired ones are Expired. On
// success a click is handed to the recorder; the caller never waits for it.
func (s *URLService) Resolve(ctx context.Context, code string, meta domain.ClickMeta) (*domain.URL, error) {
	// Nothing outside the alias format can have been stored.
	if code == "" || shortcode.ValidateAlias(code) != nil {
		metrics.RecordRedirect("not_found")
		return nil, domain.NewNotFoundError(code)
	}

	url, err := s.lookup(ctx, code)
	if err != nil {
		metrics.RecordRedirect(outcome(err))
		return nil, err
	}

	now := s.now()
	if err := url.CanBeAccessed(now); err != nil {
		metrics.RecordRedirect("expired")
		return nil, err
	}

	s.clicks.Submit(domain.NewClick(url.ID, now, meta))
	metrics.RecordRedirect("ok")
	return url, nil
}

// lookup implements the CACHE-ASIDE PATTERN. Cache failures are logged and
// fall through to the database.
func (s *URLService) lookup(ctx context.Context, code string) (*domain.URL, error) {
	log := s.log.WithContext(ctx)

	cached, err := s.cache.GetURL(ctx, code)
	if err != nil {
		log.Warn("cache get failed", "code", code, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	url, err := s.urlRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetURL(ctx, code, url); err != nil {
		log.Warn("cache set failed", "code", code, "error", err)
	}
	return url, nil
}

// Get returns the stored record for code, including inactive and expired ones.
func (s *URLService) Get(ctx context.Context, code string) (*domain.URL, error) {
	return s.urlRepo.GetByShortCode(ctx, code)
}

// Delete removes the URL and its clicks.
func (s *URLService) Delete(ctx context.Context, code string) error {
	if err := s.urlRepo.Delete(ctx, code); err != nil {
		return err
	}
	s.invalidate(ctx, code)
	return nil
}

// Deactivate keeps the URL but makes it resolve as expired.
func (s *URLService) Deactivate(ctx context.Context, code string) error {
	if err := s.urlRepo.Deactivate(ctx, code); err != nil {
		return err
	}
	s.invalidate(ctx, code)
	return nil
}

// List returns one page of active URLs, newest first, plus the active total.
// limit <= 0 selects DefaultListLimit; larger than MaxListLimit is capped.
func (s *URLService) List(ctx context.Context, offset, limit int) ([]*domain.URL, int64, error) {
	if offset < 0 {
		return nil, 0, domain.NewValidationError("offset", "offset must not be negative")
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.urlRepo.List(ctx, offset, limit)
}

// ReconcileClicks rebuilds click_count for code from its click rows.
func (s *URLService) ReconcileClicks(ctx context.Context, code string) (int64, error) {
	url, err := s.urlRepo.GetByShortCode(ctx, code)
	if err != nil {
		return 0, err
	}
	count, err := s.urlRepo.RecomputeClicks(ctx, url.ID)
	if err != nil {
		return 0, err
	}
	if count != url.ClickCount {
		s.log.WithContext(ctx).Info("click count reconciled", "code", code, "was", url.ClickCount, "now", count)
	}
	s.invalidate(ctx, code)
	return count, nil
}

// PurgeExpired deletes every URL whose expiry has passed.
func (s *URLService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.urlRepo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.log.WithContext(ctx).Info("purged expired URLs", "count", n)
	return n, nil
}

func (s *URLService) invalidate(ctx context.Context, code string) {
	if err := s.cache.DeleteURL(ctx, code); err != nil {
		s.log.WithContext(ctx).Warn("cache delete failed", "code", code, "error", err)
	}
}

func outcome(err error) string {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return "not_found"
	case domain.KindExpired:
		return "expired"
	default:
		return "error"
	}
}

type noopCache struct{}

func (noopCache) GetURL(context.Context, string) (*domain.URL, error) { return nil, nil }
func (noopCache) SetURL(context.Context, string, *domain.URL) error   { return nil }
func (noopCache) DeleteURL(context.Context, string) error             { return nil }
