package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shorturl/internal/clickqueue"
	"shorturl/internal/domain"
	"shorturl/internal/repository/sqlite"
	"shorturl/internal/shortcode"
	"shorturl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stack wires the services to a real in-memory SQLite store.
type stack struct {
	urls      *URLService
	analytics *AnalyticsService
	bulk      *BulkService
	recorder  *clickqueue.Recorder
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	urlRepo := sqlite.NewURLRepository(db)
	clickRepo := sqlite.NewClickRepository(db)
	recorder := clickqueue.New(clickRepo, clickqueue.Options{QueueSize: 256, Workers: 2}, log)
	t.Cleanup(func() { _ = recorder.Stop(context.Background()) })

	urls := NewURLService(urlRepo, nil, shortcode.New(shortcode.DefaultLength), recorder, log)
	return &stack{
		urls:      urls,
		analytics: NewAnalyticsService(urlRepo, clickRepo),
		bulk:      NewBulkService(urls, MaxBulkItems, DefaultParallelism, log),
		recorder:  recorder,
	}
}

// flush waits until every submitted click is written.
func (s *stack) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, s.recorder.Stop(context.Background()))
}

func TestStore_CreateThenResolveRoundTrip(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	for _, target := range []string{
		"https://example.com",
		"http://example.com/path?q=1&r=2#frag",
		"https://sub.example.org:8443/a/b/c",
	} {
		url, err := s.urls.Create(ctx, domain.CreateRequest{URL: target})
		require.NoError(t, err)
		assert.Len(t, url.ShortCode, shortcode.DefaultLength)

		got, err := s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
		require.NoError(t, err)
		assert.Equal(t, target, got.OriginalURL)
	}
}

func TestStore_ConcurrentCreatesAreDistinct(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	const n = 50
	codes := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url, err := s.urls.Create(ctx, domain.CreateRequest{URL: fmt.Sprintf("https://example.com/%d", i)})
			errs[i] = err
			if err == nil {
				codes[i] = url.ShortCode
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[codes[i]], "duplicate code %s", codes[i])
		seen[codes[i]] = true
	}
}

func TestStore_RouteNameAliasRejected(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	for _, alias := range []string{"metrics", "health", "api"} {
		_, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com", CustomAlias: alias})
		require.Error(t, err, alias)
		assert.ErrorIs(t, err, domain.ErrValidation, alias)
	}

	page, total, err := s.urls.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, int64(0), total)
}

func TestStore_AliasCollisions(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	generated, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com/a"})
	require.NoError(t, err)

	_, err = s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com/b", CustomAlias: generated.ShortCode})
	assert.ErrorIs(t, err, domain.ErrConflict, "alias equal to a generated code")

	_, err = s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com/docs", CustomAlias: "docs"})
	require.NoError(t, err)
	_, err = s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com/other", CustomAlias: "docs"})
	assert.ErrorIs(t, err, domain.ErrConflict, "alias equal to an existing alias")

	got, err := s.urls.Resolve(ctx, "docs", domain.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got.OriginalURL)
}

func TestStore_ExpiredIsNeverNotFound(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	url, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com", ExpiresInHours: intPtr(1)})
	require.NoError(t, err)

	_, err = s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
	require.NoError(t, err)

	s.urls.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	got, err := s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	// Details still show the record.
	details, err := s.urls.Get(ctx, url.ShortCode)
	require.NoError(t, err)
	assert.True(t, details.IsExpired(s.urls.now()))
}

func TestStore_ClickCountingMatchesAnalytics(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	url, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com"})
	require.NoError(t, err)

	const k = 6
	for i := 0; i < k; i++ {
		ref := ""
		if i%3 != 0 {
			ref = "https://news.example"
		}
		_, err := s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{UserAgent: "test", Referrer: ref, IP: "10.0.0.1"})
		require.NoError(t, err)
	}
	s.flush(t)

	got, err := s.urls.Get(ctx, url.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(k), got.ClickCount)

	summary, err := s.analytics.Summarize(ctx, url.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(k), summary.TotalClicks)

	require.Len(t, summary.ClicksByHour, 24)
	var sum int64
	for _, h := range summary.ClicksByHour {
		sum += h.Count
	}
	assert.Equal(t, summary.TotalClicks, sum)

	require.Len(t, summary.TopReferrers, 2)
	assert.Equal(t, "https://news.example", summary.TopReferrers[0].Referrer)
	assert.Equal(t, domain.DirectReferrer, summary.TopReferrers[1].Referrer)
}

func TestStore_DeleteThenResolveIsNotFound(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	url, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com", CustomAlias: "temp-link"})
	require.NoError(t, err)

	_, err = s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
	require.NoError(t, err)

	require.NoError(t, s.urls.Delete(ctx, url.ShortCode))

	_, err = s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.urls.Delete(ctx, url.ShortCode), domain.ErrNotFound)
}

func TestStore_DeactivateResolvesAsExpired(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	url, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.NoError(t, s.urls.Deactivate(ctx, url.ShortCode))

	_, err = s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
	assert.ErrorIs(t, err, domain.ErrExpired)

	summary, err := s.analytics.Summarize(ctx, url.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalClicks)

	page, total, err := s.urls.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, page)
}

func TestStore_ReconcileAndPurge(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	url, err := s.urls.Create(ctx, domain.CreateRequest{URL: "https://example.com", ExpiresInHours: intPtr(1)})
	require.NoError(t, err)
	_, err = s.urls.Resolve(ctx, url.ShortCode, domain.ClickMeta{})
	require.NoError(t, err)
	s.flush(t)

	n, err := s.urls.ReconcileClicks(ctx, url.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s.urls.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	purged, err := s.urls.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = s.urls.Get(ctx, url.ShortCode)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_BulkRejectsOversizedBatch(t *testing.T) {
	s := newStack(t)

	items := make([]domain.BulkItem, 11)
	for i := range items {
		items[i] = domain.BulkItem{OriginalURL: fmt.Sprintf("https://example.com/%d", i)}
	}

	res, err := s.bulk.CreateMany(context.Background(), items)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, total, err := s.urls.List(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "nothing is created for a rejected batch")

	_, err = s.bulk.CreateMany(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStore_BulkIsolatesItemFailures(t *testing.T) {
	s := newStack(t)

	res, err := s.bulk.CreateMany(context.Background(), []domain.BulkItem{
		{OriginalURL: "https://example.com/1"},
		{OriginalURL: "not a url"},
		{OriginalURL: "https://example.com/3", ExpiresInHours: intPtr(48)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.SuccessCount())
	assert.Equal(t, 1, res.ErrorCount())
	require.Len(t, res.Results, 3)

	assert.NotNil(t, res.Results[0].URL)
	assert.Equal(t, "not a url", res.Results[1].OriginalURL)
	assert.Nil(t, res.Results[1].URL)
	assert.Equal(t, domain.KindValidation, res.Results[1].ErrorKind)
	assert.Equal(t, "URL must use http or https scheme", res.Results[1].Error)
	require.NotNil(t, res.Results[2].URL)
	assert.NotNil(t, res.Results[2].URL.ExpiresAt)
}

func TestStore_BulkAliasConflictWithinBatch(t *testing.T) {
	s := newStack(t)

	res, err := s.bulk.CreateMany(context.Background(), []domain.BulkItem{
		{OriginalURL: "https://example.com/a", CustomAlias: "shared"},
		{OriginalURL: "https://example.com/b", CustomAlias: "shared"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount())
	assert.Equal(t, 1, res.ErrorCount())
}
