package service

import (
	"context"
	"fmt"

	"shorturl/internal/domain"
	"shorturl/internal/metrics"
	"shorturl/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	MaxBulkItems       = 10
	DefaultParallelism = 4
)

// Creator is the single-item create operation the bulk path fans out to.
type Creator interface {
	Create(ctx context.Context, req domain.CreateRequest) (*domain.URL, error)
}

// BulkItemResult is the outcome of one item; exactly one of URL and Error is set.
type BulkItemResult struct {
	OriginalURL string      `json:"original_url"`
	URL         *domain.URL `json:"url,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorKind   domain.Kind `json:"error_kind,omitempty"`
}

// BulkResult holds per-item results in input order.
type BulkResult struct {
	Results []BulkItemResult
}

func (r *BulkResult) SuccessCount() int {
	n := 0
	for _, item := range r.Results {
		if item.URL != nil {
			n++
		}
	}
	return n
}

func (r *BulkResult) ErrorCount() int {
	return len(r.Results) - r.SuccessCount()
}

// BulkService creates several URLs in one call, isolating item failures.
type BulkService struct {
	creator     Creator
	maxItems    int
	parallelism int
	log         *logger.Logger
}

// NewBulkService returns a bulk orchestrator. Non-positive limits fall back
// to MaxBulkItems and DefaultParallelism.
func NewBulkService(creator Creator, maxItems, parallelism int, log *logger.Logger) *BulkService {
	if maxItems <= 0 {
		maxItems = MaxBulkItems
	}
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &BulkService{creator: creator, maxItems: maxItems, parallelism: parallelism, log: log}
}

// CreateMany rejects an empty or oversized batch before touching any item.
// Otherwise every item is created independently; one failure never affects
// its siblings.
func (s *BulkService) CreateMany(ctx context.Context, items []domain.BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("urls", "at least one URL is required")
	}
	if len(items) > s.maxItems {
		return nil, domain.NewValidationError("urls", fmt.Sprintf("at most %d URLs per request", s.maxItems))
	}

	results := make([]BulkItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.createOne(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return &BulkResult{Results: results}, nil
}

func (s *BulkService) createOne(ctx context.Context, item domain.BulkItem) BulkItemResult {
	res := BulkItemResult{OriginalURL: item.Target()}

	url, err := s.creator.Create(ctx, item.CreateRequest())
	if err == nil {
		res.URL = url
		metrics.RecordBulkItem("ok")
		return res
	}

	kind := domain.KindOf(err)
	if kind == "" {
		s.log.WithContext(ctx).Error("bulk item failed", "url", item.Target(), "error", err)
		res.Error = "internal error"
		res.ErrorKind = "internal_error"
	} else {
		res.Error = err.Error()
		res.ErrorKind = kind
	}
	metrics.RecordBulkItem(string(res.ErrorKind))
	return res
}
