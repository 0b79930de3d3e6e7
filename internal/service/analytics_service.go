package service

import (
	"context"

	"shorturl/internal/analytics"
	"shorturl/internal/domain"
	"shorturl/internal/repository"
)

// AnalyticsService builds click summaries for a short code.
type AnalyticsService struct {
	urlRepo   repository.URLRepository
	clickRepo repository.ClickRepository
}

func NewAnalyticsService(urlRepo repository.URLRepository, clickRepo repository.ClickRepository) *AnalyticsService {
	return &AnalyticsService{urlRepo: urlRepo, clickRepo: clickRepo}
}

// Summarize aggregates every click of code. Inactive and expired URLs keep
// their analytics; unknown codes are NotFound.
func (s *AnalyticsService) Summarize(ctx context.Context, code string) (*domain.Summary, error) {
	url, err := s.urlRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	clicks, err := s.clickRepo.ListByURL(ctx, url.ID)
	if err != nil {
		return nil, err
	}

	summary := analytics.Aggregate(clicks)
	return &summary, nil
}
