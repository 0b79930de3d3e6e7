package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/repository"
	"shorturl/internal/service"
	"shorturl/pkg/logger"
)

const maxBodyBytes = 1 << 20

// URLService is the part of service.URLService the handlers use.
type URLService interface {
	Create(ctx context.Context, req domain.CreateRequest) (*domain.URL, error)
	Resolve(ctx context.Context, code string, meta domain.ClickMeta) (*domain.URL, error)
	Get(ctx context.Context, code string) (*domain.URL, error)
	Delete(ctx context.Context, code string) error
	Deactivate(ctx context.Context, code string) error
	List(ctx context.Context, offset, limit int) ([]*domain.URL, int64, error)
}

// AnalyticsService summarizes clicks of a code.
type AnalyticsService interface {
	Summarize(ctx context.Context, code string) (*domain.Summary, error)
}

// BulkService creates several URLs in one call.
type BulkService interface {
	CreateMany(ctx context.Context, items []domain.BulkItem) (*service.BulkResult, error)
}

type readinessCheck struct {
	name   string
	pinger repository.Pinger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	urls      URLService
	analytics AnalyticsService
	bulk      BulkService
	logger    *logger.Logger
	baseURL   string // e.g. "https://sho.rt"; derived from the request when empty
	limiter   RateLimiter
	checks    []readinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(urls URLService, analytics AnalyticsService, bulk BulkService, log *logger.Logger, baseURL string) *Handler {
	return &Handler{
		urls:      urls,
		analytics: analytics,
		bulk:      bulk,
		logger:    log,
		baseURL:   baseURL,
	}
}

// WithRateLimiter limits the create and bulk routes.
func (h *Handler) WithRateLimiter(l RateLimiter) *Handler {
	h.limiter = l
	return h
}

// AddReadinessCheck registers a dependency pinged by /health/ready.
func (h *Handler) AddReadinessCheck(name string, p repository.Pinger) {
	h.checks = append(h.checks, readinessCheck{name: name, pinger: p})
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	limited := func(next http.HandlerFunc) http.Handler {
		if h.limiter == nil {
			return next
		}
		return RateLimitMiddleware(h.limiter)(next)
	}

	mux.Handle("POST /api/v1/urls", limited(h.CreateURL))
	mux.Handle("POST /api/v1/urls/bulk", limited(h.BulkCreate))
	mux.HandleFunc("GET /api/v1/urls", h.ListURLs)
	mux.HandleFunc("GET /api/v1/urls/{code}", h.GetURL)
	mux.HandleFunc("GET /api/v1/urls/{code}/analytics", h.GetAnalytics)
	mux.HandleFunc("POST /api/v1/urls/{code}/deactivate", h.DeactivateURL)
	mux.HandleFunc("DELETE /api/v1/urls/{code}", h.DeleteURL)

	mux.HandleFunc("GET /health/live", h.HealthCheck)
	mux.HandleFunc("GET /health/ready", h.ReadinessCheck)

	mux.HandleFunc("GET /{code}", h.RedirectURL)

	return mux
}

// Request/Response DTOs

// CreateURLRequest is the create body. url is accepted as a fallback for
// original_url.
type CreateURLRequest struct {
	OriginalURL    string `json:"original_url"`
	URL            string `json:"url,omitempty"`
	CustomAlias    string `json:"custom_alias,omitempty"`
	ExpiresInHours *int   `json:"expires_in_hours,omitempty"`
}

func (c CreateURLRequest) target() string {
	if c.OriginalURL != "" {
		return c.OriginalURL
	}
	return c.URL
}

type BulkCreateRequest struct {
	URLs []domain.BulkItem `json:"urls"`
}

type URLResponse struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	CustomAlias *string    `json:"custom_alias,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
}

type ListURLsResponse struct {
	URLs   []URLResponse `json:"urls"`
	Total  int64         `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

type BulkItemResponse struct {
	OriginalURL string       `json:"original_url"`
	URL         *URLResponse `json:"url,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorKind   string       `json:"error_kind,omitempty"`
}

type BulkCreateResponse struct {
	Results      []BulkItemResponse `json:"results"`
	SuccessCount int                `json:"success_count"`
	ErrorCount   int                `json:"error_count"`
}

type AnalyticsResponse struct {
	ShortCode    string                `json:"short_code"`
	TotalClicks  int64                 `json:"total_clicks"`
	ClicksByDay  []domain.DayCount     `json:"clicks_by_day"`
	ClicksByHour []domain.HourCount    `json:"clicks_by_hour"`
	TopReferrers []domain.ReferrerRank `json:"top_referrers"`
}

func (h *Handler) toResponse(r *http.Request, url *domain.URL) URLResponse {
	return URLResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    fmt.Sprintf("%s/%s", h.base(r), url.ShortCode),
		OriginalURL: url.OriginalURL,
		CustomAlias: url.CustomAlias,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
		IsActive:    url.IsActive,
		ClickCount:  url.ClickCount,
	}
}

func (h *Handler) base(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// CreateURL handles POST /api/v1/urls
func (h *Handler) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req CreateURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	url, err := h.urls.Create(r.Context(), domain.CreateRequest{
		URL:            req.target(),
		CustomAlias:    req.CustomAlias,
		ExpiresInHours: req.ExpiresInHours,
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, h.toResponse(r, url), "URL created successfully")
}

// BulkCreate handles POST /api/v1/urls/bulk
func (h *Handler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	result, err := h.bulk.CreateMany(r.Context(), req.URLs)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	resp := BulkCreateResponse{
		Results:      make([]BulkItemResponse, 0, len(result.Results)),
		SuccessCount: result.SuccessCount(),
		ErrorCount:   result.ErrorCount(),
	}
	for _, item := range result.Results {
		out := BulkItemResponse{
			OriginalURL: item.OriginalURL,
			Error:       item.Error,
			ErrorKind:   string(item.ErrorKind),
		}
		if item.URL != nil {
			u := h.toResponse(r, item.URL)
			out.URL = &u
		}
		resp.Results = append(resp.Results, out)
	}

	respondSuccess(w, http.StatusOK, resp, "")
}

// ListURLs handles GET /api/v1/urls?offset=&limit=
func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		respondError(w, http.StatusBadRequest, string(domain.KindValidation), "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultListLimit)
	if err != nil || limit < 1 {
		respondError(w, http.StatusBadRequest, string(domain.KindValidation), "limit must be a positive integer")
		return
	}
	if limit > service.MaxListLimit {
		limit = service.MaxListLimit
	}

	urls, total, err := h.urls.List(r.Context(), offset, limit)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	resp := ListURLsResponse{
		URLs:   make([]URLResponse, 0, len(urls)),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}
	for _, url := range urls {
		resp.URLs = append(resp.URLs, h.toResponse(r, url))
	}

	respondSuccess(w, http.StatusOK, resp, "")
}

// GetURL handles GET /api/v1/urls/{code}
func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.urls.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.toResponse(r, url), "")
}

// GetAnalytics handles GET /api/v1/urls/{code}/analytics?days=&referrers=
// days and referrers limit the returned series; 0 returns everything.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil || days < 0 {
		respondError(w, http.StatusBadRequest, string(domain.KindValidation), "days must be a non-negative integer")
		return
	}
	referrers, err := queryInt(r, "referrers", 5)
	if err != nil || referrers < 0 {
		respondError(w, http.StatusBadRequest, string(domain.KindValidation), "referrers must be a non-negative integer")
		return
	}

	code := r.PathValue("code")
	summary, err := h.analytics.Summarize(r.Context(), code)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, AnalyticsResponse{
		ShortCode:    code,
		TotalClicks:  summary.TotalClicks,
		ClicksByDay:  summary.LastDays(days),
		ClicksByHour: summary.ClicksByHour,
		TopReferrers: summary.TopN(referrers),
	}, "")
}

// DeactivateURL handles POST /api/v1/urls/{code}/deactivate
func (h *Handler) DeactivateURL(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.urls.Deactivate(r.Context(), code); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"short_code": code}, "URL deactivated")
}

// DeleteURL handles DELETE /api/v1/urls/{code}
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.urls.Delete(r.Context(), code); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"short_code": code}, "URL deleted")
}

// RedirectURL handles GET /{code}
func (h *Handler) RedirectURL(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	url, err := h.urls.Resolve(r.Context(), code, domain.ClickMeta{
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		IP:        extractIP(r),
	})
	if err != nil {
		if k := domain.KindOf(err); k == domain.KindNotFound || k == domain.KindExpired {
			h.logger.WithContext(r.Context()).Debug("redirect refused", "short_code", code, "reason", k)
		}
		h.respondDomainError(w, r, err)
		return
	}

	// 307 keeps the method and is not cached as permanent: the URL may
	// expire or be deactivated later.
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, url.OriginalURL, http.StatusTemporaryRedirect)
}

// HealthCheck handles GET /health/live
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /health/ready by pinging every registered
// dependency.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.pinger.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[c.name] = "unavailable"
			h.logger.WithContext(ctx).Warn("readiness check failed", "dependency", c.name, "error", err)
			continue
		}
		deps[c.name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	respondJSON(w, status, map[string]any{
		"status":       state,
		"dependencies": deps,
	})
}

var errNotInt = errors.New("not an integer")

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errNotInt
	}
	return v, nil
}
