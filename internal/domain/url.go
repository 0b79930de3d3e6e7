package domain

import (
	"strings"
	"time"

	"shorturl/pkg/validator"
)

// MaxExpiresInHours caps expires_in_hours at ten years.
const MaxExpiresInHours = 24 * 365 * 10

// URL represents a shortened URL in our system
// This is our "domain model" - it contains both data AND behavior (methods)
type URL struct {
	ID          int64      `json:"id"`           // Store-assigned, monotonically increasing
	ShortCode   string     `json:"short_code"`   // Generated code, or the custom alias when one was given
	OriginalURL string     `json:"original_url"` // The full URL to redirect to
	CustomAlias *string    `json:"custom_alias"` // Optional custom alias (pointer = nullable)
	CreatedAt   time.Time  `json:"created_at"`   // When the URL was created (UTC)
	ExpiresAt   *time.Time `json:"expires_at"`   // Optional expiration time (pointer = nullable)
	IsActive    bool       `json:"is_active"`    // Cleared by deactivation
	ClickCount  int64      `json:"click_count"`  // Cached count of recorded clicks
}

// IsExpired reports whether the URL's expiry lies before now.
// A URL without ExpiresAt never expires.
func (u *URL) IsExpired(now time.Time) bool {
	if u.ExpiresAt == nil {
		return false
	}
	return now.After(*u.ExpiresAt)
}

// CanBeAccessed applies the redirect policy: inactive and expired records
// both resolve to an ExpiredError so clients can tell them from unknown codes.
func (u *URL) CanBeAccessed(now time.Time) error {
	if !u.IsActive || u.IsExpired(now) {
		return NewExpiredError(u.ShortCode)
	}
	return nil
}

// NewURL is a constructor function that creates a new URL with sensible defaults
func NewURL(originalURL, shortCode string, now time.Time) *URL {
	return &URL{
		OriginalURL: originalURL,
		ShortCode:   shortCode,
		CreatedAt:   now.UTC(),
		IsActive:    true,
	}
}

// WithCustomAlias is a builder method that sets a custom alias
func (u *URL) WithCustomAlias(alias string) *URL {
	u.CustomAlias = &alias
	return u
}

// WithExpiration sets an expiration time relative to the creation time.
func (u *URL) WithExpiration(duration time.Duration) *URL {
	expiresAt := u.CreatedAt.Add(duration)
	u.ExpiresAt = &expiresAt
	return u
}

// CreateRequest is the validated input of the Create operation.
type CreateRequest struct {
	URL            string
	CustomAlias    string
	ExpiresInHours *int
}

// Validate checks the request at the boundary so malformed input never
// reaches the store. It normalises URL and CustomAlias in place.
func (r *CreateRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.CustomAlias = strings.TrimSpace(r.CustomAlias)

	if err := validator.ValidateURL(r.URL); err != nil {
		return &Error{Kind: KindValidation, Field: "url", Message: err.Error()}
	}

	if r.CustomAlias != "" {
		if err := validator.ValidateCustomAlias(r.CustomAlias); err != nil {
			return &Error{Kind: KindValidation, Field: "custom_alias", Message: err.Error()}
		}
	}

	if r.ExpiresInHours != nil {
		hours := *r.ExpiresInHours
		if hours < 0 || hours > MaxExpiresInHours {
			return NewValidationError("expires_in_hours", "expires_in_hours must be between 0 and 87600")
		}
	}

	return nil
}

// ExpiresIn returns the requested lifetime, or 0 for "never expires".
func (r *CreateRequest) ExpiresIn() time.Duration {
	if r.ExpiresInHours == nil || *r.ExpiresInHours <= 0 {
		return 0
	}
	return time.Duration(*r.ExpiresInHours) * time.Hour
}
