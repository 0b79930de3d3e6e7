package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

const (
	MaxUserAgentLength = 512
	MaxReferrerLength  = 2048
)

// Click represents a single recorded visit to a short code.
// One URL can have many Clicks (one-to-many relationship); deleting the URL
// deletes its clicks.
type Click struct {
	ID        int64     `json:"id"`         // Auto-incrementing ID
	URLID     int64     `json:"url_id"`     // Foreign key to URL
	ClickedAt time.Time `json:"clicked_at"` // When the click occurred (UTC)
	UserAgent string    `json:"user_agent"` // Browser/client information, "" = unknown
	Referrer  string    `json:"referrer"`   // Where the visitor came from, "" = direct
	IPHash    string    `json:"ip_hash"`    // Truncated sha256 of the client IP
}

// ClickMeta is the request metadata captured by the redirect path.
type ClickMeta struct {
	UserAgent string
	Referrer  string
	IP        string
}

// NewClick creates a click event, truncating free-form fields to their
// column sizes and hashing the client IP.
func NewClick(urlID int64, clickedAt time.Time, meta ClickMeta) *Click {
	return &Click{
		URLID:     urlID,
		ClickedAt: clickedAt.UTC(),
		UserAgent: truncate(meta.UserAgent, MaxUserAgentLength),
		Referrer:  truncate(meta.Referrer, MaxReferrerLength),
		IPHash:    HashIP(meta.IP),
	}
}

// HashIP returns the first 16 hex chars of sha256(ip), or "" for an empty ip.
func HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])[:16]
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
