package validator

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

const (
	MaxURLLength   = 2048
	MinAliasLength = 3
	MaxAliasLength = 20
)

var (
	ErrEmptyURL           = errors.New("URL cannot be empty")
	ErrURLTooLong         = errors.New("URL must be at most 2048 characters")
	ErrInvalidURL         = errors.New("invalid URL format")
	ErrInvalidScheme      = errors.New("URL must use http or https scheme")
	ErrInvalidHost        = errors.New("URL must have a valid host")
	ErrInvalidAliasLength = errors.New("custom alias must be 3-20 characters")
	ErrInvalidAliasFormat = errors.New("custom alias may only contain letters, digits, hyphens and underscores")
	ErrReservedAlias      = errors.New("custom alias is reserved")
)

// reserved are the first path segments of the server's own routes. A code
// equal to one of them would be shadowed by that route and never redirect.
var reserved = map[string]struct{}{
	"api":     {},
	"health":  {},
	"metrics": {},
}

// IsReserved reports whether code collides with a server route.
func IsReserved(code string) bool {
	_, ok := reserved[strings.ToLower(code)]
	return ok
}

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateURL checks that urlStr is an absolute http(s) URL with a host.
func ValidateURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)

	if urlStr == "" {
		return ErrEmptyURL
	}
	if len(urlStr) > MaxURLLength {
		return ErrURLTooLong
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ErrInvalidURL
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsedURL.Host == "" || parsedURL.Hostname() == "" {
		return ErrInvalidHost
	}

	return nil
}

// ValidateCustomAlias checks alias against ^[A-Za-z0-9_-]{3,20}$.
// Callers treat the empty alias as "no alias" before calling this.
func ValidateCustomAlias(alias string) error {
	if len(alias) < MinAliasLength || len(alias) > MaxAliasLength {
		return ErrInvalidAliasLength
	}

	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAliasFormat
	}

	if IsReserved(alias) {
		return ErrReservedAlias
	}

	return nil
}
