package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_CanBeAccessed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		url       URL
		wantError bool
	}{
		{name: "active without expiry", url: URL{IsActive: true}},
		{name: "active, expires later", url: URL{IsActive: true, ExpiresAt: &future}},
		{name: "active, expired", url: URL{IsActive: true, ExpiresAt: &past}, wantError: true},
		{name: "inactive", url: URL{IsActive: false}, wantError: true},
		{name: "expires exactly now", url: URL{IsActive: true, ExpiresAt: &now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.url.CanBeAccessed(now)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExpired))
			assert.False(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestCreateRequest_Validate(t *testing.T) {
	hours := func(h int) *int { return &h }

	tests := []struct {
		name      string
		req       CreateRequest
		wantField string
	}{
		{name: "plain url", req: CreateRequest{URL: "https://example.com/a"}},
		{name: "alias and expiry", req: CreateRequest{URL: "https://example.com", CustomAlias: "docs", ExpiresInHours: hours(24)}},
		{name: "zero hours means never", req: CreateRequest{URL: "https://example.com", ExpiresInHours: hours(0)}},
		{name: "bad url", req: CreateRequest{URL: "not-a-url"}, wantField: "url"},
		{name: "bad alias", req: CreateRequest{URL: "https://example.com", CustomAlias: "a b"}, wantField: "custom_alias"},
		{name: "short alias", req: CreateRequest{URL: "https://example.com", CustomAlias: "ab"}, wantField: "custom_alias"},
		{name: "route name as alias", req: CreateRequest{URL: "https://example.com", CustomAlias: "metrics"}, wantField: "custom_alias"},
		{name: "negative hours", req: CreateRequest{URL: "https://example.com", ExpiresInHours: hours(-1)}, wantField: "expires_in_hours"},
		{name: "huge hours", req: CreateRequest{URL: "https://example.com", ExpiresInHours: hours(MaxExpiresInHours + 1)}, wantField: "expires_in_hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			var de *Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantField, de.Field)
		})
	}
}

func TestCreateRequest_ValidateMessageNotRepeated(t *testing.T) {
	req := CreateRequest{URL: "  "}
	err := req.Validate()

	require.Error(t, err)
	assert.Equal(t, "URL cannot be empty", err.Error())
}

func TestCreateRequest_ExpiresIn(t *testing.T) {
	h := 3
	zero := 0
	assert.Equal(t, time.Duration(0), (&CreateRequest{}).ExpiresIn())
	assert.Equal(t, time.Duration(0), (&CreateRequest{ExpiresInHours: &zero}).ExpiresIn())
	assert.Equal(t, 3*time.Hour, (&CreateRequest{ExpiresInHours: &h}).ExpiresIn())
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NewConflictError("docs"))

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("connection refused")))
	assert.Contains(t, wrapped.Error(), `"docs"`)
}

func TestNewClick_TruncatesAndHashes(t *testing.T) {
	long := make([]byte, MaxUserAgentLength+10)
	for i := range long {
		long[i] = 'x'
	}

	click := NewClick(7, time.Now(), ClickMeta{UserAgent: string(long), Referrer: "", IP: "10.0.0.1"})

	assert.Equal(t, int64(7), click.URLID)
	assert.Len(t, click.UserAgent, MaxUserAgentLength)
	assert.Empty(t, click.Referrer)
	assert.Len(t, click.IPHash, 16)
	assert.Equal(t, HashIP("10.0.0.1"), click.IPHash)
	assert.Empty(t, HashIP(""))
	assert.Equal(t, time.UTC, click.ClickedAt.Location())
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; cutting at 3 would split the second one.
	assert.Equal(t, "aé", truncate("aéé", 4))
	assert.Equal(t, "aé", truncate("aéé", 3))
}
