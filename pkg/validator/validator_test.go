package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "https", input: "https://example.com/a", wantErr: nil},
		{name: "http with port and query", input: "http://localhost:8080/x?y=1", wantErr: nil},
		{name: "surrounding whitespace", input: "  https://example.com  ", wantErr: nil},
		{name: "empty", input: "   ", wantErr: ErrEmptyURL},
		{name: "no scheme", input: "example.com/path", wantErr: ErrInvalidScheme},
		{name: "ftp scheme", input: "ftp://example.com", wantErr: ErrInvalidScheme},
		{name: "missing host", input: "https:///path", wantErr: ErrInvalidHost},
		{name: "unparseable", input: "http://[::1", wantErr: ErrInvalidURL},
		{name: "too long", input: "https://example.com/" + strings.Repeat("a", MaxURLLength), wantErr: ErrURLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, ValidateURL(tt.input))
		})
	}
}

func TestValidateCustomAlias(t *testing.T) {
	tests := []struct {
		alias   string
		wantErr error
	}{
		{"docs", nil},
		{"my-link_01", nil},
		{"abc", nil},
		{strings.Repeat("a", 20), nil},
		{"-leading", nil},
		{"ab", ErrInvalidAliasLength},
		{strings.Repeat("a", 21), ErrInvalidAliasLength},
		{"has space", ErrInvalidAliasFormat},
		{"slash/es", ErrInvalidAliasFormat},
		{"émoji", ErrInvalidAliasFormat},
		{"metrics", ErrReservedAlias},
		{"Health", ErrReservedAlias},
		{"api", ErrReservedAlias},
		{"metrics-2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, ValidateCustomAlias(tt.alias))
		})
	}
}
