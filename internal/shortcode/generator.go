// Package shortcode draws random short codes and validates custom aliases.
// It never touches storage: uniqueness is decided by the store's unique index.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"io"

	"shorturl/internal/domain"
	"shorturl/pkg/validator"
)

const (
	// Alphabet is URL-safe without escaping: letters and digits only.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultLength = 7
	MinLength     = 6
	MaxLength     = 8

	// MaxAttempts bounds how many fresh draws a caller makes before giving up.
	MaxAttempts = 5
)

// rejectAbove is the largest multiple of len(Alphabet) that fits in a byte;
// bytes at or above it are discarded so every symbol is equally likely.
const rejectAbove = 256 - (256 % len(Alphabet))

// Generator produces candidate codes of a fixed length.
type Generator struct {
	length int
	source io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource replaces crypto/rand as the entropy source (tests).
func WithSource(r io.Reader) Option {
	return func(g *Generator) {
		g.source = r
	}
}

// New returns a generator for codes of the given length, clamped to [6,8].
// Zero or negative selects the default of 7.
func New(length int, opts ...Option) *Generator {
	switch {
	case length <= 0:
		length = DefaultLength
	case length < MinLength:
		length = MinLength
	case length > MaxLength:
		length = MaxLength
	}

	g := &Generator{length: length, source: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Generate draws one candidate code. Codes that would be shadowed by a
// server route are redrawn.
func (g *Generator) Generate() (string, error) {
	for {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		if !validator.IsReserved(code) {
			return code, nil
		}
	}
}

func (g *Generator) draw() (string, error) {
	code := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)

	for len(code) < g.length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			code = append(code, Alphabet[int(b)%len(Alphabet)])
			if len(code) == g.length {
				break
			}
		}
	}

	return string(code), nil
}

// ValidateAlias accepts the empty alias (meaning "generate a code instead")
// or anything matching ^[A-Za-z0-9_-]{3,20}$.
func ValidateAlias(alias string) error {
	if alias == "" {
		return nil
	}
	if err := validator.ValidateCustomAlias(alias); err != nil {
		return &domain.Error{Kind: domain.KindValidation, Field: "custom_alias", Message: err.Error()}
	}
	return nil
}
