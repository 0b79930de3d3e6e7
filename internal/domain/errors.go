package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so every layer can react to it the same way
// (HTTP status mapping, bulk item reporting, retry decisions).
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindExpired             Kind = "expired"
	KindGenerationExhausted Kind = "generation_exhausted"
)

// Error is the single tagged error type returned by the core operations.
// Infrastructure failures (database down, etc.) are NOT domain errors; they are
// plain wrapped errors and KindOf reports "" for them.
type Error struct {
	Kind    Kind
	Message string
	Field   string // optional: request field that failed validation
	Err     error  // optional: underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) true for ANY not-found error,
// regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks. Match by Kind only.
var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "short code already in use"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "URL not found"}
	ErrExpired             = &Error{Kind: KindExpired, Message: "URL has expired"}
	ErrGenerationExhausted = &Error{Kind: KindGenerationExhausted, Message: "could not generate a unique short code"}
)

// NewValidationError builds a validation error for a request field.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NewConflictError reports that code (generated or alias) is already taken.
func NewConflictError(code string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("short code %q is already in use", code)}
}

// NewNotFoundError reports that no record exists for code.
func NewNotFoundError(code string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("URL not found: %s", code)}
}

// NewExpiredError reports that code exists but is inactive or past its expiry.
func NewExpiredError(code string) *Error {
	return &Error{Kind: KindExpired, Message: fmt.Sprintf("URL has expired or was deactivated: %s", code)}
}

// NewGenerationExhaustedError reports that attempts draws all collided.
func NewGenerationExhaustedError(attempts int) *Error {
	return &Error{
		Kind:    KindGenerationExhausted,
		Message: fmt.Sprintf("could not generate a unique short code after %d attempts", attempts),
	}
}

// KindOf returns the Kind of the first domain error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
