package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"shorturl/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse represents a successful response
type SuccessResponse struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Headers are already sent; an encoding failure can only be dropped.
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondSuccess sends a success response
func respondSuccess(w http.ResponseWriter, statusCode int, data any, message string) {
	respondJSON(w, statusCode, SuccessResponse{
		Data:    data,
		Message: message,
	})
}

// respondDomainError maps a service error to its status code. Anything that
// is not a domain error is logged and reported as a 500 without details.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.logger.WithContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	resp := ErrorResponse{Error: de.Message, Code: string(de.Kind)}
	status := http.StatusInternalServerError

	switch de.Kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
		if de.Field != "" {
			resp.Details = map[string]string{"field": de.Field}
		}
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindExpired:
		status = http.StatusGone
	case domain.KindGenerationExhausted:
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
		h.logger.WithContext(r.Context()).Error("short code space exhausted", "error", err)
	}

	respondJSON(w, status, resp)
}
