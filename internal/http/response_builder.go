// Package http holds the two HTTP surfaces: the transaction source API and
// the tracker dashboard with its JSON endpoints.
//
// This file provides a small fluent builder for JSON responses and the one
// place where errors are mapped to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/prefs"
	"fintrack/internal/services"
	"fintrack/internal/source"
)

// StaleHeader is set when a read was served from the last good snapshot
// because the source could not be reached.
const StaleHeader = "X-Stale-Data"

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	hasBody    bool
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Stale marks the response as served from the last good snapshot when err
// is not nil.
func (b *JSONResponseBuilder) Stale(err error) *JSONResponseBuilder {
	if err != nil {
		b.headers[StaleHeader] = "true"
	}
	return b
}

// Write sends the built response. Without a body nothing but the status
// line and headers is written.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeError(w http.ResponseWriter, status int, message string) {
	ErrorResponse(status, message).Write(w)
}

// validationErrors are rejected input, whether caught by Validate or by a
// JSON codec.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidDate,
	core.ErrEmptyDescription,
	core.ErrEmptyCategory,
	core.ErrDescriptionTooLong,
	budget.ErrNegativeGoal,
	prefs.ErrInvalidCurrency,
	prefs.ErrInvalidTheme,
}

func isValidationError(err error) bool {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps an error to the status the tracker endpoints answer with.
func statusFor(err error) int {
	var reqErr *source.RequestError
	var decErr *decodeError
	switch {
	case isValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &decErr):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrNotFound), errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	case errors.As(err, &reqErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
