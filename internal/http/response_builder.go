// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses.
// It keeps status codes, headers and error bodies consistent across handlers.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cardcycle/internal/core"
	applog "cardcycle/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(r *http.Request, statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		JSON(errorBody{Error: message, RequestID: applog.RequestID(r.Context())})
}

func BadRequestError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusBadRequest, message)
}

func UnprocessableEntityError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusUnprocessableEntity, message)
}

func NotFoundError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusNotFound, message)
}

func UnauthorizedError(r *http.Request) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusUnauthorized, "unauthorized").
		Header("WWW-Authenticate", `Bearer realm="cron"`)
}

// InternalServerError never leaks the underlying error to the caller.
func InternalServerError(r *http.Request) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusInternalServerError, "internal error")
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidAccountType,
	core.ErrEmptyName,
	core.ErrEmptyAccount,
	core.ErrSameAccount,
	core.ErrEmptyTransferType,
	core.ErrNotCreditCard,
	core.ErrStatementNotConfigured,
}

var notFoundErrors = []error{
	core.ErrAccountNotFound,
	core.ErrTransactionNotFound,
	core.ErrTransferTypeNotFound,
}

// statusForError maps domain errors to HTTP status codes. Anything not
// recognised is a server error.
func statusForError(err error) int {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	var ve *validationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeServiceError logs server-side failures and writes the mapped error.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", applog.NewFields().
			WithOperation(op).
			WithError(err).
			ToSlice()...)
		InternalServerError(r).Write(w)
		return
	}
	slog.DebugContext(r.Context(), "Request rejected",
		applog.FieldOperation, op,
		applog.FieldStatusCode, status,
		applog.FieldError, err.Error())
	ErrorResponse(r, status, err.Error()).Write(w)
}
