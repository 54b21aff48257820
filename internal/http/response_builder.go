// Package http serves the event budget JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses and to map service errors onto status codes.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"eventbudget/internal/core"
	"eventbudget/internal/log"
)

const msgUnexpected = "An unexpected error occurred."

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
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

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body first so that an encoding failure can still be
// reported as a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if b.body != nil {
		if err := json.NewEncoder(&buf).Encode(b.body); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
				log.FieldError, err.Error(), log.FieldPath, r.URL.Path)
			writeMessage(w, http.StatusInternalServerError, msgUnexpected)
			return
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(b.statusCode)
	if buf.Len() > 0 {
		_, _ = w.Write(buf.Bytes())
	}
}

type messageBody struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(messageBody{Message: message})
}

// ErrorResponse creates a {"message": ...} response with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(messageBody{Message: message})
}

// BadRequestError creates a 400 Bad Request response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// writeError maps err onto a response. Domain errors keep their message and
// status; anything else is logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *core.Error
	if errors.As(err, &ce) {
		ErrorResponse(ce.StatusCode(), ce.Message).Write(w, r)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
		"Request failed", err, log.ComponentHTTP, r.Method+" "+r.Pattern,
		log.NewFields().WithErrorType(fmt.Sprintf("%T", err)))
	ErrorResponse(http.StatusInternalServerError, msgUnexpected).Write(w, r)
}
