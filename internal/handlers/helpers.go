// Package handlers implements the HTTP surface. Every endpoint answers with
// the same envelope: {"success": bool, "data": ..., "error": {code, message}}.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/workspace"
)

var validate = validator.New()

// Envelope is the uniform response shape
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *WireError  `json:"error,omitempty"`
}

// WireError carries the stable error code and a human-readable message
type WireError struct {
	Code    models.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteFailure(w, models.ErrInvalidInput, fmt.Sprintf("method %s not allowed, use %s", r.Method, method))
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a success envelope around data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// WriteFailure writes a failure envelope with the code's HTTP status
func WriteFailure(w http.ResponseWriter, code models.ErrorCode, message string) error {
	return WriteJSON(w, code.HTTPStatus(), Envelope{
		Success: false,
		Error:   &WireError{Code: code, Message: message},
	})
}

// WriteErrorResponse maps an internal error to its wire code and writes the
// failure envelope
func WriteErrorResponse(w http.ResponseWriter, err error) error {
	code := CodeForError(err)
	return WriteFailure(w, code, err.Error())
}

// CodeForError maps internal failures to stable wire codes. Workspace client
// errors arrive pre-classified; everything else is internal.
func CodeForError(err error) models.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	switch workspace.KindOf(err) {
	case workspace.KindRateLimited:
		return models.ErrRateLimited
	case workspace.KindNotFound:
		return models.ErrNotFound
	case workspace.KindAuthFailure:
		return models.ErrUnauthorized
	case workspace.KindTransient:
		if strings.Contains(err.Error(), "deadline") {
			return models.ErrTimeout
		}
		return models.ErrWorkspaceError
	case workspace.KindValidation, workspace.KindConflictRetryable:
		return models.ErrWorkspaceError
	}
	var apiErr *workspace.APIError
	if errors.As(err, &apiErr) {
		return models.ErrWorkspaceError
	}
	return models.ErrInternal
}

// DecodeJSON decodes and validates a request body into dst. Returns false
// after writing an invalid_input response when the body is malformed or
// fails struct validation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteFailure(w, models.ErrInvalidInput, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteFailure(w, models.ErrInvalidInput, fmt.Sprintf("request validation failed: %v", err))
		return false
	}
	return true
}

// PathSegment returns the path element following prefix, trimmed of any
// trailing sub-path. Empty when the prefix does not match.
func PathSegment(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
