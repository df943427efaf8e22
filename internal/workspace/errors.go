package workspace

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a workspace API failure for retry decisions
type ErrorKind string

const (
	KindTransient         ErrorKind = "transient"
	KindRateLimited       ErrorKind = "rate_limited"
	KindNotFound          ErrorKind = "not_found"
	KindConflictRetryable ErrorKind = "conflict_retryable"
	KindValidation        ErrorKind = "validation"
	KindAuthFailure       ErrorKind = "auth_failure"
	KindPermanent         ErrorKind = "permanent"
)

// APIError represents a classified error from the workspace API. Raw HTTP
// failures never cross the client boundary; every failure is mapped to a
// kind before it reaches callers.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Endpoint   string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("workspace API error: %s (kind %s, status %d, endpoint %s)",
		e.Message, e.Kind, e.StatusCode, e.Endpoint)
}

// Retryable reports whether the error kind is eligible for retry
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindTransient, KindConflictRetryable, KindRateLimited:
		return true
	}
	return false
}

// KindOf extracts the error kind, or KindPermanent for unclassified errors
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindPermanent
}

// IsNotFound reports whether err is a classified not-found failure
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// classifyStatus maps an HTTP status and response body to an error kind
func classifyStatus(status int, body string) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status == 404 || strings.Contains(body, "object_not_found"):
		return KindNotFound
	case status == 409 && strings.Contains(body, "conflict_error"):
		return KindConflictRetryable
	case status == 400:
		return KindValidation
	case status == 401 || status == 403:
		return KindAuthFailure
	case status >= 500 || status == 408 || status == 425:
		return KindTransient
	default:
		return KindPermanent
	}
}
