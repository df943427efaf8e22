package models

// ErrorCode is the stable wire-level error kind returned in API envelopes
type ErrorCode string

const (
	ErrInvalidInput     ErrorCode = "invalid_input"
	ErrUnauthorized     ErrorCode = "unauthorized"
	ErrNotFound         ErrorCode = "not_found"
	ErrRateLimited      ErrorCode = "rate_limited"
	ErrTimeout          ErrorCode = "timeout"
	ErrWorkspaceError   ErrorCode = "workspace_error"
	ErrValidationFailed ErrorCode = "validation_failed"
	ErrInternal         ErrorCode = "internal"
)

// HTTPStatus maps an error code to its response status. validation_failed is
// reported inside a 200 payload, never as an HTTP error.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidInput:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrNotFound:
		return 404
	case ErrRateLimited:
		return 429
	case ErrTimeout:
		return 504
	case ErrWorkspaceError:
		return 502
	case ErrValidationFailed:
		return 200
	default:
		return 500
	}
}
