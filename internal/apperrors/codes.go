package apperrors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeValidation    Code = "VALIDATION_FAILED"
	CodeNoValidUpdate Code = "NO_VALID_UPDATES"

	// Lookup errors. Missing and foreign resources share one code.
	CodeNotFound Code = "NOT_FOUND"

	// Session state errors
	CodeActiveSessionExists Code = "ACTIVE_SESSION_EXISTS"
	CodeSessionAlreadyEnded Code = "SESSION_ALREADY_ENDED"
	CodeSessionStillActive  Code = "SESSION_STILL_ACTIVE"

	// Backend errors
	CodeUpstream Code = "UPSTREAM_FAILURE"

	// Caller identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation,
		CodeNoValidUpdate,
		CodeSessionAlreadyEnded,
		CodeSessionStillActive:
		return http.StatusBadRequest

	case CodeNotFound:
		return http.StatusNotFound

	case CodeActiveSessionExists:
		return http.StatusConflict

	case CodeUnauthenticated:
		return http.StatusUnauthorized

	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller cannot fix the failure by changing the request.
func (c Code) Retryable() bool {
	return c == CodeUpstream || c == CodeUnknown
}
