// Package apperrors provides coded domain errors shared by the session
// service, the HTTP API and the API client.
package apperrors

import (
	"errors"
	"regexp"
	"strings"
)

// Metadata keys.
const (
	MetaActiveSessionID = "active_session_id"
	MetaField           = "field"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Caller-facing message
	Metadata map[string]string // Additional context, e.g. the conflicting session id
	Cause    error             // Wrapped underlying error, never shown to callers
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation is shorthand for a VALIDATION_FAILED error about one field.
func Validation(field, message string) *Error {
	return WithMetadata(CodeValidation, message, map[string]string{MetaField: field})
}

// NotFound returns the error used for both missing and foreign resources.
func NotFound(resource string) *Error {
	return New(CodeNotFound, resource+" not found")
}

// Upstream wraps a backend failure behind a generic "Failed to <op>" message.
func Upstream(op string, cause error) *Error {
	return Wrap(CodeUpstream, "Failed to "+op, cause)
}

// CodeOf extracts the domain code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

var uuidPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

const redacted = "[redacted]"

// Redact removes every UUID and every given identifier from msg.
func Redact(msg string, ids ...string) string {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, id, redacted)
	}
	return uuidPattern.ReplaceAllString(msg, redacted)
}
