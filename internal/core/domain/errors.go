// Package domain defines the shared error model for blobtier.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a cache error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "BT-BLOB-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Kind returns a short label for the error class, used as a metric label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrTransform):
		return "transform"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrTooLarge):
		return "invalid_argument"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden), errors.Is(err, ErrRateLimited):
		return "auth"
	default:
		return "internal"
	}
}

// ============================================================================
// Blob Errors (BLOB)
// ============================================================================

var (
	// ErrNotFound indicates the key is absent from both tiers.
	ErrNotFound = NewDomainError("BT-BLOB-4040", "blob not found")
)

// ============================================================================
// Disk Errors (DISK)
// ============================================================================

var (
	// ErrIO indicates a disk tier create/read/write/copy/delete failure.
	ErrIO = NewDomainError("BT-DISK-5001", "disk i/o failure")
)

// ============================================================================
// Codec Errors (CODEC)
// ============================================================================

var (
	// ErrDecode indicates a stored payload is unreadable or corrupt.
	ErrDecode = NewDomainError("BT-CODEC-4220", "payload decode failed")

	// ErrEncode indicates a value could not be serialized.
	ErrEncode = NewDomainError("BT-CODEC-5002", "payload encode failed")

	// ErrTransform indicates a variant transform failed.
	ErrTransform = NewDomainError("BT-CODEC-5003", "variant transform failed")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("BT-ARG-1001", "invalid argument")

	// ErrTooLarge indicates an upload over the configured size limit.
	ErrTooLarge = NewDomainError("BT-ARG-4130", "payload too large")
)

// ============================================================================
// Auth Errors (AUTH)
// ============================================================================

var (
	// ErrUnauthorized indicates a missing or wrong admin token.
	ErrUnauthorized = NewDomainError("BT-AUTH-4010", "authentication required")

	// ErrForbidden indicates the admin API is not reachable for this client.
	ErrForbidden = NewDomainError("BT-AUTH-4030", "forbidden")

	// ErrRateLimited indicates the client exceeded its request rate.
	ErrRateLimited = NewDomainError("BT-AUTH-4290", "too many requests")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal failure, such as a recovered panic.
	ErrInternal = NewDomainError("BT-SYS-5000", "internal error")

	// ErrClosed indicates the cache has been closed.
	ErrClosed = NewDomainError("BT-SYS-5030", "cache closed")
)
