// Package apperr defines the error kinds every boundary operation reports.
// Storage and provider failures are converted into one of these kinds with a
// human-readable message; nothing propagates to a caller as an unhandled fault.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so callers can tell the cases apart.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	NotFound
	Forbidden
	ValidationFailed
	Expired
	Incorrect
	RateLimited
	UpstreamFailure
	Timeout
)

// String returns the kind's name for logs.
func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case ValidationFailed:
		return "validation_failed"
	case Expired:
		return "expired"
	case Incorrect:
		return "incorrect"
	case RateLimited:
		return "rate_limited"
	case UpstreamFailure:
		return "upstream_failure"
	case Timeout:
		return "timeout"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case ValidationFailed, Expired, Incorrect:
		return http.StatusBadRequest
	case RateLimited:
		return http.StatusTooManyRequests
	case UpstreamFailure:
		return http.StatusBadGateway
	case Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind and the message shown to the caller.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfterMinutes is set only for RateLimited errors.
	RetryAfterMinutes int

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying failure.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// RateLimitedFor builds a RateLimited error carrying the cooldown in whole minutes.
func RateLimitedFor(minutes int) *Error {
	return &Error{
		Kind:              RateLimited,
		Message:           "rate limit exceeded, please try again later",
		RetryAfterMinutes: minutes,
	}
}

// KindOf extracts the kind from an error chain, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
