package fetcher

import (
	"errors"
	"fmt"
)

// Sentinel errors for fetch operations.
var (
	// ErrNotFound indicates the requested series or file does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrThrottled indicates the request was rate limited by the backend.
	ErrThrottled = errors.New("request throttled")

	// ErrUnavailable indicates the backend service is unavailable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUnknownAlias indicates the requested alias is not declared in the
	// fetcher's DataSpec. This is a usage error, not a validation error.
	ErrUnknownAlias = errors.New("unknown alias")
)

// TransportError wraps a client failure with the operation and alias it
// occurred on. It is the error family for backend problems, disjoint from
// spec validation errors.
type TransportError struct {
	// Op is the operation that failed (e.g., "FetchDataPoints").
	Op string

	// Alias is the spec alias being fetched, if applicable.
	Alias string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Alias != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Alias, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing series or file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsThrottled returns true if the error indicates backend rate limiting.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnavailable returns true if the error indicates the backend is down.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsUnknownAlias returns true if the error indicates an undeclared alias.
func IsUnknownAlias(err error) bool {
	return errors.Is(err, ErrUnknownAlias)
}
