// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP/gRPC/etc by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrFetchFailed is the single failure kind for retrieving a quote.
	// It covers transport errors and non-2xx responses alike.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrMisconfigured indicates the client binding could not be resolved from configuration.
	// Fetches through a misconfigured binding fail with a FetchError wrapping this.
	ErrMisconfigured = errors.New("client binding misconfigured")
)

// FetchError provides context for a failed quote fetch.
// StatusCode is kept for observability only and is zero for transport errors.
type FetchError struct {
	Service    string
	Reason     string
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch from %q failed", e.Service)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}

	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

// Unwrap returns the sentinel and the cause for errors.Is() support.
func (e *FetchError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrFetchFailed, e.Cause}
	}

	return []error{ErrFetchFailed}
}

// NewFetchError creates a fetch error for a transport-level failure.
func NewFetchError(service, reason string, cause error) error {
	return &FetchError{Service: service, Reason: reason, Cause: cause}
}

// NewStatusFetchError creates a fetch error for a non-2xx response.
func NewStatusFetchError(service string, status int, reason string) error {
	return &FetchError{Service: service, Reason: reason, StatusCode: status}
}

// IsFetchFailed checks if an error is a fetch failure.
func IsFetchFailed(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// IsMisconfigured checks if an error originates from an unresolved client binding.
func IsMisconfigured(err error) bool {
	return errors.Is(err, ErrMisconfigured)
}
