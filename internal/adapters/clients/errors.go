// Package clients provides HTTP client adapters for downstream services.
package clients

import "errors"

// Client errors represent failures in the HTTP client layer.
// They are translated to domain errors by the anti-corruption layer.
var (
	// ErrRequestFailed is returned when no response was received.
	// The transport error is wrapped for context.
	ErrRequestFailed = errors.New("request failed")

	// ErrInvalidBaseURL is returned by New when the base URL is unusable.
	ErrInvalidBaseURL = errors.New("invalid base URL")
)
