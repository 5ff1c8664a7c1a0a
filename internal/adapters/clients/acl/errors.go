package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotewidget/internal/adapters/clients"
	"github.com/jsamuelsen/quotewidget/internal/domain"
)

// maxErrorBodyBytes caps how much of an error body is parsed.
const maxErrorBodyBytes = 64 << 10

// ErrorResponse represents an error body returned by the quote service.
// It supports both nested format (error.code/message) and flat format (code/message).
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail contains error information from external services.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetCode returns the error code from either nested or top-level format.
func (e *ErrorResponse) GetCode() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	return e.Code
}

// GetMessage returns the error message from either nested or top-level format.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// ParseErrorResponse attempts to parse an error response body.
// Returns nil if the body is empty or cannot be parsed.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBodyBytes)).Decode(&errResp); err != nil {
		return nil
	}

	if errResp.GetCode() == "" && errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapFetchError maps a failed exchange with the quote service to a domain.FetchError.
// Every failure collapses to the same kind; status and reason are kept for logs.
//
// Parameters:
//   - resp: The HTTP response (nil for transport errors)
//   - clientErr: Any error from the HTTP client (may be nil)
//   - serviceName: Name of the external service for error context
func MapFetchError(resp *http.Response, clientErr error, serviceName string) error {
	if clientErr != nil {
		return mapClientError(clientErr, serviceName)
	}

	if resp == nil {
		return domain.NewFetchError(serviceName, "no response received", nil)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	reason := http.StatusText(resp.StatusCode)
	if errResp := ParseErrorResponse(resp.Body); errResp != nil {
		if msg := errResp.GetMessage(); msg != "" {
			reason = msg
		} else {
			reason = errResp.GetCode()
		}
	}

	return domain.NewStatusFetchError(serviceName, resp.StatusCode, reason)
}

// mapClientError translates client-level errors to domain errors.
func mapClientError(err error, serviceName string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewFetchError(serviceName, "request timed out", err)

	case errors.Is(err, context.Canceled):
		return domain.NewFetchError(serviceName, "request canceled", err)

	case errors.Is(err, clients.ErrRequestFailed):
		return domain.NewFetchError(serviceName, "no response", err)

	default:
		return domain.NewFetchError(serviceName, fmt.Sprintf("request failed: %v", err), err)
	}
}
