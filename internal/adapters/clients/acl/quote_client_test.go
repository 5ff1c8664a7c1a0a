package acl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotewidget/internal/adapters/clients"
	"github.com/jsamuelsen/quotewidget/internal/domain"
)

// setupQuoteClient creates a QuoteClient with a test HTTP server.
func setupQuoteClient(t *testing.T, handler http.HandlerFunc) *QuoteClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newQuoteClient(t, server.URL)
}

func newQuoteClient(t *testing.T, baseURL string) *QuoteClient {
	t.Helper()

	client, err := clients.New(&clients.Config{
		ServiceName: "QuotesAPI",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)

	return NewQuoteClient(QuoteClientConfig{
		Client: client,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// TestNewQuoteClient_PanicsWithoutClient verifies that NewQuoteClient panics when Client is nil.
func TestNewQuoteClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteClient(QuoteClientConfig{Logger: slog.Default()})
	})
}

// TestQuoteClient_RequestShape verifies one plain GET to /quotes.
func TestQuoteClient_RequestShape(t *testing.T) {
	var calls int

	c := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/quotes", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quote":"Q1","author":"A1"}`))
	})

	quote, err := c.RandomQuote(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Quote{Text: "Q1", Author: "A1"}, quote)
	assert.Equal(t, 1, calls)
}

func TestQuoteClient_CustomPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/quotes", r.URL.Path)
		_, _ = w.Write([]byte(`{"quote":"Q","author":"A"}`))
	}))
	t.Cleanup(server.Close)

	client, err := clients.New(&clients.Config{ServiceName: "QuotesAPI", BaseURL: server.URL})
	require.NoError(t, err)

	c := NewQuoteClient(QuoteClientConfig{Client: client, Path: "/v2/quotes"})

	_, err = c.RandomQuote(context.Background())
	require.NoError(t, err)
}

// TestQuoteClient_Payloads covers the tolerant decoding of response bodies.
func TestQuoteClient_Payloads(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected domain.Quote
		wantErr  bool
	}{
		{
			name:     "well formed",
			body:     `{"quote":"Q2","author":"A2"}`,
			expected: domain.Quote{Text: "Q2", Author: "A2"},
		},
		{
			name:     "extra fields ignored",
			body:     `{"quote":"Q3","author":"A3","id":7,"tags":["x"]}`,
			expected: domain.Quote{Text: "Q3", Author: "A3"},
		},
		{
			name:     "missing author",
			body:     `{"quote":"Q4"}`,
			expected: domain.Quote{Text: "Q4"},
		},
		{
			name: "different shape",
			body: `{"content":"Q5","by":"A5"}`,
		},
		{
			name: "array payload",
			body: `[{"quote":"Q6"}]`,
		},
		{
			name:     "scalar fields rendered",
			body:     `{"quote":42,"author":true}`,
			expected: domain.Quote{Text: "42", Author: "true"},
		},
		{
			name:     "nested field blank",
			body:     `{"quote":{"text":"Q7"},"author":null}`,
			expected: domain.Quote{},
		},
		{
			name:    "invalid JSON",
			body:    `{"quote":`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			quote, err := c.RandomQuote(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsFetchFailed(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, quote)
		})
	}
}

// TestQuoteClient_StatusErrors verifies that every non-2xx status is a fetch failure.
func TestQuoteClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{name: "not found", status: http.StatusNotFound, wantReason: "Not Found"},
		{name: "server error with message", status: http.StatusInternalServerError, body: `{"error":{"code":"BOOM","message":"backend down"}}`, wantReason: "backend down"},
		{name: "flat error code", status: http.StatusServiceUnavailable, body: `{"code":"MAINTENANCE"}`, wantReason: "MAINTENANCE"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `not json`, wantReason: "Too Many Requests"},
		{name: "redirect not followed as success", status: http.StatusNotModified, wantReason: "Not Modified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			c := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.RandomQuote(context.Background())
			require.Error(t, err)
			assert.True(t, domain.IsFetchFailed(err))

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, "QuotesAPI", fetchErr.Service)
			assert.Equal(t, tt.wantReason, fetchErr.Reason)
			assert.Equal(t, 1, calls, "no retry")
		})
	}
}

// TestQuoteClient_NetworkError verifies a refused connection is a fetch failure.
func TestQuoteClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newQuoteClient(t, url)

	_, err := c.RandomQuote(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsFetchFailed(err))
	assert.ErrorIs(t, err, clients.ErrRequestFailed)
}

func TestQuoteClient_ContextCanceled(t *testing.T) {
	c := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"quote":"late"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RandomQuote(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsFetchFailed(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapFetchError(t *testing.T) {
	t.Run("success is nil", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}
		assert.NoError(t, MapFetchError(resp, nil, "QuotesAPI"))
	})

	t.Run("nil response", func(t *testing.T) {
		err := MapFetchError(nil, nil, "QuotesAPI")
		assert.True(t, domain.IsFetchFailed(err))
	})

	t.Run("timeout", func(t *testing.T) {
		err := MapFetchError(nil, context.DeadlineExceeded, "QuotesAPI")
		assert.True(t, domain.IsFetchFailed(err))
		assert.Contains(t, err.Error(), "timed out")
	})
}

func TestParseErrorResponse(t *testing.T) {
	assert.Nil(t, ParseErrorResponse(nil))
	assert.Nil(t, ParseErrorResponse(strings.NewReader(`{}`)))
	assert.Nil(t, ParseErrorResponse(strings.NewReader(`<html>`)))

	resp := ParseErrorResponse(strings.NewReader(`{"message":"flat"}`))
	require.NotNil(t, resp)
	assert.Equal(t, "flat", resp.GetMessage())
}
