package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen/quotewidget/internal/adapters/clients"
	"github.com/jsamuelsen/quotewidget/internal/domain"
	"github.com/jsamuelsen/quotewidget/internal/platform/logging"
)

// DefaultQuotePath is the random quote operation of the quote service.
const DefaultQuotePath = "/quotes"

// maxQuoteBodyBytes caps how much of a response body is read.
const maxQuoteBodyBytes = 1 << 20

// QuoteClientConfig contains configuration for the quote client.
type QuoteClientConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should be set to the quote service endpoint.
	Client *clients.Client

	// Path is the request path. Defaults to DefaultQuotePath.
	Path string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// QuoteClient implements ports.QuoteSource against the quote service.
// It translates the service's JSON payload into domain.Quote and every
// failure into a domain.FetchError.
type QuoteClient struct {
	client *clients.Client
	path   string
	logger *slog.Logger
}

// NewQuoteClient creates a new quote client adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewQuoteClient(cfg QuoteClientConfig) *QuoteClient {
	if cfg.Client == nil {
		panic("QuoteClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := cfg.Path
	if path == "" {
		path = DefaultQuotePath
	}

	return &QuoteClient{
		client: cfg.Client,
		path:   path,
		logger: logger,
	}
}

// RandomQuote issues a single GET for a random quote.
// Implements ports.QuoteSource.
func (c *QuoteClient) RandomQuote(ctx context.Context) (domain.Quote, error) {
	service := c.client.ServiceName()
	logger := logging.FromContextOr(ctx, c.logger)

	logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.path))

	resp, err := c.client.Get(ctx, c.path)
	if err != nil {
		return domain.Quote{}, MapFetchError(nil, err, service)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQuoteBodyBytes))
	if err != nil {
		return domain.Quote{}, domain.NewFetchError(service, "reading response body", err)
	}

	logger.Log(ctx, logging.LevelTrace, "request complete",
		slog.String("path", c.path),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return domain.Quote{}, MapFetchError(resp, nil, service)
	}

	quote, err := translateQuote(body)
	if err != nil {
		return domain.Quote{}, domain.NewFetchError(service, "decoding quote response", err)
	}

	return quote, nil
}

// translateQuote converts the service payload to a domain Quote.
// The payload is not schema-checked: any valid JSON is accepted and fields
// that are absent or not scalar come out blank.
func translateQuote(body []byte) (domain.Quote, error) {
	if !json.Valid(body) {
		return domain.Quote{}, fmt.Errorf("invalid JSON (%d bytes)", len(body))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		// Valid JSON that is not an object.
		return domain.Quote{}, nil
	}

	return domain.Quote{
		Text:   scalarText(fields["quote"]),
		Author: scalarText(fields["author"]),
	}, nil
}

// scalarText renders a JSON scalar as display text.
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	default:
		return ""
	}
}
