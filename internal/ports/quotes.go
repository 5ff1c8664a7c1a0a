// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrFetchFailed)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotewidget/internal/domain"
)

// QuoteSource retrieves quotes from the remote quote service.
// The bootstrap binding provides the production implementation; tests
// substitute a fake endpoint.
type QuoteSource interface {
	// RandomQuote issues one request for a random quote.
	// Every failure is reported as a domain.FetchError (domain.ErrFetchFailed).
	RandomQuote(ctx context.Context) (domain.Quote, error)
}

// QuoteSourceFunc adapts a function into a QuoteSource.
type QuoteSourceFunc func(ctx context.Context) (domain.Quote, error)

// RandomQuote implements QuoteSource by invoking the underlying function.
func (f QuoteSourceFunc) RandomQuote(ctx context.Context) (domain.Quote, error) {
	return f(ctx)
}
