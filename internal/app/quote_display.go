// Package app contains the application layer: the quote display component
// that owns widget state and orchestrates fetches through ports.QuoteSource.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotewidget/internal/domain"
	"github.com/jsamuelsen/quotewidget/internal/platform/logging"
	"github.com/jsamuelsen/quotewidget/internal/ports"
)

const (
	// ButtonLabel is the label of the refresh control.
	ButtonLabel = "New Quote"

	authorPrefix = "- "
)

// FetchState is the lifecycle of the most recent fetch.
type FetchState int

const (
	// FetchIdle means no fetch has been issued yet.
	FetchIdle FetchState = iota

	// FetchLoading means a fetch is in flight. Refresh is disabled.
	FetchLoading

	// FetchSucceeded means the last fetch replaced the quote.
	FetchSucceeded

	// FetchFailed means the last fetch failed and the previous quote was kept.
	FetchFailed
)

// String returns the lowercase state name.
func (s FetchState) String() string {
	switch s {
	case FetchIdle:
		return "idle"
	case FetchLoading:
		return "loading"
	case FetchSucceeded:
		return "succeeded"
	case FetchFailed:
		return "failed"
	default:
		return fmt.Sprintf("FetchState(%d)", int(s))
	}
}

// View is the rendered widget.
type View struct {
	Quote          string
	AuthorLine     string
	ButtonLabel    string
	ButtonDisabled bool
}

// Snapshot is a consistent read of the component state.
type Snapshot struct {
	// View is nil when nothing renders.
	View           *View
	State          FetchState
	RefreshEnabled bool
}

// Outcome describes a settled fetch.
type Outcome struct {
	// Quote is the fetched quote, zero on failure.
	Quote    domain.Quote
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the fetch produced a quote.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Observer is notified around every fetch. Calls happen outside the
// component lock and may come from the fetch goroutine.
type Observer interface {
	FetchStarted()
	FetchSettled(o Outcome)
}

// ObserverFunc adapts a function to an Observer that only cares about settlement.
type ObserverFunc func(o Outcome)

// FetchStarted implements Observer.
func (f ObserverFunc) FetchStarted() {}

// FetchSettled implements Observer.
func (f ObserverFunc) FetchSettled(o Outcome) { f(o) }

// QuoteDisplayConfig contains the dependencies of the display component.
type QuoteDisplayConfig struct {
	// Source is the quote source, normally the bootstrap binding.
	Source ports.QuoteSource

	// Logger is used when the fetch context carries no logger.
	Logger *slog.Logger
}

// DisplayOption customizes a QuoteDisplay.
type DisplayOption func(*QuoteDisplay)

// WithObserver registers an observer for fetch lifecycle events.
func WithObserver(o Observer) DisplayOption {
	return func(d *QuoteDisplay) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// QuoteDisplay shows one quote at a time and replaces it on request.
//
// At most one fetch is in flight: UpdateQuote is a no-op while loading. A
// failed fetch keeps the current quote and only re-enables refresh.
type QuoteDisplay struct {
	source    ports.QuoteSource
	logger    *slog.Logger
	observers []Observer

	mu        sync.Mutex
	quote     domain.Quote
	state     FetchState
	last      *Outcome
	mounted   bool
	unmounted bool

	inFlight sync.WaitGroup
}

// NewQuoteDisplay creates an unmounted display component.
// Panics if Source is nil. Defaults logger to slog.Default() if nil.
func NewQuoteDisplay(cfg QuoteDisplayConfig, opts ...DisplayOption) *QuoteDisplay {
	if cfg.Source == nil {
		panic("QuoteDisplay: Source is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &QuoteDisplay{
		source: cfg.Source,
		logger: logger.With(slog.String("component", "app.QuoteDisplay")),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Mount issues the initial fetch. Only the first call has an effect.
func (d *QuoteDisplay) Mount(ctx context.Context) {
	d.mu.Lock()
	if d.mounted {
		d.mu.Unlock()
		return
	}
	d.mounted = true
	d.mu.Unlock()

	d.UpdateQuote(ctx)
}

// Unmount discards the component state. A fetch still in flight is not
// aborted but its result is dropped.
func (d *QuoteDisplay) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.unmounted = true
	d.quote = domain.Quote{}
	d.state = FetchIdle
	d.last = nil
}

// UpdateQuote starts a fetch in the background and reports whether one was
// started. It returns false while a fetch is in flight or after Unmount.
//
// The fetch keeps the values of ctx, such as the request logger, but not
// its cancellation: it always runs to completion.
func (d *QuoteDisplay) UpdateQuote(ctx context.Context) bool {
	d.mu.Lock()
	if d.unmounted || d.state == FetchLoading {
		d.mu.Unlock()
		return false
	}
	d.state = FetchLoading
	d.inFlight.Add(1)
	d.mu.Unlock()

	for _, o := range d.observers {
		o.FetchStarted()
	}

	go d.fetch(context.WithoutCancel(ctx))

	return true
}

func (d *QuoteDisplay) fetch(ctx context.Context) {
	defer d.inFlight.Done()

	logger := logging.FromContextOr(ctx, d.logger)

	start := time.Now()
	quote, err := d.randomQuote(ctx)
	outcome := Outcome{Quote: quote, Err: err, Duration: time.Since(start)}
	if err != nil {
		outcome.Quote = domain.Quote{}
	}

	d.mu.Lock()
	dropped := d.unmounted
	if !dropped {
		if err != nil {
			d.state = FetchFailed
		} else {
			d.quote = quote
			d.state = FetchSucceeded
		}
		d.last = &outcome
	}
	d.mu.Unlock()

	switch {
	case dropped:
		logger.DebugContext(ctx, "dropping quote fetched after unmount",
			slog.Bool("succeeded", outcome.Succeeded()),
			slog.Duration("duration", outcome.Duration),
		)
	case err != nil:
		logger.ErrorContext(ctx, "quote fetch failed",
			slog.Any("error", err),
			slog.Duration("duration", outcome.Duration),
		)
	default:
		logger.DebugContext(ctx, "quote fetched",
			slog.String("author", quote.Author),
			slog.Duration("duration", outcome.Duration),
		)
	}

	for _, o := range d.observers {
		o.FetchSettled(outcome)
	}
}

// randomQuote calls the source, turning a panic into a fetch failure so the
// component never stays stuck in FetchLoading.
func (d *QuoteDisplay) randomQuote(ctx context.Context) (quote domain.Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewFetchError("quote source", fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	return d.source.RandomQuote(ctx)
}

// Quote returns the current quote, zero until the first successful fetch.
func (d *QuoteDisplay) Quote() domain.Quote {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.quote
}

// State returns the fetch state.
func (d *QuoteDisplay) State() FetchState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// RefreshEnabled reports whether UpdateQuote would start a fetch.
func (d *QuoteDisplay) RefreshEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state != FetchLoading
}

// LastOutcome returns the most recent settled fetch.
func (d *QuoteDisplay) LastOutcome() (Outcome, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last == nil {
		return Outcome{}, false
	}

	return *d.last, true
}

// Render returns the widget view, or nil while there is no quote text.
func (d *QuoteDisplay) Render() *View {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.renderLocked()
}

// Snapshot returns the view and state under a single lock.
func (d *QuoteDisplay) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Snapshot{
		View:           d.renderLocked(),
		State:          d.state,
		RefreshEnabled: d.state != FetchLoading,
	}
}

func (d *QuoteDisplay) renderLocked() *View {
	if d.quote.IsEmpty() {
		return nil
	}

	return &View{
		Quote:          d.quote.Text,
		AuthorLine:     authorPrefix + d.quote.Author,
		ButtonLabel:    ButtonLabel,
		ButtonDisabled: d.state == FetchLoading,
	}
}

// Wait blocks until no fetch is in flight.
func (d *QuoteDisplay) Wait() {
	d.inFlight.Wait()
}

// WaitContext is Wait bounded by ctx.
func (d *QuoteDisplay) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
