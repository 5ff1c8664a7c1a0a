package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotewidget/internal/domain"
	"github.com/jsamuelsen/quotewidget/internal/platform/metrics"
	"github.com/jsamuelsen/quotewidget/internal/ports"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSource serves queued results. When gated, each call blocks until
// release is called.
type stubSource struct {
	mu      sync.Mutex
	results []stubResult
	calls   atomic.Int32
	gate    chan struct{}
}

type stubResult struct {
	quote domain.Quote
	err   error
}

func newStubSource(results ...stubResult) *stubSource {
	return &stubSource{results: results}
}

func (s *stubSource) gated() *stubSource {
	s.gate = make(chan struct{})
	return s
}

func (s *stubSource) release() {
	close(s.gate)
}

func (s *stubSource) RandomQuote(context.Context) (domain.Quote, error) {
	s.calls.Add(1)

	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.results) == 0 {
		return domain.Quote{}, domain.NewFetchError("QuotesAPI", "no stubbed result", nil)
	}

	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}

	return r.quote, r.err
}

func ok(text, author string) stubResult {
	return stubResult{quote: domain.Quote{Text: text, Author: author}}
}

func failed(status int) stubResult {
	return stubResult{err: domain.NewStatusFetchError("QuotesAPI", status, "boom")}
}

// recordingObserver counts lifecycle events.
type recordingObserver struct {
	mu       sync.Mutex
	started  int
	outcomes []Outcome
}

func (r *recordingObserver) FetchStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) FetchSettled(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func newDisplay(t *testing.T, src ports.QuoteSource, opts ...DisplayOption) *QuoteDisplay {
	t.Helper()

	d := NewQuoteDisplay(QuoteDisplayConfig{Source: src, Logger: discardLogger()}, opts...)
	t.Cleanup(d.Wait)

	return d
}

func TestNewQuoteDisplay_PanicsWithoutSource(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteDisplay(QuoteDisplayConfig{Logger: slog.Default()})
	})
}

func TestNewQuoteDisplay_DefaultsLogger(t *testing.T) {
	d := NewQuoteDisplay(QuoteDisplayConfig{Source: newStubSource()})
	require.NotNil(t, d)
}

func TestQuoteDisplay_InitialState(t *testing.T) {
	d := newDisplay(t, newStubSource())

	assert.Nil(t, d.Render())
	assert.Equal(t, FetchIdle, d.State())
	assert.True(t, d.RefreshEnabled())
	assert.True(t, d.Quote().IsEmpty())

	_, settled := d.LastOutcome()
	assert.False(t, settled)
}

func TestQuoteDisplay_Mount(t *testing.T) {
	src := newStubSource(ok("Stay hungry.", "Steve Jobs"))
	d := newDisplay(t, src)

	d.Mount(context.Background())
	d.Mount(context.Background())
	d.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, FetchSucceeded, d.State())
	assert.Equal(t, &View{
		Quote:          "Stay hungry.",
		AuthorLine:     "- Steve Jobs",
		ButtonLabel:    "New Quote",
		ButtonDisabled: false,
	}, d.Render())
}

func TestQuoteDisplay_UpdateQuote_ReplacesQuote(t *testing.T) {
	src := newStubSource(ok("Q1", "A1"), ok("Q2", "A2"))
	d := newDisplay(t, src)

	d.Mount(context.Background())
	d.Wait()

	require.True(t, d.UpdateQuote(context.Background()))
	d.Wait()

	assert.Equal(t, domain.Quote{Text: "Q2", Author: "A2"}, d.Quote())
	assert.Equal(t, int32(2), src.calls.Load())
}

// TestQuoteDisplay_UpdateQuote_IgnoredWhileLoading verifies at most one fetch is in flight.
func TestQuoteDisplay_UpdateQuote_IgnoredWhileLoading(t *testing.T) {
	src := newStubSource(ok("Q1", "A1")).gated()
	d := newDisplay(t, src)

	require.True(t, d.UpdateQuote(context.Background()))

	assert.False(t, d.UpdateQuote(context.Background()))
	assert.Equal(t, FetchLoading, d.State())
	assert.False(t, d.RefreshEnabled())

	src.release()
	d.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, d.RefreshEnabled())
}

func TestQuoteDisplay_UpdateQuote_ConcurrentClicks(t *testing.T) {
	src := newStubSource(ok("Q1", "A1")).gated()
	d := newDisplay(t, src)

	var (
		started atomic.Int32
		wg      sync.WaitGroup
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.UpdateQuote(context.Background()) {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	src.release()
	d.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestQuoteDisplay_ButtonDisabledWhileRefreshing(t *testing.T) {
	src := newStubSource(ok("Q1", "A1"), ok("Q2", "A2"))
	d := newDisplay(t, src)

	d.Mount(context.Background())
	d.Wait()

	src.gate = make(chan struct{})
	require.True(t, d.UpdateQuote(context.Background()))

	view := d.Render()
	require.NotNil(t, view)
	assert.Equal(t, "Q1", view.Quote)
	assert.True(t, view.ButtonDisabled)

	src.release()
	d.Wait()

	view = d.Render()
	require.NotNil(t, view)
	assert.Equal(t, "Q2", view.Quote)
	assert.False(t, view.ButtonDisabled)
}

func TestQuoteDisplay_FailureKeepsQuote(t *testing.T) {
	var logs bytes.Buffer

	src := newStubSource(ok("Q1", "A1"), failed(500))
	d := NewQuoteDisplay(QuoteDisplayConfig{
		Source: src,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})

	d.Mount(context.Background())
	d.Wait()

	require.True(t, d.UpdateQuote(context.Background()))
	d.Wait()

	assert.Equal(t, FetchFailed, d.State())
	assert.True(t, d.RefreshEnabled())
	assert.Equal(t, domain.Quote{Text: "Q1", Author: "A1"}, d.Quote())

	view := d.Render()
	require.NotNil(t, view)
	assert.Equal(t, "Q1", view.Quote)
	assert.NotContains(t, view.Quote+view.AuthorLine, "boom")

	outcome, settled := d.LastOutcome()
	require.True(t, settled)
	assert.False(t, outcome.Succeeded())
	assert.True(t, domain.IsFetchFailed(outcome.Err))
	assert.True(t, outcome.Quote.IsEmpty())

	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "quote fetch failed")
}

func TestQuoteDisplay_FailureBeforeFirstQuote(t *testing.T) {
	d := newDisplay(t, newStubSource(failed(503)))

	d.Mount(context.Background())
	d.Wait()

	assert.Nil(t, d.Render())
	assert.Equal(t, FetchFailed, d.State())
	assert.True(t, d.RefreshEnabled())
}

func TestQuoteDisplay_Render(t *testing.T) {
	tests := []struct {
		name     string
		quote    domain.Quote
		expected *View
	}{
		{
			name:     "full quote",
			quote:    domain.Quote{Text: "Q", Author: "A"},
			expected: &View{Quote: "Q", AuthorLine: "- A", ButtonLabel: ButtonLabel},
		},
		{
			name:     "missing author",
			quote:    domain.Quote{Text: "Q"},
			expected: &View{Quote: "Q", AuthorLine: "- ", ButtonLabel: ButtonLabel},
		},
		{
			name:  "author without text renders nothing",
			quote: domain.Quote{Author: "A"},
		},
		{
			name: "empty quote renders nothing",
		},
		{
			name:     "markup passed through verbatim",
			quote:    domain.Quote{Text: "<b>Q</b>", Author: "A & B"},
			expected: &View{Quote: "<b>Q</b>", AuthorLine: "- A & B", ButtonLabel: ButtonLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDisplay(t, newStubSource(stubResult{quote: tt.quote}))

			d.Mount(context.Background())
			d.Wait()

			assert.Equal(t, FetchSucceeded, d.State())
			assert.Equal(t, tt.expected, d.Render())
		})
	}
}

// TestQuoteDisplay_Unmount_DropsLateResult verifies an in-flight fetch is
// not aborted and its result is discarded.
func TestQuoteDisplay_Unmount_DropsLateResult(t *testing.T) {
	obs := &recordingObserver{}
	src := newStubSource(ok("late", "A")).gated()
	d := newDisplay(t, src, WithObserver(obs))

	d.Mount(context.Background())
	d.Unmount()

	src.release()
	d.Wait()

	assert.Nil(t, d.Render())
	assert.True(t, d.Quote().IsEmpty())
	assert.False(t, d.UpdateQuote(context.Background()))

	_, settled := d.LastOutcome()
	assert.False(t, settled)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.outcomes, 1)
	assert.True(t, obs.outcomes[0].Succeeded())
}

func TestQuoteDisplay_Unmount_DiscardsQuote(t *testing.T) {
	d := newDisplay(t, newStubSource(ok("Q", "A")))

	d.Mount(context.Background())
	d.Wait()
	require.NotNil(t, d.Render())

	d.Unmount()

	assert.Nil(t, d.Render())
	assert.Equal(t, FetchIdle, d.State())
}

type ctxKey struct{}

// TestQuoteDisplay_FetchIgnoresCancellation verifies the fetch keeps context
// values but outlives the caller's cancellation.
func TestQuoteDisplay_FetchIgnoresCancellation(t *testing.T) {
	gate := make(chan struct{})

	var (
		ctxErr error
		value  any
	)
	src := ports.QuoteSourceFunc(func(ctx context.Context) (domain.Quote, error) {
		<-gate
		ctxErr = ctx.Err()
		value = ctx.Value(ctxKey{})
		return domain.Quote{Text: "Q", Author: "A"}, nil
	})

	d := newDisplay(t, src)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	require.True(t, d.UpdateQuote(ctx))
	cancel()

	close(gate)
	d.Wait()

	require.NoError(t, ctxErr)
	assert.Equal(t, "req-1", value)
	assert.Equal(t, FetchSucceeded, d.State())
}

func TestQuoteDisplay_SourcePanicIsFailure(t *testing.T) {
	src := ports.QuoteSourceFunc(func(context.Context) (domain.Quote, error) {
		panic("nil map")
	})
	d := newDisplay(t, src)

	d.Mount(context.Background())
	d.Wait()

	assert.Equal(t, FetchFailed, d.State())
	assert.True(t, d.RefreshEnabled())

	outcome, settled := d.LastOutcome()
	require.True(t, settled)
	assert.True(t, domain.IsFetchFailed(outcome.Err))
}

func TestQuoteDisplay_Observers(t *testing.T) {
	obs := &recordingObserver{}

	var funcCalls atomic.Int32
	fn := ObserverFunc(func(Outcome) { funcCalls.Add(1) })

	src := newStubSource(ok("Q1", "A1"), failed(500))
	d := newDisplay(t, src, WithObserver(obs), WithObserver(fn), WithObserver(nil))

	d.Mount(context.Background())
	d.Wait()
	d.UpdateQuote(context.Background())
	d.Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()

	assert.Equal(t, 2, obs.started)
	require.Len(t, obs.outcomes, 2)
	assert.True(t, obs.outcomes[0].Succeeded())
	assert.Equal(t, "Q1", obs.outcomes[0].Quote.Text)
	assert.False(t, obs.outcomes[1].Succeeded())
	assert.Equal(t, int32(2), funcCalls.Load())
}

func TestQuoteDisplay_Snapshot(t *testing.T) {
	src := newStubSource(ok("Q", "A")).gated()
	d := newDisplay(t, src)

	d.Mount(context.Background())

	snap := d.Snapshot()
	assert.Nil(t, snap.View)
	assert.Equal(t, FetchLoading, snap.State)
	assert.False(t, snap.RefreshEnabled)

	src.release()
	d.Wait()

	snap = d.Snapshot()
	require.NotNil(t, snap.View)
	assert.Equal(t, FetchSucceeded, snap.State)
	assert.True(t, snap.RefreshEnabled)
}

func TestQuoteDisplay_WaitContext(t *testing.T) {
	src := newStubSource(ok("Q", "A")).gated()
	d := newDisplay(t, src)

	d.Mount(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.WaitContext(ctx), context.DeadlineExceeded)

	src.release()
	assert.NoError(t, d.WaitContext(context.Background()))
}

func TestFetchState_String(t *testing.T) {
	tests := []struct {
		state    FetchState
		expected string
	}{
		{FetchIdle, "idle"},
		{FetchLoading, "loading"},
		{FetchSucceeded, "succeeded"},
		{FetchFailed, "failed"},
		{FetchState(9), "FetchState(9)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewFetchMetrics(reg)
	require.NoError(t, err)

	src := newStubSource(ok("Q1", "A1"), stubResult{err: errors.New("refused")})
	d := newDisplay(t, src, WithObserver(MetricsObserver(m)))

	d.Mount(context.Background())
	d.Wait()
	d.UpdateQuote(context.Background())
	d.Wait()

	expected := `
# HELP quote_widget_fetch_total Quote fetches by result.
# TYPE quote_widget_fetch_total counter
quote_widget_fetch_total{result="failure"} 1
quote_widget_fetch_total{result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quote_widget_fetch_total"))

	inFlight := `
# HELP quote_widget_fetch_in_flight 1 while a quote fetch is pending.
# TYPE quote_widget_fetch_in_flight gauge
quote_widget_fetch_in_flight 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(inFlight), "quote_widget_fetch_in_flight"))
}
