// Package metrics exposes widget fetch metrics in Prometheus format.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quote_widget"

// Fetch results used as the result label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// FetchMetrics records the outcome of every quote fetch.
type FetchMetrics struct {
	total    *prometheus.CounterVec
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

// NewFetchMetrics creates the fetch collectors and registers them with reg.
// Collectors already registered by a previous call are reused.
func NewFetchMetrics(reg prometheus.Registerer) (*FetchMetrics, error) {
	m := &FetchMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Quote fetches by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of quote fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_in_flight",
			Help:      "1 while a quote fetch is pending.",
		}),
	}

	var err error
	if m.total, err = register(reg, m.total); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.inFlight, err = register(reg, m.inFlight); err != nil {
		return nil, err
	}

	// Expose both labels from the start so dashboards never see gaps.
	m.total.WithLabelValues(ResultSuccess)
	m.total.WithLabelValues(ResultFailure)

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, err
}

// Started marks a fetch as pending.
func (m *FetchMetrics) Started() {
	m.inFlight.Set(1)
}

// Settled records a finished fetch.
func (m *FetchMetrics) Settled(succeeded bool, d time.Duration) {
	result := ResultFailure
	if succeeded {
		result = ResultSuccess
	}

	m.inFlight.Set(0)
	m.total.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}
