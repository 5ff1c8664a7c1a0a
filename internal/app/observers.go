package app

import "github.com/jsamuelsen/quotewidget/internal/platform/metrics"

// fetchMetricsObserver feeds fetch outcomes into Prometheus collectors.
type fetchMetricsObserver struct {
	m *metrics.FetchMetrics
}

// MetricsObserver returns an Observer recording every fetch in m.
func MetricsObserver(m *metrics.FetchMetrics) Observer {
	return fetchMetricsObserver{m: m}
}

func (o fetchMetricsObserver) FetchStarted() {
	o.m.Started()
}

func (o fetchMetricsObserver) FetchSettled(out Outcome) {
	o.m.Settled(out.Succeeded(), out.Duration)
}
