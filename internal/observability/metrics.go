package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/platform/resilience"
)

// ContestMetrics exposes fetch, cache, and circuit breaker metrics on a
// private registry.
type ContestMetrics struct {
	registry *prometheus.Registry

	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	FetchRecords  *prometheus.GaugeVec
	CacheTotal    *prometheus.CounterVec
	CircuitState  *prometheus.GaugeVec
}

func NewContestMetrics() *ContestMetrics {
	registry := prometheus.NewRegistry()

	m := &ContestMetrics{
		registry: registry,
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contest_feed_source_fetch_total",
				Help: "Source fetch attempts by outcome and producing strategy",
			},
			[]string{"source", "strategy", "ok"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contest_feed_source_fetch_duration_seconds",
				Help:    "Wall time of one source fetch across all strategies",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"source"},
		),
		FetchRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contest_feed_source_records",
				Help: "Records returned by the latest fetch of each source",
			},
			[]string{"source"},
		),
		CacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contest_feed_cache_requests_total",
				Help: "Feed cache lookups by result",
			},
			[]string{"result"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contest_feed_circuit_state",
				Help: "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.FetchRecords,
		m.CacheTotal,
		m.CircuitState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *ContestMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *ContestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ContestMetrics) ObserveFetch(source string, outcome contest.FetchOutcome) {
	ok := "false"
	if outcome.OK {
		ok = "true"
	}
	strategy := outcome.SourceStrategy
	if strategy == "" {
		strategy = "none"
	}
	m.FetchTotal.WithLabelValues(source, strategy, ok).Inc()
	m.FetchDuration.WithLabelValues(source).Observe((time.Duration(outcome.DurationMS) * time.Millisecond).Seconds())
	m.FetchRecords.WithLabelValues(source).Set(float64(outcome.Count))
}

func (m *ContestMetrics) ObserveCache(result string) {
	m.CacheTotal.WithLabelValues(result).Inc()
}

// ObserveCircuit matches resilience.StateChangeFunc.
func (m *ContestMetrics) ObserveCircuit(name string, _, to resilience.CircuitState) {
	value := 0.0
	switch to {
	case resilience.CircuitStateHalfOpen:
		value = 1
	case resilience.CircuitStateOpen:
		value = 2
	}
	m.CircuitState.WithLabelValues(name).Set(value)
}
