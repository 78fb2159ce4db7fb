package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/airwatch/internal/geo"
)

// Metrics holds Prometheus metrics for the pipeline.
type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	ExtractionsTotal *prometheus.CounterVec
	SkippedTotal     *prometheus.CounterVec
	DuplicatesTotal  prometheus.Counter
	DeliveriesTotal  *prometheus.CounterVec
	PollErrorsTotal  *prometheus.CounterVec
	GeoLookupsTotal  *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwatch_messages_total",
			Help: "Raw messages processed by feed.",
		}, []string{"feed"}),
		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwatch_extractions_total",
			Help: "Extraction attempts by source (rule, ai-fallback, none).",
		}, []string{"source"}),
		SkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwatch_events_skipped_total",
			Help: "Events dropped by the validator by reason.",
		}, []string{"reason"}),
		DuplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airwatch_events_duplicate_total",
			Help: "Events suppressed by the dedup window.",
		}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwatch_deliveries_total",
			Help: "Notification hand-offs by outcome.",
		}, []string{"outcome"}),
		PollErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwatch_poll_errors_total",
			Help: "Failed feed polls by feed.",
		}, []string{"feed"}),
		GeoLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwatch_geo_lookups_total",
			Help: "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "airwatch_cycle_duration_seconds",
			Help:    "Duration of polling cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}),
	}

	reg.MustRegister(
		m.MessagesTotal,
		m.ExtractionsTotal,
		m.SkippedTotal,
		m.DuplicatesTotal,
		m.DeliveriesTotal,
		m.PollErrorsTotal,
		m.GeoLookupsTotal,
		m.CycleDuration,
	)

	return m
}

// Hooks returns dispatcher hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnMessage:    func(feed string) { m.MessagesTotal.WithLabelValues(feed).Inc() },
		OnExtraction: func(source string) { m.ExtractionsTotal.WithLabelValues(source).Inc() },
		OnSkip:       func(reason string) { m.SkippedTotal.WithLabelValues(reason).Inc() },
		OnDuplicate:  func() { m.DuplicatesTotal.Inc() },
		OnDelivery:   func(outcome string) { m.DeliveriesTotal.WithLabelValues(outcome).Inc() },
		OnPollError:  func(feed string) { m.PollErrorsTotal.WithLabelValues(feed).Inc() },
		OnCycle:      func(seconds float64) { m.CycleDuration.Observe(seconds) },
	}
}

// GeoHooks returns enricher hooks that count lookups by outcome.
func (m *Metrics) GeoHooks() geo.Hooks {
	return geo.Hooks{
		OnLookup: func(outcome string) { m.GeoLookupsTotal.WithLabelValues(outcome).Inc() },
	}
}
