package syncer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/gatehouse/internal/state"
)

// Outcome labels.
const (
	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeSuperseded = "superseded"
	outcomeFallback   = "fallback"
)

// Metrics counts loads and mutations. A nil *Metrics records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	mutations     *prometheus.CounterVec
}

// NewMetrics registers the syncer collectors on reg. A nil reg leaves the
// collectors unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "sync",
			Name:      "fetch_total",
			Help:      "Collection loads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gatehouse",
			Subsystem: "sync",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent waiting for list reads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "sync",
			Name:      "mutation_total",
			Help:      "Point writes by kind, action and outcome.",
		}, []string{"kind", "action", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.fetchDuration, m.mutations)
	}
	return m
}

func (m *Metrics) fetch(kind state.Kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(string(kind), outcome).Inc()
	m.fetchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) mutation(kind state.Kind, action Action, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(kind), string(action), outcome).Inc()
}
