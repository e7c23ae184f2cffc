package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for landing page reconciliation.
type Metrics struct {
	IdentitiesMinted  prometheus.Counter
	IdentitiesExpired prometheus.Counter
	Checks            *prometheus.CounterVec
	CheckDuration     prometheus.Histogram
	StatesResolved    *prometheus.CounterVec
}

// New creates and registers all landing metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IdentitiesMinted: factory.NewCounter(prometheus.CounterOpts{
			Name: "blackhole_landing_identities_minted_total",
			Help: "Total number of visitor identifiers minted",
		}),
		IdentitiesExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "blackhole_landing_identities_expired_total",
			Help: "Total number of visitor identifiers discarded because they aged out",
		}),
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blackhole_landing_checks_total",
			Help: "Total number of verification checks by outcome",
		}, []string{"outcome"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "blackhole_landing_check_duration_seconds",
			Help:    "Latency of verification checks",
			Buckets: prometheus.DefBuckets,
		}),
		StatesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blackhole_landing_states_resolved_total",
			Help: "Total number of resolved landing states by state",
		}, []string{"state"}),
	}
}

func (m *Metrics) IncrementIdentitiesMinted() {
	m.IdentitiesMinted.Inc()
}

func (m *Metrics) IncrementIdentitiesExpired() {
	m.IdentitiesExpired.Inc()
}

// ObserveCheck records one check; outcome is "ok" or an error category.
func (m *Metrics) ObserveCheck(outcome string, seconds float64) {
	m.Checks.WithLabelValues(outcome).Inc()
	m.CheckDuration.Observe(seconds)
}

func (m *Metrics) IncrementStateResolved(state string) {
	m.StatesResolved.WithLabelValues(state).Inc()
}
