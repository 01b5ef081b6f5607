package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions  *prometheus.CounterVec
	StatusChecks *prometheus.CounterVec
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_consent_transitions_total",
			Help: "Consent record transitions by resulting status.",
		}, []string{"status"}),
		StatusChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_consent_status_checks_total",
			Help: "Consent status checks by outcome.",
		}, []string{"outcome"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_consent_cache_hits_total",
			Help: "Consent status cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_consent_cache_misses_total",
			Help: "Consent status cache misses.",
		}),
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementStatusCheck(outcome string) {
	if m == nil {
		return
	}
	m.StatusChecks.WithLabelValues(outcome).Inc()
}
