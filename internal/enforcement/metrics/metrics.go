package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_enforcement_decisions_total",
			Help: "Enforcement decisions by checkpoint and outcome.",
		}, []string{"checkpoint", "outcome"}),
	}
}

func (m *Metrics) IncrementDecision(checkpoint string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(checkpoint, outcome).Inc()
}
