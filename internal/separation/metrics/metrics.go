package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	IdentitiesPurged prometheus.Counter
	PatternsPurged   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IdentitiesPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_separation_identities_purged_total",
			Help: "Identity records purged.",
		}),
		PatternsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_separation_patterns_purged_total",
			Help: "Pattern records purged.",
		}),
	}
}
