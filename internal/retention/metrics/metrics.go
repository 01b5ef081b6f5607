package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PoliciesCreated prometheus.Counter
	PoliciesRetired prometheus.Counter
	SweepsRun       prometheus.Counter
	SweepDuration   prometheus.Histogram
	SweepOutcomes   *prometheus.CounterVec
	LegalHolds      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PoliciesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_retention_policies_created_total",
			Help: "Retention policies created.",
		}),
		PoliciesRetired: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_retention_policies_retired_total",
			Help: "Retention policies retired by a successor.",
		}),
		SweepsRun: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_retention_sweeps_total",
			Help: "Deletion sweeps executed.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_retention_sweep_duration_seconds",
			Help:    "Duration of deletion sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_retention_sweep_schedules_total",
			Help: "Schedules handled per sweep by outcome.",
		}, []string{"outcome"}),
		LegalHolds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_retention_legal_holds_total",
			Help: "Legal hold operations by action.",
		}, []string{"action"}),
	}
}
