package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	EntriesAppended   *prometheus.CounterVec
	VerifyDuration    prometheus.Histogram
	IntegrityFailures prometheus.Counter
}

// New creates a new Metrics instance with all ledger module metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_ledger_entries_appended_total",
			Help: "Total number of ledger entries appended, by kind",
		}, []string{"kind"}),
		VerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_ledger_verify_duration_seconds",
			Help:    "Duration of full chain integrity verification",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		IntegrityFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_ledger_integrity_failures_total",
			Help: "Total number of chain verifications that found a broken entry",
		}),
	}
}

// IncrementAppended records a successful append of the given kind.
func (m *Metrics) IncrementAppended(kind string) {
	m.EntriesAppended.WithLabelValues(kind).Inc()
}

// ObserveVerify records the duration of a chain verification.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

// IncrementIntegrityFailure records a verification that found tampering.
func (m *Metrics) IncrementIntegrityFailure() {
	m.IntegrityFailures.Inc()
}
