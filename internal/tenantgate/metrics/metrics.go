package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant gate module.
type Metrics struct {
	Classified *prometheus.CounterVec
	Provisions *prometheus.CounterVec
}

// New creates a new Metrics instance with all tenant gate metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Classified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_tenantgate_classifications_total",
			Help: "Total deployment-class classifications, by resulting class",
		}, []string{"class"}),
		Provisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_tenantgate_provisions_total",
			Help: "Total provisioning attempts, by class and outcome",
		}, []string{"class", "outcome"}),
	}
}

// IncrementClassified records one classification outcome.
func (m *Metrics) IncrementClassified(class string) {
	m.Classified.WithLabelValues(class).Inc()
}

// IncrementProvision records one provisioning attempt.
func (m *Metrics) IncrementProvision(class, outcome string) {
	m.Provisions.WithLabelValues(class, outcome).Inc()
}
