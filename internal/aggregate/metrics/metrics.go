package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the aggregation module. Counters only
// count decisions; they never carry unit labels, which could themselves leak
// small-population structure.
type Metrics struct {
	MetricsComputed   *prometheus.CounterVec
	FilterViewsDenied prometheus.Counter
	ExportsDenied     prometheus.Counter
}

// New creates a new Metrics instance with all aggregation metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MetricsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_aggregate_metrics_computed_total",
			Help: "Total unit metric computations, by disclosure outcome",
		}, []string{"outcome"}),
		FilterViewsDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_aggregate_filter_views_denied_total",
			Help: "Total drill-down views denied below the disclosure floor",
		}),
		ExportsDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "custos_aggregate_exports_denied_total",
			Help: "Total exports denied below the disclosure floor",
		}),
	}
}

// IncrementComputed records one metric computation and its outcome.
func (m *Metrics) IncrementComputed(suppressed bool) {
	outcome := "visible"
	if suppressed {
		outcome = "suppressed"
	}
	m.MetricsComputed.WithLabelValues(outcome).Inc()
}

// IncrementFilterDenied records a denied drill-down view.
func (m *Metrics) IncrementFilterDenied() {
	m.FilterViewsDenied.Inc()
}

// IncrementExportDenied records a denied export.
func (m *Metrics) IncrementExportDenied() {
	m.ExportsDenied.Inc()
}
