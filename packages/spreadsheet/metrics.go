package spreadsheet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// edit outcomes recorded under the "result" label
const (
	resultCommitted = "committed"
	resultRejected  = "rejected"
	resultCanceled  = "canceled"
)

// Metrics are the engine's prometheus collectors. each Spreadsheet owns one
// set, registered on the Registerer it was built with.
type Metrics struct {
	// editsTotal counts edits by outcome
	editsTotal *prometheus.CounterVec

	// recomputeCells tracks formula cells evaluated per pass
	recomputeCells prometheus.Histogram

	// passDuration tracks recalculation latency
	passDuration prometheus.Histogram
}

// NewMetrics registers the engine collectors on reg. a nil reg gets a
// private registry so several engines can live in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		editsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gridcalc_edits_total",
			Help: "Total edits by result",
		}, []string{"result"}),
		recomputeCells: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridcalc_recompute_cells",
			Help:    "Number of formula cells evaluated per pass",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500, 1000},
		}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridcalc_pass_duration_seconds",
			Help:    "Recalculation pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}),
	}
}

func (m *Metrics) recordEdit(result string) {
	m.editsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordPass(cells int, seconds float64) {
	m.recomputeCells.Observe(float64(cells))
	m.passDuration.Observe(seconds)
}
