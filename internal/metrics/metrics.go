package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives reconciliation counters.
type Recorder interface {
	AutoMatchOutcome(outcome string)
	ManualMatch(paymentType string)
	Unmatch()
	Imported(format string, inserted, duplicates, rejected int)
}

// Noop ignores everything.
type Noop struct{}

func (Noop) AutoMatchOutcome(string) {}
func (Noop) ManualMatch(string) {}
func (Noop) Unmatch() {}
func (Noop) Imported(string, int, int, int) {}

type Prometheus struct {
	registry     *prometheus.Registry
	autoMatch    *prometheus.CounterVec
	manualMatch  *prometheus.CounterVec
	unmatch      prometheus.Counter
	importedRows *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Prometheus{
		registry: reg,
		autoMatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bankpay",
			Name:      "auto_match_transactions_total",
			Help:      "Transactions considered by auto-match, by outcome.",
		}, []string{"outcome"}),
		manualMatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bankpay",
			Name:      "manual_matches_total",
			Help:      "Transactions matched by an administrator, by payment type.",
		}, []string{"payment_type"}),
		unmatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bankpay",
			Name:      "unmatches_total",
			Help:      "Matches cleared by an administrator.",
		}),
		importedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bankpay",
			Name:      "imported_rows_total",
			Help:      "Bank statement rows processed by the importer, by result.",
		}, []string{"format", "result"}),
	}
	reg.MustRegister(m.autoMatch, m.manualMatch, m.unmatch, m.importedRows)
	return m
}

func (m *Prometheus) AutoMatchOutcome(outcome string) {
	m.autoMatch.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) ManualMatch(paymentType string) {
	m.manualMatch.WithLabelValues(paymentType).Inc()
}

func (m *Prometheus) Unmatch() {
	m.unmatch.Inc()
}

func (m *Prometheus) Imported(format string, inserted, duplicates, rejected int) {
	m.importedRows.WithLabelValues(format, "inserted").Add(float64(inserted))
	m.importedRows.WithLabelValues(format, "duplicate").Add(float64(duplicates))
	m.importedRows.WithLabelValues(format, "rejected").Add(float64(rejected))
}

func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
