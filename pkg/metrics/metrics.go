// Package metrics exposes Prometheus collectors for the extraction pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "holdings"

// Status values for processed statements.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	statements *prometheus.CounterVec
	records    *prometheus.CounterVec
	lines      *prometheus.CounterVec
	checks     *prometheus.CounterVec
	duration   prometheus.Histogram
}

// New registers the collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_processed_total",
			Help:      "Statements processed, by outcome.",
		}, []string{"status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Position records extracted, by section.",
		}, []string{"section"}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_classified_total",
			Help:      "Reconstructed lines, by classification.",
		}, []string{"class"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_checks_total",
			Help:      "Validation checks run, by name and result.",
		}, []string{"check", "passed"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting one statement.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		m.statements, m.records, m.lines, m.checks, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStatement counts one processed statement and, on success, its
// extraction time.
func (m *Metrics) ObserveStatement(status string, d time.Duration) {
	m.statements.WithLabelValues(status).Inc()
	if status == StatusOK {
		m.duration.Observe(d.Seconds())
	}
}

// AddRecords adds n records for section.
func (m *Metrics) AddRecords(section string, n int) {
	if n > 0 {
		m.records.WithLabelValues(section).Add(float64(n))
	}
}

// AddLines adds n lines of the given classification.
func (m *Metrics) AddLines(class string, n int) {
	if n > 0 {
		m.lines.WithLabelValues(class).Add(float64(n))
	}
}

// ObserveCheck counts one validation check.
func (m *Metrics) ObserveCheck(name string, passed bool) {
	label := "false"
	if passed {
		label = "true"
	}
	m.checks.WithLabelValues(name, label).Inc()
}
