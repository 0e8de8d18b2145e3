// Package metrics holds the Prometheus instrumentation for the extraction
// service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry owns these metrics. Exposed so the /metrics endpoint can
	// serve it.
	Registry *prometheus.Registry

	statementsTotal    *prometheus.CounterVec
	chunkFailuresTotal prometheus.Counter
	modelRetriesTotal  prometheus.Counter
	tokensTotal        *prometheus.CounterVec
	extractionSeconds  prometheus.Histogram
}

// New creates a dedicated registry and registers all application metrics in
// it. A private registry avoids duplicate-collector panics when New is called
// more than once in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		statementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_statements_total",
				Help: "Statements processed, by outcome.",
			},
			[]string{"status"},
		),
		chunkFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_chunk_failures_total",
				Help: "Chunks that failed extraction after retries.",
			},
		),
		modelRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_model_retries_total",
				Help: "Transient model API failures that were retried.",
			},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_model_tokens_total",
				Help: "Model tokens consumed.",
			},
			[]string{"type"},
		),
		extractionSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_extraction_duration_seconds",
				Help:    "Wall time of whole-statement extractions.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
}

// IncrStatement counts one processed statement with an outcome label,
// "success" or "error".
func (m *Metrics) IncrStatement(status string) {
	m.statementsTotal.WithLabelValues(status).Inc()
}

// IncrChunkFailure counts one chunk lost to a terminal extraction error.
func (m *Metrics) IncrChunkFailure() {
	m.chunkFailuresTotal.Inc()
}

// IncrModelRetry counts one retried model call.
func (m *Metrics) IncrModelRetry() {
	m.modelRetriesTotal.Inc()
}

// RecordTokens records input and output token usage.
func (m *Metrics) RecordTokens(input, output int64) {
	m.tokensTotal.WithLabelValues("input").Add(float64(input))
	m.tokensTotal.WithLabelValues("output").Add(float64(output))
}

// RecordExtractionDuration records the wall time of one extraction.
func (m *Metrics) RecordExtractionDuration(d time.Duration) {
	m.extractionSeconds.Observe(d.Seconds())
}
