// Package metrics records per-run redaction metrics with Prometheus.
//
// Each batch run owns a Collector backed by its own registry, so runs never
// share counters and tests can assert exact values. At the end of a run the
// registry is written in text exposition format, suitable for the
// node-exporter textfile collector.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//	timer := metrics.NewTimer()
//	outcome := processFile(path)
//	collector.RecordFile(outcome, timer.Stop(), valuesRedacted)
//	collector.WriteTextfile("/var/lib/node_exporter/scrub.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the metrics for one batch run
type Collector struct {
	registry *prometheus.Registry

	filesTotal          *prometheus.CounterVec
	valuesRedacted      prometheus.Counter
	transactionDuration *prometheus.HistogramVec
	rollbacks           prometheus.Counter
	bytesRewritten      prometheus.Counter
	workersActive       prometheus.Gauge
}

// NewCollector creates a collector with a fresh registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		// Labels: outcome (skipped/redacted/would_redact/failed/rolled_back)
		filesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrub_files_total",
				Help: "Files processed, by transaction outcome",
			},
			[]string{"outcome"},
		),
		valuesRedacted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scrub_values_redacted_total",
				Help: "String values rewritten",
			},
		),
		transactionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "scrub_transaction_duration_seconds",
				Help: "Wall time of one file transaction",
				Buckets: []float64{
					0.01, // small files, clean skip
					0.1,
					1,
					10,
					60,
					600, // very large rewrites
				},
			},
			[]string{"outcome"},
		),
		rollbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scrub_rollbacks_total",
				Help: "Originals restored from backup after a failed rewrite",
			},
		),
		bytesRewritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scrub_bytes_rewritten_total",
				Help: "Bytes written to rewritten files",
			},
		),
		workersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scrub_workers_active",
				Help: "File transactions currently in flight",
			},
		),
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordFile records the end of one file transaction
func (c *Collector) RecordFile(outcome string, d time.Duration, valuesRedacted int) {
	c.filesTotal.WithLabelValues(outcome).Inc()
	c.transactionDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if valuesRedacted > 0 {
		c.valuesRedacted.Add(float64(valuesRedacted))
	}
}

// RecordRollback counts a restore from backup
func (c *Collector) RecordRollback() { c.rollbacks.Inc() }

// RecordBytesWritten adds n to the rewritten byte count
func (c *Collector) RecordBytesWritten(n int64) {
	if n > 0 {
		c.bytesRewritten.Add(float64(n))
	}
}

// WorkerStarted marks a transaction as in flight
func (c *Collector) WorkerStarted() { c.workersActive.Inc() }

// WorkerDone marks a transaction as finished
func (c *Collector) WorkerDone() { c.workersActive.Dec() }

// WriteTextfile writes every metric in text exposition format to path,
// replacing it atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. The timer can be stopped
// multiple times, each returning the total elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
