// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recordhub"

// Collector holds the ETL collectors. A nil *Collector is valid and records nothing.
type Collector struct {
	records        *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	attempts       *prometheus.CounterVec
	lastSuccess    *prometheus.GaugeVec
	entityReassign prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Parameters:
//   - reg: registry to register with; prometheus.DefaultRegisterer in production.
// Returns:
//   - *Collector: registered collectors.
//   - error: non-nil if a collector is already registered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records handled by the pipeline, by source and outcome.",
		}, []string{"source", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_runs_total",
			Help:      "Finished source runs, by source and status.",
		}, []string{"source", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_run_duration_seconds",
			Help:      "Wall time of one source run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~163s
		}, []string{"source"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_attempts_total",
			Help:      "Pipeline invocation attempts, by result.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per source.",
		}, []string{"source"}),
		entityReassign: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_reassignments_total",
			Help:      "Canonical records moved into another entity cluster on update.",
		}),
	}

	for _, col := range []prometheus.Collector{c.records, c.runs, c.runDuration, c.attempts, c.lastSuccess, c.entityReassign} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Outcome labels for ObserveRecords.
const (
	OutcomeFetched   = "fetched"
	OutcomeDuplicate = "duplicate"
	OutcomeInserted  = "inserted"
	OutcomeUpdated   = "updated"
	OutcomeLinked    = "linked"
	OutcomeFailed    = "failed"
)

// ObserveRecords adds n records with the given outcome.
func (c *Collector) ObserveRecords(source, outcome string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.records.WithLabelValues(source, outcome).Add(float64(n))
}

// ObserveRun records a finished source run.
func (c *Collector) ObserveRun(source, status string, d time.Duration, finishedAt time.Time) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(source, status).Inc()
	c.runDuration.WithLabelValues(source).Observe(d.Seconds())
	if status == "success" {
		c.lastSuccess.WithLabelValues(source).Set(float64(finishedAt.Unix()))
	}
}

// ObserveAttempt counts one invocation attempt.
func (c *Collector) ObserveAttempt(err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.attempts.WithLabelValues(result).Inc()
}

// ObserveReassignment counts one entity reassignment.
func (c *Collector) ObserveReassignment() {
	if c == nil {
		return
	}
	c.entityReassign.Inc()
}
