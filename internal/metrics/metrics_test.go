package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveRecords("api", OutcomeInserted, 2)
	c.ObserveRecords("api", OutcomeInserted, 0)
	c.ObserveRun("api", "success", 120*time.Millisecond, time.Unix(1700000000, 0))
	c.ObserveAttempt(errors.New("boom"))
	c.ObserveAttempt(nil)
	c.ObserveReassignment()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.records.WithLabelValues("api", OutcomeInserted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("api", "success")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(c.lastSuccess.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.entityReassign))

	_, err = New(reg)
	assert.Error(t, err, "double registration is rejected")
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRecords("api", OutcomeFailed, 1)
		c.ObserveRun("api", "failed", time.Second, time.Now())
		c.ObserveAttempt(nil)
		c.ObserveReassignment()
	})
}

func TestTextfileWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordhub.prom")
	tf, err := NewTextfile(path)
	require.NoError(t, err)

	tf.ObserveRecords("csv", OutcomeLinked, 3)
	tf.ObserveAttempt(nil)
	require.NoError(t, tf.Write())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `recordhub_records_total{outcome="linked",source="csv"} 3`)
	assert.Contains(t, string(b), "recordhub_invocation_attempts_total")
}
