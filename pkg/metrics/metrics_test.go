package metrics_test

import (
	"testing"

	"github.com/aretw0/runlens/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.EventIngested(metrics.ClassCritical)
	m.EventIngested(metrics.ClassBatched)
	m.EventIngested(metrics.ClassBatched)
	m.MalformedMessage()
	m.SnapshotAppended()
	m.BatchFlushed(3)
	m.CollaboratorCall("graph-schema", "fallback")

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				got[f.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				got[f.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 3.0, got["runlens_events_ingested_total"])
	assert.Equal(t, 1.0, got["runlens_malformed_messages_total"])
	assert.Equal(t, 1.0, got["runlens_snapshots_appended_total"])
	assert.Equal(t, 1.0, got["runlens_batch_flushes_total"])
	assert.Equal(t, 1.0, got["runlens_batch_size_events"])
	assert.Equal(t, 1.0, got["runlens_collaborator_requests_total"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.EventIngested(metrics.ClassBatched)
		m.MalformedMessage()
		m.SnapshotAppended()
		m.BatchFlushed(1)
		m.CollaboratorCall("drift", "ok")
	})
}
