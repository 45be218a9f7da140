// Package metrics exposes Prometheus instrumentation for ingestion and collaborator calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Event classes used as the "class" label.
const (
	ClassCritical = "critical"
	ClassBatched  = "batched"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	eventsIngested    *prometheus.CounterVec
	malformedMessages prometheus.Counter
	snapshotsAppended prometheus.Counter
	batchFlushes      prometheus.Counter
	batchSize         prometheus.Histogram
	collaboratorCalls *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// Passing a nil Registerer creates unregistered collectors, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runlens_events_ingested_total",
				Help: "Total number of stream events ingested",
			},
			[]string{"class"},
		),
		malformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runlens_malformed_messages_total",
			Help: "Total number of stream messages skipped because they could not be decoded",
		}),
		snapshotsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runlens_snapshots_appended_total",
			Help: "Total number of state snapshots appended",
		}),
		batchFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runlens_batch_flushes_total",
			Help: "Total number of non-empty batch flushes",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "runlens_batch_size_events",
			Help:    "Number of events per flushed batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		collaboratorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runlens_collaborator_requests_total",
				Help: "Total number of collaborator endpoint requests",
			},
			[]string{"endpoint", "outcome"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.eventsIngested,
			m.malformedMessages,
			m.snapshotsAppended,
			m.batchFlushes,
			m.batchSize,
			m.collaboratorCalls,
		)
	}
	return m
}

// EventIngested counts one event of the given class.
func (m *Metrics) EventIngested(class string) {
	if m == nil {
		return
	}
	m.eventsIngested.WithLabelValues(class).Inc()
}

// MalformedMessage counts one skipped message.
func (m *Metrics) MalformedMessage() {
	if m == nil {
		return
	}
	m.malformedMessages.Inc()
}

// SnapshotAppended counts one snapshot.
func (m *Metrics) SnapshotAppended() {
	if m == nil {
		return
	}
	m.snapshotsAppended.Inc()
}

// BatchFlushed records a flush of n events.
func (m *Metrics) BatchFlushed(n int) {
	if m == nil {
		return
	}
	m.batchFlushes.Inc()
	m.batchSize.Observe(float64(n))
}

// CollaboratorCall records a request to endpoint. outcome is "ok", "error" or "fallback".
func (m *Metrics) CollaboratorCall(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.collaboratorCalls.WithLabelValues(endpoint, outcome).Inc()
}
