package ingest

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/metrics"
)

// DefaultFlushDelay is how long batched events wait before being flushed.
const DefaultFlushDelay = 100 * time.Millisecond

// Sink is the run view the ingestor writes to. It is the only writer of the sink.
type Sink interface {
	// AppendBatch appends events to the raw log as one atomic update.
	AppendBatch(events []domain.Event)

	// AppendCritical appends a single critical event, adopts its run id and,
	// when it carries a state snapshot, appends that snapshot.
	AppendCritical(e domain.Event) (domain.Snapshot, bool)
}

// Timer is a pending flush.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. It is injected so tests can drive time by hand.
type Scheduler func(d time.Duration, f func()) Timer

// AfterFunc is the default Scheduler, backed by time.AfterFunc.
func AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Ingestor coordinates batching and ordering for one stream.
// All methods are safe for concurrent use; mutations are serialized.
type Ingestor struct {
	sink     Sink
	delay    time.Duration
	schedule Scheduler
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending []domain.Event
	timer   Timer
	gen     uint64 // invalidates timers that fired after being superseded
	closed  bool
	done    chan struct{}
}

// Option configures the Ingestor.
type Option func(*Ingestor)

// WithFlushDelay sets the batching delay.
func WithFlushDelay(d time.Duration) Option {
	return func(i *Ingestor) {
		if d > 0 {
			i.delay = d
		}
	}
}

// WithScheduler replaces the timer implementation.
func WithScheduler(s Scheduler) Option {
	return func(i *Ingestor) {
		if s != nil {
			i.schedule = s
		}
	}
}

// WithLogger configures a logger for the Ingestor.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingestor) {
		i.metrics = m
	}
}

// New creates an Ingestor writing to sink.
func New(sink Sink, opts ...Option) *Ingestor {
	i := &Ingestor{
		sink:     sink,
		delay:    DefaultFlushDelay,
		schedule: AfterFunc,
		logger:   logging.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// OnEvent ingests one decoded event.
// It returns domain.ErrIngestorClosed once the stream has been closed.
func (i *Ingestor) OnEvent(e domain.Event) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return fmt.Errorf("event %s: %w", e.Kind, domain.ErrIngestorClosed)
	}

	if !e.IsCritical() {
		i.metrics.EventIngested(metrics.ClassBatched)
		i.pending = append(i.pending, e)
		if i.timer == nil {
			i.gen++
			gen := i.gen
			i.timer = i.schedule(i.delay, func() { i.fire(gen) })
		}
		return nil
	}

	i.metrics.EventIngested(metrics.ClassCritical)
	// Critical events never overtake buffered ones.
	i.flushLocked()

	snap, ok := i.sink.AppendCritical(e)
	if ok {
		i.metrics.SnapshotAppended()
		i.logger.Debug("snapshot appended", "kind", e.Kind, "node", e.NodeHint(), "step", snap.Step)
	}
	return nil
}

// OnMessage decodes and ingests a raw wire message. Malformed messages are skipped.
func (i *Ingestor) OnMessage(raw []byte) {
	e, err := domain.DecodeEvent(raw)
	if err != nil {
		i.metrics.MalformedMessage()
		i.logger.Warn("Skipping malformed stream message", "err", err)
		return
	}
	if err := i.OnEvent(e); err != nil {
		i.logger.Debug("Dropping event after close", "err", err)
	}
}

// OnClose cancels the pending timer and flushes synchronously. It is idempotent.
func (i *Ingestor) OnClose() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}
	i.flushLocked()
	i.closed = true
	close(i.done)
	i.logger.Debug("Ingestor closed")
}

// Done is closed once the stream has been closed and fully flushed.
func (i *Ingestor) Done() <-chan struct{} {
	return i.done
}

// Pending returns the number of buffered events.
func (i *Ingestor) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pending)
}

func (i *Ingestor) fire(gen uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || gen != i.gen {
		return
	}
	i.timer = nil
	i.flushLocked()
}

// flushLocked drains the batch into the sink and retires the pending timer.
func (i *Ingestor) flushLocked() {
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
		i.gen++
	}
	if len(i.pending) == 0 {
		return
	}

	batch := i.pending
	i.pending = nil
	i.sink.AppendBatch(batch)
	i.metrics.BatchFlushed(len(batch))
}

// Replay feeds a recorded event log through a fresh Ingestor and closes it.
func Replay(sink Sink, events []domain.Event, opts ...Option) error {
	i := New(sink, opts...)
	for _, e := range events {
		if err := i.OnEvent(e); err != nil {
			return err
		}
	}
	i.OnClose()
	return nil
}
