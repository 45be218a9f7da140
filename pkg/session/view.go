package session

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/replay"
)

// View is the state of one watched run.
// Writes come from a single ingest.Ingestor; reads may come from any goroutine.
type View struct {
	id        string
	createdAt time.Time

	mu       sync.RWMutex
	runID    string
	question string
	events   []domain.Event
	store    *replay.Store
	closed   bool
	cancel   context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// NewView creates an empty view in live mode.
func NewView(id, question string) *View {
	return &View{
		id:        id,
		question:  question,
		createdAt: time.Now(),
		store:     replay.NewStore(),
		subs:      make(map[int]chan struct{}),
	}
}

// ID returns the local view identifier.
func (v *View) ID() string { return v.id }

// CreatedAt returns when the view was created.
func (v *View) CreatedAt() time.Time { return v.createdAt }

// RunID returns the latest run id announced by the stream.
func (v *View) RunID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.runID
}

// Question returns the input question of the run.
func (v *View) Question() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.question
}

// AppendBatch appends a flushed batch in one update.
func (v *View) AppendBatch(events []domain.Event) {
	if len(events) == 0 {
		return
	}
	v.mu.Lock()
	v.events = append(v.events, events...)
	v.mu.Unlock()
	v.notify()
}

// AppendCritical appends a critical event, adopting its run id and storing its snapshot.
func (v *View) AppendCritical(e domain.Event) (domain.Snapshot, bool) {
	v.mu.Lock()
	v.events = append(v.events, e)
	if e.RunID != "" && e.RunID != v.runID {
		v.runID = e.RunID
	}
	var (
		snap domain.Snapshot
		ok   bool
	)
	if e.StateSnapshot != nil {
		snap, ok = v.store.Append(e.StepIndex, e.StateSnapshot), true
	}
	v.mu.Unlock()
	v.notify()
	return snap, ok
}

// MarkClosed records that the stream has ended.
func (v *View) MarkClosed() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.notify()
}

// Closed reports whether the stream has ended.
func (v *View) Closed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.closed
}

// SetLive switches between live and replay mode.
func (v *View) SetLive(live bool) {
	v.mu.Lock()
	v.store.SetLive(live)
	v.mu.Unlock()
	v.notify()
}

// SetCursor moves the replay cursor and returns the effective value.
func (v *View) SetCursor(c int) int {
	v.mu.Lock()
	got := v.store.SetCursor(c)
	v.mu.Unlock()
	v.notify()
	return got
}

// Events returns a copy of the raw event log.
func (v *View) Events() []domain.Event {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.Event, len(v.events))
	copy(out, v.events)
	return out
}

// Snapshots returns a copy of the snapshot log.
func (v *View) Snapshots() []domain.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.store.Snapshots()
}

// Filtered returns the events visible at the current cursor.
func (v *View) Filtered() []domain.Event {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filteredLocked()
}

// ShownState resolves the state to display.
func (v *View) ShownState() replay.Resolution {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.store.ShownState()
}

// Recording captures the raw event log for archiving.
func (v *View) Recording() domain.Recording {
	v.mu.RLock()
	defer v.mu.RUnlock()
	runID := v.runID
	if runID == "" {
		runID = v.id
	}
	events := make([]domain.Event, len(v.events))
	copy(events, v.events)
	return domain.Recording{
		RunID:      runID,
		Question:   v.question,
		Events:     events,
		RecordedAt: time.Now().UTC(),
	}
}

// Subscribe returns a channel that receives a signal after every change.
// Signals coalesce: a slow reader sees one pending signal, not one per change.
// Call the returned function to unsubscribe.
func (v *View) Subscribe() (<-chan struct{}, func()) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	id := v.nextSub
	v.nextSub++
	ch := make(chan struct{}, 1)
	v.subs[id] = ch

	return ch, func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		if c, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(c)
		}
	}
}

// Bind attaches the cancel function of the stream feeding this view.
func (v *View) Bind(cancel context.CancelFunc) {
	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()
}

// discard stops the feeding stream and drops all subscribers.
func (v *View) discard() {
	v.mu.Lock()
	cancel := v.cancel
	v.cancel = nil
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	v.subMu.Lock()
	defer v.subMu.Unlock()
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
}

func (v *View) notify() {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	for _, ch := range v.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// filteredLocked never aliases the raw log, which keeps growing after the lock is released.
func (v *View) filteredLocked() []domain.Event {
	visible := domain.FilterEvents(v.events, v.store.Snapshots(), v.store.Cursor(), v.store.Mode())
	return append([]domain.Event(nil), visible...)
}
