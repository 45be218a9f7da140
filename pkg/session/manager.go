package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ingest"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/aretw0/runlens/pkg/session")

// Manager keeps the independent views of one process.
type Manager struct {
	mu    sync.RWMutex
	views map[string]*View
	order []string // View IDs in creation order

	archive ports.Archive // Optional recording archive
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithArchive enables saving and reopening recordings.
func WithArchive(archive ports.Archive) Option {
	return func(m *Manager) {
		m.archive = archive
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new view manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		views:  make(map[string]*View),
		logger: logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new, empty view for question.
func (m *Manager) Create(question string) *View {
	v := NewView(uuid.NewString(), question)

	m.mu.Lock()
	m.views[v.ID()] = v
	m.order = append(m.order, v.ID())
	m.mu.Unlock()

	m.logger.Debug("View created", "view_id", v.ID())
	return v
}

// Start creates a view and streams question from source into it in the background.
// The stream stops when it ends on its own, when ctx is canceled or when the view is discarded.
// The view is marked closed once every received event has been flushed into it.
func (m *Manager) Start(ctx context.Context, source ports.EventSource, question string, opts ...ingest.Option) *View {
	v := m.Create(question)
	ctx, cancel := context.WithCancel(ctx)
	v.Bind(cancel)

	ing := ingest.New(v, append([]ingest.Option{ingest.WithLogger(m.logger)}, opts...)...)
	go func() {
		defer cancel()
		err := source.Stream(ctx, question, ing)
		ing.OnClose()
		v.MarkClosed()

		switch {
		case err == nil:
			m.logger.Info("Stream finished", "view_id", v.ID(), "run_id", v.RunID())
		case errors.Is(err, context.Canceled):
			m.logger.Debug("Stream canceled", "view_id", v.ID())
		default:
			m.logger.Warn("Stream failed", "view_id", v.ID(), "err", err)
		}
	}()
	return v
}

// Get returns a view by ID.
func (m *Manager) Get(id string) (*View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.views[id]
	if !ok {
		return nil, fmt.Errorf("view %q: %w", id, domain.ErrRunNotFound)
	}
	return v, nil
}

// List returns the view IDs, oldest first.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Discard drops a view and stops its stream. Nothing is persisted.
func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	v, ok := m.views[id]
	if ok {
		delete(m.views, id)
		m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("view %q: %w", id, domain.ErrRunNotFound)
	}
	v.discard()
	m.logger.Debug("View discarded", "view_id", id)
	return nil
}

// Archive saves the raw event log of a view, if an archive is configured.
func (m *Manager) Archive(ctx context.Context, id string) error {
	if m.archive == nil {
		return nil
	}
	v, err := m.Get(id)
	if err != nil {
		return err
	}
	rec := v.Recording()
	if err := m.archive.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", rec.RunID, err)
	}
	m.logger.Info("Run archived", "run_id", rec.RunID, "events", len(rec.Events))
	return nil
}

// Open loads an archived run into a new view, in replay mode at cursor 0.
func (m *Manager) Open(ctx context.Context, runID string, opts ...ingest.Option) (*View, error) {
	ctx, span := tracer.Start(ctx, "session.Open")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	if m.archive == nil {
		return nil, fmt.Errorf("run %q: %w", runID, domain.ErrRecordingNotFound)
	}
	rec, err := m.archive.Load(ctx, runID)
	if err != nil {
		return nil, err
	}

	v := m.Create(rec.Question)
	if err := ingest.Replay(v, rec.Events, opts...); err != nil {
		_ = m.Discard(v.ID())
		return nil, fmt.Errorf("failed to replay run %s: %w", runID, err)
	}
	v.MarkClosed()
	v.SetLive(false)
	v.SetCursor(0)
	span.SetAttributes(attribute.Int("events", len(rec.Events)))
	return v, nil
}

// Archiver returns the configured archive, or nil.
func (m *Manager) Archiver() ports.Archive {
	return m.archive
}
