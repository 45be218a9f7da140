package runlens

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ingest"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/aretw0/runlens/pkg/session"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// ErrNoSource is returned by Watch when the Lens has no event source.
var ErrNoSource = errors.New("no event source configured")

// Lens is the high-level entry point for the library.
// It owns the run views of one process and the collaborators they are rendered against.
type Lens struct {
	Runs *session.Manager

	source  ports.EventSource
	schemas ports.SchemaProvider
	archive ports.Archive
	ingest  []ingest.Option
	logger  *slog.Logger

	schemaOnce sync.Once
	schema     domain.GraphSchema
}

// Option defines a functional option for configuring the Lens.
type Option func(*Lens)

// WithSource sets where live runs are streamed from.
func WithSource(s ports.EventSource) Option {
	return func(l *Lens) {
		l.source = s
	}
}

// WithSchemaProvider sets where the graph schema comes from. The built-in schema is used otherwise.
func WithSchemaProvider(p ports.SchemaProvider) Option {
	return func(l *Lens) {
		l.schemas = p
	}
}

// WithArchive enables saving and reopening recordings.
func WithArchive(a ports.Archive) Option {
	return func(l *Lens) {
		l.archive = a
	}
}

// WithIngestOptions configures the ingestor of every run.
func WithIngestOptions(opts ...ingest.Option) Option {
	return func(l *Lens) {
		l.ingest = append(l.ingest, opts...)
	}
}

// WithLogger configures the logger shared by the Lens components.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lens) {
		l.logger = logger
	}
}

// New creates a Lens.
func New(opts ...Option) *Lens {
	l := &Lens{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	mgrOpts := []session.Option{session.WithLogger(l.logger)}
	if l.archive != nil {
		mgrOpts = append(mgrOpts, session.WithArchive(l.archive))
	}
	l.Runs = session.NewManager(mgrOpts...)
	l.ingest = append([]ingest.Option{ingest.WithLogger(l.logger)}, l.ingest...)
	return l
}

// Watch submits question and streams the run into a new view.
func (l *Lens) Watch(ctx context.Context, question string) (*session.View, error) {
	if l.source == nil {
		return nil, ErrNoSource
	}
	return l.Runs.Start(ctx, l.source, question, l.ingest...), nil
}

// Replay reopens an archived run in replay mode at cursor 0.
func (l *Lens) Replay(ctx context.Context, runID string) (*session.View, error) {
	return l.Runs.Open(ctx, runID, l.ingest...)
}

// Schema resolves the graph schema once. Failures fall back to the built-in schema.
func (l *Lens) Schema(ctx context.Context) domain.GraphSchema {
	l.schemaOnce.Do(func() {
		if l.schemas == nil {
			l.schema = domain.DefaultSchema()
			return
		}
		res := l.schemas.Schema(ctx)
		if res.Fallback {
			l.logger.Warn("Using default graph schema", "err", res.Err)
		}
		l.schema = res.Schema
	})
	return l.schema
}

// Frame renders v against the resolved schema.
func (l *Lens) Frame(ctx context.Context, v *session.View) session.Frame {
	return v.Frame(l.Schema(ctx))
}

// Inspect renders a recorded event log at cursor without keeping a view around.
// A negative cursor shows the run live, at its newest snapshot.
func Inspect(rec domain.Recording, cursor int, schema domain.GraphSchema) (session.Frame, error) {
	v := session.NewView(rec.RunID, rec.Question)
	if err := ingest.Replay(v, rec.Events); err != nil {
		return session.Frame{}, fmt.Errorf("failed to replay %s: %w", rec.RunID, err)
	}
	v.MarkClosed()
	if cursor >= 0 {
		v.SetLive(false)
		v.SetCursor(cursor)
	}
	return v.Frame(schema), nil
}
