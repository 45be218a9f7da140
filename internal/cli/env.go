package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/runlens"
	"github.com/aretw0/runlens/internal/config"
	"github.com/aretw0/runlens/internal/telemetry"
	"github.com/aretw0/runlens/pkg/adapters/backend"
	"github.com/aretw0/runlens/pkg/adapters/memory"
	"github.com/aretw0/runlens/pkg/adapters/redis"
	"github.com/aretw0/runlens/pkg/adapters/sqlite"
	"github.com/aretw0/runlens/pkg/adapters/websocket"
	"github.com/aretw0/runlens/pkg/ingest"
	"github.com/aretw0/runlens/pkg/metrics"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/aretw0/runlens/pkg/quality"
	"github.com/prometheus/client_golang/prometheus"
)

// Options are the settings every command shares.
type Options struct {
	ConfigPath string
	Debug      bool
	// Overrides are applied after the configuration is loaded (flags win).
	Overrides func(*config.Config)
}

// Env is the wired application: configuration, collaborators and the Lens.
type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Lens     *runlens.Lens
	Backend  *backend.Client
	Scorer   ports.DriftScorer
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	// Source streams new runs. IngestOptions configure their ingestors.
	Source        ports.EventSource
	IngestOptions []ingest.Option

	closers []func(context.Context) error
}

// Setup loads the configuration and wires every component from it.
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Log.Debug = true
	}
	if opts.Overrides != nil {
		opts.Overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewEnv(cfg, createLogger(cfg.Log.Debug))
}

// NewEnv wires the components for cfg.
func NewEnv(cfg *config.Config, logger *slog.Logger) (*Env, error) {
	env := &Env{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	env.Metrics = metrics.New(env.Registry)

	var traceOut io.Writer
	if cfg.Telemetry.Stdout {
		traceOut = os.Stderr
	}
	shutdown, err := telemetry.InitTracer(telemetry.ServiceName, traceOut, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	env.closers = append(env.closers, shutdown)

	archive, err := createArchive(cfg.Archive)
	if err != nil {
		_ = env.Close(context.Background())
		return nil, err
	}
	if c, ok := archive.(io.Closer); ok {
		env.closers = append(env.closers, func(context.Context) error { return c.Close() })
	}

	clientOpts := []backend.Option{
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger),
		backend.WithMetrics(env.Metrics),
	}
	if cfg.Schema.File != "" {
		clientOpts = append(clientOpts, backend.WithSchemaFile(cfg.Schema.File))
	}
	env.Backend = backend.New(cfg.Backend.BaseURL, clientOpts...)

	env.Scorer = env.Backend
	if cfg.Drift.Mode == "local" {
		env.Scorer = quality.LocalScorer{}
	}

	env.Source = websocket.New(cfg.Backend.WSURL, websocket.WithLogger(logger))
	env.IngestOptions = []ingest.Option{
		ingest.WithFlushDelay(cfg.Ingest.FlushDelay),
		ingest.WithMetrics(env.Metrics),
	}

	env.Lens = runlens.New(
		runlens.WithSource(env.Source),
		runlens.WithSchemaProvider(env.Backend),
		runlens.WithArchive(archive),
		runlens.WithIngestOptions(env.IngestOptions...),
		runlens.WithLogger(logger),
	)
	return env, nil
}

// Close releases the archive and flushes pending spans.
func (e *Env) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i](ctx))
	}
	e.closers = nil
	return errors.Join(errs...)
}

// createArchive builds the recording archive selected by the configuration.
func createArchive(cfg config.ArchiveConfig) (ports.Archive, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.NewArchive(), nil
	case "redis":
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithTTL(cfg.Redis.TTL)), nil
	case "sqlite":
		a, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("error opening sqlite archive: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}
