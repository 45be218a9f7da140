package ports

import (
	"context"

	"github.com/aretw0/runlens/pkg/domain"
)

// SchemaResult is the schema to use plus how it was obtained.
type SchemaResult struct {
	Schema domain.GraphSchema
	// Fallback is true when Schema is the built-in default.
	Fallback bool
	// Err is the failure that caused the fallback, if any.
	Err error
}

// DriftResult is the outcome of a quality scoring request.
type DriftResult struct {
	Report domain.DriftReport
	// Err is set when no report could be produced; Report is then the zero value.
	Err error
}

// TraceResult is the outcome of a trace detail request.
type TraceResult struct {
	Report domain.TraceReport
	Err    error
}

// SchemaProvider returns the graph schema. Implementations never fail: they fall back to a default.
type SchemaProvider interface {
	Schema(ctx context.Context) SchemaResult
}

// DriftScorer scores a shown state.
type DriftScorer interface {
	Score(ctx context.Context, state map[string]any) DriftResult
}

// TraceProvider fetches sub-run records for a run.
type TraceProvider interface {
	Trace(ctx context.Context, runID string) TraceResult
}
