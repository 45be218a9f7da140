package ports

import (
	"context"

	"github.com/aretw0/runlens/pkg/domain"
)

// Archive persists the raw event logs of runs so they can be replayed later.
// The engine itself owns no persisted format; archiving is an outer concern.
type Archive interface {
	// Save stores the recording under its RunID, replacing any previous one.
	Save(ctx context.Context, rec domain.Recording) error

	// Load retrieves a recording.
	// Returns domain.ErrRecordingNotFound if the run was never archived.
	Load(ctx context.Context, runID string) (domain.Recording, error)

	// List returns the archived run IDs, most recent first.
	List(ctx context.Context) ([]string, error)

	// Delete removes a recording. Deleting a missing run is not an error.
	Delete(ctx context.Context, runID string) error
}
