package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/runlens/pkg/domain"
)

// Archive implements ports.Archive in memory.
// Safe for concurrent use.
type Archive struct {
	data map[string][]byte
	at   map[string]int64
	mu   sync.RWMutex
}

// NewArchive creates a new in-memory archive.
func NewArchive() *Archive {
	return &Archive{
		data: make(map[string][]byte),
		at:   make(map[string]int64),
	}
}

// Save stores an encoded copy of the recording, so later edits by the caller do not leak in.
func (a *Archive) Save(ctx context.Context, rec domain.Recording) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[rec.RunID] = raw
	a.at[rec.RunID] = rec.RecordedAt.UnixNano()
	return nil
}

// Load decodes a fresh copy of the recording.
func (a *Archive) Load(ctx context.Context, runID string) (domain.Recording, error) {
	a.mu.RLock()
	raw, ok := a.data[runID]
	a.mu.RUnlock()
	if !ok {
		return domain.Recording{}, fmt.Errorf("run %q: %w", runID, domain.ErrRecordingNotFound)
	}

	var rec domain.Recording
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Recording{}, fmt.Errorf("failed to unmarshal recording: %w", err)
	}
	return rec, nil
}

// List returns the archived runs, most recent first.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.data))
	for id := range a.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if a.at[ids[i]] == a.at[ids[j]] {
			return ids[i] < ids[j]
		}
		return a.at[ids[i]] > a.at[ids[j]]
	})
	return ids, nil
}

// Delete removes a recording.
func (a *Archive) Delete(ctx context.Context, runID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, runID)
	delete(a.at, runID)
	return nil
}
