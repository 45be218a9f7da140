package replay

import (
	"github.com/aretw0/runlens/pkg/domain"
)

// StateSource records which branch of the shown-state fallback chain produced a state.
type StateSource string

const (
	SourceLatest         StateSource = "latest"          // Live mode, newest snapshot
	SourceCursor         StateSource = "cursor"          // Replay mode, snapshot at cursor
	SourceLatestFallback StateSource = "latest_fallback" // Cursor snapshot missing or empty
	SourceEmpty          StateSource = "empty"           // No snapshot at all
)

// Resolution is the state a view should display, plus how it was chosen.
type Resolution struct {
	State  map[string]any `json:"state"`
	Source StateSource    `json:"source"`
	// Index is the snapshot index the state came from, or -1 for SourceEmpty.
	Index int `json:"index"`
}

// Store is the ordered snapshot log with its replay cursor.
type Store struct {
	snapshots []domain.Snapshot
	mode      domain.Mode
	cursor    int
}

// NewStore creates an empty store in live mode.
func NewStore() *Store {
	return &Store{mode: domain.ModeLive}
}

// Append stores a new snapshot and returns it.
//
// When step is nil the snapshot's position in the log is used. Steps never go
// backwards: a step lower than the previous one is raised to it. In live mode the
// cursor moves to the new snapshot; in replay mode it does not move.
func (s *Store) Append(step *int, state map[string]any) domain.Snapshot {
	st := len(s.snapshots)
	if step != nil {
		st = *step
	}
	if n := len(s.snapshots); n > 0 && st < s.snapshots[n-1].Step {
		st = s.snapshots[n-1].Step
	}
	if state == nil {
		state = map[string]any{}
	}

	snap := domain.Snapshot{Step: st, State: state}
	s.snapshots = append(s.snapshots, snap)
	if s.mode == domain.ModeLive {
		s.cursor = len(s.snapshots) - 1
	}
	return snap
}

// SetLive switches between live and replay mode.
// Going live jumps to the newest snapshot; pausing freezes the current clamped cursor.
func (s *Store) SetLive(live bool) {
	if live {
		s.mode = domain.ModeLive
		if len(s.snapshots) > 0 {
			s.cursor = len(s.snapshots) - 1
		}
		return
	}
	s.mode = domain.ModeReplay
	s.cursor = s.clamp(s.cursor)
}

// SetCursor moves the replay cursor. It has no effect in live mode.
// It returns the effective cursor.
func (s *Store) SetCursor(v int) int {
	if s.mode == domain.ModeLive {
		return s.Cursor()
	}
	s.cursor = s.clamp(v)
	return s.cursor
}

// Cursor returns the clamped cursor.
func (s *Store) Cursor() int {
	return s.clamp(s.cursor)
}

// Mode returns the current mode.
func (s *Store) Mode() domain.Mode {
	return s.mode
}

// IsLive reports whether the store follows the newest snapshot.
func (s *Store) IsLive() bool {
	return s.mode == domain.ModeLive
}

// Len returns the number of snapshots.
func (s *Store) Len() int {
	return len(s.snapshots)
}

// Snapshots returns a copy of the snapshot log.
func (s *Store) Snapshots() []domain.Snapshot {
	out := make([]domain.Snapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// At returns the snapshot at index i.
func (s *Store) At(i int) (domain.Snapshot, bool) {
	if i < 0 || i >= len(s.snapshots) {
		return domain.Snapshot{}, false
	}
	return s.snapshots[i], true
}

// Latest returns the newest snapshot.
func (s *Store) Latest() (domain.Snapshot, bool) {
	return s.At(len(s.snapshots) - 1)
}

// ShownState resolves the state a display should show.
//
// Live mode prefers the newest snapshot and replay mode the snapshot at the
// cursor. A missing or empty snapshot falls back to the newest one; with no
// snapshots at all an empty mapping is returned.
func (s *Store) ShownState() Resolution {
	latestIdx := len(s.snapshots) - 1
	if latestIdx < 0 {
		return Resolution{State: map[string]any{}, Source: SourceEmpty, Index: -1}
	}

	if s.mode == domain.ModeLive {
		return Resolution{State: s.snapshots[latestIdx].State, Source: SourceLatest, Index: latestIdx}
	}

	cursor := s.Cursor()
	if snap, ok := s.At(cursor); ok && len(snap.State) > 0 {
		return Resolution{State: snap.State, Source: SourceCursor, Index: cursor}
	}
	return Resolution{State: s.snapshots[latestIdx].State, Source: SourceLatestFallback, Index: latestIdx}
}

func (s *Store) clamp(v int) int {
	if len(s.snapshots) == 0 || v < 0 {
		return 0
	}
	if v > len(s.snapshots)-1 {
		return len(s.snapshots) - 1
	}
	return v
}
