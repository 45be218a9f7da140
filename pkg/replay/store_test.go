package replay_test

import (
	"math/rand"
	"testing"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(kv ...any) map[string]any {
	m := make(map[string]any)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestStore_Empty(t *testing.T) {
	s := replay.NewStore()

	assert.Equal(t, 0, s.Cursor())
	assert.Equal(t, domain.ModeLive, s.Mode())

	res := s.ShownState()
	assert.Equal(t, replay.SourceEmpty, res.Source)
	assert.NotNil(t, res.State)
	assert.Empty(t, res.State)

	s.SetLive(false)
	assert.Equal(t, 0, s.SetCursor(5))
}

func TestStore_LiveAutoFollow(t *testing.T) {
	s := replay.NewStore()
	for i := 0; i < 5; i++ {
		s.Append(nil, state("i", i))
		assert.Equal(t, s.Len()-1, s.Cursor())
	}

	res := s.ShownState()
	assert.Equal(t, replay.SourceLatest, res.Source)
	assert.Equal(t, 4, res.State["i"])
}

func TestStore_StepDefaults(t *testing.T) {
	s := replay.NewStore()

	assert.Equal(t, 0, s.Append(nil, nil).Step)
	assert.Equal(t, 1, s.Append(domain.Ptr(1), nil).Step)
	assert.Equal(t, 2, s.Append(nil, nil).Step, "missing step uses the log length")

	assert.Equal(t, 7, s.Append(domain.Ptr(7), nil).Step)
	assert.Equal(t, 7, s.Append(nil, nil).Step, "log length below the previous step is raised")
	assert.Equal(t, 7, s.Append(domain.Ptr(1), nil).Step, "steps never decrease")
	assert.Equal(t, 0, replay.NewStore().Append(domain.Ptr(0), nil).Step, "explicit zero step is kept")
}

func TestStore_ReplayFreezesCursor(t *testing.T) {
	s := replay.NewStore()
	s.Append(domain.Ptr(0), state("draft", "a"))
	s.Append(domain.Ptr(2), state("draft", "b"))

	s.SetLive(false)
	assert.Equal(t, domain.ModeReplay, s.Mode())
	assert.Equal(t, 1, s.Cursor())

	assert.Equal(t, 0, s.SetCursor(0))
	s.Append(domain.Ptr(5), state("draft", "c"))
	assert.Equal(t, 0, s.Cursor(), "appends must not move a replay cursor")

	res := s.ShownState()
	assert.Equal(t, replay.SourceCursor, res.Source)
	assert.Equal(t, "a", res.State["draft"])

	assert.Equal(t, 2, s.SetCursor(99))
	assert.Equal(t, 0, s.SetCursor(-3))

	s.SetLive(true)
	assert.Equal(t, 2, s.Cursor())
	assert.Equal(t, 2, s.SetCursor(0), "cursor is ignored while live")
}

func TestStore_ShownStateFallback(t *testing.T) {
	s := replay.NewStore()
	s.Append(nil, map[string]any{})
	s.Append(nil, state("final", "done"))

	s.SetLive(false)
	s.SetCursor(0)

	res := s.ShownState()
	assert.Equal(t, replay.SourceLatestFallback, res.Source)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, "done", res.State["final"])
}

func TestStore_SnapshotsIsCopy(t *testing.T) {
	s := replay.NewStore()
	s.Append(nil, state("a", 1))

	snaps := s.Snapshots()
	require.Len(t, snaps, 1)
	snaps[0] = domain.Snapshot{Step: 42}

	got, ok := s.At(0)
	require.True(t, ok)
	assert.Equal(t, 0, got.Step)
}

func TestStore_CursorValidity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := replay.NewStore()

	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			s.Append(nil, state("i", i))
		case 1:
			s.SetLive(rng.Intn(2) == 0)
		case 2:
			s.SetCursor(rng.Intn(40) - 10)
		case 3:
			s.Append(domain.Ptr(rng.Intn(100)), state("i", i))
		}

		c := s.Cursor()
		if s.Len() == 0 {
			require.Equal(t, 0, c)
			continue
		}
		require.GreaterOrEqual(t, c, 0)
		require.LessOrEqual(t, c, s.Len()-1)
		if s.IsLive() {
			require.Equal(t, s.Len()-1, c)
		}
	}
}
