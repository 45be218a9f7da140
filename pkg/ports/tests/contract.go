package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ArchiveContractTest is a reusable test suite that verifies if an adapter complies with ports.Archive.
func ArchiveContractTest(t *testing.T, archive ports.Archive) {
	t.Helper()
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	recording := func(id string, at time.Time) domain.Recording {
		return domain.Recording{
			RunID:    id,
			Question: "what is a graph?",
			Events: []domain.Event{
				{RunID: id, Kind: domain.EventChainStart, Name: "supervisor", Timestamp: domain.Ptr(1.5)},
				{RunID: id, Kind: domain.EventChatModelStream, Name: "ChatOpenAI", Data: map[string]any{"chunk": "hi"}},
				{RunID: id, Kind: domain.EventChainEnd, Name: "supervisor", StepIndex: domain.Ptr(1), StateSnapshot: map[string]any{"plan": "p"}},
			},
			RecordedAt: at,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := recording(runID, time.Now().UTC().Truncate(time.Second))
		require.NoError(t, archive.Save(ctx, rec))

		loaded, err := archive.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, rec.RunID, loaded.RunID)
		assert.Equal(t, rec.Question, loaded.Question)
		require.Len(t, loaded.Events, 3)
		assert.Equal(t, domain.EventChatModelStream, loaded.Events[1].Kind)
		require.NotNil(t, loaded.Events[2].StepIndex)
		assert.Equal(t, 1, *loaded.Events[2].StepIndex)
		assert.Equal(t, "p", loaded.Events[2].StateSnapshot["plan"])
		assert.True(t, rec.RecordedAt.Equal(loaded.RecordedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := archive.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRecordingNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, archive.Save(ctx, recording(runID, time.Now())))
		require.NoError(t, archive.Delete(ctx, runID))

		_, err := archive.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRecordingNotFound, "Load after Delete should return ErrRecordingNotFound")

		assert.NoError(t, archive.Delete(ctx, runID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		older, newer := runID+"-1", runID+"-2"
		base := time.Now().UTC()
		require.NoError(t, archive.Save(ctx, recording(older, base.Add(-time.Minute))))
		require.NoError(t, archive.Save(ctx, recording(newer, base)))
		defer func() {
			_ = archive.Delete(ctx, older)
			_ = archive.Delete(ctx, newer)
		}()

		ids, err := archive.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, older)
		assert.Contains(t, ids, newer)

		pos := func(id string) int {
			for i, v := range ids {
				if v == id {
					return i
				}
			}
			return -1
		}
		assert.Less(t, pos(newer), pos(older), "most recent first")
	})
}
