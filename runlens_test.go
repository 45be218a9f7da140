package runlens_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/runlens"
	"github.com/aretw0/runlens/pkg/adapters/memory"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedSource []string

func (c cannedSource) Stream(ctx context.Context, question string, h ports.StreamHandler) error {
	defer h.OnClose()
	for _, m := range c {
		h.OnMessage([]byte(m))
	}
	return nil
}

type brokenSchema struct{}

func (brokenSchema) Schema(ctx context.Context) ports.SchemaResult {
	return ports.SchemaResult{Schema: domain.DefaultSchema(), Fallback: true, Err: assert.AnError}
}

func recording() domain.Recording {
	return domain.Recording{
		RunID:    "run-1",
		Question: "q",
		Events: []domain.Event{
			{Kind: domain.EventChainStart, Name: "supervisor"},
			{Kind: domain.EventChainEnd, Name: "supervisor", StepIndex: domain.Ptr(1), StateSnapshot: map[string]any{"plan": "a"}},
			{Kind: domain.EventChainStart, Name: "researcher"},
			{Kind: domain.EventChainEnd, Name: "researcher", StepIndex: domain.Ptr(2), StateSnapshot: map[string]any{"plan": "a", "notes": "n"}},
		},
	}
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, runlens.Version)
}

func TestInspect(t *testing.T) {
	f, err := runlens.Inspect(recording(), 0, domain.DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeReplay, f.Mode)
	assert.Equal(t, map[string]any{"plan": "a"}, f.State)
	assert.Len(t, f.Events, 3, "unstepped events stay visible at cursor 0")
	assert.Equal(t, domain.NodeDone, f.Status("supervisor"))
	assert.Equal(t, "researcher", f.Active)

	live, err := runlens.Inspect(recording(), -1, domain.DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLive, live.Mode)
	assert.Len(t, live.Events, 4)
	assert.Equal(t, "n", live.State["notes"])
}

func TestLens_WatchAndReplay(t *testing.T) {
	ctx := context.Background()
	lens := runlens.New(
		runlens.WithSource(cannedSource{
			`{"event":"on_chain_start","name":"supervisor","run_id":"run-5"}`,
			`{"event":"on_chain_end","name":"supervisor","step_index":1,"state_snapshot":{"plan":"p"}}`,
		}),
		runlens.WithArchive(memory.NewArchive()),
		runlens.WithSchemaProvider(brokenSchema{}),
	)

	v, err := lens.Watch(ctx, "q")
	require.NoError(t, err)
	require.Eventually(t, v.Closed, time.Second, 5*time.Millisecond)
	assert.Equal(t, "run-5", lens.Frame(ctx, v).RunID)

	require.NoError(t, lens.Runs.Archive(ctx, v.ID()))
	replayed, err := lens.Replay(ctx, "run-5")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeReplay, lens.Frame(ctx, replayed).Mode)
	assert.Equal(t, domain.DefaultSchema().NodeIDs(), lens.Schema(ctx).NodeIDs())
}

func TestLens_WatchWithoutSource(t *testing.T) {
	_, err := runlens.New().Watch(context.Background(), "q")
	assert.ErrorIs(t, err, runlens.ErrNoSource)
}
