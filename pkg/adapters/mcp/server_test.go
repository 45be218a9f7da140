package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/runlens/pkg/adapters/memory"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, s *Server, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	st := s.mcpServer.GetTool(tool)
	require.NotNil(t, st, "tool %s not registered", tool)

	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func frameOf(t *testing.T, res *mcp.CallToolResult) session.Frame {
	t.Helper()
	require.False(t, res.IsError)
	f, ok := res.StructuredContent.(session.Frame)
	require.True(t, ok, "unexpected content %T", res.StructuredContent)
	return f
}

func seeded(t *testing.T) (*session.Manager, *session.View) {
	t.Helper()
	runs := session.NewManager(session.WithArchive(memory.NewArchive()))
	v := runs.Create("what is go")
	v.AppendCritical(domain.Event{RunID: "run-1", Kind: domain.EventChainStart, Name: "supervisor"})
	v.AppendCritical(domain.Event{Kind: domain.EventChainEnd, Name: "supervisor", StepIndex: domain.Ptr(1), StateSnapshot: map[string]any{"plan": "a"}})
	v.AppendCritical(domain.Event{Kind: domain.EventChainEnd, Name: "researcher", StepIndex: domain.Ptr(2), StateSnapshot: map[string]any{"plan": "b"}})
	return runs, v
}

func TestTools_Registration(t *testing.T) {
	runs, _ := seeded(t)
	s := NewServer(runs)

	tools := s.mcpServer.ListTools()
	for _, name := range []string{"list_runs", "get_frame", "set_cursor", "set_live", "open_run"} {
		assert.Contains(t, tools, name)
	}
	assert.NotContains(t, tools, "start_run", "no source configured")
}

func TestTools_ListRuns(t *testing.T) {
	runs, v := seeded(t)
	s := NewServer(runs)

	res := call(t, s, "list_runs", nil)
	require.False(t, res.IsError)
	list, ok := res.StructuredContent.(RunList)
	require.True(t, ok)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, v.ID(), list.Runs[0].ViewID)
	assert.Equal(t, "run-1", list.Runs[0].RunID)
}

func TestTools_FrameAndReplay(t *testing.T) {
	runs, v := seeded(t)
	s := NewServer(runs)

	f := frameOf(t, call(t, s, "get_frame", map[string]any{"view_id": v.ID()}))
	assert.Equal(t, domain.ModeLive, f.Mode)
	assert.Equal(t, "b", f.State["plan"])

	f = frameOf(t, call(t, s, "set_live", map[string]any{"view_id": v.ID(), "live": false}))
	assert.Equal(t, domain.ModeReplay, f.Mode)

	f = frameOf(t, call(t, s, "set_cursor", map[string]any{"view_id": v.ID(), "cursor": 0}))
	assert.Equal(t, 0, f.Cursor)
	assert.Equal(t, "a", f.State["plan"])
}

func TestTools_UnknownView(t *testing.T) {
	runs, _ := seeded(t)
	s := NewServer(runs)

	res := call(t, s, "get_frame", map[string]any{"view_id": "nope"})
	assert.True(t, res.IsError)
}

func TestTools_OpenRun(t *testing.T) {
	runs, v := seeded(t)
	require.NoError(t, runs.Archive(context.Background(), v.ID()))
	s := NewServer(runs)

	f := frameOf(t, call(t, s, "open_run", map[string]any{"run_id": "run-1"}))
	assert.Equal(t, domain.ModeReplay, f.Mode)
	assert.Equal(t, 0, f.Cursor)
	assert.Equal(t, 2, f.SnapshotCount)
}
