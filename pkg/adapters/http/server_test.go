package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/runlens/pkg/adapters/memory"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ingest"
	"github.com/aretw0/runlens/pkg/metrics"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/aretw0/runlens/pkg/quality"
	"github.com/aretw0/runlens/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource replays canned wire messages and ends the stream.
type fakeSource struct {
	messages []string
}

func (f fakeSource) Stream(ctx context.Context, question string, h ports.StreamHandler) error {
	defer h.OnClose()
	for _, m := range f.messages {
		h.OnMessage([]byte(m))
	}
	return nil
}

var runMessages = []string{
	`{"event":"on_chain_start","name":"supervisor","run_id":"run-42","ts":1}`,
	`{"event":"on_chain_end","name":"supervisor","ts":2,"step_index":1,"state_snapshot":{"question":"why","plan":"look"}}`,
	`{"event":"on_chain_start","name":"researcher","ts":3}`,
	`{"event":"on_chat_model_stream","name":"ChatOpenAI","data":{"chunk":"hi"}}`,
	`{"event":"on_chain_end","name":"researcher","ts":4,"step_index":2,"state_snapshot":{"question":"why","plan":"look","draft":"why because sources"}}`,
}

type fakeTraces struct{}

func (fakeTraces) Trace(ctx context.Context, runID string) ports.TraceResult {
	return ports.TraceResult{Report: domain.TraceReport{TraceID: "trace-" + runID}}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeFrame(t *testing.T, w *httptest.ResponseRecorder) session.Frame {
	t.Helper()
	var f session.Frame
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f), w.Body.String())
	return f
}

func TestHealth(t *testing.T) {
	h := NewHandler(session.NewManager(), nil)
	w := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateRun_StreamsIntoView(t *testing.T) {
	runs := session.NewManager()
	h := NewHandler(runs, fakeSource{messages: runMessages},
		WithIngestOptions(ingest.WithFlushDelay(time.Millisecond)))

	w := do(t, h, "POST", "/runs", CreateRunRequest{Question: "why"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeFrame(t, w)
	assert.Equal(t, "/runs/"+created.ViewID, w.Header().Get("Location"))

	v, err := runs.Get(created.ViewID)
	require.NoError(t, err)
	require.Eventually(t, v.Closed, time.Second, 5*time.Millisecond)

	f := decodeFrame(t, do(t, h, "GET", "/runs/"+created.ViewID, nil))
	assert.Equal(t, "run-42", f.RunID)
	assert.Equal(t, 2, f.SnapshotCount)
	assert.Equal(t, 5, f.EventCount)
	assert.True(t, f.Closed)
	assert.Equal(t, domain.NodeDone, f.Status("researcher"))

	var list []RunSummary
	require.NoError(t, json.Unmarshal(do(t, h, "GET", "/runs", nil).Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "why", list[0].Question)
}

func TestCreateRun_Validation(t *testing.T) {
	h := NewHandler(session.NewManager(), fakeSource{})
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/runs", CreateRunRequest{}).Code)

	req := httptest.NewRequest("POST", "/runs", strings.NewReader("{"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noSource := NewHandler(session.NewManager(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, noSource, "POST", "/runs", CreateRunRequest{Question: "q"}).Code)
}

func TestReplayControls(t *testing.T) {
	runs := session.NewManager()
	v := runs.Create("q")
	v.AppendCritical(domain.Event{Kind: domain.EventChainEnd, Name: "supervisor", StepIndex: domain.Ptr(1), StateSnapshot: map[string]any{"a": 1}})
	v.AppendCritical(domain.Event{Kind: domain.EventChainEnd, Name: "researcher", StepIndex: domain.Ptr(2), StateSnapshot: map[string]any{"a": 2}})
	h := NewHandler(runs, nil)

	f := decodeFrame(t, do(t, h, "PUT", "/runs/"+v.ID()+"/live", SetLiveRequest{Live: false}))
	assert.Equal(t, domain.ModeReplay, f.Mode)
	assert.Equal(t, 1, f.Cursor)

	f = decodeFrame(t, do(t, h, "PUT", "/runs/"+v.ID()+"/cursor", SetCursorRequest{Cursor: 0}))
	assert.Equal(t, 0, f.Cursor)
	assert.Equal(t, float64(1), f.State["a"])

	f = decodeFrame(t, do(t, h, "PUT", "/runs/"+v.ID()+"/cursor", SetCursorRequest{Cursor: 99}))
	assert.Equal(t, 1, f.Cursor, "cursor is clamped")
	require.Len(t, f.Changes, 1)
	assert.Equal(t, "a", f.Changes[0].Path)

	f = decodeFrame(t, do(t, h, "PUT", "/runs/"+v.ID()+"/live", SetLiveRequest{Live: true}))
	assert.Equal(t, domain.ModeLive, f.Mode)
}

func TestUnknownRun(t *testing.T) {
	h := NewHandler(session.NewManager(), nil)
	for _, tc := range []struct{ method, path string }{
		{"GET", "/runs/nope"},
		{"DELETE", "/runs/nope"},
		{"PUT", "/runs/nope/cursor"},
		{"GET", "/runs/nope/stream"},
	} {
		w := do(t, h, tc.method, tc.path, SetCursorRequest{})
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method+" "+tc.path)
	}
}

func TestDiscardRun(t *testing.T) {
	runs := session.NewManager()
	v := runs.Create("q")
	h := NewHandler(runs, nil)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/runs/"+v.ID(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/runs/"+v.ID(), nil).Code)
	assert.Empty(t, runs.List())
}

func TestArchiveAndOpen(t *testing.T) {
	runs := session.NewManager(session.WithArchive(memory.NewArchive()))
	v := runs.Create("q")
	v.AppendCritical(domain.Event{RunID: "run-7", Kind: domain.EventChainStart, Name: "supervisor"})
	v.AppendCritical(domain.Event{Kind: domain.EventChainEnd, Name: "supervisor", StepIndex: domain.Ptr(1), StateSnapshot: map[string]any{"plan": "p"}})
	h := NewHandler(runs, nil)

	assert.Equal(t, http.StatusNoContent, do(t, h, "POST", "/runs/"+v.ID()+"/archive", nil).Code)

	var archived []string
	require.NoError(t, json.Unmarshal(do(t, h, "GET", "/archive", nil).Body.Bytes(), &archived))
	assert.Equal(t, []string{"run-7"}, archived)

	w := do(t, h, "POST", "/archive/run-7/open", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f := decodeFrame(t, w)
	assert.Equal(t, domain.ModeReplay, f.Mode)
	assert.Equal(t, 0, f.Cursor)
	assert.Equal(t, 2, f.EventCount)

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/archive/missing/open", nil).Code)
}

func TestArchive_NotConfigured(t *testing.T) {
	runs := session.NewManager()
	v := runs.Create("q")
	h := NewHandler(runs, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "POST", "/runs/"+v.ID()+"/archive", nil).Code)
	assert.JSONEq(t, `[]`, do(t, h, "GET", "/archive", nil).Body.String())
}

func TestQualityAndTrace(t *testing.T) {
	runs := session.NewManager()
	v := runs.Create("q")
	h := NewHandler(runs, nil, WithDriftScorer(quality.LocalScorer{}), WithTraceProvider(fakeTraces{}))

	assert.Equal(t, http.StatusNoContent, do(t, h, "GET", "/runs/"+v.ID()+"/quality", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, "GET", "/runs/"+v.ID()+"/trace", nil).Code)

	v.AppendCritical(domain.Event{RunID: "run-1", Kind: domain.EventChainEnd, Name: "synthesizer", StepIndex: domain.Ptr(1),
		StateSnapshot: map[string]any{"question": "what is go", "draft": "go is a language"}})

	w := do(t, h, "GET", "/runs/"+v.ID()+"/quality", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report domain.DriftReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.GreaterOrEqual(t, report.DriftScore, 0.0)
	assert.LessOrEqual(t, report.DriftScore, 1.0)

	w = do(t, h, "GET", "/runs/"+v.ID()+"/trace", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trace-run-1")
}

func TestQualityAndTrace_NotConfigured(t *testing.T) {
	runs := session.NewManager()
	v := runs.Create("q")
	h := NewHandler(runs, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/runs/"+v.ID()+"/quality", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/runs/"+v.ID()+"/trace", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	runs := session.NewManager()
	h := NewHandler(runs, fakeSource{messages: runMessages},
		WithGatherer(reg),
		WithIngestOptions(ingest.WithMetrics(metrics.New(reg))))

	created := decodeFrame(t, do(t, h, "POST", "/runs", CreateRunRequest{Question: "q"}))
	v, err := runs.Get(created.ViewID)
	require.NoError(t, err)
	require.Eventually(t, v.Closed, time.Second, 5*time.Millisecond)

	w := do(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "runlens_events_ingested_total")
	assert.Contains(t, w.Body.String(), "runlens_snapshots_appended_total 2")
}

// readEvent returns the next SSE event name and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamRun(t *testing.T) {
	runs := session.NewManager()
	v := runs.Create("q")
	srv := httptest.NewServer(NewHandler(runs, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/runs/"+v.ID()+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	event, data := readEvent(t, r)
	assert.Equal(t, "ping", event)
	assert.Equal(t, "connected", data)

	event, data = readEvent(t, r)
	require.Equal(t, "frame", event)
	var f session.Frame
	require.NoError(t, json.Unmarshal([]byte(data), &f))
	assert.Equal(t, 0, f.EventCount)

	v.AppendCritical(domain.Event{Kind: domain.EventChainStart, Name: "supervisor"})
	event, data = readEvent(t, r)
	require.Equal(t, "frame", event)
	require.NoError(t, json.Unmarshal([]byte(data), &f))
	assert.Equal(t, 1, f.EventCount)
	assert.Equal(t, "supervisor", f.Active)

	require.NoError(t, runs.Discard(v.ID()))
	event, data = readEvent(t, r)
	assert.Equal(t, "discarded", event)
	assert.Equal(t, v.ID(), data)

	_, err = io.ReadAll(resp.Body)
	assert.NoError(t, err)
}
