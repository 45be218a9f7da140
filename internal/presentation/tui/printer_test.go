package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/session"
	"github.com/aretw0/runlens/pkg/usage"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func plain(buf *bytes.Buffer) *Printer {
	return NewPrinter(buf, WithProfile(termenv.Ascii), WithMarkdown(NewRenderer("notty")))
}

func TestPrinter_Frame(t *testing.T) {
	var buf bytes.Buffer
	p := plain(&buf)

	p.Frame(session.Frame{
		Mode:          domain.ModeReplay,
		Cursor:        1,
		SnapshotCount: 3,
		Headline:      "Searching the web for sources...",
		Nodes: []session.NodeView{
			{ID: "supervisor", Label: "supervisor", Status: domain.NodeDone},
			{ID: "researcher", Label: "researcher", Status: domain.NodeActive},
		},
		State:   map[string]any{"plan": "look it up", "__end__": true},
		Changes: []domain.DiffItem{{Path: "plan", Before: nil, After: "look it up"}},
	})

	out := buf.String()
	assert.Contains(t, out, "[REPLAY 2/3] Searching the web for sources...")
	assert.Contains(t, out, "✔ supervisor  →  ▶ researcher")
	assert.Contains(t, out, "plan: look it up")
	assert.NotContains(t, out, "__end__")
	assert.Contains(t, out, "+ look it up")
	assert.NotContains(t, out, "\x1b[", "ascii profile has no escape codes")
}

func TestPrinter_TextDiff(t *testing.T) {
	var buf bytes.Buffer
	p := plain(&buf)

	p.Changes([]domain.DiffItem{{
		Path:   "draft",
		Before: "line one\nline two\n",
		After:  "line one\nline 2\n",
	}})

	out := buf.String()
	assert.Contains(t, out, "--- draft (before)")
	assert.Contains(t, out, "+++ draft (after)")
	assert.Contains(t, out, "-line two")
	assert.Contains(t, out, "+line 2")
}

func TestPrinter_Answer(t *testing.T) {
	var buf bytes.Buffer
	p := plain(&buf)

	assert.False(t, p.Answer(map[string]any{"plan": "x"}))
	assert.True(t, p.Answer(map[string]any{"draft": "a draft", "final": "# Final\n\nThe answer."}))
	assert.Contains(t, buf.String(), "The answer.")
	assert.NotContains(t, buf.String(), "a draft")
}

func TestPrinter_Usage(t *testing.T) {
	var buf bytes.Buffer
	p := plain(&buf)

	p.Usage(usage.Summary{
		Latencies:              []usage.NodeLatency{{Node: "researcher", AvgMS: 1500, Samples: 2}},
		TotalTokens:            1000,
		StreamedTokensEstimate: 12,
		EstimatedCostUSD:       0.00015,
	})

	out := buf.String()
	assert.True(t, strings.Contains(out, "researcher") && strings.Contains(out, "1500 ms (2)"), out)
	assert.Contains(t, out, "tokens: 1000 (+~12 streamed)  cost: $0.000150")
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3")
}
