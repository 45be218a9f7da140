package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/session"
	"github.com/aretw0/runlens/pkg/usage"
	"github.com/muesli/termenv"
	"github.com/pmezard/go-difflib/difflib"
)

// answerKeys are the state fields holding the answer, most final first.
var answerKeys = []string{"final", "final_answer", "draft"}

// Printer writes frames to a terminal.
type Printer struct {
	out      *termenv.Output
	outOpts  []termenv.OutputOption
	markdown func(string) (string, error)
}

// PrinterOption configures the Printer.
type PrinterOption func(*Printer)

// WithProfile forces a color profile. termenv.Ascii disables colors.
func WithProfile(p termenv.Profile) PrinterOption {
	return func(pr *Printer) {
		pr.outOpts = append(pr.outOpts, termenv.WithProfile(p))
	}
}

// WithMarkdown replaces the markdown renderer.
func WithMarkdown(render func(string) (string, error)) PrinterOption {
	return func(pr *Printer) {
		pr.markdown = render
	}
}

// NewPrinter creates a Printer on w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{}
	for _, opt := range opts {
		opt(p)
	}
	p.out = termenv.NewOutput(w, p.outOpts...)
	if p.markdown == nil {
		p.markdown = NewRenderer("")
	}
	return p
}

var statusStyle = map[domain.NodeStatus]struct {
	icon  string
	color string
}{
	domain.NodeDone:    {"✔", "#22c55e"},
	domain.NodeActive:  {"▶", "#facc15"},
	domain.NodeNext:    {"…", "#c084fc"},
	domain.NodePending: {"·", "#6b7280"},
}

// Headline prints the one-line status of the run.
func (p *Printer) Headline(f session.Frame) {
	mode := "LIVE"
	if f.Mode == domain.ModeReplay {
		mode = fmt.Sprintf("REPLAY %d/%d", f.Cursor+1, max(f.SnapshotCount, 1))
	}
	fmt.Fprintf(p.out, "%s %s\n",
		p.out.String("["+mode+"]").Bold(),
		f.Headline)
}

// Nodes prints the node strip with status icons.
func (p *Printer) Nodes(f session.Frame) {
	parts := make([]string, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		st, ok := statusStyle[n.Status]
		if !ok {
			st = statusStyle[domain.NodePending]
		}
		label := p.out.String(st.icon + " " + n.Label).Foreground(p.out.Color(st.color))
		if n.Status == domain.NodeActive {
			label = label.Bold()
		}
		parts = append(parts, label.String())
	}
	fmt.Fprintln(p.out, strings.Join(parts, "  →  "))
}

// Changes prints the step diff. Long text values get a unified diff.
func (p *Printer) Changes(items []domain.DiffItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(p.out, p.out.String("Changes").Underline())
	for _, item := range items {
		before, bs := item.Before.(string)
		after, as := item.After.(string)
		if bs && as && (strings.Contains(before, "\n") || strings.Contains(after, "\n")) {
			p.textDiff(item.Path, before, after)
			continue
		}
		fmt.Fprintf(p.out, "  %s\n", p.out.String(item.Path).Bold())
		if item.Before != nil {
			fmt.Fprintf(p.out, "    %s\n", p.out.String("- "+compact(item.Before)).Foreground(p.out.Color("#ef4444")))
		}
		if item.After != nil {
			fmt.Fprintf(p.out, "    %s\n", p.out.String("+ "+compact(item.After)).Foreground(p.out.Color("#22c55e")))
		}
	}
}

func (p *Printer) textDiff(path, before, after string) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path + " (before)",
		ToFile:   path + " (after)",
		Context:  2,
	})
	if err != nil {
		fmt.Fprintf(p.out, "  %s: %v\n", path, err)
		return
	}
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		s := p.out.String(line)
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			s = s.Bold()
		case strings.HasPrefix(line, "+"):
			s = s.Foreground(p.out.Color("#22c55e"))
		case strings.HasPrefix(line, "-"):
			s = s.Foreground(p.out.Color("#ef4444"))
		case strings.HasPrefix(line, "@@"):
			s = s.Foreground(p.out.Color("#38bdf8"))
		}
		fmt.Fprintf(p.out, "  %s\n", s)
	}
}

// State prints the shown state as sorted key/value lines, reserved keys removed.
func (p *Printer) State(f session.Frame) {
	state := domain.CleanState(f.State)
	if len(state) == 0 {
		fmt.Fprintln(p.out, p.out.String("(no state yet)").Faint())
		return
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.out, "  %s: %s\n", p.out.String(k).Bold(), truncate(compact(state[k]), 120))
	}
}

// Answer renders the answer held in the state as markdown. It reports whether one was found.
func (p *Printer) Answer(state map[string]any) bool {
	for _, k := range answerKeys {
		text, ok := state[k].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		out, err := p.markdown(text)
		if err != nil {
			out = text
		}
		fmt.Fprintln(p.out, out)
		return true
	}
	return false
}

// Usage prints latency and token totals.
func (p *Printer) Usage(s usage.Summary) {
	for _, l := range s.Latencies {
		fmt.Fprintf(p.out, "  %-12s %8.0f ms (%d)\n", l.Node, l.AvgMS, l.Samples)
	}
	tokens := fmt.Sprintf("  tokens: %d", s.TotalTokens)
	if s.StreamedTokensEstimate > 0 {
		tokens += fmt.Sprintf(" (+~%d streamed)", s.StreamedTokensEstimate)
	}
	fmt.Fprintf(p.out, "%s  cost: $%.6f\n", tokens, s.EstimatedCostUSD)
}

// Frame prints a full frame.
func (p *Printer) Frame(f session.Frame) {
	p.Headline(f)
	p.Nodes(f)
	p.State(f)
	p.Changes(f.Changes)
}

func compact(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
