package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/runlens/internal/presentation/graph"
	"github.com/aretw0/runlens/internal/presentation/tui"
	"github.com/aretw0/runlens/pkg/domain"
)

// ReplayOptions configures RunReplay.
type ReplayOptions struct {
	RunID string
	// Cursor is the snapshot to show. Negative values count from the end (-1 is the last one).
	Cursor int
	// All prints every snapshot in order instead of a single one.
	All bool
}

// RunReplay reopens an archived run and prints it at the requested cursor.
func RunReplay(ctx context.Context, env *Env, opts ReplayOptions, out io.Writer) error {
	v, err := env.Lens.Replay(ctx, opts.RunID)
	if err != nil {
		return err
	}
	defer func() { _ = env.Lens.Runs.Discard(v.ID()) }()

	printer := tui.NewPrinter(out)
	count := len(v.Snapshots())
	if count == 0 {
		printSystemMessage(out, "Run '%s' has no snapshots.", opts.RunID)
		printer.Frame(env.Lens.Frame(ctx, v))
		return nil
	}

	if opts.All {
		for i := 0; i < count; i++ {
			v.SetCursor(i)
			printSystemMessage(out, "Step %d/%d", i+1, count)
			printer.Frame(env.Lens.Frame(ctx, v))
		}
		return nil
	}

	v.SetCursor(resolveCursor(opts.Cursor, count))
	f := env.Lens.Frame(ctx, v)
	printer.Frame(f)
	printer.Usage(f.Usage)
	return nil
}

// GraphOptions configures RunGraph.
type GraphOptions struct {
	// RunID overlays the statuses of an archived run. Empty prints the bare schema.
	RunID  string
	Cursor int
}

// RunGraph prints the agent graph as Mermaid.
func RunGraph(ctx context.Context, env *Env, opts GraphOptions, out io.Writer) error {
	schema := env.Lens.Schema(ctx)
	if opts.RunID == "" {
		fmt.Fprint(out, graph.GenerateMermaid(schema, nil))
		return nil
	}

	v, err := env.Lens.Replay(ctx, opts.RunID)
	if err != nil {
		return err
	}
	defer func() { _ = env.Lens.Runs.Discard(v.ID()) }()

	if n := len(v.Snapshots()); n > 0 {
		v.SetCursor(resolveCursor(opts.Cursor, n))
	}
	report := domain.DeriveStatus(v.Filtered(), schema.Known(), schema.NodeOrder())
	fmt.Fprint(out, graph.GenerateMermaid(schema, graph.OverlayOf(schema, report)))
	return nil
}

func resolveCursor(c, count int) int {
	if c < 0 {
		c += count
	}
	return max(0, min(c, count-1))
}

// RunListArchive prints the archived run ids, most recent first.
func RunListArchive(ctx context.Context, env *Env, out io.Writer) error {
	archive := env.Lens.Runs.Archiver()
	if archive == nil {
		return nil
	}
	runs, err := archive.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printSystemMessage(out, "No archived runs.")
		return nil
	}
	for _, id := range runs {
		fmt.Fprintln(out, id)
	}
	return nil
}
