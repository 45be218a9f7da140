package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/runlens"
	"github.com/aretw0/runlens/internal/presentation/tui"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/session"
)

// WatchOptions configures RunWatch.
type WatchOptions struct {
	Question string
	// Archive saves the recording once the stream closes.
	Archive bool
	Quiet   bool
}

// RunWatch submits a question, prints progress while the run streams and
// prints the answer once it closes. Cancelling ctx discards the view.
func RunWatch(ctx context.Context, env *Env, opts WatchOptions, out io.Writer) error {
	if opts.Question == "" {
		return fmt.Errorf("a question is required")
	}
	printer := tui.NewPrinter(out)
	if !opts.Quiet {
		tui.PrintBanner(out, runlens.Version)
	}

	v, err := env.Lens.Watch(ctx, opts.Question)
	if err != nil {
		return err
	}
	env.Logger.Info("Watching run", "view_id", v.ID(), "question", opts.Question)
	printSystemMessage(out, "Watching '%s'.", opts.Question)

	changes, stop := v.Subscribe()
	defer stop()

	var last progress
	for !v.Closed() && ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}
		if ctx.Err() != nil {
			break
		}
		f := env.Lens.Frame(ctx, v)
		if p := progressOf(f); p != last {
			last = p
			printer.Headline(f)
			printer.Nodes(f)
		}
	}

	if err := ctx.Err(); err != nil {
		_ = env.Lens.Runs.Discard(v.ID())
		printSystemMessage(out, "Interrupted.")
		return err
	}

	f := env.Lens.Frame(ctx, v)
	printSystemMessage(out, "Run %s finished.", f.RunID)
	if !printer.Answer(f.State) {
		printer.State(f)
	}
	printer.Changes(f.Changes)
	printer.Usage(f.Usage)

	if env.Scorer != nil && len(f.State) > 0 {
		if res := env.Scorer.Score(ctx, f.State); res.Err == nil {
			printSystemMessage(out, "Drift %.2f %v", res.Report.DriftScore, res.Report.Flags)
		}
	}

	if opts.Archive {
		if err := env.Lens.Runs.Archive(ctx, v.ID()); err != nil {
			return err
		}
		printSystemMessage(out, "Archived as '%s'.", v.Recording().RunID)
	}
	return nil
}

// progress is what the watcher reprints on change.
type progress struct {
	headline string
	active   string
	done     int
}

func progressOf(f session.Frame) progress {
	p := progress{headline: f.Headline, active: f.Active}
	for _, n := range f.Nodes {
		if n.Status == domain.NodeDone {
			p.done++
		}
	}
	return p
}
