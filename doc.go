/*
Package runlens is a live and replay inspector for multi-agent graph runs.

A backend executes an agent graph and streams every lifecycle event of the run
(chain and node start/end, model tokens, tool calls) over a duplex connection.
Runlens ingests that stream, keeps an append-only log of the state snapshots
the run emitted, and lets an operator scrub through them: which node is active,
which are done, what the state looked like at any step and what changed.

# Concept

Ingestion is split in two lanes. Lifecycle events and anything carrying a state
snapshot are critical and are applied immediately, after flushing whatever was
buffered before them. Everything else (token streaming, mostly) is batched on a
short timer. Arrival order is always preserved.

Every derived view (node status, visible events, state diff) is recomputed from
the raw log, so rewinding the cursor or re-entering a node never needs an
inverse transition.

# Usage

	lens := runlens.New(
		runlens.WithSource(websocket.New(websocket.DefaultURL)),
		runlens.WithArchive(memory.NewArchive()),
	)

	view, err := lens.Watch(ctx, "What changed in Go 1.23?")
	if err != nil {
		log.Fatal(err)
	}

	changes, stop := view.Subscribe()
	defer stop()
	for range changes {
		frame := lens.Frame(ctx, view)
		fmt.Println(frame.Headline)
		if frame.Closed {
			break
		}
	}

Recorded runs can be inspected without a backend with [Inspect].

# Surfaces

The runlens binary exposes the same views as a terminal watcher, an HTTP API
with server-sent frames, and an MCP server for agent tooling.
*/
package runlens
