package domain

// StepChanges reports what changed in the most recent step visible at the given position.
//
// In replay mode past the first snapshot the two snapshots around the cursor are
// compared. Otherwise the visible events are scanned for state transitions: a
// node-tagged end event contributes its output (or its snapshot), any other event
// with a snapshot contributes that. The last transition is diffed; fewer than two
// non-empty states yield no changes.
func StepChanges(visible []Event, snapshots []Snapshot, cursor int, mode Mode) []DiffItem {
	if mode == ModeReplay && cursor > 0 && cursor < len(snapshots) {
		prev, cur := snapshots[cursor-1].State, snapshots[cursor].State
		if prev != nil && cur != nil {
			return Diff(prev, cur, "")
		}
	}

	var before, after, prev map[string]any
	for _, e := range visible {
		var state map[string]any
		switch {
		case e.IsEnd() && e.Metadata[MetadataNodeKey] != nil:
			out := e.DataField("output")
			if out == nil && e.StateSnapshot != nil {
				out = e.StateSnapshot
			}
			m, ok := asMapping(out)
			if !ok {
				continue
			}
			state = CleanState(m)
		case e.StateSnapshot != nil:
			state = CleanState(e.StateSnapshot)
		default:
			continue
		}

		if len(prev) > 0 {
			before, after = prev, state
		}
		prev = state
	}

	if after == nil {
		return nil
	}
	return Diff(before, after, "")
}
