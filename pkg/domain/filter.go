package domain

// FilterEvents returns the events visible at the given replay position.
//
// In live mode, with no snapshots, or with an out-of-range cursor every event is
// visible. Otherwise an event is visible when its step index is at or before the
// cursor snapshot's step; events without a step index only show at cursor 0.
func FilterEvents(events []Event, snapshots []Snapshot, cursor int, mode Mode) []Event {
	if mode == ModeLive || len(snapshots) == 0 || cursor < 0 || cursor >= len(snapshots) {
		return events
	}

	boundary := snapshots[cursor].Step
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.StepIndex == nil {
			if cursor == 0 {
				out = append(out, e)
			}
			continue
		}
		if *e.StepIndex <= boundary {
			out = append(out, e)
		}
	}
	return out
}
