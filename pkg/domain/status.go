package domain

import "sort"

// NodeStatus is the derived execution status of one graph node.
type NodeStatus string

const (
	NodePending NodeStatus = "pending" // Not started (or not shown as anything else)
	NodeNext    NodeStatus = "next"    // Follows the active node in execution order
	NodeActive  NodeStatus = "active"  // Currently executing
	NodeDone    NodeStatus = "done"    // Completed at least once
)

// NodeSet is a set of node identifiers.
type NodeSet map[string]struct{}

// NewNodeSet builds a set from the given identifiers.
func NewNodeSet(ids ...string) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s NodeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s NodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StatusReport is the result of a status derivation over an event sequence.
type StatusReport struct {
	// Active is the node currently executing, or empty when nothing is running.
	Active string
	// Completed holds every node that ended at least once, including nodes that restarted.
	Completed NodeSet
}

// DeriveStatus scans events in order and derives the active and completed nodes.
//
// The result is recomputed from scratch on every call. Because no per-node state
// machine is kept, rewinding the event sequence (replay) or re-entering a node
// (retry loops) needs no inverse transitions. Events for nodes outside known are
// ignored.
func DeriveStatus(events []Event, known NodeSet, order []string) StatusReport {
	active := NodeSet{}
	completed := NodeSet{}
	startTimes := make(map[string]float64)
	rank := orderRank(order)
	candidate := ""

	for i, e := range events {
		node := e.NodeHint()
		if node == "" || !known.Has(node) {
			continue
		}

		if e.IsStart() {
			active[node] = struct{}{}
			t := float64(i)
			if e.Timestamp != nil {
				t = *e.Timestamp
			}
			startTimes[node] = t
			if candidate == "" || startTimes[node] > startTimes[candidate] {
				candidate = node
			}
		}

		if e.IsEnd() {
			delete(active, node)
			completed[node] = struct{}{}
			delete(startTimes, node)
			if candidate == node {
				candidate = latestStarted(active, startTimes, rank)
			}
		}
	}

	report := StatusReport{Completed: completed}
	switch {
	case candidate != "" && active.Has(candidate):
		report.Active = candidate
	case len(active) > 0:
		report.Active = earliestInOrder(active, rank)
	}
	return report
}

// Next returns the node following the active one in order, unless it already completed.
func (r StatusReport) Next(order []string) string {
	if r.Active == "" {
		return ""
	}
	for i, id := range order {
		if id != r.Active {
			continue
		}
		if i+1 < len(order) && !r.Completed.Has(order[i+1]) {
			return order[i+1]
		}
		return ""
	}
	return ""
}

// StatusOf classifies a single node. Active wins over done for re-entered nodes.
func (r StatusReport) StatusOf(node string, order []string) NodeStatus {
	switch {
	case node == r.Active:
		return NodeActive
	case node == r.Next(order):
		return NodeNext
	case r.Completed.Has(node):
		return NodeDone
	default:
		return NodePending
	}
}

// Statuses classifies every node in nodes.
func (r StatusReport) Statuses(nodes []string, order []string) map[string]NodeStatus {
	out := make(map[string]NodeStatus, len(nodes))
	for _, n := range nodes {
		out[n] = r.StatusOf(n, order)
	}
	return out
}

func orderRank(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	return rank
}

// latestStarted picks the active node with the newest start time.
// Ties fall back to execution order so the result does not depend on map iteration.
func latestStarted(active NodeSet, startTimes map[string]float64, rank map[string]int) string {
	best := ""
	for node := range active {
		t, ok := startTimes[node]
		if !ok {
			continue
		}
		if best == "" || t > startTimes[best] || (t == startTimes[best] && before(node, best, rank)) {
			best = node
		}
	}
	return best
}

func earliestInOrder(active NodeSet, rank map[string]int) string {
	best := ""
	for node := range active {
		if best == "" || before(node, best, rank) {
			best = node
		}
	}
	return best
}

// before orders nodes by rank; nodes missing from the order sort last, by name.
func before(a, b string, rank map[string]int) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}
