package session

import (
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/replay"
	"github.com/aretw0/runlens/pkg/usage"
)

// NodeView is one schema node as a display should draw it.
type NodeView struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Status domain.NodeStatus `json:"status"`
}

// Frame is everything a display needs to render a view at its current position.
type Frame struct {
	ViewID        string             `json:"view_id"`
	RunID         string             `json:"run_id,omitempty"`
	Question      string             `json:"question,omitempty"`
	Mode          domain.Mode        `json:"mode"`
	Closed        bool               `json:"closed"`
	Cursor        int                `json:"cursor"`
	SnapshotCount int                `json:"snapshot_count"`
	EventCount    int                `json:"event_count"`
	State         map[string]any     `json:"state"`
	StateSource   replay.StateSource `json:"state_source"`
	Events        []domain.Event     `json:"events"`
	Active        string             `json:"active,omitempty"`
	Next          string             `json:"next,omitempty"`
	Nodes         []NodeView         `json:"nodes"`
	Changes       []domain.DiffItem  `json:"changes"`
	Headline      string             `json:"headline"`
	Usage         usage.Summary      `json:"usage"`
}

// Status returns the status of a node in the frame, or pending when unknown.
func (f Frame) Status(node string) domain.NodeStatus {
	for _, n := range f.Nodes {
		if n.ID == node {
			return n.Status
		}
	}
	return domain.NodePending
}

// Frame builds a display frame against schema. All reads happen under one lock,
// so the frame is internally consistent.
func (v *View) Frame(schema domain.GraphSchema) Frame {
	v.mu.RLock()
	visible := v.filteredLocked()
	snapshots := v.store.Snapshots()
	shown := v.store.ShownState()
	f := Frame{
		ViewID:        v.id,
		RunID:         v.runID,
		Question:      v.question,
		Mode:          v.store.Mode(),
		Closed:        v.closed,
		Cursor:        v.store.Cursor(),
		SnapshotCount: len(snapshots),
		EventCount:    len(v.events),
		State:         shown.State,
		StateSource:   shown.Source,
		Events:        visible,
	}
	v.mu.RUnlock()

	order := schema.NodeOrder()
	report := domain.DeriveStatus(visible, schema.Known(), order)
	f.Active = report.Active
	f.Next = report.Next(order)
	for _, n := range schema.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		f.Nodes = append(f.Nodes, NodeView{ID: n.ID, Label: label, Status: report.StatusOf(n.ID, order)})
	}

	f.Changes = domain.StepChanges(visible, snapshots, f.Cursor, f.Mode)
	f.Headline = domain.Headline(visible)
	f.Usage = usage.Summarize(visible, order)
	return f
}
