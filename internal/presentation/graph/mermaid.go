package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/runlens/pkg/domain"
)

// Overlay carries the derived node statuses to paint on the graph.
type Overlay map[string]domain.NodeStatus

// GenerateMermaid produces a Mermaid flowchart of the agent graph.
// Shapes:
// - Entry nodes (no incoming edge): ((Circle))
// - End marker: (((Double circle)))
// - Default: [Rectangle]
// Labelled edges are conditional and drawn dotted. With an overlay, nodes are
// styled by status (done, active, next); pending nodes keep the theme default.
func GenerateMermaid(schema domain.GraphSchema, overlay Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	incoming := make(map[string]bool, len(schema.Edges))
	for _, e := range schema.Edges {
		if e.Source != e.Target {
			incoming[e.Target] = true
		}
	}

	declared := schema.Known()
	for _, node := range schema.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case domain.IsEndMarker(node.ID):
			opener, closer = "(((", ")))"
		case !incoming[node.ID]:
			opener, closer = "((", "))"
		}

		label := node.Label
		if label == "" {
			label = node.ID
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer))
	}

	// Edges may point at the end marker without declaring it as a node.
	for _, e := range schema.Edges {
		if domain.IsEndMarker(e.Target) && !declared.Has(e.Target) {
			declared[e.Target] = struct{}{}
			sb.WriteString(fmt.Sprintf("    %s(((\"END\")))\n", sanitizeMermaidID(e.Target)))
		}
	}

	for _, e := range schema.Edges {
		arrow := "-->"
		if e.Label != "" {
			arrow = fmt.Sprintf("-. \"%s\" .->", escape(e.Label))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target)))
	}

	if len(overlay) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light fills, regardless of theme
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef next fill:#f3e5f5,stroke:#8e24aa,stroke-width:2px,stroke-dasharray:4 3,color:#000;\n")

		// Declaration order keeps the output stable.
		for _, node := range schema.Nodes {
			switch status := overlay[node.ID]; status {
			case domain.NodeDone, domain.NodeActive, domain.NodeNext:
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(node.ID), status))
			}
		}
	}

	return sb.String()
}

// OverlayOf builds an overlay from a status report.
func OverlayOf(schema domain.GraphSchema, report domain.StatusReport) Overlay {
	return Overlay(report.Statuses(schema.NodeIDs(), schema.NodeOrder()))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
