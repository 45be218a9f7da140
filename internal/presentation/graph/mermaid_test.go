package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/runlens/internal/presentation/graph"
	"github.com/aretw0/runlens/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		schema   domain.GraphSchema
		overlay  graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name:   "Default Schema Shapes",
			schema: domain.DefaultSchema(),
			contains: []string{
				"supervisor((\"supervisor\"))",
				"researcher[\"researcher\"]",
				"supervisor --> researcher",
				"verifier -. \"retry if issues\" .-> researcher",
			},
			excludes: []string{"classDef"},
		},
		{
			name: "End Marker",
			schema: domain.GraphSchema{
				Nodes: []domain.SchemaNode{{ID: "agent"}},
				Edges: []domain.SchemaEdge{{Source: "agent", Target: "__end__"}},
			},
			contains: []string{
				"__end__(((\"END\")))",
				"agent --> __end__",
			},
		},
		{
			name: "ID Sanitization And Labels",
			schema: domain.GraphSchema{
				Nodes: []domain.SchemaNode{{ID: "web-search", Label: `the "search"`}, {ID: "a.b"}},
				Edges: []domain.SchemaEdge{{Source: "web-search", Target: "a.b"}},
			},
			contains: []string{
				"web_search((\"the 'search'\"))",
				"a_b[\"a.b\"]",
				"web_search --> a_b",
			},
		},
		{
			name:   "Status Overlay",
			schema: domain.DefaultSchema(),
			overlay: graph.Overlay{
				"supervisor":  domain.NodeDone,
				"researcher":  domain.NodeActive,
				"synthesizer": domain.NodeNext,
				"verifier":    domain.NodePending,
			},
			contains: []string{
				"class supervisor done;",
				"class researcher active;",
				"class synthesizer next;",
			},
			excludes: []string{"class verifier"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.schema, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, bad)
				}
			}
		})
	}
}

func TestOverlayOf(t *testing.T) {
	schema := domain.DefaultSchema()
	events := []domain.Event{
		{Kind: domain.EventChainStart, Name: "supervisor"},
		{Kind: domain.EventChainEnd, Name: "supervisor"},
		{Kind: domain.EventChainStart, Name: "researcher"},
	}
	report := domain.DeriveStatus(events, schema.Known(), schema.NodeOrder())

	overlay := graph.OverlayOf(schema, report)
	want := graph.Overlay{
		"supervisor":  domain.NodeDone,
		"researcher":  domain.NodeActive,
		"synthesizer": domain.NodeNext,
		"verifier":    domain.NodePending,
	}
	for node, status := range want {
		if overlay[node] != status {
			t.Errorf("overlay[%s] = %s, want %s", node, overlay[node], status)
		}
	}
}
