package domain

import (
	"reflect"
	"testing"
)

func TestGraphSchema_NodeOrder(t *testing.T) {
	tests := []struct {
		name   string
		schema GraphSchema
		want   []string
	}{
		{
			name:   "Default Research Graph",
			schema: DefaultSchema(),
			want:   []string{"supervisor", "researcher", "synthesizer", "verifier"},
		},
		{
			name: "Declaration Order Differs From Edges",
			schema: GraphSchema{
				Nodes: []SchemaNode{{ID: "write"}, {ID: "plan"}, {ID: "review"}},
				Edges: []SchemaEdge{
					{Source: "plan", Target: "write"},
					{Source: "write", Target: "review"},
				},
			},
			want: []string{"plan", "write", "review"},
		},
		{
			name: "Fully Cyclic Starts At First Node",
			schema: GraphSchema{
				Nodes: []SchemaNode{{ID: "a"}, {ID: "b"}},
				Edges: []SchemaEdge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
			},
			want: []string{"a", "b"},
		},
		{
			name: "Unreachable Appended",
			schema: GraphSchema{
				Nodes: []SchemaNode{{ID: "a"}, {ID: "b"}, {ID: "c"}},
				Edges: []SchemaEdge{{Source: "b", Target: "b"}, {Source: "a", Target: "ghost"}},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name:   "Empty",
			schema: GraphSchema{},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.schema.NodeOrder(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NodeOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}
