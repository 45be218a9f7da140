package domain

// SchemaNode is a graph node as advertised by the schema endpoint.
type SchemaNode struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// SchemaEdge connects two schema nodes. Labelled edges are conditional (e.g. retries).
type SchemaEdge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// GraphSchema is the node and edge set used to seed status derivation.
type GraphSchema struct {
	Nodes []SchemaNode `json:"nodes" yaml:"nodes"`
	Edges []SchemaEdge `json:"edges" yaml:"edges"`
}

// DefaultSchema is the research agent graph used when the schema endpoint is unavailable.
func DefaultSchema() GraphSchema {
	return GraphSchema{
		Nodes: []SchemaNode{
			{ID: "supervisor", Label: "supervisor"},
			{ID: "researcher", Label: "researcher"},
			{ID: "synthesizer", Label: "synthesizer"},
			{ID: "verifier", Label: "verifier"},
		},
		Edges: []SchemaEdge{
			{Source: "supervisor", Target: "researcher"},
			{Source: "researcher", Target: "synthesizer"},
			{Source: "synthesizer", Target: "verifier"},
			{Source: "verifier", Target: "researcher", Label: "retry if issues"},
		},
	}
}

// NodeIDs returns the node identifiers in declaration order.
func (s GraphSchema) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Known returns the node identifiers as a set.
func (s GraphSchema) Known() NodeSet {
	return NewNodeSet(s.NodeIDs()...)
}

// NodeOrder derives an execution order from the edge list.
//
// It walks breadth-first from the entry nodes (no incoming edges, or the first
// declared node when every node has one), following edges in declaration order.
// Edges pointing back to visited nodes are ignored, so retry loops do not
// reorder anything. Nodes the walk cannot reach keep their declaration order at
// the end.
func (s GraphSchema) NodeOrder() []string {
	known := s.Known()
	incoming := make(map[string]int, len(s.Nodes))
	adjacent := make(map[string][]string, len(s.Nodes))
	for _, e := range s.Edges {
		if !known.Has(e.Source) || !known.Has(e.Target) || e.Source == e.Target {
			continue
		}
		incoming[e.Target]++
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
	}

	var queue []string
	for _, n := range s.Nodes {
		if incoming[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	if len(queue) == 0 && len(s.Nodes) > 0 {
		queue = append(queue, s.Nodes[0].ID)
	}

	order := make([]string, 0, len(s.Nodes))
	visited := NodeSet{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited.Has(id) {
			continue
		}
		visited[id] = struct{}{}
		order = append(order, id)
		for _, next := range adjacent[id] {
			if !visited.Has(next) {
				queue = append(queue, next)
			}
		}
	}

	for _, n := range s.Nodes {
		if !visited.Has(n.ID) {
			visited[n.ID] = struct{}{}
			order = append(order, n.ID)
		}
	}
	return order
}
