package models

// Graph is the user's authored node graph. It owns the per-instance configuration.
type Graph struct {
	Nodes []*GraphNode `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []*GraphEdge `json:"edges" yaml:"edges" validate:"dive"`
}

// Node returns the node with the given instance id.
func (g *Graph) Node(id string) (*GraphNode, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// Configs returns the node-instance → config map. The maps are shared with the
// graph, not copied.
func (g *Graph) Configs() map[string]map[string]any {
	configs := make(map[string]map[string]any, len(g.Nodes))

	for _, node := range g.Nodes {
		if node.Config == nil {
			node.Config = make(map[string]any)
		}

		configs[node.ID] = node.Config
	}

	return configs
}

// SemanticNodes returns the nodes that are not placeholders, in authored order.
func (g *Graph) SemanticNodes() []*GraphNode {
	nodes := make([]*GraphNode, 0, len(g.Nodes))

	for _, node := range g.Nodes {
		if !node.IsPlaceholder() {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// OutgoingEdges returns the edges leaving nodeID in authored order.
func (g *Graph) OutgoingEdges(nodeID string) []*GraphEdge {
	var edges []*GraphEdge

	for _, edge := range g.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// NodesOfKind returns every node of the given kind.
func (g *Graph) NodesOfKind(kind NodeKind) []*GraphNode {
	var nodes []*GraphNode

	for _, node := range g.Nodes {
		if k, err := node.Kind(); err == nil && k == kind {
			nodes = append(nodes, node)
		}
	}

	return nodes
}
