package deployment

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukex/flowforge/pkg/models"
)

// Visitor is called once per template node, after all of its predecessors.
// outgoing holds the node's template edges in persisted order.
type Visitor func(ctx context.Context, node *models.TemplateNode, outgoing []*models.TemplateEdge) error

// Walker orders template nodes so that every node comes after all of its direct
// predecessors.
type Walker struct {
	templateID string
	nodes      []*models.TemplateNode
	byID       map[string]*models.TemplateNode
	incoming   map[string][]string
	outgoing   map[string][]*models.TemplateEdge
	root       *models.TemplateNode
}

// NewWalker indexes the template and locates its unique root. Placeholder rows
// with no edges are floating "add node" markers and take no part in the walk.
func NewWalker(templateID string, nodes []*models.TemplateNode, edges []*models.TemplateEdge) (*Walker, error) {
	nodes = withoutFloatingPlaceholders(nodes, edges)

	w := &Walker{
		templateID: templateID,
		nodes:      nodes,
		byID:       make(map[string]*models.TemplateNode, len(nodes)),
		incoming:   make(map[string][]string, len(nodes)),
		outgoing:   make(map[string][]*models.TemplateEdge, len(nodes)),
	}

	for _, node := range nodes {
		if _, dup := w.byID[node.ID]; dup {
			return nil, w.malformed("duplicate template node", node.ID)
		}

		w.byID[node.ID] = node
	}

	for _, edge := range edges {
		if _, ok := w.byID[edge.Source]; !ok {
			return nil, w.malformed(fmt.Sprintf("edge %s references unknown source", edge.ID), edge.Source)
		}

		if _, ok := w.byID[edge.Target]; !ok {
			return nil, w.malformed(fmt.Sprintf("edge %s references unknown target", edge.ID), edge.Target)
		}

		w.outgoing[edge.Source] = append(w.outgoing[edge.Source], edge)
		w.incoming[edge.Target] = append(w.incoming[edge.Target], edge.Source)
	}

	var roots []string

	for _, node := range nodes {
		if len(w.incoming[node.ID]) == 0 {
			roots = append(roots, node.ID)
		}
	}

	switch len(roots) {
	case 0:
		return nil, w.malformed("template has no root node")
	case 1:
		w.root = w.byID[roots[0]]
	default:
		return nil, w.malformed("template has multiple root nodes", roots...)
	}

	return w, nil
}

func (w *Walker) malformed(reason string, ids ...string) error {
	return &MalformedTemplateError{TemplateID: w.templateID, Reason: reason, NodeIDs: ids}
}

// Root returns the node with no incoming edges.
func (w *Walker) Root() *models.TemplateNode {
	return w.root
}

// Outgoing returns the edges leaving nodeID in persisted order.
func (w *Walker) Outgoing(nodeID string) []*models.TemplateEdge {
	return w.outgoing[nodeID]
}

// Walk visits every node exactly once in breadth-first order from the root, holding
// back a node until all of its predecessors have been visited. It returns the visit
// order. Nodes that can never be visited, because they sit on a cycle or outside the
// root's reach, make the template malformed.
func (w *Walker) Walk(ctx context.Context, visit Visitor) ([]string, error) {
	visited := make(map[string]bool, len(w.nodes))
	order := make([]string, 0, len(w.nodes))
	queue := []*models.TemplateNode{w.root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if visited[node.ID] || !w.ready(node.ID, visited) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return order, fmt.Errorf("%w: %w", ErrDeploymentCancelled, err)
		}

		outgoing := w.outgoing[node.ID]

		if err := visit(ctx, node, outgoing); err != nil {
			return order, err
		}

		visited[node.ID] = true
		order = append(order, node.ID)

		for _, edge := range outgoing {
			queue = append(queue, w.byID[edge.Target])
		}
	}

	if len(order) != len(w.nodes) {
		var unreached []string

		for _, node := range w.nodes {
			if !visited[node.ID] {
				unreached = append(unreached, node.ID)
			}
		}

		slices.Sort(unreached)

		return order, w.malformed("nodes unreachable from root or part of a cycle", unreached...)
	}

	return order, nil
}

func (w *Walker) ready(nodeID string, visited map[string]bool) bool {
	for _, predecessor := range w.incoming[nodeID] {
		if !visited[predecessor] {
			return false
		}
	}

	return true
}

func withoutFloatingPlaceholders(nodes []*models.TemplateNode, edges []*models.TemplateEdge) []*models.TemplateNode {
	connected := make(map[string]bool, 2*len(edges))

	for _, edge := range edges {
		connected[edge.Source] = true
		connected[edge.Target] = true
	}

	return slices.DeleteFunc(slices.Clone(nodes), func(node *models.TemplateNode) bool {
		return isPlaceholderRow(node) && !connected[node.ID]
	})
}

func isPlaceholderRow(node *models.TemplateNode) bool {
	kind, err := node.Kind()

	return err == nil && kind.IsPlaceholder()
}
