package deployment

import (
	"context"
	"log/slog"
	"maps"

	"github.com/dukex/flowforge/pkg/models"
)

const (
	branchesField    = "branches"
	branchCountField = "branchCount"
)

// EdgeWrite is one branch guard waiting to be inserted.
type EdgeWrite struct {
	TemplateEdgeID string
	Set            models.PredicateSet
}

// BranchMaterializer pairs the authored branches of a Branch node with its template
// edges.
type BranchMaterializer struct {
	logger *slog.Logger
}

func NewBranchMaterializer(logger *slog.Logger) *BranchMaterializer {
	return &BranchMaterializer{logger: logger.With("module", "branch_materializer")}
}

// AuthoredBranches returns the ordered branch list of node: its "branches" config when
// present, otherwise the configs of its outgoing edges, skipping placeholder targets.
func AuthoredBranches(graph *models.Graph, node *models.GraphNode) ([]models.PredicateSet, error) {
	if raw, ok := node.Config[branchesField]; ok {
		return models.DecodePredicateSets(raw)
	}

	var branches []models.PredicateSet

	for _, edge := range graph.OutgoingEdges(node.ID) {
		if target, ok := graph.Node(edge.Target); ok && target.IsPlaceholder() {
			continue
		}

		set, err := models.DecodePredicateSet(edge.Config)
		if err != nil {
			return nil, err
		}

		branches = append(branches, set)
	}

	return branches, nil
}

// Materialize pairs branches with outgoing by position. A count difference is
// reported before any pair is produced.
func (b *BranchMaterializer) Materialize(
	ctx context.Context,
	templateNode *models.TemplateNode,
	graph *models.Graph,
	graphNode *models.GraphNode,
	outgoing []*models.TemplateEdge,
) ([]EdgeWrite, error) {
	branches, err := AuthoredBranches(graph, graphNode)
	if err != nil {
		return nil, &ValidationError{Issues: []ValidationIssue{{
			NodeID: graphNode.ID,
			Field:  branchesField,
			Reason: err.Error(),
		}}}
	}

	if len(branches) != len(outgoing) {
		return nil, &BranchCardinalityMismatchError{
			TemplateNodeID: templateNode.ID,
			GraphNodeID:    graphNode.ID,
			Edges:          len(outgoing),
			Branches:       len(branches),
		}
	}

	writes := make([]EdgeWrite, 0, len(outgoing))

	for i, edge := range outgoing {
		set := branches[i]
		set.Predicates = canonicalPredicates(ctx, b.logger, templateNode.ID, set.Predicates)

		writes = append(writes, EdgeWrite{TemplateEdgeID: edge.ID, Set: set})
	}

	return writes, nil
}

// SettingsConfig is the config persisted in branch_settings: the authored config
// without its branch list, plus the branch count.
func (b *BranchMaterializer) SettingsConfig(config map[string]any, branchCount int) map[string]any {
	out := maps.Clone(config)
	if out == nil {
		out = make(map[string]any)
	}

	delete(out, branchesField)
	out[branchCountField] = branchCount

	return out
}
