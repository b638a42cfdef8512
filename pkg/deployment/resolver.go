package deployment

import (
	"cmp"
	"slices"

	"github.com/dukex/flowforge/pkg/models"
)

// Resolution is the bijection between authored node instances and template nodes.
type Resolution struct {
	toTemplate map[string]string
	toGraph    map[string]string
}

// TemplateNodeID returns the template node an authored instance resolved to.
func (r *Resolution) TemplateNodeID(graphNodeID string) (string, bool) {
	id, ok := r.toTemplate[graphNodeID]

	return id, ok
}

// GraphNodeID returns the authored instance bound to a template node.
func (r *Resolution) GraphNodeID(templateNodeID string) (string, bool) {
	id, ok := r.toGraph[templateNodeID]

	return id, ok
}

func (r *Resolution) Len() int {
	return len(r.toTemplate)
}

// Resolve binds every semantic authored node to exactly one template node.
//
// Both sides are grouped by node type. Template rows are ordered by ordinal. Authored
// instances are ordered by their explicit Order when every instance of the type has
// one, and by instance ID otherwise. The groups are then zipped positionally.
// Placeholders are left out on both sides. An authored label that names no
// node type is a ValidationError.
func Resolve(templateID string, nodes []*models.GraphNode, rows []*models.TemplateNode) (*Resolution, error) {
	persisted := make(map[models.NodeKind][]*models.TemplateNode)

	for _, row := range rows {
		kind, err := row.Kind()
		if err != nil {
			return nil, &MalformedTemplateError{
				TemplateID: templateID,
				Reason:     "unknown node type " + row.TypeName,
				NodeIDs:    []string{row.ID},
			}
		}

		if kind.IsPlaceholder() {
			continue
		}

		persisted[kind] = append(persisted[kind], row)
	}

	authored := make(map[models.NodeKind][]*models.GraphNode)

	var issues []ValidationIssue

	for _, node := range nodes {
		kind, err := node.Kind()
		if err != nil {
			issues = append(issues, ValidationIssue{NodeID: node.ID, Field: "label", Reason: err.Error()})

			continue
		}

		if kind.IsPlaceholder() {
			continue
		}

		authored[kind] = append(authored[kind], node)
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	resolution := &Resolution{
		toTemplate: make(map[string]string, len(nodes)),
		toGraph:    make(map[string]string, len(rows)),
	}

	for _, kind := range models.NodeKinds {
		group := persisted[kind]
		instances := authored[kind]

		if len(group) != len(instances) {
			return nil, &ResolutionMismatchError{
				TypeName:  string(kind),
				Persisted: len(group),
				Authored:  len(instances),
			}
		}

		sortTemplateNodes(group)
		sortGraphNodes(instances)

		for i, row := range group {
			resolution.toTemplate[instances[i].ID] = row.ID
			resolution.toGraph[row.ID] = instances[i].ID
		}
	}

	return resolution, nil
}

func sortTemplateNodes(rows []*models.TemplateNode) {
	slices.SortStableFunc(rows, func(a, b *models.TemplateNode) int {
		return cmp.Or(cmp.Compare(a.Ordinal, b.Ordinal), cmp.Compare(a.ID, b.ID))
	})
}

func sortGraphNodes(nodes []*models.GraphNode) {
	explicit := true

	for _, node := range nodes {
		if node.Order == nil {
			explicit = false

			break
		}
	}

	slices.SortStableFunc(nodes, func(a, b *models.GraphNode) int {
		if explicit {
			if c := cmp.Compare(*a.Order, *b.Order); c != 0 {
				return c
			}
		}

		return cmp.Compare(a.ID, b.ID)
	})
}
