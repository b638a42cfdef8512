package persistence

import (
	"fmt"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
)

// CheckTemplate verifies a template before it is stored: ids are present and
// unique, and every edge connects two nodes of the template.
func CheckTemplate(template *models.Template) error {
	if template == nil || strings.TrimSpace(template.ID) == "" {
		return fmt.Errorf("%w: template id is required", ErrInvalidTemplate)
	}

	nodes := make(map[string]struct{}, len(template.Nodes))

	for i, node := range template.Nodes {
		if node == nil || strings.TrimSpace(node.ID) == "" {
			return fmt.Errorf("%w: node %d has no id", ErrInvalidTemplate, i)
		}

		if strings.TrimSpace(node.TypeName) == "" {
			return fmt.Errorf("%w: node %s has no type name", ErrInvalidTemplate, node.ID)
		}

		if _, dup := nodes[node.ID]; dup {
			return fmt.Errorf("%w: duplicate node %s", ErrInvalidTemplate, node.ID)
		}

		nodes[node.ID] = struct{}{}
	}

	edges := make(map[string]struct{}, len(template.Edges))

	for i, edge := range template.Edges {
		if edge == nil || strings.TrimSpace(edge.ID) == "" {
			return fmt.Errorf("%w: edge %d has no id", ErrInvalidTemplate, i)
		}

		if _, dup := edges[edge.ID]; dup {
			return fmt.Errorf("%w: duplicate edge %s", ErrInvalidTemplate, edge.ID)
		}

		edges[edge.ID] = struct{}{}

		if _, ok := nodes[edge.Source]; !ok {
			return fmt.Errorf("%w: edge %s has unknown source %s", ErrInvalidTemplate, edge.ID, edge.Source)
		}

		if _, ok := nodes[edge.Target]; !ok {
			return fmt.Errorf("%w: edge %s has unknown target %s", ErrInvalidTemplate, edge.ID, edge.Target)
		}
	}

	return nil
}

// NormalizeTemplate stamps the template id onto its nodes and edges and
// defaults missing ordinals to 1.
func NormalizeTemplate(template *models.Template) {
	for _, node := range template.Nodes {
		node.TemplateID = template.ID
		if node.Ordinal <= 0 {
			node.Ordinal = 1
		}
	}

	for _, edge := range template.Edges {
		edge.TemplateID = template.ID
	}
}
