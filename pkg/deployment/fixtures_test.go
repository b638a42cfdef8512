package deployment_test

import (
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/models"
)

var anchorInstant = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return anchorInstant }

// buildTemplate reads nodes as "id:TypeName" and edges as "source>target". Ordinals
// count repeated types in declaration order.
func buildTemplate(id string, nodes []string, edges []string) *models.Template {
	template := &models.Template{ID: id, Name: id}
	ordinals := make(map[string]int)

	for _, spec := range nodes {
		nodeID, typeName, _ := strings.Cut(spec, ":")
		canonical := models.CanonicalTypeName(typeName)
		ordinals[canonical]++

		template.Nodes = append(template.Nodes, &models.TemplateNode{
			ID:         nodeID,
			TemplateID: id,
			TypeName:   typeName,
			Ordinal:    ordinals[canonical],
		})
	}

	for _, spec := range edges {
		source, target, _ := strings.Cut(spec, ">")

		template.Edges = append(template.Edges, &models.TemplateEdge{
			ID:         "te-" + source + "-" + target,
			TemplateID: id,
			Source:     source,
			Target:     target,
		})
	}

	return template
}

func node(id, label string, config map[string]any) *models.GraphNode {
	return &models.GraphNode{ID: id, Label: label, Config: config}
}

func edge(source, target string, config map[string]any) *models.GraphEdge {
	return &models.GraphEdge{ID: source + "->" + target, Source: source, Target: target, Config: config}
}

func startConfig() map[string]any {
	return map[string]any{
		"actionName": "Score inbound leads",
		"schedule":   "0 9 * * 1",
		"timezone":   "UTC",
	}
}

func leadScoringTemplate() *models.Template {
	return buildTemplate("tpl-lead",
		[]string{
			"tn-start:Start",
			"tn-enrich:Enrich",
			"tn-filter:Filter",
			"tn-branch:Branch",
			"tn-email:Email Notification",
			"tn-slack:Slack Notification",
		},
		[]string{
			"tn-start>tn-enrich",
			"tn-enrich>tn-filter",
			"tn-filter>tn-branch",
			"tn-branch>tn-email",
			"tn-branch>tn-slack",
		},
	)
}

func leadScoringGraph() *models.Graph {
	return &models.Graph{
		Nodes: []*models.GraphNode{
			node("n-start", "Start", startConfig()),
			node("n-enrich", "Enrich", map[string]any{"source": "crm", "timeWindow": "Last Quarter"}),
			node("n-filter", "Filter", map[string]any{
				"combinator": "AND",
				"predicates": []any{
					map[string]any{"attribute": "country", "operator": "=", "value1": "DE"},
				},
			}),
			node("n-branch", "Branch", map[string]any{"label": "Score split"}),
			node("n-email", "Email Notification", map[string]any{
				"recipients": []any{"sales@example.com"},
				"subject":    "Hot lead",
			}),
			node("n-slack", "Slack Notification", map[string]any{"channel": "#leads", "message": "Warm lead"}),
			node("n-add", "Placeholder", nil),
		},
		Edges: []*models.GraphEdge{
			edge("n-start", "n-enrich", nil),
			edge("n-enrich", "n-filter", nil),
			edge("n-filter", "n-branch", nil),
			edge("n-branch", "n-email", map[string]any{
				"name": "hot",
				"predicates": []any{
					map[string]any{"attribute": "score", "operator": ">=", "value1": 80},
				},
			}),
			edge("n-branch", "n-slack", map[string]any{
				"name": "warm",
				"predicates": []any{
					map[string]any{"attribute": "score", "operator": "BETWEEN", "value1": 50, "value2": 79},
				},
			}),
			edge("n-slack", "n-add", nil),
		},
	}
}
