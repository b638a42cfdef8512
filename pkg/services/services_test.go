package services

import (
	"log/slog"
	"testing"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (*Deployment, *Template) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	deployer := deployment.NewDeployer(slog.New(slog.DiscardHandler), p)

	return NewDeployment(deployer, p), NewTemplate(p)
}

func simpleTemplate() *models.Template {
	return &models.Template{
		ID:   "tpl-simple",
		Name: "Simple",
		Nodes: []*models.TemplateNode{
			{ID: "tn-start", TypeName: "Start"},
			{ID: "tn-filter", TypeName: "Filter"},
			{ID: "tn-email", TypeName: "Email Notification"},
		},
		Edges: []*models.TemplateEdge{
			{ID: "te-1", Source: "tn-start", Target: "tn-filter"},
			{ID: "te-2", Source: "tn-filter", Target: "tn-email"},
		},
	}
}

func simpleRequest() deployment.DeployRequest {
	return deployment.DeployRequest{
		TemplateID: "tpl-simple",
		UserID:     "user-1",
		Status:     models.WorkflowStatusActive,
		Graph: &models.Graph{
			Nodes: []*models.GraphNode{
				{ID: "n-start", Label: "Start", Config: map[string]any{
					"actionName": "Nightly",
					"schedule":   "0 2 * * *",
				}},
				{ID: "n-filter", Label: "Filter", Config: map[string]any{
					"predicates": []any{
						map[string]any{"attribute": "country", "operator": "=", "value1": "DE"},
					},
				}},
				{ID: "n-email", Label: "Email Notification", Config: map[string]any{
					"recipients": []any{"ops@example.com"},
					"subject":    "Done",
				}},
			},
			Edges: []*models.GraphEdge{
				{ID: "e-1", Source: "n-start", Target: "n-filter"},
				{ID: "e-2", Source: "n-filter", Target: "n-email"},
			},
		},
	}
}

func importSimpleTemplate(t *testing.T, templates *Template) {
	t.Helper()

	_, err := templates.Import(t.Context(), "tpl-simple", simpleTemplate())
	require.NoError(t, err)
}
