package deployment_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *deployment.GraphValidator {
	return deployment.NewGraphValidator(registry.NewDefaultRegistry(discardLogger()), fixedClock)
}

func TestGraphValidator_AcceptsLeadScoringGraph(t *testing.T) {
	t.Parallel()

	require.NoError(t, newValidator().Validate(leadScoringGraph(), models.WorkflowStatusActive))
}

func TestGraphValidator_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(g *models.Graph)
		status models.WorkflowStatus
		field  string
		nodeID string
	}{
		{
			name:   "missing action name",
			mutate: func(g *models.Graph) { delete(g.Nodes[0].Config, "actionName") },
			field:  "actionName",
			nodeID: "n-start",
		},
		{
			name:   "missing schedule",
			mutate: func(g *models.Graph) { g.Nodes[0].Config["schedule"] = "" },
			field:  "schedule",
			nodeID: "n-start",
		},
		{
			name:   "unparseable schedule",
			mutate: func(g *models.Graph) { g.Nodes[0].Config["schedule"] = "every monday" },
			field:  "schedule",
			nodeID: "n-start",
		},
		{
			name:   "unknown time zone",
			mutate: func(g *models.Graph) { g.Nodes[0].Config["timezone"] = "Mars/Olympus" },
			field:  "timezone",
			nodeID: "n-start",
		},
		{
			name:   "unknown label",
			mutate: func(g *models.Graph) { g.Nodes[1].Label = "Teleport" },
			field:  "label",
			nodeID: "n-enrich",
		},
		{
			name:   "missing label",
			mutate: func(g *models.Graph) { g.Nodes[1].Label = "" },
			field:  "nodes[1].label",
		},
		{
			name:   "unknown time window",
			mutate: func(g *models.Graph) { g.Nodes[1].Config["timeWindow"] = "Last Fortnight" },
			field:  "timeWindow",
			nodeID: "n-enrich",
		},
		{
			name: "between without upper bound",
			mutate: func(g *models.Graph) {
				g.Edges[4].Config["predicates"] = []any{
					map[string]any{"attribute": "score", "operator": "BETWEEN", "value1": 50},
				}
			},
			field:  "branches[1].predicates[0]",
			nodeID: "n-branch",
		},
		{
			name: "filter predicate without value",
			mutate: func(g *models.Graph) {
				g.Nodes[2].Config["predicates"] = []any{
					map[string]any{"attribute": "country", "operator": "="},
				}
			},
			field:  "predicates[0]",
			nodeID: "n-filter",
		},
		{
			name:   "branch edge without name",
			mutate: func(g *models.Graph) { delete(g.Edges[3].Config, "name") },
			field:  "branches[0]",
			nodeID: "n-branch",
		},
		{
			name:   "schema violation",
			mutate: func(g *models.Graph) { g.Nodes[2].Config["combinator"] = "XOR" },
			field:  "config",
			nodeID: "n-filter",
		},
		{
			name:   "edge to unknown node",
			mutate: func(g *models.Graph) { g.Edges = append(g.Edges, edge("n-slack", "n-ghost", nil)) },
			field:  "edges",
		},
		{
			name:   "invalid status",
			mutate: func(*models.Graph) {},
			status: "published",
			field:  "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			graph := leadScoringGraph()
			tt.mutate(graph)

			status := tt.status
			if status == "" {
				status = models.WorkflowStatusDraft
			}

			err := newValidator().Validate(graph, status)
			require.ErrorIs(t, err, deployment.ErrValidation)

			var verr *deployment.ValidationError
			require.ErrorAs(t, err, &verr)

			found := false
			for _, issue := range verr.Issues {
				if issue.Field == tt.field && issue.NodeID == tt.nodeID {
					found = true
				}
			}

			assert.True(t, found, "expected issue on %s/%s, got %v", tt.nodeID, tt.field, verr.Issues)
		})
	}
}

func TestGraphValidator_StartCount(t *testing.T) {
	t.Parallel()

	noStart := &models.Graph{Nodes: []*models.GraphNode{node("n-filter", "Filter", nil)}}
	err := newValidator().Validate(noStart, models.WorkflowStatusDraft)
	require.ErrorIs(t, err, deployment.ErrValidation)
	assert.Contains(t, err.Error(), "no Start node")

	twoStarts := &models.Graph{Nodes: []*models.GraphNode{
		node("n-a", "Start", startConfig()),
		node("n-b", "Trigger", startConfig()),
	}}
	err = newValidator().Validate(twoStarts, models.WorkflowStatusDraft)
	require.ErrorIs(t, err, deployment.ErrValidation)
	assert.Contains(t, err.Error(), "2 Start nodes")
}

func TestGraphValidator_EmptyGraph(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, newValidator().Validate(nil, models.WorkflowStatusDraft), deployment.ErrValidation)
	require.ErrorIs(t, newValidator().Validate(&models.Graph{}, models.WorkflowStatusDraft), deployment.ErrValidation)
	require.ErrorIs(t, newValidator().Validate(&models.Graph{Nodes: []*models.GraphNode{nil}}, models.WorkflowStatusDraft), deployment.ErrValidation)
}

func TestGraphValidator_CustomRange(t *testing.T) {
	t.Parallel()

	graph := leadScoringGraph()
	graph.Nodes[1].Config["timeWindow"] = map[string]any{"type": "Custom Range", "start": "2024-02-01", "end": "2024-01-01"}

	err := newValidator().Validate(graph, models.WorkflowStatusDraft)
	require.ErrorIs(t, err, deployment.ErrValidation)

	graph.Nodes[1].Config["timeWindow"] = map[string]any{"type": "Custom Range", "start": "2024-01-01", "end": "2024-02-01"}
	assert.NoError(t, newValidator().Validate(graph, models.WorkflowStatusDraft))
}

func TestGraphValidator_TimeWindowsUseInjectedClock(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	clock := func() time.Time {
		calls.Add(1)

		return anchorInstant
	}

	validator := deployment.NewGraphValidator(registry.NewDefaultRegistry(discardLogger()), clock)

	require.NoError(t, validator.Validate(leadScoringGraph(), models.WorkflowStatusActive))
	assert.Positive(t, calls.Load())
}

func TestDeployer_Validate_RequestFields(t *testing.T) {
	t.Parallel()

	req := leadScoringRequest()
	req.TemplateID = ""
	req.UserID = ""

	err := newDeployer(newMemoryStore()).Validate(req)

	var verr *deployment.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "template_id", verr.Issues[0].Field)
	assert.Equal(t, "user_id", verr.Issues[1].Field)
}
