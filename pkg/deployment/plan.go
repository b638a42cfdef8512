package deployment

import (
	"context"
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/dukex/flowforge/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Step is everything written for one template node.
type Step struct {
	TemplateNodeID string          `json:"template_node_id"`
	GraphNodeID    string          `json:"graph_node_id"`
	Kind           models.NodeKind `json:"kind"`
	Settings       *SettingsWrite  `json:"settings,omitempty"`
	Edges          []EdgeWrite     `json:"edges,omitempty"`
}

// Plan is a compiled deployment: steps in walk order, no writes performed yet.
type Plan struct {
	TemplateID string                `json:"template_id"`
	UserID     string                `json:"user_id"`
	Status     models.WorkflowStatus `json:"status"`
	Steps      []Step                `json:"steps"`
}

// SettingsCount is the number of settings rows the plan writes.
func (p *Plan) SettingsCount() int {
	count := 0

	for _, step := range p.Steps {
		if step.Settings != nil {
			count++
		}
	}

	return count
}

// EdgeCount is the number of edge configurations the plan writes.
func (p *Plan) EdgeCount() int {
	count := 0

	for _, step := range p.Steps {
		count += len(step.Edges)
	}

	return count
}

// apply writes the plan through repo, one node at a time, checking ctx before each node.
func (d *Deployer) apply(ctx context.Context, repo persistence.Repository, plan *Plan) (*models.WorkflowRun, error) {
	run, err := repo.InsertWorkflow(ctx, plan.TemplateID, plan.UserID, plan.Status)
	if err != nil {
		return nil, storeError(ctx, "InsertWorkflow", err)
	}

	logger := d.logger.With("template_id", plan.TemplateID, "workflow_id", run.ID)
	span := trace.SpanFromContext(ctx)

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "Deployment cancelled before node", "template_node_id", step.TemplateNodeID)

			return nil, fmt.Errorf("%w: %w", ErrDeploymentCancelled, err)
		}

		if step.Settings != nil {
			id, err := repo.InsertSettings(ctx, step.Settings.Table, run.ID, step.TemplateNodeID, step.Settings.Payload)
			if err != nil {
				return nil, storeError(ctx, "InsertSettings", err)
			}

			logger.DebugContext(ctx, "Settings written",
				"template_node_id", step.TemplateNodeID,
				"table", step.Settings.Table,
				"settings_id", id)
		}

		for _, edge := range step.Edges {
			if err := repo.InsertEdgeConfiguration(ctx, edge.TemplateEdgeID, run.ID, edge.Set); err != nil {
				return nil, storeError(ctx, "InsertEdgeConfiguration", err)
			}
		}

		span.AddEvent("node.applied", trace.WithAttributes(
			attribute.String(otelhelper.TemplateNodeIDKey, step.TemplateNodeID),
			attribute.String(otelhelper.GraphNodeIDKey, step.GraphNodeID),
			attribute.String(otelhelper.NodeKindKey, string(step.Kind)),
		))
	}

	return run, nil
}
