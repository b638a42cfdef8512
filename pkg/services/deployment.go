package services

import (
	"context"
	"fmt"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

type Deployment struct {
	deployer    *deployment.Deployer
	persistence persistence.Persistence
}

// NewDeployment creates a new deployment service.
func NewDeployment(deployer *deployment.Deployer, persistence persistence.Persistence) *Deployment {
	return &Deployment{
		deployer:    deployer,
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Deployment) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Validate checks a request without touching storage.
func (d *Deployment) Validate(req deployment.DeployRequest) error {
	return deploymentError("Validate", d.deployer.Validate(req))
}

// ValidateGraph checks a graph without a template or user.
func (d *Deployment) ValidateGraph(graph *models.Graph, status models.WorkflowStatus) error {
	return deploymentError("ValidateGraph", d.deployer.ValidateGraph(graph, status))
}

// Deploy deploys req.Graph against its template and returns the new run.
func (d *Deployment) Deploy(ctx context.Context, req deployment.DeployRequest) (*models.WorkflowRun, error) {
	if err := d.prepare(ctx, "Deploy", req); err != nil {
		return nil, err
	}

	run, err := d.deployer.Deploy(ctx, req)
	if err != nil {
		return nil, deploymentError("Deploy", err)
	}

	return run, nil
}

// DryRun compiles the deployment plan without writing it.
func (d *Deployment) DryRun(ctx context.Context, req deployment.DeployRequest) (*deployment.Plan, error) {
	if err := d.prepare(ctx, "DryRun", req); err != nil {
		return nil, err
	}

	plan, err := d.deployer.Compile(ctx, req)
	if err != nil {
		return nil, deploymentError("DryRun", err)
	}

	return plan, nil
}

// GetWorkflow returns a run with every settings row and branch guard written for it.
func (d *Deployment) GetWorkflow(ctx context.Context, workflowID string) (*models.DeployedWorkflow, error) {
	if workflowID == "" {
		return nil, NewValidationError("GetWorkflow", CodeInvalidRequest, "workflow id is required", ErrInvalidRequest)
	}

	repo := d.persistence.WorkflowRepository()

	run, err := repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, storeError("GetWorkflow", err)
	}

	settings, err := repo.ListSettings(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	edges, err := repo.ListEdgeConfigurations(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edge configurations: %w", err)
	}

	return &models.DeployedWorkflow{
		Workflow:           run,
		Settings:           settings,
		EdgeConfigurations: edges,
	}, nil
}

// prepare rejects invalid requests and unknown templates before the deployer runs.
func (d *Deployment) prepare(ctx context.Context, op string, req deployment.DeployRequest) error {
	if err := d.deployer.Validate(req); err != nil {
		return deploymentError(op, err)
	}

	_, err := d.persistence.TemplateRepository().GetTemplate(ctx, req.TemplateID)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return storeError(op, err)
		}

		return deploymentError(op, fmt.Errorf("%w: %w", deployment.ErrPersistence, err))
	}

	return nil
}
