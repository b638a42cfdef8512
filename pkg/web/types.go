package web

import (
	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/models"
)

// ImportTemplateRequest is the body of PUT /templates/:templateId.
type ImportTemplateRequest struct {
	Name  string                 `json:"name"`
	Nodes []*models.TemplateNode `json:"nodes" validate:"required,min=1,dive,required"`
	Edges []*models.TemplateEdge `json:"edges" validate:"dive,required"`
}

// DeployRequest is the body of POST /templates/:templateId/deployments.
type DeployRequest struct {
	UserID string                `json:"user_id" validate:"required"`
	Status models.WorkflowStatus `json:"status"  validate:"omitempty,oneof=draft active archived"`
	Graph  *models.Graph         `json:"graph"   validate:"required"`
}

// ValidateGraphRequest is the body of POST /graphs/validate.
type ValidateGraphRequest struct {
	Status models.WorkflowStatus `json:"status" validate:"omitempty,oneof=draft active archived"`
	Graph  *models.Graph         `json:"graph"  validate:"required"`
}

// ValidateGraphResponse lists every issue the graph has.
type ValidateGraphResponse struct {
	Valid  bool                         `json:"valid"`
	Issues []deployment.ValidationIssue `json:"issues"`
}

// DeploymentResponse is returned for a committed deployment.
type DeploymentResponse struct {
	Workflow *models.WorkflowRun `json:"workflow"`
}

// PlanResponse is returned for ?dry_run=true deployments.
type PlanResponse struct {
	DryRun bool             `json:"dry_run"`
	Plan   *deployment.Plan `json:"plan"`
}

func (r DeployRequest) toDeployment(templateID string) deployment.DeployRequest {
	return deployment.DeployRequest{
		TemplateID: templateID,
		UserID:     r.UserID,
		Status:     r.Status,
		Graph:      r.Graph,
	}
}
