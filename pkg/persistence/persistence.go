// Package persistence provides the storage abstraction the deployment engine writes through.
package persistence

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
)

// Repository is the narrow set of operations a deployment performs.
type Repository interface {
	ListTemplateNodes(ctx context.Context, templateID string) ([]*models.TemplateNode, error)
	ListTemplateEdges(ctx context.Context, templateID string) ([]*models.TemplateEdge, error)

	InsertWorkflow(ctx context.Context, templateID, userID string, status models.WorkflowStatus) (*models.WorkflowRun, error)
	InsertSettings(ctx context.Context, table, workflowID, templateNodeID string, payload map[string]any) (string, error)
	InsertEdgeConfiguration(ctx context.Context, templateEdgeID, workflowID string, set models.PredicateSet) error
}

// TemplateRepository manages whole templates.
type TemplateRepository interface {
	SaveTemplate(ctx context.Context, template *models.Template) error
	GetTemplate(ctx context.Context, templateID string) (*models.Template, error)
}

// WorkflowRepository reads back what a deployment wrote.
type WorkflowRepository interface {
	GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowRun, error)
	ListSettings(ctx context.Context, workflowID string) ([]*models.NodeSettingsRecord, error)
	ListEdgeConfigurations(ctx context.Context, workflowID string) ([]*models.EdgeConfiguration, error)
}

// TxFunc runs against a repository bound to one transaction.
type TxFunc func(ctx context.Context, repo Repository) error

type Persistence interface {
	Repository

	// WithinTransaction commits when fn returns nil and discards every write otherwise.
	WithinTransaction(ctx context.Context, fn TxFunc) error

	TemplateRepository() TemplateRepository
	WorkflowRepository() WorkflowRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
