package file

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/google/uuid"
)

// transaction is the persistence.Repository handed to WithinTransaction callers.
type transaction struct {
	persistence *Persistence
	staged      map[string]*models.DeployedWorkflow
	order       []string
}

func newTransaction(p *Persistence) *transaction {
	return &transaction{
		persistence: p,
		staged:      make(map[string]*models.DeployedWorkflow),
	}
}

func (tx *transaction) ListTemplateNodes(ctx context.Context, templateID string) ([]*models.TemplateNode, error) {
	return tx.persistence.ListTemplateNodes(ctx, templateID)
}

func (tx *transaction) ListTemplateEdges(ctx context.Context, templateID string) ([]*models.TemplateEdge, error) {
	return tx.persistence.ListTemplateEdges(ctx, templateID)
}

func (tx *transaction) InsertWorkflow(
	_ context.Context,
	templateID, userID string,
	status models.WorkflowStatus,
) (*models.WorkflowRun, error) {
	if _, err := tx.persistence.readTemplate(templateID); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	run := &models.WorkflowRun{
		ID:         id.String(),
		TemplateID: templateID,
		UserID:     userID,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}

	tx.stage(&models.DeployedWorkflow{
		Workflow:           run,
		Settings:           []*models.NodeSettingsRecord{},
		EdgeConfigurations: []*models.EdgeConfiguration{},
	})

	return run, nil
}

func (tx *transaction) InsertSettings(
	_ context.Context,
	table, workflowID, templateNodeID string,
	payload map[string]any,
) (string, error) {
	if !slices.Contains(registry.SettingsTables, table) {
		return "", persistence.NewWorkflowNodeError("InsertSettings", workflowID, templateNodeID,
			fmt.Errorf("%w: %s", persistence.ErrUnknownSettingsTable, table))
	}

	workflow, err := tx.workflow(workflowID)
	if err != nil {
		return "", err
	}

	duplicate := slices.ContainsFunc(workflow.Settings, func(s *models.NodeSettingsRecord) bool {
		return s.Table == table && s.TemplateNodeID == templateNodeID
	})
	if duplicate {
		return "", persistence.NewWorkflowNodeError("InsertSettings", workflowID, templateNodeID, persistence.ErrDuplicateSettings)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate settings ID: %w", err)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	workflow.Settings = append(workflow.Settings, &models.NodeSettingsRecord{
		ID:             id.String(),
		Table:          table,
		WorkflowID:     workflowID,
		TemplateNodeID: templateNodeID,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	})

	return id.String(), nil
}

func (tx *transaction) InsertEdgeConfiguration(
	_ context.Context,
	templateEdgeID, workflowID string,
	set models.PredicateSet,
) error {
	workflow, err := tx.workflow(workflowID)
	if err != nil {
		return err
	}

	duplicate := slices.ContainsFunc(workflow.EdgeConfigurations, func(c *models.EdgeConfiguration) bool {
		return c.TemplateEdgeID == templateEdgeID
	})
	if duplicate {
		return persistence.NewWorkflowNodeError("InsertEdgeConfiguration", workflowID, templateEdgeID,
			persistence.ErrDuplicateEdgeConfiguration)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate edge configuration ID: %w", err)
	}

	predicates := slices.Clone(set.Predicates)
	if predicates == nil {
		predicates = []models.Predicate{}
	}

	workflow.EdgeConfigurations = append(workflow.EdgeConfigurations, &models.EdgeConfiguration{
		ID:             id.String(),
		TemplateEdgeID: templateEdgeID,
		WorkflowID:     workflowID,
		Name:           set.Name,
		Predicates:     predicates,
		CreatedAt:      time.Now().UTC(),
	})

	return nil
}

// workflow returns the staged copy of a workflow, loading it from disk on first use.
func (tx *transaction) workflow(workflowID string) (*models.DeployedWorkflow, error) {
	if workflow, ok := tx.staged[workflowID]; ok {
		return workflow, nil
	}

	workflow, err := tx.persistence.readWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	tx.stage(workflow)

	return workflow, nil
}

func (tx *transaction) stage(workflow *models.DeployedWorkflow) {
	tx.staged[workflow.Workflow.ID] = workflow
	tx.order = append(tx.order, workflow.Workflow.ID)
}

func (tx *transaction) commit() error {
	for _, id := range tx.order {
		err := tx.persistence.writeDocument(workflowsDir, id, tx.staged[id])
		if err != nil {
			return fmt.Errorf("failed to commit workflow %s: %w", id, err)
		}
	}

	return nil
}
