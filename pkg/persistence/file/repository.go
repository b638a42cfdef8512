package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// TemplateRepository stores templates under templates/<id>.json.
type TemplateRepository struct {
	persistence *Persistence
}

// SaveTemplate creates or replaces a template. Dropping a node or edge that a
// stored workflow references fails with ErrTemplateInUse.
func (r *TemplateRepository) SaveTemplate(ctx context.Context, template *models.Template) error {
	err := persistence.CheckTemplate(template)
	if err != nil {
		return err
	}

	persistence.NormalizeTemplate(template)

	p := r.persistence

	p.mu.Lock()
	defer p.mu.Unlock()

	err = r.checkInUse(ctx, template)
	if err != nil {
		return err
	}

	return p.writeDocument(templatesDir, template.ID, template)
}

func (r *TemplateRepository) GetTemplate(_ context.Context, templateID string) (*models.Template, error) {
	return r.persistence.readTemplate(templateID)
}

func (r *TemplateRepository) checkInUse(ctx context.Context, template *models.Template) error {
	current, err := r.persistence.readTemplate(template.ID)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return nil
		}

		return err
	}

	keptNodes := make(map[string]bool, len(template.Nodes))
	for _, node := range template.Nodes {
		keptNodes[node.ID] = true
	}

	keptEdges := make(map[string]bool, len(template.Edges))
	for _, edge := range template.Edges {
		keptEdges[edge.ID] = true
	}

	dropped := false

	for _, node := range current.Nodes {
		dropped = dropped || !keptNodes[node.ID]
	}

	for _, edge := range current.Edges {
		dropped = dropped || !keptEdges[edge.ID]
	}

	if !dropped {
		return nil
	}

	workflows, err := r.persistence.workflowRepo.listDeployed(ctx)
	if err != nil {
		return err
	}

	for _, workflow := range workflows {
		if workflow.Workflow.TemplateID != template.ID {
			continue
		}

		for _, settings := range workflow.Settings {
			if !keptNodes[settings.TemplateNodeID] {
				return persistence.NewTemplateError("SaveTemplate", template.ID, persistence.ErrTemplateInUse)
			}
		}

		for _, config := range workflow.EdgeConfigurations {
			if !keptEdges[config.TemplateEdgeID] {
				return persistence.NewTemplateError("SaveTemplate", template.ID, persistence.ErrTemplateInUse)
			}
		}
	}

	return nil
}

// WorkflowRepository reads workflows/<id>.json documents.
type WorkflowRepository struct {
	persistence *Persistence
}

func (r *WorkflowRepository) GetWorkflow(_ context.Context, workflowID string) (*models.WorkflowRun, error) {
	workflow, err := r.persistence.readWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	return workflow.Workflow, nil
}

func (r *WorkflowRepository) ListSettings(_ context.Context, workflowID string) ([]*models.NodeSettingsRecord, error) {
	workflow, err := r.persistence.readWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	return workflow.Settings, nil
}

func (r *WorkflowRepository) ListEdgeConfigurations(_ context.Context, workflowID string) ([]*models.EdgeConfiguration, error) {
	workflow, err := r.persistence.readWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	return workflow.EdgeConfigurations, nil
}

func (r *WorkflowRepository) listDeployed(ctx context.Context) ([]*models.DeployedWorkflow, error) {
	root := os.DirFS(filepath.Join(r.persistence.root, workflowsDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.DeployedWorkflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		workflow, err := r.persistence.readWorkflow(strings.TrimSuffix(file, ".json"))
		if err != nil {
			if errors.Is(err, persistence.ErrWorkflowNotFound) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}
