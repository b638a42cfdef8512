// Package file provides a JSON-on-disk persistence implementation for
// templates and deployed workflows.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

const (
	templatesDir = "templates"
	workflowsDir = "workflows"
)

// Persistence implements persistence.Persistence on the file system. Every
// template and every workflow run lives in its own JSON document.
type Persistence struct {
	root string

	// mu serializes transactions so a commit never interleaves with another writer.
	mu sync.Mutex

	templateRepo *TemplateRepository
	workflowRepo *WorkflowRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.templateRepo = &TemplateRepository{persistence: p}
	p.workflowRepo = &WorkflowRepository{persistence: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// WithinTransaction stages every write in memory and writes the touched
// documents only when fn succeeds.
func (p *Persistence) WithinTransaction(ctx context.Context, fn persistence.TxFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := newTransaction(p)

	err := fn(ctx, tx)
	if err != nil {
		return err
	}

	// Abandon the stage rather than write behind a cancelled caller.
	err = ctx.Err()
	if err != nil {
		return err
	}

	return tx.commit()
}

func (p *Persistence) ListTemplateNodes(ctx context.Context, templateID string) ([]*models.TemplateNode, error) {
	template, err := p.readTemplate(templateID)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return []*models.TemplateNode{}, nil
		}

		return nil, err
	}

	return template.Nodes, nil
}

func (p *Persistence) ListTemplateEdges(ctx context.Context, templateID string) ([]*models.TemplateEdge, error) {
	template, err := p.readTemplate(templateID)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return []*models.TemplateEdge{}, nil
		}

		return nil, err
	}

	return template.Edges, nil
}

// InsertWorkflow writes a workflow run outside any caller transaction.
func (p *Persistence) InsertWorkflow(
	ctx context.Context,
	templateID, userID string,
	status models.WorkflowStatus,
) (*models.WorkflowRun, error) {
	var run *models.WorkflowRun

	err := p.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		var err error

		run, err = repo.InsertWorkflow(ctx, templateID, userID, status)

		return err
	})

	return run, err
}

func (p *Persistence) InsertSettings(
	ctx context.Context,
	table, workflowID, templateNodeID string,
	payload map[string]any,
) (string, error) {
	var id string

	err := p.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		var err error

		id, err = repo.InsertSettings(ctx, table, workflowID, templateNodeID, payload)

		return err
	})

	return id, err
}

func (p *Persistence) InsertEdgeConfiguration(
	ctx context.Context,
	templateEdgeID, workflowID string,
	set models.PredicateSet,
) error {
	return p.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		return repo.InsertEdgeConfiguration(ctx, templateEdgeID, workflowID, set)
	})
}

func (p *Persistence) path(dir, id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid document id %q", id)
	}

	return filepath.Join(p.root, dir, id+".json"), nil
}

func (p *Persistence) readTemplate(templateID string) (*models.Template, error) {
	var template models.Template

	err := p.readDocument(templatesDir, templateID, &template)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewTemplateError("GetTemplate", templateID, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to fetch template %s: %w", templateID, err)
	}

	return &template, nil
}

func (p *Persistence) readWorkflow(workflowID string) (*models.DeployedWorkflow, error) {
	var workflow models.DeployedWorkflow

	err := p.readDocument(workflowsDir, workflowID, &workflow)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetWorkflow", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

func (p *Persistence) readDocument(dir, id string, v any) error {
	filePath, err := p.path(dir, id)
	if err != nil {
		return fmt.Errorf("%w: %w", os.ErrNotExist, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return nil
}

// writeDocument replaces the document atomically through a temp file and rename.
func (p *Persistence) writeDocument(dir, id string, v any) error {
	filePath, err := p.path(dir, id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(filePath), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", id, err)
	}

	err = os.Rename(tmp.Name(), filePath)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", id, err)
	}

	return nil
}
