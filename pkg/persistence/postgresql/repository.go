package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/google/uuid"
)

// repository implements persistence.Repository over a plain connection or a transaction.
type repository struct {
	q      querier
	logger *slog.Logger
}

func newRepository(q querier, logger *slog.Logger) *repository {
	return &repository{q: q, logger: logger}
}

func (r *repository) ListTemplateNodes(ctx context.Context, templateID string) ([]*models.TemplateNode, error) {
	return listTemplateNodes(ctx, r.q, r.logger, templateID)
}

func (r *repository) ListTemplateEdges(ctx context.Context, templateID string) ([]*models.TemplateEdge, error) {
	return listTemplateEdges(ctx, r.q, r.logger, templateID)
}

func (r *repository) InsertWorkflow(
	ctx context.Context,
	templateID, userID string,
	status models.WorkflowStatus,
) (*models.WorkflowRun, error) {
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

	query := `
		INSERT INTO workflows (id, template_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.q.ExecContext(ctx, query, run.ID, run.TemplateID, run.UserID, run.Status, run.CreatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return nil, persistence.NewTemplateError("InsertWorkflow", templateID, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to insert workflow: %w", err)
	}

	return run, nil
}

func (r *repository) InsertSettings(
	ctx context.Context,
	table, workflowID, templateNodeID string,
	payload map[string]any,
) (string, error) {
	if !slices.Contains(settingsTables, table) {
		return "", persistence.NewWorkflowNodeError("InsertSettings", workflowID, templateNodeID,
			fmt.Errorf("%w: %s", persistence.ErrUnknownSettingsTable, table))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate settings ID: %w", err)
	}

	settingsJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}

	// table is one of settingsTables, never user input.
	query := `INSERT INTO ` + table + ` (id, workflow_id, template_node_id, settings, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.q.ExecContext(ctx, query, id.String(), workflowID, templateNodeID, settingsJSON, time.Now().UTC())
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return "", persistence.NewWorkflowNodeError("InsertSettings", workflowID, templateNodeID, persistence.ErrDuplicateSettings)
		}

		return "", fmt.Errorf("failed to insert %s row: %w", table, err)
	}

	return id.String(), nil
}

func (r *repository) InsertEdgeConfiguration(
	ctx context.Context,
	templateEdgeID, workflowID string,
	set models.PredicateSet,
) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate edge configuration ID: %w", err)
	}

	predicates := set.Predicates
	if predicates == nil {
		predicates = []models.Predicate{}
	}

	predicatesJSON, err := json.Marshal(predicates)
	if err != nil {
		return fmt.Errorf("failed to marshal predicates: %w", err)
	}

	query := `
		INSERT INTO edge_configurations (id, workflow_id, template_edge_id, name, predicates, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.q.ExecContext(ctx, query, id.String(), workflowID, templateEdgeID, set.Name, predicatesJSON, time.Now().UTC())
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return persistence.NewWorkflowNodeError("InsertEdgeConfiguration", workflowID, templateEdgeID,
				persistence.ErrDuplicateEdgeConfiguration)
		}

		return fmt.Errorf("failed to insert edge configuration: %w", err)
	}

	return nil
}

func listTemplateNodes(ctx context.Context, q querier, logger *slog.Logger, templateID string) ([]*models.TemplateNode, error) {
	query := `
		SELECT
			id
		  , template_id
		  , type_name
		  , ordinal
		FROM template_nodes
		WHERE template_id = $1
		ORDER BY position, id
	`

	rows, err := q.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template nodes: %w", err)
	}

	defer closeRows(ctx, logger, rows)

	nodes := make([]*models.TemplateNode, 0)

	for rows.Next() {
		var node models.TemplateNode

		err := rows.Scan(&node.ID, &node.TemplateID, &node.TypeName, &node.Ordinal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template node: %w", err)
		}

		nodes = append(nodes, &node)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating template nodes: %w", err)
	}

	return nodes, nil
}

func listTemplateEdges(ctx context.Context, q querier, logger *slog.Logger, templateID string) ([]*models.TemplateEdge, error) {
	query := `
		SELECT
			id
		  , template_id
		  , source_node_id
		  , target_node_id
		FROM template_edges
		WHERE template_id = $1
		ORDER BY position, id
	`

	rows, err := q.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template edges: %w", err)
	}

	defer closeRows(ctx, logger, rows)

	edges := make([]*models.TemplateEdge, 0)

	for rows.Next() {
		var edge models.TemplateEdge

		err := rows.Scan(&edge.ID, &edge.TemplateID, &edge.Source, &edge.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template edge: %w", err)
		}

		edges = append(edges, &edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating template edges: %w", err)
	}

	return edges, nil
}
