package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// WorkflowRepository reads back deployed workflows.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowRun, error) {
	query := `
		SELECT
			id
		  , template_id
		  , user_id
		  , status
		  , created_at
		FROM workflows
		WHERE id = $1
	`

	var run models.WorkflowRun

	err := r.db.QueryRowContext(ctx, query, workflowID).Scan(
		&run.ID, &run.TemplateID, &run.UserID, &run.Status, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetWorkflow", workflowID, persistence.ErrWorkflowNotFound)
		}

		// A malformed UUID can never match a stored workflow.
		if pqCode(err) == invalidTextRepresentation {
			return nil, persistence.NewWorkflowError("GetWorkflow", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	run.CreatedAt = run.CreatedAt.UTC()

	return &run, nil
}

// ListSettings returns every settings row of the workflow across all settings tables.
func (r *WorkflowRepository) ListSettings(ctx context.Context, workflowID string) ([]*models.NodeSettingsRecord, error) {
	selects := make([]string, 0, len(settingsTables))
	for _, table := range settingsTables {
		selects = append(selects, fmt.Sprintf(
			`SELECT id, '%[1]s' AS table_name, workflow_id, template_node_id, settings, created_at FROM %[1]s WHERE workflow_id = $1`,
			table))
	}

	query := strings.Join(selects, "\nUNION ALL\n") + "\nORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	records := make([]*models.NodeSettingsRecord, 0)

	for rows.Next() {
		var (
			record       models.NodeSettingsRecord
			settingsJSON []byte
		)

		err := rows.Scan(&record.ID, &record.Table, &record.WorkflowID, &record.TemplateNodeID, &settingsJSON, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}

		err = json.Unmarshal(settingsJSON, &record.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}

		record.CreatedAt = record.CreatedAt.UTC()
		records = append(records, &record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return records, nil
}

func (r *WorkflowRepository) ListEdgeConfigurations(ctx context.Context, workflowID string) ([]*models.EdgeConfiguration, error) {
	query := `
		SELECT
			id
		  , template_edge_id
		  , workflow_id
		  , name
		  , predicates
		  , created_at
		FROM edge_configurations
		WHERE workflow_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edge configurations: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	configs := make([]*models.EdgeConfiguration, 0)

	for rows.Next() {
		var (
			config         models.EdgeConfiguration
			predicatesJSON []byte
		)

		err := rows.Scan(&config.ID, &config.TemplateEdgeID, &config.WorkflowID, &config.Name, &predicatesJSON, &config.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge configuration: %w", err)
		}

		err = json.Unmarshal(predicatesJSON, &config.Predicates)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal predicates: %w", err)
		}

		config.CreatedAt = config.CreatedAt.UTC()
		configs = append(configs, &config)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating edge configurations: %w", err)
	}

	return configs, nil
}
