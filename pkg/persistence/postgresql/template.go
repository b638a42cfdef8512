package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/lib/pq"
)

// TemplateRepository handles template-related database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

// SaveTemplate creates or replaces a template with its nodes and edges.
// Node and edge ids are stable: rows that disappear from the template are
// removed, which fails with ErrTemplateInUse once a deployment references them.
func (r *TemplateRepository) SaveTemplate(ctx context.Context, template *models.Template) error {
	err := persistence.CheckTemplate(template)
	if err != nil {
		return err
	}

	persistence.NormalizeTemplate(template)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rbErr)
		}
	}()

	err = r.saveTemplate(ctx, tx, template)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return persistence.NewTemplateError("SaveTemplate", template.ID, persistence.ErrTemplateInUse)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *TemplateRepository) saveTemplate(ctx context.Context, tx *sql.Tx, template *models.Template) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO templates (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
	`

	_, err := tx.ExecContext(ctx, query, template.ID, template.Name, now)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	nodeIDs := make([]string, 0, len(template.Nodes))
	for _, node := range template.Nodes {
		nodeIDs = append(nodeIDs, node.ID)
	}

	edgeIDs := make([]string, 0, len(template.Edges))
	for _, edge := range template.Edges {
		edgeIDs = append(edgeIDs, edge.ID)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM template_edges WHERE template_id = $1 AND NOT (id = ANY($2))`,
		template.ID, pq.Array(edgeIDs))
	if err != nil {
		return fmt.Errorf("failed to delete stale template edges: %w", err)
	}

	for position, node := range template.Nodes {
		query := `
			INSERT INTO template_nodes (id, template_id, type_name, ordinal, position)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				type_name = EXCLUDED.type_name,
				ordinal = EXCLUDED.ordinal,
				position = EXCLUDED.position
			WHERE template_nodes.template_id = EXCLUDED.template_id
		`

		result, err := tx.ExecContext(ctx, query, node.ID, template.ID, node.TypeName, node.Ordinal, position)
		if err != nil {
			return fmt.Errorf("failed to save template node %s: %w", node.ID, err)
		}

		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: node %s belongs to another template", persistence.ErrInvalidTemplate, node.ID)
		}
	}

	for position, edge := range template.Edges {
		query := `
			INSERT INTO template_edges (id, template_id, source_node_id, target_node_id, position)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				source_node_id = EXCLUDED.source_node_id,
				target_node_id = EXCLUDED.target_node_id,
				position = EXCLUDED.position
			WHERE template_edges.template_id = EXCLUDED.template_id
		`

		result, err := tx.ExecContext(ctx, query, edge.ID, template.ID, edge.Source, edge.Target, position)
		if err != nil {
			return fmt.Errorf("failed to save template edge %s: %w", edge.ID, err)
		}

		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: edge %s belongs to another template", persistence.ErrInvalidTemplate, edge.ID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM template_nodes WHERE template_id = $1 AND NOT (id = ANY($2))`,
		template.ID, pq.Array(nodeIDs))
	if err != nil {
		return fmt.Errorf("failed to delete stale template nodes: %w", err)
	}

	return nil
}

// GetTemplate returns a template with its nodes and edges in stored order.
func (r *TemplateRepository) GetTemplate(ctx context.Context, templateID string) (*models.Template, error) {
	query := `SELECT id, name FROM templates WHERE id = $1`

	var template models.Template

	err := r.db.QueryRowContext(ctx, query, templateID).Scan(&template.ID, &template.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTemplateError("GetTemplate", templateID, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	template.Nodes, err = listTemplateNodes(ctx, r.db, r.logger, templateID)
	if err != nil {
		return nil, err
	}

	template.Edges, err = listTemplateEdges(ctx, r.db, r.logger, templateID)
	if err != nil {
		return nil, err
	}

	return &template, nil
}
