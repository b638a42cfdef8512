package postgresql

import (
	"fmt"
	"strings"

	"github.com/dukex/flowforge/pkg/registry"
)

var settingsTables = registry.SettingsTables

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE template_nodes (
				id VARCHAR(255) PRIMARY KEY,
				template_id VARCHAR(255) NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
				type_name VARCHAR(255) NOT NULL,
				ordinal INTEGER NOT NULL DEFAULT 1,
				position INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_template_nodes_template_id ON template_nodes(template_id);

			CREATE TABLE template_edges (
				id VARCHAR(255) PRIMARY KEY,
				template_id VARCHAR(255) NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
				source_node_id VARCHAR(255) NOT NULL REFERENCES template_nodes(id),
				target_node_id VARCHAR(255) NOT NULL REFERENCES template_nodes(id),
				position INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_template_edges_template_id ON template_edges(template_id);

			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				template_id VARCHAR(255) NOT NULL REFERENCES templates(id),
				user_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_template_id ON workflows(template_id);
			CREATE INDEX idx_workflows_user_id ON workflows(user_id);
		`,
		2: settingsMigration(),
	}
}

func settingsMigration() string {
	var b strings.Builder

	for _, table := range settingsTables {
		fmt.Fprintf(&b, `
			CREATE TABLE %[1]s (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				template_node_id VARCHAR(255) NOT NULL REFERENCES template_nodes(id),
				settings JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, template_node_id)
			);
		`, table)
	}

	b.WriteString(`
			CREATE TABLE edge_configurations (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				template_edge_id VARCHAR(255) NOT NULL REFERENCES template_edges(id),
				name VARCHAR(255) NOT NULL,
				predicates JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, template_edge_id)
			);

			CREATE INDEX idx_edge_configurations_workflow_id ON edge_configurations(workflow_id);
	`)

	return b.String()
}
