package models

import "time"

// NodeSettingsRecord is the node-type-specific settings row written for one
// (workflow, template node) pair.
type NodeSettingsRecord struct {
	ID             string         `json:"id"`
	Table          string         `json:"table"`
	WorkflowID     string         `json:"workflow_id"`
	TemplateNodeID string         `json:"template_node_id"`
	Payload        map[string]any `json:"payload"`
	CreatedAt      time.Time      `json:"created_at"`
}

// EdgeConfiguration is the branch guard persisted against one template edge of a workflow.
type EdgeConfiguration struct {
	ID             string      `json:"id"`
	TemplateEdgeID string      `json:"template_edge_id"`
	WorkflowID     string      `json:"workflow_id"`
	Name           string      `json:"name"`
	Predicates     []Predicate `json:"predicates"`
	CreatedAt      time.Time   `json:"created_at"`
}

// DeployedWorkflow is a run together with everything written for it.
type DeployedWorkflow struct {
	Workflow           *WorkflowRun          `json:"workflow"`
	Settings           []*NodeSettingsRecord `json:"settings"`
	EdgeConfigurations []*EdgeConfiguration  `json:"edge_configurations"`
}
