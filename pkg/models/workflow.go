package models

import "time"

// WorkflowStatus represents the lifecycle state of a deployed workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Saved, not running
	WorkflowStatusActive   WorkflowStatus = "active"   // Deployed and running
	WorkflowStatusArchived WorkflowStatus = "archived" // Retired
)

// Valid reports whether the status is one of the known values.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusDraft, WorkflowStatusActive, WorkflowStatusArchived:
		return true
	default:
		return false
	}
}

// WorkflowRun is one deployed-or-drafted instantiation of a template.
// A re-deploy creates a new run; runs are never rewritten.
type WorkflowRun struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"template_id"`
	UserID     string         `json:"user_id"`
	Status     WorkflowStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
