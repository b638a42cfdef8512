// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTemplateNotFound indicates no template exists for the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrWorkflowNotFound indicates a workflow run was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUnknownSettingsTable indicates a settings write targeted a table the store does not manage.
	ErrUnknownSettingsTable = errors.New("unknown settings table")

	// ErrDuplicateSettings indicates a second settings row for the same (workflow, template node).
	ErrDuplicateSettings = errors.New("settings already written for node")

	// ErrDuplicateEdgeConfiguration indicates a second guard for the same (workflow, template edge).
	ErrDuplicateEdgeConfiguration = errors.New("edge configuration already written")

	// ErrInvalidTemplate indicates a template whose edges reference unknown nodes.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrTemplateInUse indicates a template change would drop nodes or edges deployed workflows point at.
	ErrTemplateInUse = errors.New("template in use by deployed workflows")
)

// TemplateError wraps template-related errors with additional context.
type TemplateError struct {
	Op         string // Operation being performed (e.g., "ListTemplateNodes", "SaveTemplate")
	TemplateID string // Template ID
	Err        error  // Underlying error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s operation failed for template %s: %v", e.Op, e.TemplateID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for template errors.
func (e *TemplateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTemplateError creates a new template error with context.
func NewTemplateError(op, templateID string, err error) *TemplateError {
	return &TemplateError{
		Op:         op,
		TemplateID: templateID,
		Err:        err,
	}
}

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "InsertSettings", "GetWorkflow")
	WorkflowID string // Workflow ID if applicable
	NodeID     string // Template node or edge ID if applicable
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s operation failed for %s in workflow %s: %v", e.Op, e.NodeID, e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// NewWorkflowNodeError creates a workflow error scoped to one template node or edge.
func NewWorkflowNodeError(op, workflowID, nodeID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Err:        err,
	}
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsDuplicate checks if an error indicates a settings or edge guard row was written twice.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateSettings) || errors.Is(err, ErrDuplicateEdgeConfiguration)
}

// IsTemplateInUse checks if a template change was refused because deployments reference it.
func IsTemplateInUse(err error) bool {
	return errors.Is(err, ErrTemplateInUse)
}
