// Package services provides the application operations behind the HTTP API and the CLI.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/persistence"
)

// Error codes returned to API clients.
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeGraphTemplateMismatch  = "GRAPH_TEMPLATE_MISMATCH"
	CodeBranchMismatch         = "BRANCH_MISMATCH"
	CodeMalformedTemplate      = "MALFORMED_TEMPLATE"
	CodeDeploymentInProgress   = "DEPLOYMENT_IN_PROGRESS"
	CodeDeploymentCancelled    = "DEPLOYMENT_CANCELLED"
	CodePersistenceUnavailable = "PERSISTENCE_UNAVAILABLE"
	CodeTemplateNotFound       = "TEMPLATE_NOT_FOUND"
	CodeWorkflowNotFound       = "WORKFLOW_NOT_FOUND"
	CodeTemplateInUse          = "TEMPLATE_IN_USE"
	CodeInvalidTemplate        = "INVALID_TEMPLATE"
	CodeInternal               = "INTERNAL_ERROR"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Not found (404).
	ErrTemplateNotFound = persistence.ErrTemplateNotFound
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, deployment.ErrValidation) ||
		errors.Is(err, persistence.ErrInvalidTemplate)
}

// IsMismatchError checks if the graph cannot be paired with its template (HTTP 422).
func IsMismatchError(err error) bool {
	return errors.Is(err, deployment.ErrResolutionMismatch) ||
		errors.Is(err, deployment.ErrBranchCardinalityMismatch)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, deployment.ErrDeploymentInProgress) ||
		errors.Is(err, persistence.ErrTemplateInUse) ||
		persistence.IsDuplicate(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrWorkflowNotFound)
}

// IsUnavailableError checks if the caller may retry the same request later (HTTP 503).
func IsUnavailableError(err error) bool {
	return errors.Is(err, deployment.ErrPersistence) || errors.Is(err, deployment.ErrDeploymentCancelled)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// deploymentError turns a deployment failure into one actionable ServiceError.
func deploymentError(op string, err error) error {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}

	code, message := CodeInternal, err.Error()

	switch deployment.Category(err) {
	case "validation":
		code = CodeValidationFailed
		message = "the workflow graph is invalid: " + err.Error()
	case "resolution_mismatch":
		code = CodeGraphTemplateMismatch
		message = "the graph does not match its template: " + err.Error() +
			"; add or remove nodes so every node type appears as often as in the template"
	case "branch_cardinality_mismatch":
		code = CodeBranchMismatch
		message = err.Error() + "; define one branch per outgoing template edge"
	case "malformed_template":
		code = CodeMalformedTemplate
		message = "the stored template is malformed: " + err.Error() + "; re-import the template"
	case "deployment_in_progress":
		code = CodeDeploymentInProgress
		message = "another deployment of this template is running; retry when it finishes"
	case "cancelled":
		code = CodeDeploymentCancelled
		message = "the deployment was cancelled before it completed; nothing was committed"
	case "persistence":
		code = CodePersistenceUnavailable
		message = "storage is temporarily unavailable; retry the deployment"
	}

	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// storeError maps direct persistence failures of the read/write helpers.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrTemplateNotFound):
		return &ServiceError{Op: op, Code: CodeTemplateNotFound, Message: "template not found", Err: err}
	case errors.Is(err, ErrWorkflowNotFound):
		return &ServiceError{Op: op, Code: CodeWorkflowNotFound, Message: "workflow not found", Err: err}
	case errors.Is(err, persistence.ErrTemplateInUse):
		return &ServiceError{
			Op:      op,
			Code:    CodeTemplateInUse,
			Message: "deployed workflows reference nodes or edges this change removes; keep their ids",
			Err:     err,
		}
	case errors.Is(err, persistence.ErrInvalidTemplate):
		return &ServiceError{Op: op, Code: CodeInvalidTemplate, Message: err.Error(), Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
