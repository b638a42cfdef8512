// Package deployment compiles an authored workflow graph against its persisted
// template and writes the resulting workflow run, node settings and branch guards.
package deployment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by Deployer matches exactly one of them.
var (
	// ErrValidation marks missing or malformed authored fields. Nothing was persisted.
	ErrValidation = errors.New("validation failed")

	// ErrResolutionMismatch marks an authored graph whose per-type node counts
	// differ from the template's.
	ErrResolutionMismatch = errors.New("graph does not match template")

	// ErrMalformedTemplate marks a template with zero or several roots, cycles,
	// unreachable nodes or unknown node types.
	ErrMalformedTemplate = errors.New("malformed template")

	// ErrBranchCardinalityMismatch marks a branch node whose authored branches do not
	// match its outgoing edges one to one.
	ErrBranchCardinalityMismatch = errors.New("branch cardinality mismatch")

	// ErrPersistence marks a store failure. The only category worth retrying.
	ErrPersistence = errors.New("persistence failure")

	// ErrDeploymentInProgress marks a concurrent deployment of the same template.
	ErrDeploymentInProgress = errors.New("deployment already in progress for template")

	// ErrDeploymentCancelled marks a deployment stopped by its context.
	ErrDeploymentCancelled = errors.New("deployment cancelled")
)

// ValidationIssue is one problem found in the authored graph.
type ValidationIssue struct {
	NodeID string `json:"node_id,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (i ValidationIssue) String() string {
	switch {
	case i.NodeID != "" && i.Field != "":
		return fmt.Sprintf("node %s: %s: %s", i.NodeID, i.Field, i.Reason)
	case i.NodeID != "":
		return fmt.Sprintf("node %s: %s", i.NodeID, i.Reason)
	default:
		return i.Reason
	}
}

// ValidationError lists every issue found before persistence was contacted.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}

	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ResolutionMismatchError reports the first node type whose counts differ.
type ResolutionMismatchError struct {
	TypeName  string
	Persisted int
	Authored  int
}

func (e *ResolutionMismatchError) Error() string {
	return fmt.Sprintf("%v: template has %d %q node(s), graph has %d",
		ErrResolutionMismatch, e.Persisted, e.TypeName, e.Authored)
}

func (e *ResolutionMismatchError) Is(target error) bool {
	return target == ErrResolutionMismatch
}

// MalformedTemplateError reports a template that cannot be walked.
type MalformedTemplateError struct {
	TemplateID string
	Reason     string
	NodeIDs    []string
}

func (e *MalformedTemplateError) Error() string {
	msg := fmt.Sprintf("%v %s: %s", ErrMalformedTemplate, e.TemplateID, e.Reason)
	if len(e.NodeIDs) > 0 {
		msg += " (" + strings.Join(e.NodeIDs, ", ") + ")"
	}

	return msg
}

func (e *MalformedTemplateError) Is(target error) bool {
	return target == ErrMalformedTemplate
}

// BranchCardinalityMismatchError reports a branch whose edge and branch counts differ.
type BranchCardinalityMismatchError struct {
	TemplateNodeID string
	GraphNodeID    string
	Edges          int
	Branches       int
}

func (e *BranchCardinalityMismatchError) Error() string {
	return fmt.Sprintf("%v: branch node %s has %d outgoing edge(s) but %d authored branch(es)",
		ErrBranchCardinalityMismatch, e.GraphNodeID, e.Edges, e.Branches)
}

func (e *BranchCardinalityMismatchError) Is(target error) bool {
	return target == ErrBranchCardinalityMismatch
}

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v during %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// storeError reports a failed store call as a cancellation when ctx is done.
func storeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrDeploymentCancelled, ctxErr)
	}

	return persistenceError(op, err)
}

// IsRetryable reports whether retrying the same deployment may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrDeploymentInProgress)
}

func classified(err error) bool {
	for _, category := range []error{
		ErrValidation,
		ErrResolutionMismatch,
		ErrMalformedTemplate,
		ErrBranchCardinalityMismatch,
		ErrPersistence,
		ErrDeploymentInProgress,
		ErrDeploymentCancelled,
	} {
		if errors.Is(err, category) {
			return true
		}
	}

	return false
}

// Category names the error class for logs, events and API responses.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrResolutionMismatch):
		return "resolution_mismatch"
	case errors.Is(err, ErrMalformedTemplate):
		return "malformed_template"
	case errors.Is(err, ErrBranchCardinalityMismatch):
		return "branch_cardinality_mismatch"
	case errors.Is(err, ErrDeploymentInProgress):
		return "deployment_in_progress"
	case errors.Is(err, ErrDeploymentCancelled):
		return "cancelled"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}
