package deployment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/stretchr/testify/assert"
)

func TestCategoryAndRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       error
		category  string
		retryable bool
	}{
		{&deployment.ValidationError{Issues: []deployment.ValidationIssue{{Reason: "x"}}}, "validation", false},
		{&deployment.ResolutionMismatchError{TypeName: "filter"}, "resolution_mismatch", false},
		{&deployment.MalformedTemplateError{TemplateID: "tpl"}, "malformed_template", false},
		{&deployment.BranchCardinalityMismatchError{}, "branch_cardinality_mismatch", false},
		{&deployment.PersistenceError{Op: "InsertSettings", Err: errors.New("conn reset")}, "persistence", true},
		{fmt.Errorf("%w: tpl", deployment.ErrDeploymentInProgress), "deployment_in_progress", true},
		{fmt.Errorf("%w: %w", deployment.ErrDeploymentCancelled, context.Canceled), "cancelled", false},
		{errors.New("other"), "unknown", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.category, deployment.Category(tt.err), tt.err.Error())
		assert.Equal(t, tt.retryable, deployment.IsRetryable(tt.err), tt.err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	verr := &deployment.ValidationError{Issues: []deployment.ValidationIssue{
		{NodeID: "n-start", Field: "actionName", Reason: "is required"},
		{Reason: "graph has no Start node"},
	}}
	assert.Equal(t, "validation failed: node n-start: actionName: is required; graph has no Start node", verr.Error())

	mismatch := &deployment.ResolutionMismatchError{TypeName: "filter", Persisted: 2, Authored: 1}
	assert.Equal(t, `graph does not match template: template has 2 "filter" node(s), graph has 1`, mismatch.Error())

	malformed := &deployment.MalformedTemplateError{TemplateID: "tpl", Reason: "template has multiple root nodes", NodeIDs: []string{"a", "b"}}
	assert.Equal(t, "malformed template tpl: template has multiple root nodes (a, b)", malformed.Error())
}
