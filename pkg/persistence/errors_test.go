package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		templateErr := persistence.NewTemplateError("GetTemplate", "tpl-1", persistence.ErrTemplateNotFound)
		workflowErr := persistence.NewWorkflowError("GetWorkflow", "wf-1", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsTemplateNotFound(templateErr))
		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.False(t, persistence.IsWorkflowNotFound(templateErr))

		assert.True(t, errors.Is(templateErr, persistence.ErrTemplateNotFound))
		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
	})

	t.Run("template error contains context", func(t *testing.T) {
		err := persistence.NewTemplateError("ListTemplateNodes", "tpl-9", persistence.ErrTemplateNotFound)

		assert.Contains(t, err.Error(), "ListTemplateNodes")
		assert.Contains(t, err.Error(), "tpl-9")
		assert.Contains(t, err.Error(), "template not found")
	})

	t.Run("workflow node error contains node", func(t *testing.T) {
		err := persistence.NewWorkflowNodeError("InsertSettings", "wf-1", "tn-3", persistence.ErrDuplicateSettings)

		assert.Contains(t, err.Error(), "tn-3")
		assert.Contains(t, err.Error(), "wf-1")
		assert.True(t, persistence.IsDuplicate(err))
	})

	t.Run("duplicate edge configuration", func(t *testing.T) {
		err := persistence.NewWorkflowNodeError("InsertEdgeConfiguration", "wf-1", "te-1", persistence.ErrDuplicateEdgeConfiguration)

		assert.True(t, persistence.IsDuplicate(err))
		assert.False(t, persistence.IsDuplicate(persistence.ErrUnknownSettingsTable))
	})
}
