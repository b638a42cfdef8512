package services

import (
	"context"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

type Template struct {
	persistence persistence.Persistence
}

// NewTemplate creates a new template service.
func NewTemplate(persistence persistence.Persistence) *Template {
	return &Template{persistence: persistence}
}

// Import stores template under templateID, replacing any previous version.
func (t *Template) Import(ctx context.Context, templateID string, template *models.Template) (*models.Template, error) {
	if template == nil {
		return nil, NewValidationError("Import", CodeInvalidRequest, "template body is required", ErrInvalidRequest)
	}

	if template.ID == "" {
		template.ID = templateID
	}

	if templateID != "" && template.ID != templateID {
		return nil, NewValidationError("Import", CodeInvalidRequest,
			"template id in body does not match the path", ErrInvalidRequest)
	}

	if strings.TrimSpace(template.Name) == "" {
		template.Name = template.ID
	}

	err := t.persistence.TemplateRepository().SaveTemplate(ctx, template)
	if err != nil {
		return nil, storeError("Import", err)
	}

	return t.Get(ctx, template.ID)
}

func (t *Template) Get(ctx context.Context, templateID string) (*models.Template, error) {
	template, err := t.persistence.TemplateRepository().GetTemplate(ctx, templateID)
	if err != nil {
		return nil, storeError("GetTemplate", err)
	}

	return template, nil
}
