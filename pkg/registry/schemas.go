package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnregisteredKind is returned for kinds with no spec.
var ErrUnregisteredKind = errors.New("node kind not registered")

// ValidateConfig checks an authored config against the kind's schema.
func (r *Registry) ValidateConfig(kind models.NodeKind, config map[string]any) error {
	e, ok := r.entries[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredKind, kind)
	}

	if e.schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := e.schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(details, "; "))
	}

	return nil
}

var predicateSchema = map[string]any{
	"type":     "object",
	"required": []string{"attribute", "operator"},
	"properties": map[string]any{
		"attribute": map[string]any{"type": "string", "minLength": 1},
		"operator":  map[string]any{"type": "string", "minLength": 1},
	},
}

// timeWindowSchema accepts a label ("Last Quarter") or {"type": "custom", "start", "end"}.
var timeWindowSchema = map[string]any{
	"oneOf": []any{
		map[string]any{"type": "string", "minLength": 1},
		map[string]any{
			"type":     "object",
			"required": []string{"type"},
			"properties": map[string]any{
				"type":  map[string]any{"type": "string"},
				"start": map[string]any{"type": "string"},
				"end":   map[string]any{"type": "string"},
			},
		},
	},
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}
