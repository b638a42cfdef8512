package deployment

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/timewindow"
)

const (
	timeWindowField = "timeWindow"
	startDateField  = "startDate"
	endDateField    = "endDate"
	predicatesField = "predicates"
)

// SettingsWrite is one settings row waiting to be inserted.
type SettingsWrite struct {
	Table          string
	TemplateNodeID string
	Payload        map[string]any
}

// Dispatcher turns an authored node config into the settings row of its kind.
type Dispatcher struct {
	logger   *slog.Logger
	registry *registry.Registry
}

func NewDispatcher(logger *slog.Logger, reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With("module", "dispatcher"),
		registry: reg,
	}
}

// Dispatch builds the settings write for node. It returns nil for kinds that have
// no settings table. The authored config is never modified.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	node *models.TemplateNode,
	kind models.NodeKind,
	config map[string]any,
	now time.Time,
) (*SettingsWrite, error) {
	spec, ok := d.registry.Lookup(kind)
	if !ok {
		return nil, &MalformedTemplateError{
			TemplateID: node.TemplateID,
			Reason:     "no settings handler for node type " + string(kind),
			NodeIDs:    []string{node.ID},
		}
	}

	if !spec.HasSettings() {
		d.logger.DebugContext(ctx, "Node kind has no settings, skipping",
			"template_node_id", node.ID,
			"kind", kind)

		return nil, nil
	}

	payload := maps.Clone(config)
	if payload == nil {
		payload = make(map[string]any)
	}

	if spec.TimeWindow {
		if err := resolveTimeWindow(payload, now); err != nil {
			return nil, &ValidationError{Issues: []ValidationIssue{{
				NodeID: node.ID,
				Field:  timeWindowField,
				Reason: err.Error(),
			}}}
		}
	}

	if kind == models.NodeKindFilter {
		if err := d.canonicalizePredicates(ctx, node, payload); err != nil {
			return nil, err
		}
	}

	return &SettingsWrite{
		Table:          spec.Table,
		TemplateNodeID: node.ID,
		Payload:        spec.TranslateFields(payload),
	}, nil
}

// resolveTimeWindow writes startDate and endDate for an authored timeWindow.
func resolveTimeWindow(payload map[string]any, now time.Time) error {
	raw, ok := payload[timeWindowField]
	if !ok || raw == nil {
		return nil
	}

	window, err := timewindow.FromConfig(raw, now)
	if err != nil {
		return err
	}

	payload[startDateField] = window.StartDate()
	payload[endDateField] = window.EndDate()

	return nil
}

func (d *Dispatcher) canonicalizePredicates(ctx context.Context, node *models.TemplateNode, payload map[string]any) error {
	raw, ok := payload[predicatesField]
	if !ok {
		return nil
	}

	predicates, err := models.DecodePredicates(raw)
	if err != nil {
		return &ValidationError{Issues: []ValidationIssue{{
			NodeID: node.ID,
			Field:  predicatesField,
			Reason: err.Error(),
		}}}
	}

	payload[predicatesField] = canonicalPredicates(ctx, d.logger, node.ID, predicates)

	return nil
}

func canonicalPredicates(ctx context.Context, logger *slog.Logger, nodeID string, predicates []models.Predicate) []models.Predicate {
	out := make([]models.Predicate, 0, len(predicates))

	for _, predicate := range predicates {
		if _, known := models.CanonicalOperator(predicate.Operator); !known {
			logger.WarnContext(ctx, "Unknown predicate operator, passing through",
				"template_node_id", nodeID,
				"attribute", predicate.Attribute,
				"operator", predicate.Operator)
		}

		out = append(out, predicate.Canonical())
	}

	return out
}
