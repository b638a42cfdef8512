package registry

import "github.com/dukex/flowforge/pkg/models"

// Settings tables written by the built-in kinds.
const (
	TableStartSettings             = "start_settings"
	TableEnrichSettings            = "enrich_settings"
	TableFilterSettings            = "filter_settings"
	TableBranchSettings            = "branch_settings"
	TableLeadScoreSettings         = "lead_score_settings"
	TableAggregateSettings         = "aggregate_settings"
	TableFxExposureSettings        = "fx_exposure_settings"
	TableEmailNotificationSettings = "email_notification_settings"
	TableSlackNotificationSettings = "slack_notification_settings"
)

// SettingsTables lists the tables stores accept settings rows for.
var SettingsTables = []string{
	TableStartSettings,
	TableEnrichSettings,
	TableFilterSettings,
	TableBranchSettings,
	TableLeadScoreSettings,
	TableAggregateSettings,
	TableFxExposureSettings,
	TableEmailNotificationSettings,
	TableSlackNotificationSettings,
}

// RegisterDefaultNodes registers every built-in node kind.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindStart,
		Name:  "Start",
		Table: TableStartSettings,
		Fields: map[string]string{
			"actionName":  "action_name",
			"schedule":    "cron_expression",
			"timezone":    "time_zone",
			"description": "description",
			"audience":    "target_audience",
		},
		Schema: objectSchema(map[string]any{
			"actionName": map[string]any{"type": "string"},
			"schedule":   map[string]any{"type": "string"},
			"timezone":   map[string]any{"type": "string"},
		}),
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindEnrich,
		Name:  "Enrich",
		Table: TableEnrichSettings,
		Fields: map[string]string{
			"source":    "data_source",
			"fields":    "enrich_fields",
			"matchKey":  "match_key",
			"startDate": "window_start",
			"endDate":   "window_end",
		},
		Schema: objectSchema(map[string]any{
			"source":     map[string]any{"type": "string"},
			"fields":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"timeWindow": timeWindowSchema,
		}),
		TimeWindow: true,
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindFilter,
		Name:  "Filter",
		Table: TableFilterSettings,
		Fields: map[string]string{
			"predicates": "conditions",
			"combinator": "match_mode",
		},
		Schema: objectSchema(map[string]any{
			"predicates": map[string]any{"type": "array", "items": predicateSchema},
			"combinator": map[string]any{"type": "string", "enum": []string{"AND", "OR", "and", "or"}},
		}),
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindBranch,
		Name:  "Branch",
		Table: TableBranchSettings,
		Fields: map[string]string{
			"label":        "branch_label",
			"defaultPath":  "default_path",
			"branchCount":  "branch_count",
			"evaluateMode": "evaluate_mode",
		},
		Schema: objectSchema(map[string]any{
			"branches": map[string]any{
				"type": "array",
				"items": objectSchema(map[string]any{
					"name":       map[string]any{"type": "string"},
					"predicates": map[string]any{"type": "array", "items": predicateSchema},
				}, "name"),
			},
		}),
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindLeadScore,
		Name:  "Lead Score",
		Table: TableLeadScoreSettings,
		Fields: map[string]string{
			"model":     "scoring_model",
			"threshold": "score_threshold",
			"weights":   "attribute_weights",
			"startDate": "window_start",
			"endDate":   "window_end",
		},
		Schema: objectSchema(map[string]any{
			"model":      map[string]any{"type": "string"},
			"threshold":  map[string]any{"type": "number"},
			"weights":    map[string]any{"type": "object"},
			"timeWindow": timeWindowSchema,
		}),
		TimeWindow: true,
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindAggregate,
		Name:  "Aggregate",
		Table: TableAggregateSettings,
		Fields: map[string]string{
			"groupBy":   "group_by",
			"metric":    "metric_name",
			"function":  "aggregate_function",
			"startDate": "period_start",
			"endDate":   "period_end",
		},
		Schema: objectSchema(map[string]any{
			"groupBy":    map[string]any{"type": []string{"string", "array"}},
			"metric":     map[string]any{"type": "string"},
			"function":   map[string]any{"type": "string", "enum": []string{"sum", "avg", "min", "max", "count"}},
			"timeWindow": timeWindowSchema,
		}),
		TimeWindow: true,
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindFxExposure,
		Name:  "FX Exposure",
		Table: TableFxExposureSettings,
		Fields: map[string]string{
			"baseCurrency": "base_currency",
			"currencies":   "currency_pairs",
			"hedgeRatio":   "hedge_ratio",
			"startDate":    "exposure_start",
			"endDate":      "exposure_end",
		},
		Schema: objectSchema(map[string]any{
			"baseCurrency": map[string]any{"type": "string", "pattern": "^[A-Z]{3}$"},
			"currencies":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"hedgeRatio":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"timeWindow":   timeWindowSchema,
		}),
		TimeWindow: true,
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindEmailNotification,
		Name:  "Email Notification",
		Table: TableEmailNotificationSettings,
		Fields: map[string]string{
			"recipients": "to_addresses",
			"subject":    "subject_line",
			"body":       "message_body",
		},
		Schema: objectSchema(map[string]any{
			"recipients": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"subject":    map[string]any{"type": "string"},
			"body":       map[string]any{"type": "string"},
		}),
	})

	r.RegisterNode(NodeSpec{
		Kind:  models.NodeKindSlackNotification,
		Name:  "Slack Notification",
		Table: TableSlackNotificationSettings,
		Fields: map[string]string{
			"channel":    "slack_channel",
			"message":    "message_text",
			"webhookUrl": "webhook_url",
		},
		Schema: objectSchema(map[string]any{
			"channel":    map[string]any{"type": "string"},
			"message":    map[string]any{"type": "string"},
			"webhookUrl": map[string]any{"type": "string"},
		}),
	})

	// Cosmetic kinds: kept in the template for layout, no settings row.
	r.RegisterNode(NodeSpec{Kind: models.NodeKindWait, Name: "Wait"})
	r.RegisterNode(NodeSpec{Kind: models.NodeKindNote, Name: "Note"})
}
