package deployment

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// StartSettings are the fields every Start node must carry.
type StartSettings struct {
	ActionName string `json:"actionName" validate:"required"`
	Schedule   string `json:"schedule"   validate:"required,cron"`
	Timezone   string `json:"timezone"   validate:"omitempty,timezone"`
}

// GraphValidator checks an authored graph without touching persistence.
type GraphValidator struct {
	registry *registry.Registry
	validate *validator.Validate
	now      func() time.Time
}

// NewGraphValidator checks time windows against now. A nil now means time.Now.
func NewGraphValidator(reg *registry.Registry, now func() time.Time) *GraphValidator {
	if now == nil {
		now = time.Now
	}

	return &GraphValidator{
		registry: reg,
		validate: NewStructValidator(),
		now:      now,
	}
}

// NewStructValidator returns a validator that reports JSON field names and
// understands the "cron" tag.
func NewStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := v.RegisterValidation("cron", validateCron); err != nil {
		panic(err)
	}

	return v
}

func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())

	return err == nil
}

// Validate collects every problem in graph. It returns a *ValidationError or nil.
func (v *GraphValidator) Validate(graph *models.Graph, status models.WorkflowStatus) error {
	var issues []ValidationIssue

	if !status.Valid() {
		issues = append(issues, ValidationIssue{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)})
	}

	if graph == nil || len(graph.Nodes) == 0 {
		issues = append(issues, ValidationIssue{Reason: "graph has no nodes"})

		return &ValidationError{Issues: issues}
	}

	if slices.Contains(graph.Nodes, nil) || slices.Contains(graph.Edges, nil) {
		issues = append(issues, ValidationIssue{Reason: "graph contains empty nodes or edges"})

		return &ValidationError{Issues: issues}
	}

	issues = append(issues, v.structIssues("", graph)...)

	kinds := make(map[string]models.NodeKind, len(graph.Nodes))

	for _, node := range graph.Nodes {
		if node.ID == "" {
			continue
		}

		if _, dup := kinds[node.ID]; dup {
			issues = append(issues, ValidationIssue{NodeID: node.ID, Reason: "duplicate node id"})

			continue
		}

		kind, err := node.Kind()
		if err != nil {
			kinds[node.ID] = ""

			if node.Label != "" {
				issues = append(issues, ValidationIssue{NodeID: node.ID, Field: "label", Reason: err.Error()})
			}

			continue
		}

		kinds[node.ID] = kind
	}

	for _, edge := range graph.Edges {
		for _, endpoint := range []string{edge.Source, edge.Target} {
			if _, ok := kinds[endpoint]; endpoint != "" && !ok {
				issues = append(issues, ValidationIssue{
					Field:  "edges",
					Reason: fmt.Sprintf("edge %s references unknown node %s", edge.ID, endpoint),
				})
			}
		}
	}

	switch starts := graph.NodesOfKind(models.NodeKindStart); len(starts) {
	case 0:
		issues = append(issues, ValidationIssue{Reason: "graph has no Start node"})
	case 1:
		issues = append(issues, v.startIssues(starts[0])...)
	default:
		issues = append(issues, ValidationIssue{Reason: fmt.Sprintf("graph has %d Start nodes, expected one", len(starts))})
	}

	for _, node := range graph.Nodes {
		if kind := kinds[node.ID]; kind != "" && !kind.IsPlaceholder() {
			issues = append(issues, v.nodeIssues(graph, node, kind)...)
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}

	return nil
}

func (v *GraphValidator) nodeIssues(graph *models.Graph, node *models.GraphNode, kind models.NodeKind) []ValidationIssue {
	var issues []ValidationIssue

	if err := v.registry.ValidateConfig(kind, node.Config); err != nil {
		issues = append(issues, ValidationIssue{NodeID: node.ID, Field: "config", Reason: err.Error()})
	}

	spec, _ := v.registry.Lookup(kind)

	if raw, ok := node.Config[timeWindowField]; ok && spec.TimeWindow {
		if err := resolveTimeWindow(map[string]any{timeWindowField: raw}, v.now()); err != nil {
			issues = append(issues, ValidationIssue{NodeID: node.ID, Field: timeWindowField, Reason: err.Error()})
		}
	}

	switch kind {
	case models.NodeKindFilter:
		if raw, ok := node.Config[predicatesField]; ok {
			predicates, err := models.DecodePredicates(raw)
			if err != nil {
				issues = append(issues, ValidationIssue{NodeID: node.ID, Field: predicatesField, Reason: err.Error()})

				break
			}

			issues = append(issues, predicateIssues(node.ID, "", predicates)...)
		}
	case models.NodeKindBranch:
		branches, err := AuthoredBranches(graph, node)
		if err != nil {
			issues = append(issues, ValidationIssue{NodeID: node.ID, Field: branchesField, Reason: err.Error()})

			break
		}

		for i, branch := range branches {
			field := fmt.Sprintf("%s[%d]", branchesField, i)

			if strings.TrimSpace(branch.Name) == "" {
				issues = append(issues, ValidationIssue{NodeID: node.ID, Field: field, Reason: "branch name is required"})
			}

			issues = append(issues, predicateIssues(node.ID, field, branch.Predicates)...)
		}
	}

	return issues
}

func (v *GraphValidator) startIssues(node *models.GraphNode) []ValidationIssue {
	settings := StartSettings{
		ActionName: stringField(node.Config, "actionName"),
		Schedule:   stringField(node.Config, "schedule"),
		Timezone:   stringField(node.Config, "timezone"),
	}

	var issues []ValidationIssue

	for _, issue := range v.structIssues(node.ID, settings) {
		issue.Field = strings.TrimPrefix(issue.Field, "StartSettings.")
		issues = append(issues, issue)
	}

	return issues
}

func (v *GraphValidator) structIssues(nodeID string, s any) []ValidationIssue {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationIssue{{NodeID: nodeID, Reason: err.Error()}}
	}

	issues := make([]ValidationIssue, 0, len(fieldErrors))

	for _, fe := range fieldErrors {
		issues = append(issues, ValidationIssue{
			NodeID: nodeID,
			Field:  strings.TrimPrefix(fe.Namespace(), "Graph."),
			Reason: tagReason(fe),
		})
	}

	return issues
}

func tagReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "cron":
		return fmt.Sprintf("%q is not a valid cron expression", fe.Value())
	case "timezone":
		return fmt.Sprintf("%q is not a known time zone", fe.Value())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}

func predicateIssues(nodeID, field string, predicates []models.Predicate) []ValidationIssue {
	var issues []ValidationIssue

	prefix := predicatesField
	if field != "" {
		prefix = field + "." + predicatesField
	}

	for i, predicate := range predicates {
		if err := predicate.Validate(); err != nil {
			issues = append(issues, ValidationIssue{
				NodeID: nodeID,
				Field:  fmt.Sprintf("%s[%d]", prefix, i),
				Reason: err.Error(),
			})
		}
	}

	return issues
}

func stringField(config map[string]any, key string) string {
	s, _ := config[key].(string)

	return strings.TrimSpace(s)
}
