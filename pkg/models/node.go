// Package models defines the authored graph, persisted template and deployment records.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// NodeKind is the closed set of node types the editor can place on the canvas.
type NodeKind string

const (
	NodeKindStart             NodeKind = "start"
	NodeKindEnrich            NodeKind = "enrich"
	NodeKindFilter            NodeKind = "filter"
	NodeKindBranch            NodeKind = "branch"
	NodeKindLeadScore         NodeKind = "lead_score"
	NodeKindAggregate         NodeKind = "aggregate"
	NodeKindFxExposure        NodeKind = "fx_exposure"
	NodeKindEmailNotification NodeKind = "email_notification"
	NodeKindSlackNotification NodeKind = "slack_notification"
	NodeKindWait              NodeKind = "wait"
	NodeKindNote              NodeKind = "note"

	// NodeKindPlaceholder marks the floating "add node" marker. It never resolves
	// to a template node and never gets settings.
	NodeKindPlaceholder NodeKind = "placeholder"
)

// NodeKinds lists every kind, placeholder last.
var NodeKinds = []NodeKind{
	NodeKindStart,
	NodeKindEnrich,
	NodeKindFilter,
	NodeKindBranch,
	NodeKindLeadScore,
	NodeKindAggregate,
	NodeKindFxExposure,
	NodeKindEmailNotification,
	NodeKindSlackNotification,
	NodeKindWait,
	NodeKindNote,
	NodeKindPlaceholder,
}

// kindLabels maps normalized labels (see normalizeLabel) to kinds.
var kindLabels = map[string]NodeKind{
	"start":             NodeKindStart,
	"trigger":           NodeKindStart,
	"enrich":            NodeKindEnrich,
	"enrichment":        NodeKindEnrich,
	"filter":            NodeKindFilter,
	"branch":            NodeKindBranch,
	"condition":         NodeKindBranch,
	"leadscore":         NodeKindLeadScore,
	"leadscoring":       NodeKindLeadScore,
	"aggregate":         NodeKindAggregate,
	"fxexposure":        NodeKindFxExposure,
	"emailnotification": NodeKindEmailNotification,
	"email":             NodeKindEmailNotification,
	"slacknotification": NodeKindSlackNotification,
	"slack":             NodeKindSlackNotification,
	"wait":              NodeKindWait,
	"delay":             NodeKindWait,
	"note":              NodeKindNote,
	"placeholder":       NodeKindPlaceholder,
	"addnode":           NodeKindPlaceholder,
}

var ordinalSuffix = regexp.MustCompile(`_\d+$`)

// CanonicalTypeName strips the "_N" disambiguation suffix from a node type name.
// "Filter_2" and "Filter" share the canonical name "Filter".
func CanonicalTypeName(name string) string {
	return ordinalSuffix.ReplaceAllString(strings.TrimSpace(name), "")
}

func normalizeLabel(label string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "", ".", "")

	return replacer.Replace(strings.ToLower(CanonicalTypeName(label)))
}

// ParseNodeKind maps a human label such as "Lead Score" or "Filter_1" to its kind.
func ParseNodeKind(label string) (NodeKind, error) {
	kind, ok := kindLabels[normalizeLabel(label)]
	if !ok {
		return "", fmt.Errorf("unknown node type %q", label)
	}

	return kind, nil
}

// IsPlaceholder reports whether the kind is the non-semantic "add node" marker.
func (k NodeKind) IsPlaceholder() bool {
	return k == NodeKindPlaceholder
}

// Position is the canvas location of a node.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// GraphNode is one node instance placed in the authored graph.
type GraphNode struct {
	ID       string         `json:"id"                 yaml:"id"                 validate:"required"`
	Label    string         `json:"label"              yaml:"label"              validate:"required"`
	Order    *int           `json:"order,omitempty"    yaml:"order,omitempty"`
	Position Position       `json:"position"           yaml:"position"`
	Config   map[string]any `json:"config,omitempty"   yaml:"config,omitempty"`
}

// Kind returns the parsed kind of the node label.
func (n *GraphNode) Kind() (NodeKind, error) {
	return ParseNodeKind(n.Label)
}

// IsPlaceholder reports whether the node is a floating "add node" marker.
func (n *GraphNode) IsPlaceholder() bool {
	kind, err := n.Kind()

	return err == nil && kind.IsPlaceholder()
}

// CanonicalLabel is the label without any "_N" suffix.
func (n *GraphNode) CanonicalLabel() string {
	return CanonicalTypeName(n.Label)
}

// GraphEdge connects two authored nodes. Edges leaving a branch node carry
// {"name": ..., "predicates": [...]} in Config.
type GraphEdge struct {
	ID     string         `json:"id"               yaml:"id"`
	Source string         `json:"source"           yaml:"source"           validate:"required"`
	Target string         `json:"target"           yaml:"target"           validate:"required"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}
