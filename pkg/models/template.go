package models

// Template is the reusable node/edge skeleton shared by all deployments of a workflow kind.
type Template struct {
	ID    string          `json:"id"    yaml:"id"`
	Name  string          `json:"name"  yaml:"name"`
	Nodes []*TemplateNode `json:"nodes" yaml:"nodes"`
	Edges []*TemplateEdge `json:"edges" yaml:"edges"`
}

// TemplateNode is the persisted identity a node instance resolves to.
// Ordinal disambiguates repeated node types inside one template.
type TemplateNode struct {
	ID         string `json:"id"          yaml:"id"`
	TemplateID string `json:"template_id" yaml:"template_id"`
	TypeName   string `json:"type_name"   yaml:"type_name"`
	Ordinal    int    `json:"ordinal"     yaml:"ordinal"`
}

// CanonicalTypeName is the type name without its "_N" suffix.
func (n *TemplateNode) CanonicalTypeName() string {
	return CanonicalTypeName(n.TypeName)
}

// Kind returns the parsed node kind of the template node.
func (n *TemplateNode) Kind() (NodeKind, error) {
	return ParseNodeKind(n.TypeName)
}

// TemplateEdge is a persisted directed edge between two template nodes.
type TemplateEdge struct {
	ID         string `json:"id"          yaml:"id"`
	TemplateID string `json:"template_id" yaml:"template_id"`
	Source     string `json:"source"      yaml:"source"`
	Target     string `json:"target"      yaml:"target"`
}
