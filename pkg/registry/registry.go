// Package registry holds the per-kind node specifications: settings table,
// field translation table, config schema and time-window handling.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// NodeSpec describes how one node kind is persisted.
type NodeSpec struct {
	Kind models.NodeKind
	Name string

	// Table is the settings table. Kinds without a table are cosmetic and
	// produce no settings row.
	Table string

	// Fields translates authored config keys into persisted column names.
	// Keys not listed pass through unchanged.
	Fields map[string]string

	// Schema is the JSON schema the authored config must satisfy.
	Schema map[string]any

	// TimeWindow marks kinds whose "timeWindow" config is resolved to concrete
	// dates at deployment time.
	TimeWindow bool
}

// HasSettings reports whether the kind writes a settings row.
func (s NodeSpec) HasSettings() bool {
	return s.Table != ""
}

// TranslateFields returns a copy of payload with keys renamed through Fields.
func (s NodeSpec) TranslateFields(payload map[string]any) map[string]any {
	translated := make(map[string]any, len(payload))

	for key, value := range payload {
		if column, ok := s.Fields[key]; ok {
			translated[column] = value

			continue
		}

		translated[key] = value
	}

	return translated
}

type entry struct {
	spec   NodeSpec
	schema *gojsonschema.Schema
}

type Registry struct {
	logger  *slog.Logger
	entries map[models.NodeKind]entry
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:  log,
		entries: make(map[models.NodeKind]entry),
	}
}

// NewDefaultRegistry returns a registry with every built-in kind registered.
func NewDefaultRegistry(log *slog.Logger) *Registry {
	r := NewRegistry(log)
	r.RegisterDefaultNodes()

	return r
}

// RegisterNode adds or replaces the spec for a kind. The schema is compiled eagerly
// so a broken schema fails at startup.
func (r *Registry) RegisterNode(spec NodeSpec) {
	var compiled *gojsonschema.Schema

	if spec.Schema != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Schema))
		if err != nil {
			panic(fmt.Errorf("invalid schema for node kind %s: %w", spec.Kind, err))
		}

		compiled = schema
	}

	r.entries[spec.Kind] = entry{spec: spec, schema: compiled}
}

// Lookup returns the spec registered for kind.
func (r *Registry) Lookup(kind models.NodeKind) (NodeSpec, bool) {
	e, ok := r.entries[kind]

	return e.spec, ok
}

// Tables returns the distinct settings tables, sorted.
func (r *Registry) Tables() []string {
	tables := make([]string, 0, len(r.entries))

	for _, e := range r.entries {
		if e.spec.HasSettings() && !slices.Contains(tables, e.spec.Table) {
			tables = append(tables, e.spec.Table)
		}
	}

	slices.Sort(tables)

	return tables
}

// Missing returns the non-placeholder kinds that have no spec.
func (r *Registry) Missing() []models.NodeKind {
	var missing []models.NodeKind

	for _, kind := range models.NodeKinds {
		if kind.IsPlaceholder() {
			continue
		}

		if _, ok := r.entries[kind]; !ok {
			missing = append(missing, kind)
		}
	}

	return missing
}

func (r *Registry) HealthCheck() (string, bool) {
	missing := r.Missing()
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, kind := range missing {
			names = append(names, string(kind))
		}

		return "Registry is missing node kinds: " + strings.Join(names, ", "), false
	}

	return "Registry is healthy", true
}
