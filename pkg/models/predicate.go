package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Predicate is a single comparison clause guarding a branch path or a filter.
type Predicate struct {
	Attribute string `json:"attribute"        yaml:"attribute"`
	Operator  string `json:"operator"         yaml:"operator"`
	Value1    any    `json:"value1,omitempty" yaml:"value1,omitempty"`
	Value2    any    `json:"value2,omitempty" yaml:"value2,omitempty"`
}

// PredicateSet is the named guard persisted against one outgoing branch edge.
type PredicateSet struct {
	Name       string      `json:"name"       yaml:"name"`
	Predicates []Predicate `json:"predicates" yaml:"predicates"`
}

// operatorNames translates authored operator symbols into their canonical names.
var operatorNames = map[string]string{
	"=":           "EQ",
	"==":          "EQ",
	"EQ":          "EQ",
	"!=":          "NEQ",
	"<>":          "NEQ",
	"NEQ":         "NEQ",
	">":           "GT",
	"GT":          "GT",
	">=":          "GTE",
	"GTE":         "GTE",
	"<":           "LT",
	"LT":          "LT",
	"<=":          "LTE",
	"LTE":         "LTE",
	"BETWEEN":     "BETWEEN",
	"NOT BETWEEN": "NOT_BETWEEN",
	"NOT_BETWEEN": "NOT_BETWEEN",
	"IN":          "IN",
	"NOT IN":      "NOT_IN",
	"NOT_IN":      "NOT_IN",
	"CONTAINS":    "CONTAINS",
	"STARTS WITH": "STARTS_WITH",
	"STARTS_WITH": "STARTS_WITH",
	"ENDS WITH":   "ENDS_WITH",
	"ENDS_WITH":   "ENDS_WITH",
	"IS NULL":     "IS_NULL",
	"IS_NULL":     "IS_NULL",
}

// CanonicalOperator returns the canonical operator name and whether the symbol was known.
// Unknown operators are returned unchanged.
func CanonicalOperator(op string) (string, bool) {
	key := strings.ToUpper(strings.Join(strings.Fields(op), " "))

	name, ok := operatorNames[key]
	if !ok {
		return op, false
	}

	return name, true
}

// IsBetweenOperator reports whether the operator takes a lower and an upper bound.
func IsBetweenOperator(op string) bool {
	name, _ := CanonicalOperator(op)

	return name == "BETWEEN" || name == "NOT_BETWEEN"
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}

	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	return false
}

// Validate checks the value-count rules of the operator: the BETWEEN family needs
// value1 and value2, every other operator needs value1.
func (p Predicate) Validate() error {
	if strings.TrimSpace(p.Attribute) == "" {
		return errors.New("predicate attribute is required")
	}

	if strings.TrimSpace(p.Operator) == "" {
		return errors.New("predicate operator is required")
	}

	if isEmptyValue(p.Value1) {
		return fmt.Errorf("operator %s requires value1", p.Operator)
	}

	if IsBetweenOperator(p.Operator) && isEmptyValue(p.Value2) {
		return fmt.Errorf("operator %s requires value1 and value2", p.Operator)
	}

	return nil
}

// Canonical returns a copy with the operator translated to its canonical name.
func (p Predicate) Canonical() Predicate {
	p.Operator, _ = CanonicalOperator(p.Operator)

	return p
}

// DecodePredicateSet reads a {"name", "predicates"} map as authored in the editor.
func DecodePredicateSet(raw any) (PredicateSet, error) {
	var set PredicateSet

	data, err := json.Marshal(raw)
	if err != nil {
		return set, fmt.Errorf("failed to encode branch entry: %w", err)
	}

	if err := json.Unmarshal(data, &set); err != nil {
		return set, fmt.Errorf("invalid branch entry: %w", err)
	}

	return set, nil
}

// DecodePredicates reads a list of predicate maps.
func DecodePredicates(raw any) ([]Predicate, error) {
	var predicates []Predicate

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode predicates: %w", err)
	}

	if err := json.Unmarshal(data, &predicates); err != nil {
		return nil, fmt.Errorf("invalid predicates: %w", err)
	}

	return predicates, nil
}

// DecodePredicateSets reads an ordered list of {"name", "predicates"} maps.
func DecodePredicateSets(raw any) ([]PredicateSet, error) {
	var sets []PredicateSet

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode branches: %w", err)
	}

	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("invalid branches: %w", err)
	}

	return sets, nil
}
