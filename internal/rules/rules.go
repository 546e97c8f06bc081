// Package rules implements the conditional color rules that map a
// computed metric value to a display color. Rules are an ordered list and
// evaluation is first-match-wins; the order is semantically load-bearing
// and must survive edits and reordering, which is why the rule set is a
// slice and never a map.
package rules

import "fmt"

// Operator is a comparison operator in a threshold rule.
type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpBetween      Operator = "between"
)

// ParseOperator validates an operator string.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpNotEqual, OpBetween:
		return Operator(s), nil
	}
	return "", fmt.Errorf("unknown rule operator %q", s)
}

// Rule is one threshold comparison. Value2 is only meaningful for
// between; when absent, between degenerates to a point check against
// Value. Equality is strict float comparison with no epsilon.
type Rule struct {
	Op     Operator `json:"operator" koanf:"operator" yaml:"operator"`
	Value  float64  `json:"value" koanf:"value" yaml:"value"`
	Value2 *float64 `json:"value2,omitempty" koanf:"value2" yaml:"value2,omitempty"`
	Color  string   `json:"color" koanf:"color" yaml:"color"`
}

// Matches reports whether the rule's predicate holds for v.
func (r Rule) Matches(v float64) bool {
	switch r.Op {
	case OpGreater:
		return v > r.Value
	case OpGreaterEqual:
		return v >= r.Value
	case OpLess:
		return v < r.Value
	case OpLessEqual:
		return v <= r.Value
	case OpEqual:
		return v == r.Value
	case OpNotEqual:
		return v != r.Value
	case OpBetween:
		hi := r.Value
		if r.Value2 != nil {
			hi = *r.Value2
		}
		lo := r.Value
		if hi < lo {
			lo, hi = hi, lo
		}
		return v >= lo && v <= hi
	}
	return false
}

// PickColor returns the color of the first rule whose predicate holds for
// the value, in declaration order. A nil value is the "no data" state and
// short-circuits to no color. No match is a valid outcome, not an error.
func PickColor(value *float64, rules []Rule) (string, bool) {
	if value == nil {
		return "", false
	}
	for _, r := range rules {
		if r.Matches(*value) {
			return r.Color, true
		}
	}
	return "", false
}
