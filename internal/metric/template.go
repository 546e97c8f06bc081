// Package metric defines metric templates, the reusable formula and
// aggregation definitions independent of any row scope, and the store
// that owns their lifecycle.
package metric

import (
	"fmt"

	"github.com/gridsight-labs/gridsight/internal/rules"
)

// Aggregation is the function applied when a metric is scoped over a row
// set.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
	// AggNone means "use the single row's raw value"; it is only valid
	// when the scoped row set has exactly one row.
	AggNone Aggregation = "none"
)

// ParseAggregation validates an aggregation name.
func ParseAggregation(s string) (Aggregation, error) {
	switch Aggregation(s) {
	case AggSum, AggAvg, AggCount, AggMin, AggMax, AggNone:
		return Aggregation(s), nil
	}
	return "", fmt.Errorf("unknown aggregation %q", s)
}

// Template is one metric definition. Exactly one of Formula and Column
// should be set: a template with a Column binding and no formula is a
// leaf metric bound directly to that column's alias.
type Template struct {
	ID          string       `json:"id" koanf:"id" yaml:"id"`
	Name        string       `json:"name" koanf:"name" yaml:"name"`
	Formula     string       `json:"formula,omitempty" koanf:"formula" yaml:"formula,omitempty"`
	Column      string       `json:"column,omitempty" koanf:"column" yaml:"column,omitempty"`
	Aggregation Aggregation  `json:"aggregation" koanf:"aggregation" yaml:"aggregation"`
	ColorRules  []rules.Rule `json:"colorRules,omitempty" koanf:"color_rules" yaml:"color_rules,omitempty"`
}

// IsLeaf reports whether the template binds directly to one column
// instead of carrying a formula.
func (t *Template) IsLeaf() bool {
	return t.Formula == "" && t.Column != ""
}

// Clone returns a deep copy so validation and evaluation can never mutate
// stored templates through shared slices.
func (t *Template) Clone() *Template {
	out := *t
	if t.ColorRules != nil {
		out.ColorRules = make([]rules.Rule, len(t.ColorRules))
		copy(out.ColorRules, t.ColorRules)
	}
	return &out
}
