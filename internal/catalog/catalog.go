// Package catalog holds the user classification of raw data columns:
// whether each source column is numeric, categorical, or ignored, and the
// alias formulas use to refer to it.
package catalog

import (
	"fmt"
	"sort"
)

// Classification describes how a source column participates in the
// dashboard.
type Classification string

const (
	// Numeric columns can back metrics and aggregations.
	Numeric Classification = "numeric"
	// Categorical columns can back hierarchy levels and filters.
	Categorical Classification = "categorical"
	// Ignore excludes the column from the engine entirely.
	Ignore Classification = "ignore"
)

// ParseClassification validates a classification string.
func ParseClassification(s string) (Classification, error) {
	switch Classification(s) {
	case Numeric, Categorical, Ignore:
		return Classification(s), nil
	}
	return "", fmt.Errorf("unknown classification %q (want numeric, categorical or ignore)", s)
}

// ColumnConfig is the user-facing configuration of one source column.
type ColumnConfig struct {
	ColumnName     string         `json:"columnName" koanf:"column" yaml:"column"`
	Classification Classification `json:"classification" koanf:"classification" yaml:"classification"`
	Alias          string         `json:"alias" koanf:"alias" yaml:"alias"`
	DisplayName    string         `json:"displayName,omitempty" koanf:"display_name" yaml:"display_name,omitempty"`
	Description    string         `json:"description,omitempty" koanf:"description" yaml:"description,omitempty"`
}

// Registry provides lookup over a column configuration set. It is a pure
// read structure rebuilt whenever the configuration changes; alias
// uniqueness is the validator's responsibility so that duplicates surface
// as validation errors rather than silent overwrites.
type Registry struct {
	columns []ColumnConfig
	byAlias map[string]int
	byName  map[string]int
}

// NewRegistry builds a registry over the given columns. When duplicate
// aliases exist, the first declaration wins for lookup; validation reports
// the duplication separately.
func NewRegistry(columns []ColumnConfig) *Registry {
	r := &Registry{
		columns: columns,
		byAlias: make(map[string]int, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, exists := r.byAlias[c.Alias]; !exists {
			r.byAlias[c.Alias] = i
		}
		if _, exists := r.byName[c.ColumnName]; !exists {
			r.byName[c.ColumnName] = i
		}
	}
	return r
}

// ByAlias resolves a formula alias to its column config.
func (r *Registry) ByAlias(alias string) (ColumnConfig, bool) {
	if i, ok := r.byAlias[alias]; ok {
		return r.columns[i], true
	}
	return ColumnConfig{}, false
}

// ByName resolves a source column name to its config.
func (r *Registry) ByName(name string) (ColumnConfig, bool) {
	if i, ok := r.byName[name]; ok {
		return r.columns[i], true
	}
	return ColumnConfig{}, false
}

// All returns the configured columns in declaration order.
func (r *Registry) All() []ColumnConfig {
	return r.columns
}

// Aliases returns all column aliases sorted ascending.
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.byAlias))
	for a := range r.byAlias {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}
