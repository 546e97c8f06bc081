// Package validate checks a dashboard configuration (column classification,
// metric templates, hierarchy levels) and produces either the complete set
// of problems or an evaluation plan with a safe metric order.
package validate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/dag"
	"github.com/gridsight-labs/gridsight/internal/formula"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
	"github.com/gridsight-labs/gridsight/internal/metric"
)

// Kind classifies a validation error.
type Kind string

const (
	KindDuplicateAlias       Kind = "DUPLICATE_ALIAS"
	KindColumnNotFound       Kind = "COLUMN_NOT_FOUND"
	KindMetricNotFound       Kind = "METRIC_NOT_FOUND"
	KindMissingBinding       Kind = "MISSING_BINDING"
	KindUnresolvedDependency Kind = "UNRESOLVED_DEPENDENCY"
	KindCircularDependency   Kind = "CIRCULAR_DEPENDENCY"
	KindTypeMismatch         Kind = "TYPE_MISMATCH"
	KindInvalidFormula       Kind = "INVALID_FORMULA"
	KindHierarchyInvalid     Kind = "HIERARCHY_INVALID"
	KindInvalidAggregation   Kind = "INVALID_AGGREGATION"
)

// Error is one structured validation problem. Errors are data, never
// panics, so callers can show the complete set at once.
type Error struct {
	Kind     Kind     `json:"kind"`
	Message  string   `json:"message"`
	MetricID string   `json:"metricId,omitempty"`
	Alias    string   `json:"alias,omitempty"`
	Cycle    []string `json:"cycle,omitempty"`
}

func (e Error) String() string {
	if e.MetricID != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.MetricID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is the full validation report.
type Result struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors,omitempty"`
}

// ErrorsOfKind returns the errors matching a kind.
func (r *Result) ErrorsOfKind(k Kind) []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Plan is the evaluation plan derived from a valid configuration: the
// dependency graph, a deterministic topological order over metric ids,
// and each metric's cached transitive closure so evaluation never walks
// the full order.
type Plan struct {
	Graph   *dag.Graph
	Order   []string
	Closure map[string][]string
}

// Validator runs the validation pipeline. It is a pure read over its
// inputs; neither the templates nor any shared state is mutated, so
// running it twice on unchanged inputs yields identical results.
type Validator struct {
	logger *slog.Logger
}

// New creates a validator. A nil logger disables diagnostics.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{logger: logger}
}

// Validate checks columns, metrics and hierarchy levels together. On a
// valid configuration the returned plan is non-nil and ready for the
// evaluator; on any error the plan is nil and evaluation must refuse to
// run.
func (v *Validator) Validate(columns []catalog.ColumnConfig, metrics []*metric.Template, levels []hierarchy.Level) (*Result, *Plan) {
	res := &Result{}
	registry := catalog.NewRegistry(columns)

	v.checkDuplicateAliases(res, columns, metrics)
	v.checkHierarchy(res, registry, levels)

	// Per-metric checks resolve each formula variable against column
	// aliases first, then metric ids.
	metricIDs := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		metricIDs[m.ID] = true
	}

	graph := dag.New()
	for _, c := range columns {
		if c.Classification == catalog.Ignore {
			continue
		}
		graph.AddNode(c.Alias, dag.KindColumn)
	}
	for _, m := range metrics {
		graph.AddNode(m.ID, dag.KindMetric)
	}

	for _, m := range metrics {
		v.checkMetric(res, registry, metricIDs, graph, m)
	}

	v.checkCycle(res, graph)

	res.Valid = len(res.Errors) == 0
	if !res.Valid {
		v.logger.Debug("validation failed", "errors", len(res.Errors))
		return res, nil
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		// Unreachable after a clean cycle check.
		res.Valid = false
		res.Errors = append(res.Errors, Error{Kind: KindCircularDependency, Message: err.Error()})
		return res, nil
	}

	closure := make(map[string][]string, len(metrics))
	for _, m := range metrics {
		closure[m.ID] = graph.TransitiveDependencies(m.ID)
	}

	v.logger.Debug("validation passed", "metrics", len(metrics), "columns", len(columns))
	return res, &Plan{Graph: graph, Order: order, Closure: closure}
}

// checkDuplicateAliases enforces global uniqueness across column aliases
// and metric ids: both live in the same formula namespace.
func (v *Validator) checkDuplicateAliases(res *Result, columns []catalog.ColumnConfig, metrics []*metric.Template) {
	type owner struct {
		what string
		id   string
	}
	seen := make(map[string]owner)

	claim := func(alias string, o owner) {
		if alias == "" {
			return
		}
		if prev, dup := seen[alias]; dup {
			res.Errors = append(res.Errors, Error{
				Kind:    KindDuplicateAlias,
				Alias:   alias,
				Message: fmt.Sprintf("alias %q is claimed by both %s %q and %s %q", alias, prev.what, prev.id, o.what, o.id),
			})
			return
		}
		seen[alias] = o
	}

	for _, c := range columns {
		if c.Classification == catalog.Ignore {
			continue
		}
		claim(c.Alias, owner{what: "column", id: c.ColumnName})
	}
	for _, m := range metrics {
		claim(m.ID, owner{what: "metric", id: m.Name})
	}
}

func (v *Validator) checkMetric(res *Result, registry *catalog.Registry, metricIDs map[string]bool, graph *dag.Graph, m *metric.Template) {
	if _, err := metric.ParseAggregation(string(m.Aggregation)); err != nil {
		res.Errors = append(res.Errors, Error{
			Kind:     KindInvalidAggregation,
			MetricID: m.ID,
			Message:  err.Error(),
		})
	}

	if m.IsLeaf() {
		col, ok := registry.ByAlias(m.Column)
		if !ok {
			res.Errors = append(res.Errors, Error{
				Kind:     KindColumnNotFound,
				MetricID: m.ID,
				Alias:    m.Column,
				Message:  fmt.Sprintf("metric %q binds to unknown column %q", m.ID, m.Column),
			})
			return
		}
		if col.Classification != catalog.Numeric {
			res.Errors = append(res.Errors, Error{
				Kind:     KindTypeMismatch,
				MetricID: m.ID,
				Alias:    m.Column,
				Message:  fmt.Sprintf("metric %q binds to %s column %q; only numeric columns can back a metric", m.ID, col.Classification, m.Column),
			})
			return
		}
		if err := graph.AddDependency(m.ID, m.Column); err != nil {
			res.Errors = append(res.Errors, Error{Kind: KindUnresolvedDependency, MetricID: m.ID, Message: err.Error()})
		}
		return
	}

	if m.Formula == "" {
		res.Errors = append(res.Errors, Error{
			Kind:     KindMissingBinding,
			MetricID: m.ID,
			Message:  fmt.Sprintf("metric %q has neither a formula nor a column binding", m.ID),
		})
		return
	}

	vars, err := formula.ExtractVariables(m.Formula)
	if err != nil {
		// A broken formula is its own error kind, never conflated with
		// "no dependencies".
		res.Errors = append(res.Errors, Error{
			Kind:     KindInvalidFormula,
			MetricID: m.ID,
			Message:  fmt.Sprintf("metric %q: %v", m.ID, err),
		})
		return
	}

	for _, ref := range vars {
		col, isColumn := registry.ByAlias(ref)
		switch {
		case isColumn && col.Classification == catalog.Numeric:
			if err := graph.AddDependency(m.ID, ref); err != nil {
				res.Errors = append(res.Errors, Error{Kind: KindUnresolvedDependency, MetricID: m.ID, Alias: ref, Message: err.Error()})
			}
		case isColumn:
			res.Errors = append(res.Errors, Error{
				Kind:     KindTypeMismatch,
				MetricID: m.ID,
				Alias:    ref,
				Message:  fmt.Sprintf("metric %q references %s column %q in a formula; only numeric columns are usable", m.ID, col.Classification, ref),
			})
		case metricIDs[ref]:
			if err := graph.AddDependency(m.ID, ref); err != nil {
				res.Errors = append(res.Errors, Error{Kind: KindCircularDependency, MetricID: m.ID, Cycle: []string{m.ID, m.ID}, Message: err.Error()})
			}
		default:
			res.Errors = append(res.Errors, Error{
				Kind:     KindMissingBinding,
				MetricID: m.ID,
				Alias:    ref,
				Message:  fmt.Sprintf("metric %q references %q, which is neither a column alias nor a metric id", m.ID, ref),
			})
		}
	}
}

// checkCycle reports at most one CIRCULAR_DEPENDENCY error whose context
// names every node on the cycle.
func (v *Validator) checkCycle(res *Result, graph *dag.Graph) {
	cycle, found := graph.FindCycle()
	if !found {
		return
	}
	res.Errors = append(res.Errors, Error{
		Kind:    KindCircularDependency,
		Cycle:   cycle,
		Message: fmt.Sprintf("circular dependency: %s", strings.Join(cycle, " -> ")),
	})
}

func (v *Validator) checkHierarchy(res *Result, registry *catalog.Registry, levels []hierarchy.Level) {
	if len(levels) == 0 {
		return
	}

	ordered := hierarchy.SortLevels(levels)
	seenIDs := make(map[string]bool, len(ordered))
	orders := make([]int, 0, len(ordered))

	for _, l := range ordered {
		if seenIDs[l.ID] {
			res.Errors = append(res.Errors, Error{
				Kind:    KindHierarchyInvalid,
				Message: fmt.Sprintf("duplicate hierarchy level id %q", l.ID),
			})
			continue
		}
		seenIDs[l.ID] = true
		orders = append(orders, l.Order)

		col, ok := registry.ByName(l.ColumnName)
		if !ok {
			res.Errors = append(res.Errors, Error{
				Kind:    KindHierarchyInvalid,
				Message: fmt.Sprintf("hierarchy level %q is bound to unknown column %q", l.ID, l.ColumnName),
			})
			continue
		}
		if col.Classification != catalog.Categorical {
			res.Errors = append(res.Errors, Error{
				Kind:    KindHierarchyInvalid,
				Message: fmt.Sprintf("hierarchy level %q is bound to %s column %q; levels need categorical columns", l.ID, col.Classification, l.ColumnName),
			})
		}
	}

	sort.Ints(orders)
	for i, o := range orders {
		if o != i {
			res.Errors = append(res.Errors, Error{
				Kind:    KindHierarchyInvalid,
				Message: fmt.Sprintf("hierarchy level orders must be contiguous from 0; got %v", orders),
			})
			break
		}
	}
}
