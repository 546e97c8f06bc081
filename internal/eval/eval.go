// Package eval computes metric values over a scoped row set following a
// validated evaluation plan. Missing data, empty aggregates and division
// by zero all produce null, never zero and never an error.
package eval

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/formula"
	"github.com/gridsight-labs/gridsight/internal/metric"
	"github.com/gridsight-labs/gridsight/internal/table"
	"github.com/gridsight-labs/gridsight/internal/validate"
)

// Evaluator computes metric values. It holds only immutable inputs; each
// evaluation pass carries its own memo cache, so concurrent passes over
// different row sets are safe without locking.
type Evaluator struct {
	registry  *catalog.Registry
	templates map[string]*metric.Template
	plan      *validate.Plan
	logger    *slog.Logger
}

// New builds an evaluator over a validated configuration. The plan must
// come from a Validate call that returned valid.
func New(registry *catalog.Registry, templates []*metric.Template, plan *validate.Plan, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	byID := make(map[string]*metric.Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return &Evaluator{registry: registry, templates: byID, plan: plan, logger: logger}
}

// Pass is one evaluation run over a fixed row set. Results are memoized
// per metric id so a metric referenced by several dependents is computed
// once. A Pass is single-use and not safe for concurrent calls; run
// independent row sets through independent passes.
type Pass struct {
	ev   *Evaluator
	rows []table.Row
	memo map[string]*float64
}

// NewPass starts a pass over the given rows, typically the output of a
// hierarchy filter.
func (e *Evaluator) NewPass(rows []table.Row) *Pass {
	return &Pass{ev: e, rows: rows, memo: make(map[string]*float64)}
}

// Metric evaluates one metric. A nil value means null: no data, a null
// dependency, or a numeric anomaly such as division by zero. The error
// path only fires on precondition violations (unknown ids), which a
// validated plan rules out.
func (p *Pass) Metric(id string) (*float64, error) {
	if v, done := p.memo[id]; done {
		return v, nil
	}

	t, ok := p.ev.templates[id]
	if !ok {
		return nil, fmt.Errorf("unresolved dependency: no metric %q in plan", id)
	}

	var v *float64
	var err error
	if t.IsLeaf() {
		v, err = p.leaf(t)
	} else {
		v, err = p.formula(t)
	}
	if err != nil {
		return nil, err
	}
	p.memo[id] = v
	return v, nil
}

// All evaluates every metric in plan order and returns values keyed by
// metric id.
func (p *Pass) All() (map[string]*float64, error) {
	out := make(map[string]*float64, len(p.ev.plan.Order))
	for _, id := range p.ev.plan.Order {
		v, err := p.Metric(id)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

func (p *Pass) leaf(t *metric.Template) (*float64, error) {
	col, ok := p.ev.registry.ByAlias(t.Column)
	if !ok {
		return nil, fmt.Errorf("unresolved dependency: metric %q binds to unknown column %q", t.ID, t.Column)
	}
	return p.aggregate(col.ColumnName, t.Aggregation), nil
}

// formula resolves each referenced identifier, columns aggregate with the
// referencing metric's own aggregation while nested metrics evaluate per
// their own definition, then substitutes into the expression. Any null
// dependency propagates.
func (p *Pass) formula(t *metric.Template) (*float64, error) {
	node, err := formula.Parse(t.Formula)
	if err != nil || node == nil {
		return nil, fmt.Errorf("unresolved dependency: metric %q has an unparsable formula: %v", t.ID, err)
	}

	vars, err := formula.ExtractVariables(t.Formula)
	if err != nil {
		return nil, fmt.Errorf("unresolved dependency: metric %q: %w", t.ID, err)
	}

	env := make(map[string]float64, len(vars))
	for _, ref := range vars {
		var v *float64
		if col, isColumn := p.ev.registry.ByAlias(ref); isColumn {
			v = p.aggregate(col.ColumnName, t.Aggregation)
		} else {
			v, err = p.Metric(ref)
			if err != nil {
				return nil, err
			}
		}
		if v == nil {
			return nil, nil
		}
		env[ref] = *v
	}

	result, defined := formula.Eval(node, env)
	if !defined {
		return nil, nil
	}
	return &result, nil
}

// aggregate folds a column's numeric cells. Non-numeric and null cells
// are skipped; an empty set after skipping yields null.
func (p *Pass) aggregate(columnName string, agg metric.Aggregation) *float64 {
	var values []float64
	for _, row := range p.rows {
		cell, ok := row[columnName]
		if !ok {
			continue
		}
		if n, numeric := cell.Numeric(); numeric {
			values = append(values, n)
		}
	}

	if agg == metric.AggCount {
		n := float64(len(values))
		return &n
	}
	if len(values) == 0 {
		return nil
	}

	var result float64
	switch agg {
	case metric.AggSum:
		for _, v := range values {
			result += v
		}
	case metric.AggAvg:
		for _, v := range values {
			result += v
		}
		result /= float64(len(values))
	case metric.AggMin:
		result = values[0]
		for _, v := range values[1:] {
			result = math.Min(result, v)
		}
	case metric.AggMax:
		result = values[0]
		for _, v := range values[1:] {
			result = math.Max(result, v)
		}
	case metric.AggNone:
		// Raw value is only meaningful for a single-row scope.
		if len(values) != 1 {
			return nil
		}
		result = values[0]
	default:
		return nil
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return nil
	}
	return &result
}
