package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gridsight-labs/gridsight/internal/hierarchy"
	"github.com/gridsight-labs/gridsight/internal/rules"
)

// MetricValue is one evaluated metric ready for presentation. A nil
// Value renders as a dash and carries no color.
type MetricValue struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Value     *float64 `json:"value"`
	Formatted string   `json:"formattedValue"`
	Color     string   `json:"color,omitempty"`
}

// Snapshot is every metric evaluated at one drill-down position.
type Snapshot struct {
	Path    hierarchy.Path `json:"path,omitempty"`
	Metrics []MetricValue  `json:"metrics"`
}

// Snapshot evaluates all metrics over the rows selected by the filter
// path. It refuses to run on an invalid configuration, returning the
// validation report via InvalidConfigError.
func (e *Engine) Snapshot(path hierarchy.Path) (*Snapshot, error) {
	if _, err := e.Plan(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	scoped := hierarchy.ApplyFilterPath(e.rows, path)
	pass := e.evaluator.NewPass(scoped)

	snap := &Snapshot{Path: path, Metrics: make([]MetricValue, 0, len(e.doc.Metrics))}
	for _, id := range e.plan.Order {
		t, ok := e.template(id)
		if !ok {
			continue
		}
		value, err := pass.Metric(id)
		if err != nil {
			return nil, err
		}

		mv := MetricValue{ID: id, Name: t.Name, Value: value, Formatted: "—"}
		if value != nil {
			mv.Formatted = e.formatter(*value)
		}
		if color, ok := rules.PickColor(value, t.ColorRules); ok {
			mv.Color = color
		}
		snap.Metrics = append(snap.Metrics, mv)
	}
	return snap, nil
}

// SnapshotAll evaluates independent filter paths concurrently. Each path
// gets its own evaluation pass, so no locking is needed between them;
// results come back in input order.
func (e *Engine) SnapshotAll(ctx context.Context, paths []hierarchy.Path) ([]*Snapshot, error) {
	if _, err := e.Plan(); err != nil {
		return nil, err
	}

	snaps := make([]*Snapshot, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			snap, err := e.Snapshot(path)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// DrillOptions returns the distinct values available at the next
// selectable level under the given path, for building drill-down menus.
func (e *Engine) DrillOptions(path hierarchy.Path) (hierarchy.Level, []string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	levels := hierarchy.SortLevels(e.doc.Levels)
	next, ok := hierarchy.NextLevel(levels, path)
	if !ok {
		return hierarchy.Level{}, nil, false
	}

	scoped := hierarchy.ApplyFilterPath(e.rows, path)
	seen := make(map[string]bool)
	var values []string
	for _, row := range scoped {
		cell, ok := row[next.ColumnName]
		if !ok || cell.IsNull() {
			continue
		}
		v := cell.Text()
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return next, values, true
}
