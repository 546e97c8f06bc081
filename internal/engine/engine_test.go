package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
	"github.com/gridsight-labs/gridsight/internal/metric"
	"github.com/gridsight-labs/gridsight/internal/project"
	"github.com/gridsight-labs/gridsight/internal/rules"
	"github.com/gridsight-labs/gridsight/internal/testutil"
)

const testCSV = `Region,District,Sales,Cost
North,N1,100,60
North,N2,200,110
South,S1,50,40
`

func testDocument(t *testing.T) *project.Document {
	t.Helper()
	dir := t.TempDir()
	dataset := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(dataset, []byte(testCSV), 0o644))

	return &project.Document{
		Name:    "Sales",
		Dataset: dataset,
		Columns: []catalog.ColumnConfig{
			{ColumnName: "Region", Classification: catalog.Categorical, Alias: "region"},
			{ColumnName: "District", Classification: catalog.Categorical, Alias: "district"},
			{ColumnName: "Sales", Classification: catalog.Numeric, Alias: "sales"},
			{ColumnName: "Cost", Classification: catalog.Numeric, Alias: "cost"},
		},
		Metrics: []*metric.Template{
			{ID: "total_sales", Name: "Total Sales", Column: "sales", Aggregation: metric.AggSum},
			{ID: "total_cost", Name: "Total Cost", Column: "cost", Aggregation: metric.AggSum},
			{
				ID: "margin", Name: "Margin", Formula: "total_sales - total_cost", Aggregation: metric.AggSum,
				ColorRules: []rules.Rule{
					{Op: rules.OpGreater, Value: 100, Color: "green"},
					{Op: rules.OpGreater, Value: 0, Color: "yellow"},
				},
			},
		},
		Levels: []hierarchy.Level{
			{ID: "L0", Order: 0, ColumnName: "Region"},
			{ID: "L1", Order: 1, ColumnName: "District"},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{Document: testDocument(t), Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return e
}

func TestEngine_SnapshotUnfiltered(t *testing.T) {
	e := newTestEngine(t)

	snap, err := e.Snapshot(nil)
	require.NoError(t, err)
	require.Len(t, snap.Metrics, 3)

	byID := make(map[string]MetricValue)
	for _, mv := range snap.Metrics {
		byID[mv.ID] = mv
	}

	require.NotNil(t, byID["margin"].Value)
	assert.InDelta(t, 140, *byID["margin"].Value, 1e-9)
	assert.Equal(t, "green", byID["margin"].Color, "140 > 100 matches the first rule")
	assert.NotEqual(t, "—", byID["margin"].Formatted)
}

func TestEngine_SnapshotFiltered(t *testing.T) {
	e := newTestEngine(t)

	path := hierarchy.Path{
		{LevelID: "L0", LevelIndex: 0, ColumnName: "Region", Value: "South"},
	}
	snap, err := e.Snapshot(path)
	require.NoError(t, err)

	for _, mv := range snap.Metrics {
		if mv.ID == "margin" {
			require.NotNil(t, mv.Value)
			assert.InDelta(t, 10, *mv.Value, 1e-9)
			assert.Equal(t, "yellow", mv.Color)
		}
	}
}

func TestEngine_SnapshotRefusedWhenInvalid(t *testing.T) {
	doc := testDocument(t)
	doc.Metrics = append(doc.Metrics, &metric.Template{
		ID: "broken", Name: "Broken", Formula: "ghost + 1", Aggregation: metric.AggSum,
	})
	e, err := New(Config{Document: doc})
	require.NoError(t, err)

	_, err = e.Snapshot(nil)
	require.Error(t, err)

	var invalid *InvalidConfigError
	require.ErrorAs(t, err, &invalid)
	assert.False(t, invalid.Result.Valid)
	assert.NotEmpty(t, invalid.Result.Errors)
}

func TestEngine_ValidateIsCachedUntilReload(t *testing.T) {
	e := newTestEngine(t)

	res1, err := e.Validate()
	require.NoError(t, err)
	res2, err := e.Validate()
	require.NoError(t, err)
	assert.Same(t, res1, res2)

	require.NoError(t, e.Reload(e.Document(), ""))
	res3, err := e.Validate()
	require.NoError(t, err)
	assert.NotSame(t, res1, res3)
	assert.Equal(t, res1, res3)
}

func TestEngine_SnapshotAll(t *testing.T) {
	e := newTestEngine(t)

	paths := []hierarchy.Path{
		nil,
		{{LevelID: "L0", LevelIndex: 0, ColumnName: "Region", Value: "North"}},
		{{LevelID: "L0", LevelIndex: 0, ColumnName: "Region", Value: "South"}},
	}
	snaps, err := e.SnapshotAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	totals := make([]float64, 3)
	for i, snap := range snaps {
		for _, mv := range snap.Metrics {
			if mv.ID == "total_sales" {
				require.NotNil(t, mv.Value)
				totals[i] = *mv.Value
			}
		}
	}
	assert.InDelta(t, 350, totals[0], 1e-9)
	assert.InDelta(t, 300, totals[1], 1e-9)
	assert.InDelta(t, 50, totals[2], 1e-9)
}

func TestEngine_DrillOptions(t *testing.T) {
	e := newTestEngine(t)

	level, values, ok := e.DrillOptions(nil)
	require.True(t, ok)
	assert.Equal(t, "L0", level.ID)
	assert.ElementsMatch(t, []string{"North", "South"}, values)

	path := hierarchy.Path{{LevelID: "L0", LevelIndex: 0, ColumnName: "Region", Value: "North"}}
	level, values, ok = e.DrillOptions(path)
	require.True(t, ok)
	assert.Equal(t, "L1", level.ID)
	assert.ElementsMatch(t, []string{"N1", "N2"}, values)

	deep := hierarchy.Path{
		{LevelID: "L0", LevelIndex: 0, ColumnName: "Region", Value: "North"},
		{LevelID: "L1", LevelIndex: 1, ColumnName: "District", Value: "N1"},
	}
	_, _, ok = e.DrillOptions(deep)
	assert.False(t, ok, "no level remains below the deepest")
}

func TestEngine_NullMetricRendersDashWithoutColor(t *testing.T) {
	doc := testDocument(t)
	doc.Metrics = append(doc.Metrics, &metric.Template{
		ID: "ratio", Name: "Ratio", Formula: "total_sales / (total_cost - total_cost)",
		Aggregation: metric.AggSum,
		ColorRules:  []rules.Rule{{Op: rules.OpNotEqual, Value: 0, Color: "red"}},
	})
	e, err := New(Config{Document: doc})
	require.NoError(t, err)

	snap, err := e.Snapshot(nil)
	require.NoError(t, err)

	for _, mv := range snap.Metrics {
		if mv.ID == "ratio" {
			assert.Nil(t, mv.Value)
			assert.Equal(t, "—", mv.Formatted)
			assert.Empty(t, mv.Color, "null short-circuits the rule engine")
		}
	}
}
