package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/metric"
	"github.com/gridsight-labs/gridsight/internal/table"
	"github.com/gridsight-labs/gridsight/internal/validate"
)

var evalColumns = []catalog.ColumnConfig{
	{ColumnName: "Region", Classification: catalog.Categorical, Alias: "region"},
	{ColumnName: "Sales", Classification: catalog.Numeric, Alias: "sales"},
	{ColumnName: "Cost", Classification: catalog.Numeric, Alias: "cost"},
	{ColumnName: "Units", Classification: catalog.Numeric, Alias: "units"},
}

func evalRows() []table.Row {
	return []table.Row{
		{"Region": table.String("North"), "Sales": table.Number(100), "Cost": table.Number(60), "Units": table.Number(10)},
		{"Region": table.String("North"), "Sales": table.Number(200), "Cost": table.Number(110), "Units": table.Number(25)},
		{"Region": table.String("South"), "Sales": table.Number(50), "Cost": table.Number(40), "Units": table.Null()},
	}
}

func buildEvaluator(t *testing.T, metrics []*metric.Template) *Evaluator {
	t.Helper()
	v := validate.New(nil)
	res, plan := v.Validate(evalColumns, metrics, nil)
	require.True(t, res.Valid, "fixture must validate: %v", res.Errors)
	return New(catalog.NewRegistry(evalColumns), metrics, plan, nil)
}

func TestPass_LeafAggregations(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "m_sum", Name: "Sum", Column: "sales", Aggregation: metric.AggSum},
		{ID: "m_avg", Name: "Avg", Column: "sales", Aggregation: metric.AggAvg},
		{ID: "m_min", Name: "Min", Column: "sales", Aggregation: metric.AggMin},
		{ID: "m_max", Name: "Max", Column: "sales", Aggregation: metric.AggMax},
		{ID: "m_count", Name: "Count", Column: "units", Aggregation: metric.AggCount},
	}
	ev := buildEvaluator(t, metrics)
	pass := ev.NewPass(evalRows())

	want := map[string]float64{
		"m_sum":   350,
		"m_avg":   350.0 / 3,
		"m_min":   50,
		"m_max":   200,
		"m_count": 2, // the null Units cell does not count
	}
	for id, expected := range want {
		got, err := pass.Metric(id)
		require.NoError(t, err, id)
		require.NotNil(t, got, id)
		assert.InDelta(t, expected, *got, 1e-9, id)
	}
}

func TestPass_EmptyRowSetIsNull(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "m", Name: "Sum", Column: "sales", Aggregation: metric.AggSum},
		{ID: "c", Name: "Count", Column: "sales", Aggregation: metric.AggCount},
	}
	ev := buildEvaluator(t, metrics)
	pass := ev.NewPass(nil)

	got, err := pass.Metric("m")
	require.NoError(t, err)
	assert.Nil(t, got, "empty aggregate is null, never zero")

	// Count is the one aggregation defined on an empty set.
	got, err = pass.Metric("c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Zero(t, *got)
}

func TestPass_NoneAggregation(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "m", Name: "Raw", Column: "sales", Aggregation: metric.AggNone},
	}
	ev := buildEvaluator(t, metrics)

	single := evalRows()[:1]
	got, err := ev.NewPass(single).Metric("m")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100.0, *got)

	// More than one row makes the raw value ambiguous.
	got, err = ev.NewPass(evalRows()).Metric("m")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPass_FormulaOverMetrics(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "total_sales", Name: "Sales", Column: "sales", Aggregation: metric.AggSum},
		{ID: "total_cost", Name: "Cost", Column: "cost", Aggregation: metric.AggSum},
		{ID: "margin", Name: "Margin", Formula: "total_sales - total_cost", Aggregation: metric.AggSum},
		{ID: "margin_pct", Name: "Margin %", Formula: "margin / total_sales * 100", Aggregation: metric.AggSum},
	}
	ev := buildEvaluator(t, metrics)
	pass := ev.NewPass(evalRows())

	got, err := pass.Metric("margin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 140, *got, 1e-9)

	got, err = pass.Metric("margin_pct")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 40, *got, 1e-9)
}

func TestPass_FormulaOverColumns(t *testing.T) {
	// Column references inside a formula aggregate with the referencing
	// metric's own aggregation.
	metrics := []*metric.Template{
		{ID: "avg_unit_price", Name: "Avg unit price", Formula: "sales / units", Aggregation: metric.AggAvg},
	}
	ev := buildEvaluator(t, metrics)
	pass := ev.NewPass(evalRows())

	got, err := pass.Metric("avg_unit_price")
	require.NoError(t, err)
	require.NotNil(t, got)
	// avg(sales)=350/3, avg(units)=17.5 over the two numeric cells.
	assert.InDelta(t, (350.0/3)/17.5, *got, 1e-9)
}

func TestPass_DivisionByZeroIsNull(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "zero", Name: "Zero", Formula: "sales - sales", Aggregation: metric.AggSum},
		{ID: "ratio", Name: "Ratio", Formula: "cost / zero", Aggregation: metric.AggSum},
	}
	ev := buildEvaluator(t, metrics)

	got, err := ev.NewPass(evalRows()).Metric("ratio")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPass_NullPropagates(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "raw", Name: "Raw", Column: "sales", Aggregation: metric.AggNone},
		{ID: "derived", Name: "Derived", Formula: "raw + 1", Aggregation: metric.AggSum},
	}
	ev := buildEvaluator(t, metrics)

	// Multi-row scope makes "raw" null; the formula must not coerce it to
	// zero.
	got, err := ev.NewPass(evalRows()).Metric("derived")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPass_MemoizesWithinPass(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "base", Name: "Base", Column: "sales", Aggregation: metric.AggSum},
		{ID: "d1", Name: "D1", Formula: "base * 2", Aggregation: metric.AggSum},
		{ID: "d2", Name: "D2", Formula: "base * 3", Aggregation: metric.AggSum},
	}
	ev := buildEvaluator(t, metrics)
	pass := ev.NewPass(evalRows())

	all, err := pass.All()
	require.NoError(t, err)
	require.NotNil(t, all["base"])
	assert.InDelta(t, 700, *all["d1"], 1e-9)
	assert.InDelta(t, 1050, *all["d2"], 1e-9)

	// A memoized null stays null on re-read instead of being recomputed
	// into a lookup error.
	first, err := pass.Metric("base")
	require.NoError(t, err)
	second, err := pass.Metric("base")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPass_IndependentPasses(t *testing.T) {
	metrics := []*metric.Template{
		{ID: "m", Name: "Sum", Column: "sales", Aggregation: metric.AggSum},
	}
	ev := buildEvaluator(t, metrics)

	north := []table.Row{evalRows()[0], evalRows()[1]}
	south := []table.Row{evalRows()[2]}

	a, err := ev.NewPass(north).Metric("m")
	require.NoError(t, err)
	b, err := ev.NewPass(south).Metric("m")
	require.NoError(t, err)

	assert.InDelta(t, 300, *a, 1e-9)
	assert.InDelta(t, 50, *b, 1e-9)
}

func TestPass_UnknownMetric(t *testing.T) {
	ev := buildEvaluator(t, []*metric.Template{
		{ID: "m", Name: "Sum", Column: "sales", Aggregation: metric.AggSum},
	})
	_, err := ev.NewPass(evalRows()).Metric("ghost")
	assert.Error(t, err)
}
