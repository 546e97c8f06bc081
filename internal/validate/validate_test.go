package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
	"github.com/gridsight-labs/gridsight/internal/metric"
)

func testColumns() []catalog.ColumnConfig {
	return []catalog.ColumnConfig{
		{ColumnName: "Region", Classification: catalog.Categorical, Alias: "region"},
		{ColumnName: "Sales", Classification: catalog.Numeric, Alias: "sales"},
		{ColumnName: "Cost", Classification: catalog.Numeric, Alias: "cost"},
		{ColumnName: "Notes", Classification: catalog.Ignore, Alias: "notes"},
	}
}

func leaf(id, column string) *metric.Template {
	return &metric.Template{ID: id, Name: id, Column: column, Aggregation: metric.AggSum}
}

func formulaMetric(id, expr string) *metric.Template {
	return &metric.Template{ID: id, Name: id, Formula: expr, Aggregation: metric.AggSum}
}

func TestValidate_CleanConfiguration(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{
		leaf("total_sales", "sales"),
		leaf("total_cost", "cost"),
		formulaMetric("margin", "total_sales - total_cost"),
		formulaMetric("margin_pct", "margin / total_sales * 100"),
	}

	res, plan := v.Validate(testColumns(), metrics, nil)
	require.True(t, res.Valid, "errors: %v", res.Errors)
	require.NotNil(t, plan)

	// Every metric appears exactly once with dependencies first.
	assert.Len(t, plan.Order, 4)
	pos := make(map[string]int, len(plan.Order))
	for i, id := range plan.Order {
		pos[id] = i
	}
	assert.Less(t, pos["total_sales"], pos["margin"])
	assert.Less(t, pos["total_cost"], pos["margin"])
	assert.Less(t, pos["margin"], pos["margin_pct"])

	assert.ElementsMatch(t, []string{"cost", "sales", "total_cost", "total_sales"}, plan.Closure["margin"])
}

func TestValidate_Idempotent(t *testing.T) {
	v := New(nil)
	columns := testColumns()
	metrics := []*metric.Template{
		leaf("a", "sales"),
		formulaMetric("b", "a * 2"),
	}

	res1, plan1 := v.Validate(columns, metrics, nil)
	res2, plan2 := v.Validate(columns, metrics, nil)
	assert.Equal(t, res1, res2)
	assert.Equal(t, plan1.Order, plan2.Order)
	assert.Equal(t, plan1.Closure, plan2.Closure)
}

func TestValidate_DuplicateAlias(t *testing.T) {
	v := New(nil)
	columns := testColumns()
	// Metric id collides with the "sales" column alias.
	metrics := []*metric.Template{leaf("sales", "cost")}

	res, plan := v.Validate(columns, metrics, nil)
	assert.False(t, res.Valid)
	assert.Nil(t, plan)

	errs := res.ErrorsOfKind(KindDuplicateAlias)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "sales")
	assert.Contains(t, errs[0].Message, "column")
	assert.Contains(t, errs[0].Message, "metric")
}

func TestValidate_CycleNamesEveryNode(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{
		formulaMetric("a", "b + 1"),
		formulaMetric("b", "c + 1"),
		formulaMetric("c", "a + 1"),
	}

	res, plan := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Nil(t, plan)

	errs := res.ErrorsOfKind(KindCircularDependency)
	require.Len(t, errs, 1, "exactly one cycle error regardless of cycle length")
	for _, id := range []string{"a", "b", "c"} {
		assert.Contains(t, errs[0].Cycle, id)
	}
}

func TestValidate_SelfReference(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{formulaMetric("loop", "loop + 1")}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindCircularDependency), 1)
}

func TestValidate_MissingBinding(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{formulaMetric("m", "sales + ghost")}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)

	errs := res.ErrorsOfKind(KindMissingBinding)
	require.Len(t, errs, 1)
	assert.Equal(t, "ghost", errs[0].Alias)
	assert.Equal(t, "m", errs[0].MetricID)
}

func TestValidate_ColumnNotFound(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{leaf("m", "nonexistent")}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindColumnNotFound), 1)
}

func TestValidate_TypeMismatch(t *testing.T) {
	v := New(nil)

	res, _ := v.Validate(testColumns(), []*metric.Template{leaf("m", "region")}, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindTypeMismatch), 1)

	// Referencing a categorical column inside a formula is the same error.
	res, _ = v.Validate(testColumns(), []*metric.Template{formulaMetric("m", "region * 2")}, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindTypeMismatch), 1)
}

func TestValidate_IgnoredColumnIsNotNumeric(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{formulaMetric("m", "notes + 1")}

	// An ignore-classified column still resolves through the registry so
	// the error names the real column, not a phantom binding.
	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindTypeMismatch), 1)
	assert.Empty(t, res.ErrorsOfKind(KindMissingBinding))
}

func TestValidate_InvalidFormulaSurfaced(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{formulaMetric("m", "sales + + )")}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindInvalidFormula), 1)
}

func TestValidate_InvalidAggregation(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{
		{ID: "m", Name: "m", Column: "sales", Aggregation: "median"},
	}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindInvalidAggregation), 1)
}

func TestValidate_EmptyTemplateNeedsABinding(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{{ID: "m", Name: "m", Aggregation: metric.AggSum}}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.ErrorsOfKind(KindMissingBinding), 1)
}

func TestValidate_AllErrorsReported(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{
		leaf("m1", "ghost_column"),
		formulaMetric("m2", "nothing_here + 1"),
		{ID: "m3", Name: "m3", Column: "sales", Aggregation: "p99"},
	}

	res, _ := v.Validate(testColumns(), metrics, nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 3, "validation collects every problem, not just the first")
}

func TestValidate_Hierarchy(t *testing.T) {
	v := New(nil)
	metrics := []*metric.Template{leaf("m", "sales")}

	good := []hierarchy.Level{
		{ID: "L0", Order: 0, ColumnName: "Region"},
	}
	res, plan := v.Validate(testColumns(), metrics, good)
	assert.True(t, res.Valid, "errors: %v", res.Errors)
	assert.NotNil(t, plan)

	badColumn := []hierarchy.Level{{ID: "L0", Order: 0, ColumnName: "Sales"}}
	res, _ = v.Validate(testColumns(), metrics, badColumn)
	assert.Len(t, res.ErrorsOfKind(KindHierarchyInvalid), 1)

	unknownColumn := []hierarchy.Level{{ID: "L0", Order: 0, ColumnName: "Nope"}}
	res, _ = v.Validate(testColumns(), metrics, unknownColumn)
	assert.Len(t, res.ErrorsOfKind(KindHierarchyInvalid), 1)

	gappyOrder := []hierarchy.Level{
		{ID: "L0", Order: 0, ColumnName: "Region"},
		{ID: "L2", Order: 2, ColumnName: "Region"},
	}
	res, _ = v.Validate(testColumns(), metrics, gappyOrder)
	assert.Len(t, res.ErrorsOfKind(KindHierarchyInvalid), 1)
}
