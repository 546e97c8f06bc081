package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestPickColor_FirstMatchWins(t *testing.T) {
	rs := []Rule{
		{Op: OpGreater, Value: 10, Color: "green"},
		{Op: OpGreater, Value: 0, Color: "yellow"},
	}

	color, ok := PickColor(fptr(15), rs)
	require.True(t, ok)
	assert.Equal(t, "green", color)

	color, ok = PickColor(fptr(5), rs)
	require.True(t, ok)
	assert.Equal(t, "yellow", color)
}

func TestPickColor_NoMatch(t *testing.T) {
	rs := []Rule{{Op: OpGreater, Value: 100, Color: "green"}}

	_, ok := PickColor(fptr(5), rs)
	assert.False(t, ok)
}

func TestPickColor_NullShortCircuits(t *testing.T) {
	rs := []Rule{{Op: OpNotEqual, Value: 12345, Color: "green"}}

	_, ok := PickColor(nil, rs)
	assert.False(t, ok, "null value must render the no-data state before any rule runs")
}

func TestRule_Between(t *testing.T) {
	r := Rule{Op: OpBetween, Value: 10, Value2: fptr(20), Color: "amber"}

	assert.True(t, r.Matches(10), "between is inclusive on the lower bound")
	assert.True(t, r.Matches(20), "between is inclusive on the upper bound")
	assert.True(t, r.Matches(15))
	assert.False(t, r.Matches(9.999))
	assert.False(t, r.Matches(20.001))
}

func TestRule_BetweenSingleBoundIsPoint(t *testing.T) {
	r := Rule{Op: OpBetween, Value: 7, Color: "amber"}

	assert.True(t, r.Matches(7))
	assert.False(t, r.Matches(7.0001))
}

func TestRule_Comparisons(t *testing.T) {
	tests := []struct {
		op    Operator
		value float64
		input float64
		want  bool
	}{
		{OpGreater, 10, 10, false},
		{OpGreaterEqual, 10, 10, true},
		{OpLess, 10, 10, false},
		{OpLessEqual, 10, 10, true},
		{OpEqual, 10, 10, true},
		{OpEqual, 10, 10.0000001, false},
		{OpNotEqual, 10, 11, true},
	}
	for _, tt := range tests {
		r := Rule{Op: tt.op, Value: tt.value}
		assert.Equal(t, tt.want, r.Matches(tt.input), "%s %v vs %v", tt.op, tt.value, tt.input)
	}
}

func TestParseOperator(t *testing.T) {
	for _, valid := range []string{">", ">=", "<", "<=", "==", "!=", "between"} {
		_, err := ParseOperator(valid)
		assert.NoError(t, err)
	}
	_, err := ParseOperator("~=")
	assert.Error(t, err)
}
