// Package table holds the in-memory tabular data the engine evaluates
// against. Cell values are a tagged union so downstream numeric code can
// pattern-match explicitly instead of relying on implicit coercion.
package table

import (
	"fmt"
	"strconv"
)

// CellKind discriminates the variants of a Cell.
type CellKind int

const (
	KindNull CellKind = iota
	KindNumber
	KindString
	KindBool
)

// Cell is a single tagged-union value from a data row.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
	Bool bool
}

// Null returns the null cell.
func Null() Cell { return Cell{Kind: KindNull} }

// Number wraps a float64 in a cell.
func Number(v float64) Cell { return Cell{Kind: KindNumber, Num: v} }

// String wraps a string in a cell.
func String(s string) Cell { return Cell{Kind: KindString, Str: s} }

// Bool wraps a bool in a cell.
func Bool(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// Numeric returns the cell's numeric value and whether it has one.
// Only KindNumber cells are numeric; strings are never coerced.
func (c Cell) Numeric() (float64, bool) {
	if c.Kind == KindNumber {
		return c.Num, true
	}
	return 0, false
}

// Text returns the canonical string form of the cell, used for
// categorical equality tests in hierarchy filtering.
func (c Cell) Text() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindString:
		return c.Str
	case KindBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// IsNull reports whether the cell carries no value.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Row maps source column names to cell values.
type Row map[string]Cell

// Dataset is a finite, fully loaded table of rows.
type Dataset struct {
	// Columns preserves the source column order.
	Columns []string
	Rows    []Row
}

// Cell returns the value of a column in a row, null if absent.
func (d *Dataset) Cell(rowIdx int, column string) Cell {
	if rowIdx < 0 || rowIdx >= len(d.Rows) {
		return Null()
	}
	if c, ok := d.Rows[rowIdx][column]; ok {
		return c
	}
	return Null()
}

// HasColumn reports whether the dataset contains the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// ParseCell converts a raw string field into a tagged cell.
// Numbers are detected with strconv, "true"/"false" become booleans,
// and an empty field is null.
func ParseCell(raw string) Cell {
	if raw == "" {
		return Null()
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return Number(n)
	}
	switch raw {
	case "true", "TRUE", "True":
		return Bool(true)
	case "false", "FALSE", "False":
		return Bool(false)
	}
	return String(raw)
}

// Validate checks basic dataset integrity: every row only references
// known columns.
func (d *Dataset) Validate() error {
	known := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		known[c] = struct{}{}
	}
	for i, row := range d.Rows {
		for col := range row {
			if _, ok := known[col]; !ok {
				return fmt.Errorf("row %d references unknown column %q", i, col)
			}
		}
	}
	return nil
}
