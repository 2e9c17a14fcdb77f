// Package tabular holds the in-memory table a downloaded spreadsheet or CSV
// file is parsed into.
package tabular

import (
	"fmt"
	"math"
)

// ColumnType is the element type inferred for a column.
type ColumnType int

const (
	Text ColumnType = iota
	Float
	Integer
	Timestamp
	Boolean
	Duration
	Categorical
)

var columnTypeNames = map[ColumnType]string{
	Text:        "text",
	Float:       "float64",
	Integer:     "int64",
	Timestamp:   "timestamp",
	Boolean:     "bool",
	Duration:    "duration",
	Categorical: "category",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Column is a named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is a rows x named-columns payload. Cells hold string, float64, int64,
// time.Time, bool, time.Duration or nil.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// New builds a table and checks every row has one cell per column.
func New(columns []Column, rows [][]any) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("tabular.New: row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// SetColumn assigns value to every row of the named column. A missing column
// is appended; an existing one is overwritten and retyped.
func (t *Table) SetColumn(name string, typ ColumnType, value any) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, Column{Name: name, Type: typ})
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], value)
		}
		return
	}
	t.Columns[idx].Type = typ
	for i := range t.Rows {
		t.Rows[i][idx] = value
	}
}

// IsNull reports whether a cell must be sent to the database as NULL:
// nil, NaN floats and empty strings.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		return x == ""
	}
	return false
}

// NormalizeRow returns a copy of row with null cells replaced by nil.
func NormalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if IsNull(v) {
			continue
		}
		out[i] = v
	}
	return out
}
