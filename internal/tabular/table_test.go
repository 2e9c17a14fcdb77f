package tabular

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsRaggedRows(t *testing.T) {
	_, err := New([]Column{{Name: "a"}, {Name: "b"}}, [][]any{{1, 2}, {3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 cells, want 2")
}

func TestSetColumn(t *testing.T) {
	tbl, err := New(
		[]Column{{Name: "a", Type: Integer}},
		[][]any{{int64(1)}, {int64(2)}},
	)
	require.NoError(t, err)

	tbl.SetColumn("run_id", Text, "20230101_120000")
	assert.Equal(t, []string{"a", "run_id"}, tbl.ColumnNames())
	assert.Equal(t, []any{int64(2), "20230101_120000"}, tbl.Rows[1])

	tbl.SetColumn("a", Text, "x")
	assert.Equal(t, Text, tbl.Columns[0].Type)
	assert.Equal(t, []any{"x", "20230101_120000"}, tbl.Rows[0])
	assert.Len(t, tbl.Columns, 2)
}

func TestColumnIndex(t *testing.T) {
	tbl := &Table{Columns: []Column{{Name: "a"}, {Name: "b"}}}
	assert.Equal(t, 1, tbl.ColumnIndex("b"))
	assert.Equal(t, -1, tbl.ColumnIndex("c"))
}

func TestNormalizeRow(t *testing.T) {
	row := []any{"", math.NaN(), nil, "x", 0.0, int64(0), false}
	got := NormalizeRow(row)
	assert.Equal(t, []any{nil, nil, nil, "x", 0.0, int64(0), false}, got)
	assert.Equal(t, "", row[0], "input row must not be modified")
}

func TestColumnType_String(t *testing.T) {
	assert.Equal(t, "int64", Integer.String())
	assert.Equal(t, "category", Categorical.String())
	assert.Equal(t, "ColumnType(99)", ColumnType(99).String())
}
