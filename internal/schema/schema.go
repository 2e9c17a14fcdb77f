// Package schema derives destination column definitions from a parsed table.
package schema

import (
	"errors"
	"fmt"

	"github.com/dvloznov/skyloader/internal/tabular"
)

// ErrUnmappedType is returned for a column type a dialect has no SQL type for.
var ErrUnmappedType = errors.New("unmapped column type")

// ColumnSpec is one column of a CREATE TABLE statement.
type ColumnSpec struct {
	Name    string
	SQLType string
}

// Dialect maps column types to a backend's SQL types.
type Dialect struct {
	Name  string
	Types map[tabular.ColumnType]string
}

var (
	SQLServer = Dialect{
		Name: "sqlserver",
		Types: map[tabular.ColumnType]string{
			tabular.Text:        "nvarchar(max)",
			tabular.Categorical: "nvarchar(max)",
			tabular.Float:       "float",
			tabular.Integer:     "bigint",
			tabular.Timestamp:   "datetime",
			tabular.Boolean:     "bit",
			tabular.Duration:    "time",
		},
	}

	Postgres = Dialect{
		Name: "postgres",
		Types: map[tabular.ColumnType]string{
			tabular.Text:        "text",
			tabular.Categorical: "text",
			tabular.Float:       "double precision",
			tabular.Integer:     "bigint",
			tabular.Timestamp:   "timestamp",
			tabular.Boolean:     "boolean",
			tabular.Duration:    "interval",
		},
	}

	SQLite = Dialect{
		Name: "sqlite",
		Types: map[tabular.ColumnType]string{
			tabular.Text:        "TEXT",
			tabular.Categorical: "TEXT",
			tabular.Float:       "REAL",
			tabular.Integer:     "INTEGER",
			tabular.Timestamp:   "TIMESTAMP",
			tabular.Boolean:     "BOOLEAN",
			tabular.Duration:    "TEXT",
		},
	}

	// BigQuery type names match bigquery.FieldType values.
	BigQuery = Dialect{
		Name: "bigquery",
		Types: map[tabular.ColumnType]string{
			tabular.Text:        "STRING",
			tabular.Categorical: "STRING",
			tabular.Float:       "FLOAT",
			tabular.Integer:     "INTEGER",
			tabular.Timestamp:   "DATETIME",
			tabular.Boolean:     "BOOLEAN",
			tabular.Duration:    "TIME",
		},
	}
)

var dialects = map[string]Dialect{
	SQLServer.Name: SQLServer,
	Postgres.Name:  Postgres,
	SQLite.Name:    SQLite,
	BigQuery.Name:  BigQuery,
}

// Lookup returns the dialect of a loader backend by name.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("schema.Lookup: unknown dialect %q", name)
	}
	return d, nil
}

// InferSchema maps every column of t to its SQL Server type, in column order.
func InferSchema(t *tabular.Table) ([]ColumnSpec, error) {
	return SQLServer.Infer(t)
}

// Infer maps every column of t to the dialect's SQL type, in column order.
func (d Dialect) Infer(t *tabular.Table) ([]ColumnSpec, error) {
	if t == nil {
		return nil, fmt.Errorf("%s.Infer: no table", d.Name)
	}
	specs := make([]ColumnSpec, 0, len(t.Columns))
	for _, col := range t.Columns {
		sqlType, err := d.SQLType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.Infer: column %q: %w", d.Name, col.Name, err)
		}
		specs = append(specs, ColumnSpec{Name: col.Name, SQLType: sqlType})
	}
	return specs, nil
}

// SQLType looks up a single column type.
func (d Dialect) SQLType(typ tabular.ColumnType) (string, error) {
	sqlType, ok := d.Types[typ]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnmappedType, typ)
	}
	return sqlType, nil
}
