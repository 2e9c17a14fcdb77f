package loader

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/schema"
	"github.com/dvloznov/skyloader/internal/tabular"
)

const (
	sqliteMaxParams = 32000
	sqliteMaxRows   = 500
	sqliteMemory    = ":memory:"
)

// sqliteDialect maps schemas onto attached database files next to the main
// database. An in-memory main database gets in-memory attachments.
type sqliteDialect struct {
	path string
}

// NewSQLite returns a loader for a SQLite database file.
func NewSQLite(cfg config.Database, log zerolog.Logger) *SQLLoader {
	return newSQLLoader(sqliteDialect{path: cfg.Path}, cfg.Schema, log)
}

func (sqliteDialect) driverName() string     { return "sqlite" }
func (d sqliteDialect) dsn() string          { return d.path }
func (sqliteDialect) types() schema.Dialect  { return schema.SQLite }
func (sqliteDialect) placeholder(int) string { return "?" }
func (sqliteDialect) maxParams() int         { return sqliteMaxParams }
func (sqliteDialect) maxRows() int           { return sqliteMaxRows }

func (sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) schemaExists(ctx context.Context, q querier, schemaName string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_database_list WHERE name = ?", schemaName,
	).Scan(&n)
	return n > 0, err
}

func (d sqliteDialect) createSchemaSQL(schemaName string) string {
	file := sqliteMemory
	if d.path != sqliteMemory && d.path != "" {
		file = filepath.Join(filepath.Dir(d.path), schemaName+".db")
	}
	return "ATTACH DATABASE '" + strings.ReplaceAll(file, "'", "''") + "' AS " + d.quote(schemaName)
}

func (d sqliteDialect) tableExists(ctx context.Context, q querier, schemaName, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+d.quote(schemaName)+".sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&n)
	return n > 0, err
}

// bindValue stores durations as clock text.
func (sqliteDialect) bindValue(v any) (any, error) {
	if d, ok := v.(time.Duration); ok {
		return tabular.FormatDuration(d), nil
	}
	return v, nil
}
