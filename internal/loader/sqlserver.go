package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/schema"
)

// SQL Server caps a statement at 2100 parameters and a VALUES list at 1000 rows.
const (
	sqlServerMaxParams = 2000
	sqlServerMaxRows   = 1000
)

type sqlServerDialect struct {
	cfg config.Database
}

// NewSQLServer returns a loader for Microsoft SQL Server.
func NewSQLServer(cfg config.Database, log zerolog.Logger) *SQLLoader {
	return newSQLLoader(sqlServerDialect{cfg: cfg}, cfg.Schema, log)
}

func (sqlServerDialect) driverName() string       { return "sqlserver" }
func (d sqlServerDialect) dsn() string            { return SQLServerDSN(d.cfg) }
func (sqlServerDialect) types() schema.Dialect    { return schema.SQLServer }
func (sqlServerDialect) placeholder(n int) string { return fmt.Sprintf("@p%d", n) }
func (sqlServerDialect) maxParams() int           { return sqlServerMaxParams }
func (sqlServerDialect) maxRows() int             { return sqlServerMaxRows }

func (sqlServerDialect) quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (sqlServerDialect) schemaExists(ctx context.Context, q querier, schemaName string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = @p1",
		schemaName,
	).Scan(&n)
	return n > 0, err
}

func (d sqlServerDialect) createSchemaSQL(schemaName string) string {
	return "CREATE SCHEMA " + d.quote(schemaName)
}

func (sqlServerDialect) tableExists(ctx context.Context, q querier, schemaName, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1 AND TABLE_SCHEMA = @p2",
		table, schemaName,
	).Scan(&n)
	return n > 0, err
}

// bindValue sends durations as time-of-day values for time columns.
func (sqlServerDialect) bindValue(v any) (any, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return v, nil
	}
	if d < 0 || d >= 24*time.Hour {
		return nil, fmt.Errorf("duration %s does not fit a time column", d)
	}
	return civil.Time{
		Hour:       int(d / time.Hour),
		Minute:     int(d % time.Hour / time.Minute),
		Second:     int(d % time.Minute / time.Second),
		Nanosecond: int(d % time.Second),
	}, nil
}
