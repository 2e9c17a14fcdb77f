package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/schema"
)

// sqlDialect captures what differs between database/sql backends.
type sqlDialect interface {
	driverName() string
	dsn() string
	types() schema.Dialect
	quote(ident string) string
	placeholder(n int) string
	// maxParams and maxRows bound a single INSERT statement.
	maxParams() int
	maxRows() int
	schemaExists(ctx context.Context, q querier, schemaName string) (bool, error)
	createSchemaSQL(schemaName string) string
	tableExists(ctx context.Context, q querier, schemaName, table string) (bool, error)
	bindValue(v any) (any, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLLoader loads through database/sql over a single connection.
type SQLLoader struct {
	dialect sqlDialect
	schema  string
	log     zerolog.Logger
	db      *sql.DB
}

func newSQLLoader(d sqlDialect, schemaName string, log zerolog.Logger) *SQLLoader {
	return &SQLLoader{
		dialect: d,
		schema:  schemaName,
		log:     log.With().Str("backend", d.types().Name).Logger(),
	}
}

func (l *SQLLoader) Connect(ctx context.Context) error {
	if l.db != nil {
		return nil
	}
	db, err := sql.Open(l.dialect.driverName(), l.dialect.dsn())
	if err != nil {
		return fmt.Errorf("Connect: opening %s: %w", l.dialect.driverName(), err)
	}
	// One session per run; sqlite attachments also live on the connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("Connect: ping %s: %w", l.dialect.driverName(), err)
	}
	l.db = db
	l.log.Debug().Msg("Connected to database")
	return nil
}

func (l *SQLLoader) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *SQLLoader) EnsureSchemaExists(ctx context.Context, schemaName string) error {
	if err := l.Connect(ctx); err != nil {
		return err
	}
	exists, err := l.dialect.schemaExists(ctx, l.db, schemaName)
	if err != nil {
		return fmt.Errorf("EnsureSchemaExists: checking %s: %w", schemaName, err)
	}
	if exists {
		l.log.Debug().Str("schema", schemaName).Msg("Schema already exists")
		return nil
	}

	ddl := l.dialect.createSchemaSQL(schemaName)
	l.log.Info().Str("schema", schemaName).Str("ddl", ddl).Msg("Creating schema")
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("EnsureSchemaExists: creating %s: %w", schemaName, err)
	}
	return nil
}

func (l *SQLLoader) EnsureTableExists(ctx context.Context, df *datafile.DataFile) error {
	if err := l.Connect(ctx); err != nil {
		return err
	}
	table := df.TableName()
	exists, err := l.dialect.tableExists(ctx, l.db, l.schema, table)
	if err != nil {
		return fmt.Errorf("EnsureTableExists: checking %s.%s: %w", l.schema, table, err)
	}
	if exists {
		l.log.Debug().Str("table", table).Msg("Table already exists")
		return nil
	}

	ddl, err := l.createTableSQL(df)
	if err != nil {
		return fmt.Errorf("EnsureTableExists: %w", err)
	}
	l.log.Info().Str("table", table).Str("ddl", ddl).Msg("Table does not exist, creating")
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("EnsureTableExists: creating %s.%s: %w", l.schema, table, err)
	}
	return nil
}

func (l *SQLLoader) Load(ctx context.Context, df *datafile.DataFile) error {
	if err := prepareLoad(ctx, l, l.schema, df); err != nil {
		return err
	}

	l.log.Info().Str("file", df.Name).Msg("Loading records")
	if err := l.bulkInsert(ctx, df); err != nil {
		l.log.Error().Err(err).Str("file", df.Name).Msg("Load failed, transaction rolled back")
		return err
	}
	l.log.Info().Str("file", df.Name).Int("records", df.Processed).Msg("Load successful")
	return nil
}

func (l *SQLLoader) createTableSQL(df *datafile.DataFile) (string, error) {
	specs, err := l.dialect.types().Infer(df.Data)
	if err != nil {
		return "", err
	}
	cols := make([]string, len(specs))
	for i, s := range specs {
		cols[i] = l.dialect.quote(s.Name) + " " + s.SQLType
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", l.qualified(df.TableName()), strings.Join(cols, ", ")), nil
}

func (l *SQLLoader) qualified(table string) string {
	return l.dialect.quote(l.schema) + "." + l.dialect.quote(table)
}

// insertSQL renders a multi-row INSERT for rows rows of the given columns.
func (l *SQLLoader) insertSQL(table string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = l.dialect.quote(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", l.qualified(table), strings.Join(quoted, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(l.dialect.placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// chunkRows is how many rows fit in one INSERT for width columns.
func (l *SQLLoader) chunkRows(width int) int {
	n := l.dialect.maxParams() / width
	if n > l.dialect.maxRows() {
		n = l.dialect.maxRows()
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (l *SQLLoader) bulkInsert(ctx context.Context, df *datafile.DataFile) (err error) {
	columns := df.Data.ColumnNames()
	table := df.TableName()
	perChunk := l.chunkRows(len(columns))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bulkInsert: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				l.log.Error().Err(rbErr).Msg("Rollback failed")
			}
		}
	}()

	args := make([]any, 0, perChunk*len(columns))
	rows := 0
	flush := func() error {
		if rows == 0 {
			return nil
		}
		query := l.insertSQL(table, columns, rows)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("bulkInsert: inserting into %s: %w", l.qualified(table), err)
		}
		args = args[:0]
		rows = 0
		return nil
	}

	for record := range df.Records() {
		for _, v := range record {
			bound, err := l.dialect.bindValue(v)
			if err != nil {
				return fmt.Errorf("bulkInsert: row %d: %w", df.Processed, err)
			}
			args = append(args, bound)
		}
		rows++
		if rows == perChunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bulkInsert: commit: %w", err)
	}
	return nil
}
