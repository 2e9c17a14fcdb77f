package loader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"strings"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/schema"
)

// PostgresLoader loads with COPY over a single pgx connection. When a Cloud
// SQL instance is configured the connection is dialed through cloudsqlconn
// with IAM authentication.
type PostgresLoader struct {
	cfg    config.Database
	schema string
	log    zerolog.Logger

	conn   *pgx.Conn
	dialer *cloudsqlconn.Dialer
}

// NewPostgres returns a loader for PostgreSQL.
func NewPostgres(cfg config.Database, log zerolog.Logger) *PostgresLoader {
	return &PostgresLoader{
		cfg:    cfg,
		schema: cfg.Schema,
		log:    log.With().Str("backend", schema.Postgres.Name).Logger(),
	}
}

func (l *PostgresLoader) Connect(ctx context.Context) error {
	if l.conn != nil {
		return nil
	}

	connConfig, err := l.connConfig(ctx)
	if err != nil {
		return err
	}
	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		l.closeDialer()
		return fmt.Errorf("Connect: %w", wrapConnectionError(err, l.cfg))
	}
	l.conn = conn
	l.log.Debug().Msg("Connected to database")
	return nil
}

func (l *PostgresLoader) connConfig(ctx context.Context) (*pgx.ConnConfig, error) {
	if l.cfg.GoogleInstance == "" {
		connConfig, err := pgx.ParseConfig(PostgresDSN(l.cfg))
		if err != nil {
			return nil, fmt.Errorf("Connect: parsing connection config: %w", err)
		}
		return connConfig, nil
	}

	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("Connect: creating Cloud SQL dialer: %w", err)
	}
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		l.cfg.GoogleInstance, l.cfg.Username, l.cfg.Database)
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("Connect: parsing connection config: %w", err)
	}
	instance := l.cfg.GoogleInstance
	connConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instance)
	}
	l.dialer = dialer
	return connConfig, nil
}

func (l *PostgresLoader) Close() error {
	var err error
	if l.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = l.conn.Close(ctx)
		l.conn = nil
	}
	l.closeDialer()
	return err
}

func (l *PostgresLoader) closeDialer() {
	if l.dialer != nil {
		l.dialer.Close()
		l.dialer = nil
	}
}

func (l *PostgresLoader) EnsureSchemaExists(ctx context.Context, schemaName string) error {
	if err := l.Connect(ctx); err != nil {
		return err
	}
	var exists bool
	err := l.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		schemaName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("EnsureSchemaExists: checking %s: %w", schemaName, err)
	}
	if exists {
		l.log.Debug().Str("schema", schemaName).Msg("Schema already exists")
		return nil
	}

	ddl := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schemaName}.Sanitize()
	l.log.Info().Str("schema", schemaName).Str("ddl", ddl).Msg("Creating schema")
	if _, err := l.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("EnsureSchemaExists: creating %s: %w", schemaName, err)
	}
	return nil
}

func (l *PostgresLoader) EnsureTableExists(ctx context.Context, df *datafile.DataFile) error {
	if err := l.Connect(ctx); err != nil {
		return err
	}
	table := df.TableName()
	var exists bool
	err := l.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)",
		l.schema, table,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("EnsureTableExists: checking %s.%s: %w", l.schema, table, err)
	}
	if exists {
		l.log.Debug().Str("table", table).Msg("Table already exists")
		return nil
	}

	ddl, err := postgresCreateTableSQL(l.schema, df)
	if err != nil {
		return fmt.Errorf("EnsureTableExists: %w", err)
	}
	l.log.Info().Str("table", table).Str("ddl", ddl).Msg("Table does not exist, creating")
	if _, err := l.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("EnsureTableExists: creating %s.%s: %w", l.schema, table, err)
	}
	return nil
}

func postgresCreateTableSQL(schemaName string, df *datafile.DataFile) (string, error) {
	specs, err := schema.Postgres.Infer(df.Data)
	if err != nil {
		return "", err
	}
	cols := make([]string, len(specs))
	for i, s := range specs {
		cols[i] = pgx.Identifier{s.Name}.Sanitize() + " " + s.SQLType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{schemaName, df.TableName()}.Sanitize(), strings.Join(cols, ", ")), nil
}

func (l *PostgresLoader) Load(ctx context.Context, df *datafile.DataFile) error {
	if err := prepareLoad(ctx, l, l.schema, df); err != nil {
		return err
	}

	l.log.Info().Str("file", df.Name).Msg("Loading records")
	if err := l.copyRows(ctx, df); err != nil {
		l.log.Error().Err(err).Str("file", df.Name).Msg("Load failed, transaction rolled back")
		return err
	}
	l.log.Info().Str("file", df.Name).Int("records", df.Processed).Msg("Load successful")
	return nil
}

func (l *PostgresLoader) copyRows(ctx context.Context, df *datafile.DataFile) (err error) {
	tx, err := l.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("copyRows: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				l.log.Error().Err(rbErr).Msg("Rollback failed")
			}
		}
	}()

	next, stop := iter.Pull(df.Records())
	defer stop()

	src := pgx.CopyFromFunc(func() ([]any, error) {
		row, ok := next()
		if !ok {
			return nil, nil
		}
		return postgresRow(row), nil
	})

	table := pgx.Identifier{l.schema, df.TableName()}
	if _, err := tx.CopyFrom(ctx, table, df.Data.ColumnNames(), src); err != nil {
		return fmt.Errorf("copyRows: copying into %s: %w", table.Sanitize(), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("copyRows: commit: %w", err)
	}
	return nil
}

// postgresRow converts durations for interval columns.
func postgresRow(row []any) []any {
	for i, v := range row {
		if d, ok := v.(time.Duration); ok {
			row[i] = pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}
		}
	}
	return row
}

// wrapConnectionError adds the target to connection failures so the log
// names the host that could not be reached.
func wrapConnectionError(err error, cfg config.Database) error {
	target := cfg.GoogleInstance
	if target == "" {
		target = fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}
	return fmt.Errorf("connecting to postgres at %s: %w", target, err)
}
