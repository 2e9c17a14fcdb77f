// Package loader writes parsed files into a destination database. Every
// backend creates the target schema and table on demand and appends rows in
// a single all-or-nothing unit.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
)

// ErrNoPayload is returned when a file reaches a loader before it was fetched.
var ErrNoPayload = errors.New("file has no parsed payload")

// Loader is implemented by every destination backend.
type Loader interface {
	// Connect opens the backend session. It is a no-op when already connected.
	Connect(ctx context.Context) error

	// Close releases the session. It is safe to call more than once.
	Close() error

	// EnsureSchemaExists creates the schema unless the catalog already has it.
	EnsureSchemaExists(ctx context.Context, schema string) error

	// EnsureTableExists creates the table for df unless the catalog already has it.
	EnsureTableExists(ctx context.Context, df *datafile.DataFile) error

	// Load appends every row of df to its table, creating schema and table
	// as needed. Either all rows are written or none.
	Load(ctx context.Context, df *datafile.DataFile) error
}

// New returns the loader for the configured backend. No connection is made
// until first use.
func New(cfg config.Database, log zerolog.Logger) (Loader, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return NewPostgres(cfg, log), nil
	case config.BackendSQLServer:
		return NewSQLServer(cfg, log), nil
	case config.BackendSQLite:
		return NewSQLite(cfg, log), nil
	case config.BackendBigQuery:
		return NewBigQuery(cfg, log), nil
	}
	return nil, fmt.Errorf("loader.New: unknown backend %q", cfg.Backend)
}

// prepareLoad runs the steps every backend shares before its bulk transfer.
func prepareLoad(ctx context.Context, l Loader, schemaName string, df *datafile.DataFile) error {
	if df.Data == nil {
		return fmt.Errorf("%s: %w", df.Name, ErrNoPayload)
	}
	if len(df.Data.Columns) == 0 {
		return fmt.Errorf("%s: table has no columns", df.Name)
	}
	if err := l.Connect(ctx); err != nil {
		return err
	}
	if err := l.EnsureSchemaExists(ctx, schemaName); err != nil {
		return err
	}
	return l.EnsureTableExists(ctx, df)
}
