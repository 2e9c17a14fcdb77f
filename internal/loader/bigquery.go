package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/schema"
)

// BigQueryLoader loads into a BigQuery dataset. The configured schema names
// the dataset; each file is appended by a single load job, which BigQuery
// applies atomically.
type BigQueryLoader struct {
	project string
	dataset string
	log     zerolog.Logger

	client *bigquery.Client
}

// NewBigQuery returns a loader for BigQuery using Application Default Credentials.
func NewBigQuery(cfg config.Database, log zerolog.Logger) *BigQueryLoader {
	return &BigQueryLoader{
		project: cfg.Project,
		dataset: cfg.Schema,
		log:     log.With().Str("backend", schema.BigQuery.Name).Logger(),
	}
}

func (l *BigQueryLoader) Connect(ctx context.Context) error {
	if l.client != nil {
		return nil
	}
	client, err := bigquery.NewClient(ctx, l.project)
	if err != nil {
		return fmt.Errorf("Connect: bigquery client: %w", err)
	}
	l.client = client
	return nil
}

func (l *BigQueryLoader) Close() error {
	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}

func (l *BigQueryLoader) EnsureSchemaExists(ctx context.Context, dataset string) error {
	if err := l.Connect(ctx); err != nil {
		return err
	}
	ds := l.client.Dataset(dataset)
	_, err := ds.Metadata(ctx)
	if err == nil {
		l.log.Debug().Str("dataset", dataset).Msg("Dataset already exists")
		return nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("EnsureSchemaExists: checking %s: %w", dataset, err)
	}

	l.log.Info().Str("dataset", dataset).Msg("Creating dataset")
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isStatus(err, http.StatusConflict) {
		return fmt.Errorf("EnsureSchemaExists: creating %s: %w", dataset, err)
	}
	return nil
}

func (l *BigQueryLoader) EnsureTableExists(ctx context.Context, df *datafile.DataFile) error {
	if err := l.Connect(ctx); err != nil {
		return err
	}
	tableName := df.TableName()
	table := l.client.Dataset(l.dataset).Table(tableName)
	_, err := table.Metadata(ctx)
	if err == nil {
		l.log.Debug().Str("table", tableName).Msg("Table already exists")
		return nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("EnsureTableExists: checking %s.%s: %w", l.dataset, tableName, err)
	}

	tableSchema, err := bigQuerySchema(df)
	if err != nil {
		return fmt.Errorf("EnsureTableExists: %w", err)
	}
	l.log.Info().Str("table", tableName).Int("columns", len(tableSchema)).Msg("Table does not exist, creating")
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: tableSchema}); err != nil && !isStatus(err, http.StatusConflict) {
		return fmt.Errorf("EnsureTableExists: creating %s.%s: %w", l.dataset, tableName, err)
	}
	return nil
}

func (l *BigQueryLoader) Load(ctx context.Context, df *datafile.DataFile) error {
	if err := prepareLoad(ctx, l, l.dataset, df); err != nil {
		return err
	}

	payload, err := encodeNDJSON(df)
	if err != nil {
		return fmt.Errorf("Load: encoding %s: %w", df.Name, err)
	}

	src := bigquery.NewReaderSource(payload)
	src.SourceFormat = bigquery.JSON

	ld := l.client.Dataset(l.dataset).Table(df.TableName()).LoaderFrom(src)
	ld.WriteDisposition = bigquery.WriteAppend
	ld.CreateDisposition = bigquery.CreateNever
	ld.JobID = "skyloader_" + uuid.NewString()

	l.log.Info().Str("file", df.Name).Str("job_id", ld.JobID).Msg("Loading records")
	job, err := ld.Run(ctx)
	if err != nil {
		return fmt.Errorf("Load: run load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("Load: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		l.log.Error().Err(err).Str("file", df.Name).Msg("Load job failed, nothing written")
		return fmt.Errorf("Load: job error: %w", err)
	}
	l.log.Info().Str("file", df.Name).Int("records", df.Processed).Msg("Load successful")
	return nil
}

func bigQuerySchema(df *datafile.DataFile) (bigquery.Schema, error) {
	specs, err := schema.BigQuery.Infer(df.Data)
	if err != nil {
		return nil, err
	}
	out := make(bigquery.Schema, len(specs))
	for i, s := range specs {
		out[i] = &bigquery.FieldSchema{Name: s.Name, Type: bigquery.FieldType(s.SQLType)}
	}
	return out, nil
}

// encodeNDJSON renders one JSON object per row, the format of the load job.
func encodeNDJSON(df *datafile.DataFile) (*bytes.Buffer, error) {
	columns := df.Data.ColumnNames()
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	for record := range df.Records() {
		obj := make(map[string]any, len(columns))
		for i, v := range record {
			obj[columns[i]] = bigQueryValue(v)
		}
		if err := enc.Encode(obj); err != nil {
			return nil, fmt.Errorf("row %d: %w", df.Processed, err)
		}
	}
	return buf, nil
}

func bigQueryValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return bigquery.CivilDateTimeString(civil.DateTimeOf(x))
	case time.Duration:
		return bigquery.CivilTimeString(civil.TimeOf(time.Time{}.Add(x)))
	}
	return v
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
