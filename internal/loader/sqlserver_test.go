package loader

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/tabular"
)

func TestSQLServer_CreateTableSQL(t *testing.T) {
	l := NewSQLServer(config.Database{Schema: "dbo"}, zerolog.Nop())
	df := newTestFile(t, "sales.csv")
	df.Data.SetColumn("loaded_at", tabular.Timestamp, time.Now())

	ddl, err := l.createTableSQL(df)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE [dbo].[sales] ([region] nvarchar(max), [units] bigint, [price] float, [loaded_at] datetime)",
		ddl)
}

func TestSQLServer_CreateTableSQL_UnmappedType(t *testing.T) {
	l := NewSQLServer(config.Database{Schema: "dbo"}, zerolog.Nop())
	df := newTestFile(t, "sales.csv")
	df.Data.Columns[1].Type = tabular.ColumnType(42)

	_, err := l.createTableSQL(df)
	assert.Error(t, err)
}

func TestSQLServer_InsertSQL(t *testing.T) {
	l := NewSQLServer(config.Database{Schema: "dbo"}, zerolog.Nop())
	got := l.insertSQL("sales", []string{"a", "b]c"}, 2)
	assert.Equal(t, "INSERT INTO [dbo].[sales] ([a], [b]]c]) VALUES (@p1, @p2), (@p3, @p4)", got)
}

func TestSQLServer_ChunkRows(t *testing.T) {
	l := NewSQLServer(config.Database{Schema: "dbo"}, zerolog.Nop())
	assert.Equal(t, 1000, l.chunkRows(1))
	assert.Equal(t, 400, l.chunkRows(5))
	assert.Equal(t, 1, l.chunkRows(5000))
}

func TestSQLServer_BindValue(t *testing.T) {
	d := sqlServerDialect{}

	v, err := d.bindValue(time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 1, Minute: 2, Second: 3, Nanosecond: 4_000_000}, v)

	_, err = d.bindValue(25 * time.Hour)
	assert.Error(t, err)

	v, err = d.bindValue("text")
	require.NoError(t, err)
	assert.Equal(t, "text", v)
}
