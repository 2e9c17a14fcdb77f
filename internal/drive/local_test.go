package drive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/tabular"
)

func writeFile(t *testing.T, path, body string, modified time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, modified, modified))
}

func newLocalTree(t *testing.T) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"Inbox", "Archive", "Error"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	base := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(dir, "Inbox", "b.csv"), "id,amount\n1,2.5\n", base.Add(2*time.Hour))
	writeFile(t, filepath.Join(dir, "Inbox", "a.csv"), "id,amount\n1,2.5\n2,3\n", base.Add(time.Hour))
	writeFile(t, filepath.Join(dir, "Inbox", ".partial"), "x", base)

	d, err := NewLocal(dir, zerolog.Nop())
	require.NoError(t, err)
	return d, dir
}

func TestNew_Providers(t *testing.T) {
	dir := t.TempDir()
	d, err := New(config.Drive{Provider: config.ProviderLocal, Path: dir}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, d)

	d, err = New(config.Drive{Provider: config.ProviderGDrive, RootFolderID: "root"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &GoogleDrive{}, d)

	d, err = New(config.Drive{Provider: config.ProviderGCS, Bucket: "b"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &GCS{}, d)

	_, err = New(config.Drive{Provider: "dropbox"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewLocal_MissingDir(t *testing.T) {
	_, err := NewLocal(filepath.Join(t.TempDir(), "missing"), zerolog.Nop())
	assert.Error(t, err)
}

func TestLocal_ListRoot(t *testing.T) {
	d, _ := newLocalTree(t)

	files, err := d.List(context.Background(), d.Root().ID)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		assert.True(t, f.IsFolder(), f.Name)
		assert.Equal(t, []string{"."}, f.Parents)
	}
	assert.ElementsMatch(t, []string{"Inbox", "Archive", "Error"}, names)
}

func TestLocal_ListSortedByModified(t *testing.T) {
	d, _ := newLocalTree(t)

	files, err := d.List(context.Background(), "Inbox")
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "a.csv", files[0].Name)
	assert.Equal(t, "Inbox/a.csv", files[0].ID)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.True(t, files[0].IsFile())
	assert.Equal(t, time.Date(2023, 1, 1, 13, 0, 0, 0, time.UTC), files[0].ModifiedAt)
}

func TestFetchAndListAndDownload(t *testing.T) {
	d, _ := newLocalTree(t)
	ctx := context.Background()

	files, err := ListAndDownload(ctx, d, "Inbox")
	require.NoError(t, err)
	require.Len(t, files, 2)

	a := files[0]
	require.NotNil(t, a.Data)
	assert.Equal(t, 2, a.Data.NumRows())
	assert.Equal(t, []tabular.Column{
		{Name: "id", Type: tabular.Integer},
		{Name: "amount", Type: tabular.Float},
	}, a.Data.Columns)
}

func TestFetch_UnsupportedFormat(t *testing.T) {
	d, dir := newLocalTree(t)
	writeFile(t, filepath.Join(dir, "Inbox", "notes.txt"), "hello", time.Now())

	df := &datafile.DataFile{ID: "Inbox/notes.txt", Name: "notes.txt", MimeType: "text/plain"}
	err := Fetch(context.Background(), d, df)
	assert.ErrorIs(t, err, tabular.ErrUnsupportedFormat)
	assert.Nil(t, df.Data)
}

func TestLocal_MoveAndRename(t *testing.T) {
	d, dir := newLocalTree(t)
	ctx := context.Background()

	require.NoError(t, d.MoveAndRename(ctx, "Inbox/a.csv", "Archive", "a-20230101_120000.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "Inbox", "a.csv"))
	assert.FileExists(t, filepath.Join(dir, "Archive", "a-20230101_120000.csv"))

	// the destination name is taken now
	writeFile(t, filepath.Join(dir, "Inbox", "a.csv"), "x\n", time.Now())
	assert.Error(t, d.MoveAndRename(ctx, "Inbox/a.csv", "Archive", "a-20230101_120000.csv"))

	require.NoError(t, d.MoveAndRename(ctx, "Inbox/b.csv", ".", "archive-b-20230101_120000.csv"))
	assert.FileExists(t, filepath.Join(dir, "archive-b-20230101_120000.csv"))
}

func TestLocal_Upload(t *testing.T) {
	d, dir := newLocalTree(t)

	require.NoError(t, d.Upload(context.Background(), strings.NewReader("log line\n"), "20230101_120000.logs", "."))

	body, err := os.ReadFile(filepath.Join(dir, "20230101_120000.logs"))
	require.NoError(t, err)
	assert.Equal(t, "log line\n", string(body))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), "temp file left behind: %s", e.Name())
	}
}

func TestLocal_RejectsEscapingIDs(t *testing.T) {
	d, _ := newLocalTree(t)

	_, err := d.Open(context.Background(), &datafile.DataFile{ID: "../etc/passwd"})
	assert.Error(t, err)

	_, err = d.List(context.Background(), "Inbox/../../")
	assert.Error(t, err)
}

func TestLocal_Open(t *testing.T) {
	d, _ := newLocalTree(t)
	rc, err := d.Open(context.Background(), &datafile.DataFile{ID: "Inbox/b.csv"})
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,amount\n1,2.5\n", string(body))
}
