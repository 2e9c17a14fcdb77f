package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/skyloader/internal/config"
)

// newDriveDir lays out a local drive with all four role folders.
func newDriveDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"Inbox", "Archive", "Error", "Log"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	return root
}

func writeConfig(t *testing.T, driveDir string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf("drive:\n  provider: local\n  path: %s\ndatabase:\n  backend: sqlite\n  path: %s\n",
		driveDir, filepath.Join(dir, "skyloader.db"))
	path := filepath.Join(dir, "skyloader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"run", "inspect", "folders"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().ShorthandLookup("v"))
}

func TestRun_LoadsAndRelocates(t *testing.T) {
	root := newDriveDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Inbox", "sales.csv"),
		[]byte("region,units\nnorth,3\nsouth,4\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Inbox", "notes.txt"), []byte("hello"), 0o644))

	out, err := execute(t, "--config", writeConfig(t, root), "run")
	require.NoError(t, err)
	assert.Contains(t, out, "2 files, 1 archived, 1 errored, 0 skipped")

	archived, err := filepath.Glob(filepath.Join(root, "Archive", "sales-*.csv"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	errored, err := filepath.Glob(filepath.Join(root, "Error", "notes-*.txt"))
	require.NoError(t, err)
	assert.Len(t, errored, 1)

	logs, err := filepath.Glob(filepath.Join(root, "Log", "*.logs"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	content, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "sales.csv")
}

func TestInspect_PrintsInferredSchema(t *testing.T) {
	root := newDriveDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Inbox", "sales.csv"),
		[]byte("region,units,price\nnorth,3,9.5\n"), 0o644))

	out, err := execute(t, "-c", writeConfig(t, root), "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "sales.csv -> main.sales (1 rows)")
	assert.Regexp(t, `units\s+int64\s+INTEGER`, out)
	assert.Regexp(t, `price\s+float64\s+REAL`, out)

	// inspect never moves files
	assert.FileExists(t, filepath.Join(root, "Inbox", "sales.csv"))
}

func TestFolders_ShowsRootFallback(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "Inbox"), 0o755))

	out, err := execute(t, "--config", writeConfig(t, root), "folders")
	require.NoError(t, err)
	assert.Regexp(t, `inbox\s+Inbox\s+Inbox`, out)
	assert.Regexp(t, `archive\s+\(root\)`, out)
	assert.Regexp(t, `logs\s+\(root\)`, out)
}

func TestExecute_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "folders")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCodeForError(err))
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"config not found", fmt.Errorf("%w: x.yaml", config.ErrConfigNotFound), ExitUsage},
		{"invalid config", fmt.Errorf("config.Load: %w: drive: bad", config.ErrInvalidConfig), ExitUsage},
		{"unknown flag", errors.New("unknown flag: --nope"), ExitUsage},
		{"unknown command", errors.New(`unknown command "nope" for "skyloader"`), ExitUsage},
		{"run failure", errors.New("ProcessFiles: listing inbox: permission denied"), ExitRunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}
