package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skyloader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
drive:
  provider: gdrive
  root_folder_id: root123
  credentials_file: sa.json
database:
  backend: sqlserver
  host: sql.example.com
  port: 1433
  database: finance
  username: loader
  password: secret
  extra:
    encrypt: "true"
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "root123", cfg.Drive.RootFolderID)
	assert.Equal(t, "sql.example.com", cfg.Database.Host)
	assert.Equal(t, 1433, cfg.Database.Port)
	assert.Equal(t, "dbo", cfg.Database.Schema)
	assert.Equal(t, map[string]string{"encrypt": "true"}, cfg.Database.Extra)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
drive:
  provider: local
  path: /data/drive
database:
  backend: postgres
  host: db
  database: app
  username: app
`)
	t.Setenv("SKYLOADER_DB_HOST", "override-host")
	t.Setenv("SKYLOADER_DB_PORT", "6543")
	t.Setenv("SKYLOADER_DB_EXTRA", "sslmode=disable; application_name=skyloader")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "override-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "public", cfg.Database.Schema)
	assert.Equal(t, map[string]string{"sslmode": "disable", "application_name": "skyloader"}, cfg.Database.Extra)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_DefaultFileMayBeAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SKYLOADER_DRIVE_PROVIDER", "local")
	t.Setenv("SKYLOADER_DRIVE_PATH", "/srv/drive")
	t.Setenv("SKYLOADER_DB_BACKEND", "sqlite")
	t.Setenv("SKYLOADER_DB_PATH", "/srv/skyloader.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Database.Schema)
	assert.Equal(t, "/srv/skyloader.db", cfg.Database.Path)
}

func TestLoad_BadPort(t *testing.T) {
	path := writeConfig(t, "drive: {provider: local, path: /x}\ndatabase: {backend: sqlite, path: /y}\n")
	t.Setenv("SKYLOADER_DB_PORT", "abc")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "gdrive needs root folder",
			cfg: Config{
				Drive:    Drive{Provider: ProviderGDrive},
				Database: Database{Backend: BackendSQLite, Path: "x.db", Schema: "main"},
			},
			wantErr: true,
		},
		{
			name: "gcs needs bucket",
			cfg: Config{
				Drive:    Drive{Provider: ProviderGCS},
				Database: Database{Backend: BackendSQLite, Path: "x.db", Schema: "main"},
			},
			wantErr: true,
		},
		{
			name: "unknown backend",
			cfg: Config{
				Drive:    Drive{Provider: ProviderLocal, Path: "/d"},
				Database: Database{Backend: "oracle", Schema: "x"},
			},
			wantErr: true,
		},
		{
			name: "postgres via cloud sql needs no host",
			cfg: Config{
				Drive: Drive{Provider: ProviderLocal, Path: "/d"},
				Database: Database{
					Backend: BackendPostgres, Database: "app", Username: "sa@project.iam",
					GoogleInstance: "project:region:instance", Schema: "public",
				},
			},
		},
		{
			name: "bigquery needs project",
			cfg: Config{
				Drive:    Drive{Provider: ProviderLocal, Path: "/d"},
				Database: Database{Backend: BackendBigQuery, Schema: "raw"},
			},
			wantErr: true,
		},
		{
			name: "bad log level",
			cfg: Config{
				LogLevel: "loud",
				Drive:    Drive{Provider: ProviderLocal, Path: "/d"},
				Database: Database{Backend: BackendSQLite, Path: "x.db", Schema: "main"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseExtra(t *testing.T) {
	got, err := ParseExtra("encrypt=disable;;TrustServerCertificate = true")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"encrypt": "disable", "TrustServerCertificate": "true"}, got)

	_, err = ParseExtra("novalue")
	assert.Error(t, err)
}

func TestRedacted_HidesCredentials(t *testing.T) {
	cfg := Config{
		Drive:    Drive{Provider: ProviderGDrive, RootFolderID: "r", CredentialsJSON: `{"private_key":"k"}`},
		Database: Database{Backend: BackendSQLServer, Username: "u", Password: "p", Extra: map[string]string{"b": "1", "a": "2"}},
	}
	red := cfg.Redacted()
	for _, v := range red {
		assert.NotEqual(t, "p", v)
		assert.NotEqual(t, "u", v)
	}
	assert.Equal(t, []string{"a", "b"}, red["db_extra_keys"])
}
