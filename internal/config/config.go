// Package config loads skyloader settings from a YAML file, the process
// environment and a local .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicitly requested config file does
// not exist. Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfigFile is read when no path is given. It may be absent.
const DefaultConfigFile = "skyloader.yaml"

const (
	ProviderGDrive = "gdrive"
	ProviderGCS    = "gcs"
	ProviderLocal  = "local"
)

const (
	BackendPostgres  = "postgres"
	BackendSQLServer = "sqlserver"
	BackendSQLite    = "sqlite"
	BackendBigQuery  = "bigquery"
)

type Config struct {
	Drive    Drive    `yaml:"drive"`
	Database Database `yaml:"database"`
	LogLevel string   `yaml:"log_level"`
}

// Drive selects where files are picked up from.
type Drive struct {
	Provider        string `yaml:"provider"`
	RootFolderID    string `yaml:"root_folder_id"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	CredentialsJSON string `yaml:"credentials_json,omitempty"`
	Bucket          string `yaml:"bucket,omitempty"`
	Path            string `yaml:"path,omitempty"`
}

// Database selects where rows are loaded to.
type Database struct {
	Backend        string            `yaml:"backend"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	Database       string            `yaml:"database"`
	Username       string            `yaml:"username"`
	Password       string            `yaml:"password"`
	Schema         string            `yaml:"schema"`
	Extra          map[string]string `yaml:"extra,omitempty"`
	GoogleInstance string            `yaml:"google_instance,omitempty"`
	Project        string            `yaml:"project,omitempty"`
	Path           string            `yaml:"path,omitempty"`
}

// Load reads the config file at path (DefaultConfigFile when empty), applies
// SKYLOADER_* environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parsing %s: %w: %w", path, ErrInvalidConfig, err)
		}
	case os.IsNotExist(err):
		if explicit {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
	default:
		return nil, fmt.Errorf("config.Load: reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SKYLOADER_DRIVE_PROVIDER":         &c.Drive.Provider,
		"SKYLOADER_ROOT_FOLDER_ID":         &c.Drive.RootFolderID,
		"SKYLOADER_DRIVE_CREDENTIALS_FILE": &c.Drive.CredentialsFile,
		"SKYLOADER_DRIVE_CREDENTIALS_JSON": &c.Drive.CredentialsJSON,
		"SKYLOADER_GCS_BUCKET":             &c.Drive.Bucket,
		"SKYLOADER_DRIVE_PATH":             &c.Drive.Path,
		"SKYLOADER_DB_BACKEND":             &c.Database.Backend,
		"SKYLOADER_DB_HOST":                &c.Database.Host,
		"SKYLOADER_DB_NAME":                &c.Database.Database,
		"SKYLOADER_DB_USER":                &c.Database.Username,
		"SKYLOADER_DB_PASSWORD":            &c.Database.Password,
		"SKYLOADER_DB_SCHEMA":              &c.Database.Schema,
		"SKYLOADER_DB_GOOGLE_INSTANCE":     &c.Database.GoogleInstance,
		"SKYLOADER_BQ_PROJECT":             &c.Database.Project,
		"SKYLOADER_DB_PATH":                &c.Database.Path,
		"SKYLOADER_LOG_LEVEL":              &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("SKYLOADER_DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SKYLOADER_DB_PORT=%q is not a number", v)
		}
		c.Database.Port = port
	}
	if v, ok := lookup("SKYLOADER_DB_EXTRA"); ok && v != "" {
		extra, err := ParseExtra(v)
		if err != nil {
			return err
		}
		c.Database.Extra = extra
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Drive.Provider == "" {
		c.Drive.Provider = ProviderGDrive
	}
	if c.Database.Backend == "" {
		c.Database.Backend = BackendSQLServer
	}
	if c.Database.Schema == "" {
		c.Database.Schema = DefaultSchema(c.Database.Backend)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// DefaultSchema is the schema rows land in when none is configured.
func DefaultSchema(backend string) string {
	switch backend {
	case BackendPostgres:
		return "public"
	case BackendSQLite:
		return "main"
	case BackendBigQuery:
		return "skyloader"
	default:
		return "dbo"
	}
}

// ParseExtra parses driver parameters written as "key=value;key=value".
func ParseExtra(s string) (map[string]string, error) {
	extra := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("config: malformed driver parameter %q", part)
		}
		extra[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return extra, nil
}

// Validate checks the settings needed by the selected provider and backend.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
	); err != nil {
		return err
	}
	if err := c.Drive.Validate(); err != nil {
		return fmt.Errorf("drive: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

func (d Drive) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Provider, validation.Required, validation.In(ProviderGDrive, ProviderGCS, ProviderLocal)),
		validation.Field(&d.RootFolderID, validation.When(d.Provider == ProviderGDrive, validation.Required)),
		validation.Field(&d.Bucket, validation.When(d.Provider == ProviderGCS, validation.Required)),
		validation.Field(&d.Path, validation.When(d.Provider == ProviderLocal, validation.Required)),
	)
}

func (d Database) Validate() error {
	sql := d.Backend == BackendPostgres || d.Backend == BackendSQLServer
	return validation.ValidateStruct(&d,
		validation.Field(&d.Backend, validation.Required,
			validation.In(BackendPostgres, BackendSQLServer, BackendSQLite, BackendBigQuery)),
		validation.Field(&d.Host, validation.When(sql && d.GoogleInstance == "", validation.Required)),
		validation.Field(&d.Database, validation.When(sql, validation.Required)),
		validation.Field(&d.Username, validation.When(sql, validation.Required)),
		validation.Field(&d.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&d.Schema, validation.Required),
		validation.Field(&d.Project, validation.When(d.Backend == BackendBigQuery, validation.Required)),
		validation.Field(&d.Path, validation.When(d.Backend == BackendSQLite, validation.Required)),
	)
}

// Redacted returns the settings that are safe to log at startup.
func (c *Config) Redacted() map[string]any {
	extraKeys := make([]string, 0, len(c.Database.Extra))
	for k := range c.Database.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	return map[string]any{
		"drive_provider":  c.Drive.Provider,
		"root_folder_id":  c.Drive.RootFolderID,
		"bucket":          c.Drive.Bucket,
		"drive_path":      c.Drive.Path,
		"db_backend":      c.Database.Backend,
		"db_host":         c.Database.Host,
		"db_port":         c.Database.Port,
		"db_name":         c.Database.Database,
		"db_schema":       c.Database.Schema,
		"db_extra_keys":   extraKeys,
		"google_instance": c.Database.GoogleInstance,
		"project":         c.Database.Project,
		"db_path":         c.Database.Path,
	}
}
