package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/example/schemasync/internal/logging"
	"github.com/example/schemasync/internal/persistence/sqldb"
	"github.com/example/schemasync/internal/vcs"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SCHEMASYNC_"

// Config captures the settings of one schemasync invocation.
type Config struct {
	Server           string `yaml:"server" env:"SERVER"`
	Database         string `yaml:"database" env:"DATABASE"`
	User             string `yaml:"user" env:"USER"`
	Password         string `yaml:"password" env:"PASSWORD"`
	ConnectionString string `yaml:"connection_string" env:"CONNECTION_STRING"`
	Dialect          string `yaml:"dialect" env:"DIALECT"`

	WorkingDir    string `yaml:"working_dir" env:"WORKING_DIR"`
	ScriptsDir    string `yaml:"scripts_dir" env:"SCRIPTS_DIR"`
	Remote        string `yaml:"remote" env:"REMOTE"`
	Branch        string `yaml:"branch" env:"BRANCH"`
	GitExecutable string `yaml:"git_executable" env:"GIT_EXECUTABLE"`

	MarkerTable    string        `yaml:"marker_table" env:"MARKER_TABLE"`
	CommandTimeout time.Duration `yaml:"command_timeout" env:"COMMAND_TIMEOUT"`

	DryRun     bool `yaml:"dry_run" env:"DRY_RUN"`
	PrintAll   bool `yaml:"print_all" env:"PRINT_ALL"`
	MarkOnly   bool `yaml:"mark_only" env:"MARK_ONLY"`
	PromptUser bool `yaml:"prompt" env:"PROMPT"`

	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the configuration used when no source overrides a value.
func Default() Config {
	return Config{
		Dialect:       sqldb.DialectSQLServer,
		Remote:        "origin",
		Branch:        "master",
		GitExecutable: vcs.DefaultExecutable,
		MarkerTable:   sqldb.DefaultMarkerTable,
		LogFormat:     "text",
		LogLevel:      "info",
	}
}

// Load layers defaults, the YAML file at path (when path is not empty), and
// SCHEMASYNC_ environment variables. Flags are applied by the caller and
// Validate is expected to run last.
func Load(path string) (Config, error) {
	return load(path, nil)
}

func load(path string, environment map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every missing or invalid setting in one error.
func (c Config) Validate() error {
	missing := make([]string, 0, 3)
	invalid := make([]string, 0, 4)

	if strings.TrimSpace(c.WorkingDir) == "" {
		missing = append(missing, "working_dir")
	}

	dialect := strings.TrimSpace(c.Dialect)
	if _, err := sqldb.DialectFor(dialect); err != nil {
		invalid = append(invalid, "dialect")
	}

	if strings.TrimSpace(c.ConnectionString) == "" {
		if strings.TrimSpace(c.Database) == "" {
			missing = append(missing, "database")
		}
		if !c.isSQLite() && strings.TrimSpace(c.Server) == "" {
			missing = append(missing, "server")
		}
	}

	if strings.TrimSpace(c.Remote) == "" || strings.HasPrefix(c.Remote, "-") {
		invalid = append(invalid, "remote")
	}
	if strings.TrimSpace(c.Branch) == "" || strings.HasPrefix(c.Branch, "-") {
		invalid = append(invalid, "branch")
	}
	if strings.TrimSpace(c.GitExecutable) == "" {
		invalid = append(invalid, "git_executable")
	}
	if err := sqldb.ValidateTableName(c.MarkerTable); err != nil {
		invalid = append(invalid, "marker_table")
	}
	if c.CommandTimeout < 0 {
		invalid = append(invalid, "command_timeout")
	}
	if c.DryRun && c.MarkOnly {
		invalid = append(invalid, "dry_run+mark_only")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		invalid = append(invalid, "log_format")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "log_level")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required settings are missing: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("settings have invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func (c Config) isSQLite() bool {
	dialect, err := sqldb.DialectFor(c.Dialect)
	return err == nil && dialect.Name() == sqldb.DialectSQLite
}

// ResolveConnectionString returns ConnectionString when set and otherwise
// builds a driver connection string from the individual fields.
func (c Config) ResolveConnectionString() (string, error) {
	if cs := strings.TrimSpace(c.ConnectionString); cs != "" {
		return cs, nil
	}

	dialect, err := sqldb.DialectFor(c.Dialect)
	if err != nil {
		return "", err
	}

	switch dialect.Name() {
	case sqldb.DialectSQLite:
		return c.Database, nil
	case sqldb.DialectPostgres:
		u := url.URL{Scheme: "postgres", Host: c.Server, Path: "/" + c.Database}
		if c.User != "" {
			u.User = url.UserPassword(c.User, c.Password)
		}
		return u.String(), nil
	default:
		query := url.Values{}
		query.Set("database", c.Database)
		u := url.URL{Scheme: "sqlserver", Host: c.Server}
		if c.User != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			query.Set("trusted_connection", "yes")
		}
		u.RawQuery = query.Encode()
		return u.String(), nil
	}
}

var passwordPair = regexp.MustCompile(`(?i)\b(password|pwd)\s*=\s*[^;]*`)

// Redacted returns the resolved connection string with any password masked.
func (c Config) Redacted() string {
	cs, err := c.ResolveConnectionString()
	if err != nil {
		return ""
	}
	if u, err := url.Parse(cs); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return passwordPair.ReplaceAllString(cs, "${1}=xxxxx")
}
