package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.acto/acto.yaml"
	DefaultLogDir  = "~/.acto/logs/"
	DefaultHistory = "~/.acto/history.yaml"
)

// Repository backends.
const (
	RepositoryPostgres = "postgres"
	RepositorySnapshot = "snapshot"
)

var validate = validator.New()

// Config is the top-level configuration.
type Config struct {
	Version    int              `yaml:"version" validate:"eq=1"`
	Source     SourceConfig     `yaml:"source,omitempty"`
	Repository RepositoryConfig `yaml:"repository"`
	Analysis   AnalysisConfig   `yaml:"analysis,omitempty"`
	Audit      AuditConfig      `yaml:"audit,omitempty"`
	Server     ServerConfig     `yaml:"server,omitempty"`
	Logging    LogConfig        `yaml:"logging,omitempty"`
	Telemetry  TelemetryConfig  `yaml:"telemetry,omitempty"`
}

// SourceConfig is the database whose catalog is discovered, and which holds
// the entity_dependencies table for the postgres repository.
type SourceConfig struct {
	Type           string `yaml:"type,omitempty" validate:"omitempty,oneof=postgresql oracle"`
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Database       string `yaml:"database,omitempty"`
	Schema         string `yaml:"schema,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	SSL            bool   `yaml:"ssl,omitempty"`
	MaxConnections int    `yaml:"max_connections,omitempty"` // default 4, max 20
}

// RepositoryConfig selects where dependency rows come from.
type RepositoryConfig struct {
	Type         string        `yaml:"type" validate:"oneof=postgres snapshot"`
	SnapshotPath string        `yaml:"snapshot_path,omitempty" validate:"required_if=Type snapshot"`
	CacheSize    int           `yaml:"cache_size,omitempty" validate:"min=0"`
	CacheTTL     time.Duration `yaml:"cache_ttl,omitempty" validate:"min=0"`
}

// AnalysisConfig bounds path enumeration and carries the risk policy.
type AnalysisConfig struct {
	MaxDepth    int               `yaml:"max_depth,omitempty" validate:"min=1,max=50"`
	MaxPaths    int               `yaml:"max_paths,omitempty" validate:"min=1,max=100000"`
	Parallelism int               `yaml:"parallelism,omitempty" validate:"min=1,max=64"`
	Policy      impact.RiskPolicy `yaml:"policy,omitempty"`
}

// AuditConfig points at the MongoDB collection that stores approval requests.
// Auditing is off when ConnectionString is empty.
type AuditConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
	Database         string `yaml:"database,omitempty"`
	Collection       string `yaml:"collection,omitempty"`
}

// Enabled reports whether approval requests are persisted.
func (a AuditConfig) Enabled() bool {
	return a.ConnectionString != ""
}

// ServerConfig configures `acto serve`.
type ServerConfig struct {
	Port    int  `yaml:"port,omitempty" validate:"min=1,max=65535"`
	DevMode bool `yaml:"dev_mode,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty" validate:"oneof=debug info warn error"`
	Directory     string `yaml:"directory,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	Tracing string `yaml:"tracing,omitempty" validate:"oneof=none stdout"`
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Policy keys absent from the file keep their built-in values.
	cfg := &Config{Analysis: AnalysisConfig{Policy: impact.DefaultRiskPolicy()}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied, reading
// dependencies from the snapshot at the default location.
func Default() *Config {
	cfg := &Config{
		Version:  CurrentVersion,
		Analysis: AnalysisConfig{Policy: impact.DefaultRiskPolicy()},
	}
	cfg.applyDefaults()
	return cfg
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks field constraints and cross-section consistency.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Repository.Type == RepositoryPostgres && c.Source.Type != "postgresql" {
		return fmt.Errorf("invalid config: repository type postgres needs a postgresql source (got %q)", c.Source.Type)
	}
	if err := c.Analysis.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid config: analysis.policy: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Source.MaxConnections == 0 {
		c.Source.MaxConnections = 4
	}
	if c.Source.MaxConnections > 20 {
		c.Source.MaxConnections = 20
	}
	if c.Repository.Type == "" {
		if c.Source.Type == "postgresql" {
			c.Repository.Type = RepositoryPostgres
		} else {
			c.Repository.Type = RepositorySnapshot
		}
	}
	if c.Repository.Type == RepositorySnapshot && c.Repository.SnapshotPath == "" {
		c.Repository.SnapshotPath = "~/.acto/snapshot.yaml"
	}
	c.Repository.SnapshotPath = ExpandHome(c.Repository.SnapshotPath)
	if c.Repository.CacheTTL == 0 && c.Repository.CacheSize > 0 {
		c.Repository.CacheTTL = 5 * time.Minute
	}
	if c.Analysis.MaxDepth == 0 {
		c.Analysis.MaxDepth = impact.DefaultMaxDepth
	}
	if c.Analysis.MaxPaths == 0 {
		c.Analysis.MaxPaths = impact.DefaultMaxPaths
	}
	if c.Analysis.Parallelism == 0 {
		c.Analysis.Parallelism = 4
	}
	if c.Analysis.Policy.Version == "" {
		c.Analysis.Policy.Version = impact.DefaultPolicyVersion
	}
	if c.Audit.Database == "" {
		c.Audit.Database = "acto"
	}
	if c.Audit.Collection == "" {
		c.Audit.Collection = "approval_requests"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8230
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome(DefaultLogDir)
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
	if c.Telemetry.Tracing == "" {
		c.Telemetry.Tracing = "none"
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Audit.ConnectionString, err = ResolveValue(c.Audit.ConnectionString)
	if err != nil {
		return fmt.Errorf("audit connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves a ${PROVIDER:ref} secret reference. Values without a
// reference are returned unchanged.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}
	return resolveSecret(matches[1], matches[2])
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
