package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/switchyard/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "switchyard.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultMetricsNamespace prefixes every metric name.
	DefaultMetricsNamespace = "switchyard"

	// DefaultTracerName names the OpenTelemetry tracer.
	DefaultTracerName = "github.com/vango-dev/switchyard"

	// DefaultDatabaseDriver is the database/sql driver used when a DSN is set.
	DefaultDatabaseDriver = "postgres"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvAddr        = "SWITCHYARD_ADDR"
	EnvDev         = "SWITCHYARD_DEV"
	EnvDatabaseDSN = "SWITCHYARD_DATABASE_DSN"
)

// Config represents switchyard.json.
type Config struct {
	// Name is the service name, used in logs and the routes listing.
	Name string `json:"name,omitempty"`

	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr,omitempty"`

	// DevMode writes uncaught errors and stack traces into 500 responses.
	DevMode bool `json:"devMode,omitempty"`

	// CanonicalPaths redirects non-canonical request paths before matching.
	CanonicalPaths bool `json:"canonicalPaths,omitempty"`

	Metrics  MetricsConfig  `json:"metrics"`
	Tracing  TracingConfig  `json:"tracing"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
	Log      LogConfig      `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// MetricsConfig configures the Prometheus middleware and endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Path      string `json:"path,omitempty"`
}

// TracingConfig configures the OpenTelemetry middleware.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty"`
}

// DatabaseConfig configures the SQL repository. An empty DSN disables it.
type DatabaseConfig struct {
	Driver string `json:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty"`

	// Table is listed page by page at /records. Its rows need id, name and
	// created_at columns.
	Table string `json:"table,omitempty"`
}

// StorageConfig configures S3 object results. An empty Bucket disables them.
type StorageConfig struct {
	Bucket string `json:"bucket,omitempty"`
	Region string `json:"region,omitempty"`
	Prefix string `json:"prefix,omitempty"`

	// Endpoint points at an S3-compatible store instead of AWS.
	Endpoint string `json:"endpoint,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for switchyard.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("SW001").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("SW002").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("SW002").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("SW004").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("SW004").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "switchyard"
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// ApplyEnv overrides fields from SWITCHYARD_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvDev); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("SW003").
				WithDetail(EnvDev + " must be a boolean, got " + strconv.Quote(v))
		}
		c.DevMode = dev
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New("SW003").
			WithDetail("addr " + strconv.Quote(c.Addr) + " is not host:port").
			WithSuggestion(`Use a form like ":8080" or "127.0.0.1:8080"`)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return errors.New("SW003").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("SW003").
			WithDetail("metrics.path must start with /")
	}
	if c.Storage.Bucket != "" && c.Storage.Region == "" {
		return errors.New("SW003").
			WithDetail("storage.region is required when storage.bucket is set")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("SW003").
			WithDetail("log.format must be text or json, got " + strconv.Quote(c.Log.Format))
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("SW003").
			WithDetail("log.level must be debug, info, warn or error, got " + strconv.Quote(c.Log.Level))
	}
	return level, nil
}

// HasDatabase reports whether a database is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.DSN != ""
}

// HasRecords reports whether a database table is configured for listing.
func (c *Config) HasRecords() bool {
	return c.HasDatabase() && c.Database.Table != ""
}

// HasStorage reports whether object storage is configured.
func (c *Config) HasStorage() bool {
	return c.Storage.Bucket != ""
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing switchyard.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("SW001").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
