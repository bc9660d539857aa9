package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vgraph.json"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log output format.
	DefaultLogFormat = "text"

	// DefaultInputHistory is the default number of versions an input keeps per context.
	DefaultInputHistory = 16

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "vgraph"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/vgraph"

	// DefaultAddr is the default listen address for `vgraph serve`.
	DefaultAddr = "localhost:7070"

	// DefaultSnapshotDir is the default directory for file snapshots.
	DefaultSnapshotDir = "snapshots"

	// DefaultSnapshotPrefix is the default S3 key prefix for snapshots.
	DefaultSnapshotPrefix = "vgraph/"
)

// Config represents the complete vgraph.json configuration.
type Config struct {
	// Manifests lists HCL manifest files or directories, relative to the config file.
	Manifests []string `json:"manifests,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// Graph contains graph engine configuration.
	Graph GraphConfig `json:"graph"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing"`

	// Server contains HTTP inspection server configuration.
	Server ServerConfig `json:"server"`

	// Snapshot contains snapshot export configuration.
	Snapshot SnapshotConfig `json:"snapshot"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is either text or json.
	Format string `json:"format,omitempty"`
}

// GraphConfig contains graph engine settings.
type GraphConfig struct {
	// InputHistory is the number of versions each input keeps per context.
	InputHistory int `json:"inputHistory,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`
}

// SnapshotConfig contains snapshot export settings.
// When Bucket is set, snapshots are uploaded to S3 instead of written to Dir.
type SnapshotConfig struct {
	Dir    string `json:"dir,omitempty"`
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// Default creates a new Config with default values.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from vgraph.json in dir.
// A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.configPath = path
			return cfg, nil
		}
		return nil, vgerrors.New("G040").WithSubject(path).Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, vgerrors.New("G040").
			WithSubject(path).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to its original path.
func (c *Config) Save() error {
	if c.configPath == "" {
		return vgerrors.Newf(vgerrors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return vgerrors.New("G040").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return vgerrors.New("G040").WithSubject(path).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// ManifestPaths returns Manifests resolved against the config directory.
func (c *Config) ManifestPaths() []string {
	paths := make([]string, 0, len(c.Manifests))
	for _, p := range c.Manifests {
		if !filepath.IsAbs(p) && c.Dir() != "" {
			p = filepath.Join(c.Dir(), p)
		}
		paths = append(paths, p)
	}
	return paths
}

// SnapshotDir returns the snapshot directory resolved against the config directory.
func (c *Config) SnapshotDir() string {
	if filepath.IsAbs(c.Snapshot.Dir) || c.Dir() == "" {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.Dir(), c.Snapshot.Dir)
}

// SlogLevel returns Log.Level as a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Graph.InputHistory == 0 {
		c.Graph.InputHistory = DefaultInputHistory
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = DefaultSnapshotDir
	}
	if c.Snapshot.Prefix == "" {
		c.Snapshot.Prefix = DefaultSnapshotPrefix
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return vgerrors.New("G040").
			WithSubject("log.level").
			WithDetail("Unknown log level " + c.Log.Level).
			WithSuggestion("Use one of debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return vgerrors.New("G040").
			WithSubject("log.format").
			WithDetail("Unknown log format " + c.Log.Format).
			WithSuggestion("Use text or json")
	}
	if c.Graph.InputHistory < 1 {
		return vgerrors.New("G040").
			WithSubject("graph.inputHistory").
			WithDetail("Input history must keep at least one version")
	}
	if strings.ContainsAny(c.Metrics.Namespace, " -.") {
		return vgerrors.New("G040").
			WithSubject("metrics.namespace").
			WithDetail("Prometheus namespaces may only contain letters, digits and underscores")
	}
	return nil
}

// Exists checks if a vgraph.json exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing vgraph.json.
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
			return "", vgerrors.New("G040").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest vgraph.json above
// the working directory, or the defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return Load(wd)
	}
	return Load(root)
}
