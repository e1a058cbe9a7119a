package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/store/internal/errors"
	"github.com/vango-dev/store/pkg/persist"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vstore.yaml"

	// DefaultAddr is the default inspector listen address.
	DefaultAddr = "localhost:7070"

	// DefaultDriver is the default backend driver.
	DefaultDriver = "memory"

	// DefaultTimeout bounds each backend call.
	DefaultTimeout = 5 * time.Second
)

// Drivers lists the supported backend drivers.
var Drivers = []string{"memory", "redis", "sqlite", "s3", "etcd"}

// Config represents the complete vstore.yaml configuration.
type Config struct {
	// Server contains inspector server configuration.
	Server ServerConfig `yaml:"server"`

	// Logging contains log output configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Backend selects and configures the persistent backend used for
	// local storage.
	Backend BackendConfig `yaml:"backend"`

	// Stores declares writable stores.
	Stores []StoreConfig `yaml:"stores"`

	// Derived declares derived stores, in dependency order.
	Derived []DerivedConfig `yaml:"derived"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains inspector settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`

	// Metrics serves Prometheus metrics on /metrics.
	Metrics bool `yaml:"metrics"`

	// Tracing records an OpenTelemetry span per derivation.
	Tracing bool `yaml:"tracing"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// BackendConfig selects the backend behind the local storage kind.
type BackendConfig struct {
	// Driver is one of memory, redis, sqlite, s3, etcd.
	Driver string `yaml:"driver"`

	// Codec is json or yaml.
	Codec string `yaml:"codec"`

	// TimeoutRaw bounds each backend call, e.g. "5s".
	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`

	Redis  RedisConfig  `yaml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	S3     S3Config     `yaml:"s3"`
	Etcd   EtcdConfig   `yaml:"etcd"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`

	TTLRaw string        `yaml:"ttl"`
	TTL    time.Duration `yaml:"-"`
}

// SQLiteConfig configures the sqlite driver.
type SQLiteConfig struct {
	Path      string `yaml:"path"`
	Table     string `yaml:"table"`
	Namespace string `yaml:"namespace"`
}

// S3Config configures the s3 driver.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// PathStyle forces path-style addressing, as most S3-compatible
	// servers require.
	PathStyle bool `yaml:"path_style"`
}

// EtcdConfig configures the etcd driver.
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"`
	Prefix    string   `yaml:"prefix"`
}

// StoreConfig declares a writable store backed by a storage kind.
type StoreConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Initial any    `yaml:"initial"`
}

// DerivedConfig declares a derived store computed by an expr expression.
// Source values are bound to their store names inside the expression.
type DerivedConfig struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources"`
	Expr    string   `yaml:"expr"`
	Initial any      `yaml:"initial"`
}

// Compile compiles the derive expression. Source names are bound at run
// time, so undefined variables are allowed.
func (d DerivedConfig) Compile() (*vm.Program, error) {
	program, err := expr.Compile(d.Expr, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, errors.New("C003").WithDetailf("derived %q", d.Name).Wrap(err)
	}
	return program, nil
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Backend.Timeout = DefaultTimeout
	return cfg
}

// Load reads vstore.yaml from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Environment
// variables in the form ${VAR} are expanded before parsing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Pass --config or create " + ConfigFileName)
		}
		return nil, errors.New("C001").Wrap(err)
	}

	cfg, err := Parse([]byte(expandEnvVars(string(data))))
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes, defaults and validates YAML configuration. It does not
// expand environment variables.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.New("C001").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid YAML")
	}

	cfg.applyDefaults()
	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the value of VAR, or the empty string
// if it is unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Backend.Driver == "" {
		c.Backend.Driver = DefaultDriver
	}
	c.Backend.Driver = strings.ToLower(c.Backend.Driver)
	if c.Backend.Codec == "" {
		c.Backend.Codec = "json"
	}
	if c.Backend.SQLite.Path == "" {
		c.Backend.SQLite.Path = "vstore.db"
	}
	if c.Backend.S3.Region == "" {
		c.Backend.S3.Region = "us-east-1"
	}

	for i := range c.Stores {
		if c.Stores[i].Kind == "" {
			c.Stores[i].Kind = string(persist.KindLocal)
		}
	}
}

func (c *Config) parseDurations() error {
	var err error

	c.Backend.Timeout = DefaultTimeout
	if c.Backend.TimeoutRaw != "" {
		if c.Backend.Timeout, err = time.ParseDuration(c.Backend.TimeoutRaw); err != nil {
			return errors.New("C001").WithDetailf("backend.timeout %q: %v", c.Backend.TimeoutRaw, err)
		}
	}
	if c.Backend.Redis.TTLRaw != "" {
		if c.Backend.Redis.TTL, err = time.ParseDuration(c.Backend.Redis.TTLRaw); err != nil {
			return errors.New("C001").WithDetailf("backend.redis.ttl %q: %v", c.Backend.Redis.TTLRaw, err)
		}
	}
	return nil
}

// Validate checks that the configuration is consistent. It returns the
// first problem found.
func (c *Config) Validate() error {
	if !knownDriver(c.Backend.Driver) {
		return errors.New("C002").WithDetailf("backend.driver %q", c.Backend.Driver)
	}
	if _, ok := persist.CodecByName(c.Backend.Codec); !ok {
		return errors.New("C001").WithDetailf("backend.codec %q", c.Backend.Codec).
			WithSuggestion("Use json or yaml")
	}
	switch c.Backend.Driver {
	case "redis":
		if c.Backend.Redis.URL == "" {
			return errors.New("C001").WithDetail("backend.redis.url is required")
		}
	case "s3":
		if c.Backend.S3.Bucket == "" {
			return errors.New("C001").WithDetail("backend.s3.bucket is required")
		}
	case "etcd":
		if len(c.Backend.Etcd.Endpoints) == 0 {
			return errors.New("C001").WithDetail("backend.etcd.endpoints is required")
		}
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New("C001").WithDetailf("logging.format %q", c.Logging.Format).
			WithSuggestion("Use text or json")
	}

	seen := make(map[string]bool)
	for i, s := range c.Stores {
		if s.Name == "" {
			return errors.New("C001").WithDetailf("stores[%d].name is required", i)
		}
		if seen[s.Name] {
			return errors.New("C001").WithDetailf("duplicate store name %q", s.Name)
		}
		seen[s.Name] = true
		if _, err := persist.ParseKind(s.Kind); err != nil {
			return errors.New("C001").WithDetailf("stores[%d].kind %q", i, s.Kind).Wrap(err)
		}
	}

	for i, d := range c.Derived {
		if d.Name == "" {
			return errors.New("C001").WithDetailf("derived[%d].name is required", i)
		}
		if seen[d.Name] {
			return errors.New("C001").WithDetailf("duplicate store name %q", d.Name)
		}
		if len(d.Sources) == 0 {
			return errors.New("C001").WithDetailf("derived %q has no sources", d.Name)
		}
		for _, src := range d.Sources {
			if !seen[src] {
				return errors.New("C001").
					WithDetailf("derived %q: unknown source %q", d.Name, src).
					WithSuggestion("Sources must be stores or derived stores declared earlier")
			}
		}
		if strings.TrimSpace(d.Expr) == "" {
			return errors.New("C003").WithDetailf("derived %q has no expr", d.Name)
		}
		if _, err := d.Compile(); err != nil {
			return err
		}
		seen[d.Name] = true
	}
	return nil
}

// LogLevel returns the slog level for Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.New("C001").WithDetailf("logging.level %q", c.Logging.Level).
		WithSuggestion("Use debug, info, warn or error")
}

// Store returns the store declaration named name.
func (c *Config) Store(name string) (StoreConfig, bool) {
	for _, s := range c.Stores {
		if s.Name == name {
			return s, true
		}
	}
	return StoreConfig{}, false
}

func knownDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the first directory that
// contains vstore.yaml.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", startDir, err)
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("C001").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
