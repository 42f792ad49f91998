// Package config loads incargo configuration from defaults, a TOML file,
// a .env file and INCARGO_* environment variables.
// Priority: CLI flags > env vars > TOML file > defaults. Flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jacentio/incargo/register"
	"github.com/jacentio/incargo/store"
	"github.com/jacentio/incargo/summary"
)

// DefaultPath is the TOML file read when no path is given.
const DefaultPath = "incargo.toml"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendDynamo = "dynamodb"
	BackendSQLite = "sqlite"
)

// Config holds all configuration settings.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
	Report ReportConfig `toml:"report"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Backend string       `toml:"backend"` // "memory", "dynamodb", "sqlite"
	Root    string       `toml:"root"`    // register root path
	Dynamo  DynamoConfig `toml:"dynamo"`
	SQLite  SQLiteConfig `toml:"sqlite"`
}

// DynamoConfig holds DynamoDB settings.
type DynamoConfig struct {
	Table     string `toml:"table"`
	Namespace string `toml:"namespace"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"` // e.g. DynamoDB Local
	Profile   string `toml:"profile"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "text", "json"
}

// ReportConfig holds summary rendering settings.
type ReportConfig struct {
	DayTop  int `toml:"day_top"`
	WeekTop int `toml:"week_top"`
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	dynamo := store.DefaultDynamoConfig()
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			Root:    register.DefaultRoot,
			Dynamo: DynamoConfig{
				Table:     dynamo.Table,
				Namespace: dynamo.Namespace,
			},
			SQLite: SQLiteConfig{Path: "incargo.db"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Report: ReportConfig{
			DayTop:  summary.DayTop,
			WeekTop: summary.WeekTop,
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path and the
// environment. An empty path reads DefaultPath when it exists.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = getEnv("INCARGO_CONFIG", DefaultPath)
		explicit = path != DefaultPath
	}
	if err := cfg.loadTOML(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTOML loads configuration from a TOML file.
func (c *Config) loadTOML(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	c.Store.Backend = getEnv("INCARGO_BACKEND", c.Store.Backend)
	c.Store.Root = getEnv("INCARGO_ROOT", c.Store.Root)
	c.Store.Dynamo.Table = getEnv("INCARGO_DYNAMO_TABLE", c.Store.Dynamo.Table)
	c.Store.Dynamo.Namespace = getEnv("INCARGO_DYNAMO_NAMESPACE", c.Store.Dynamo.Namespace)
	c.Store.Dynamo.Region = getEnv("INCARGO_DYNAMO_REGION", getEnv("AWS_REGION", c.Store.Dynamo.Region))
	c.Store.Dynamo.Endpoint = getEnv("INCARGO_DYNAMO_ENDPOINT", c.Store.Dynamo.Endpoint)
	c.Store.Dynamo.Profile = getEnv("INCARGO_DYNAMO_PROFILE", c.Store.Dynamo.Profile)
	c.Store.SQLite.Path = getEnv("INCARGO_SQLITE_PATH", c.Store.SQLite.Path)
	c.Log.Level = getEnv("INCARGO_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("INCARGO_LOG_FORMAT", c.Log.Format)
	c.Report.DayTop = getEnvInt("INCARGO_REPORT_DAY_TOP", c.Report.DayTop)
	c.Report.WeekTop = getEnvInt("INCARGO_REPORT_WEEK_TOP", c.Report.WeekTop)
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendDynamo, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendSQLite && strings.TrimSpace(c.Store.SQLite.Path) == "" {
		return errors.New("config: sqlite backend needs store.sqlite.path")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Report.DayTop < 1 {
		c.Report.DayTop = summary.DayTop
	}
	if c.Report.WeekTop < 1 {
		c.Report.WeekTop = summary.WeekTop
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", c.Log.Level, err)
	}
	return l, nil
}

// Logger builds the logger described by the log section, writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// StoreDynamo returns the DynamoDB backend settings.
func (c *Config) StoreDynamo() store.DynamoConfig {
	cfg := store.DefaultDynamoConfig()
	cfg.Table = c.Store.Dynamo.Table
	cfg.Namespace = c.Store.Dynamo.Namespace
	return cfg
}

// Register returns the register settings.
func (c *Config) Register() register.Config {
	cfg := register.DefaultConfig()
	cfg.Root = c.Store.Root
	return cfg
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
