package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/billsight/internal/importer"
	"github.com/cleared-dev/billsight/internal/ingest"
	"github.com/cleared-dev/billsight/internal/recurring"
	"github.com/cleared-dev/billsight/internal/store"
)

// DefaultFile is the config file read when --config is not given.
const DefaultFile = "billsight.yaml"

// Environment variables that override the file.
const (
	EnvDatabaseURL         = "DATABASE_URL"
	EnvSupabaseDatabaseURL = "SUPABASE_DB_URL"
	EnvTable               = "BILLSIGHT_TABLE"
)

// ErrMissingCredentials means no store connection string was configured.
var ErrMissingCredentials = errors.New("missing store credentials: set " + EnvDatabaseURL + " or store.url")

// Config represents billsight.yaml.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// StoreConfig locates the transactions table.
type StoreConfig struct {
	URL         string `yaml:"url,omitempty"` // usually supplied via DATABASE_URL instead
	Table       string `yaml:"table"`
	ConflictKey string `yaml:"conflict_key"`
	MaxConns    int32  `yaml:"max_conns"`
}

// IngestConfig controls uploads.
type IngestConfig struct {
	Format      string `yaml:"format"`
	Concurrency int    `yaml:"concurrency"`
	FailureLog  string `yaml:"failure_log,omitempty"`
}

// AnalysisConfig controls recurring-bill detection.
type AnalysisConfig struct {
	MaxIntervalDays float64 `yaml:"max_interval_days"`
}

// Load reads a billsight.yaml file from disk. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Resolve loads path, or DefaultFile when path is empty and that file
// exists, or the defaults otherwise.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults and no credentials.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Table:       store.DefaultTable,
			ConflictKey: store.DefaultConflictKey,
			MaxConns:    int32(ingest.DefaultConcurrency),
		},
		Ingest: IngestConfig{
			Format:      importer.FormatAuto,
			Concurrency: ingest.DefaultConcurrency,
		},
		Analysis: AnalysisConfig{
			MaxIntervalDays: recurring.DefaultMaxIntervalDays,
		},
	}
}

// LoadDotEnv loads variables from envFile into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(envFile string) error {
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

// ApplyEnv overrides file settings with environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for _, key := range []string{EnvDatabaseURL, EnvSupabaseDatabaseURL} {
		if v := getenv(key); v != "" {
			c.Store.URL = v
			break
		}
	}
	if v := getenv(EnvTable); v != "" {
		c.Store.Table = v
	}
}

// Validate checks the settings every store-backed command needs.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return ErrMissingCredentials
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store.table must not be empty")
	}
	if err := store.CheckColumn(c.Store.ConflictKey); err != nil {
		return fmt.Errorf("store.conflict_key: %w", err)
	}
	if c.Ingest.Concurrency < 0 {
		return fmt.Errorf("ingest.concurrency must not be negative, got %d", c.Ingest.Concurrency)
	}
	return nil
}

// DetectOptions returns the recurring-bill detection settings.
func (c *Config) DetectOptions() recurring.Options {
	return recurring.Options{MaxIntervalDays: c.Analysis.MaxIntervalDays}
}
