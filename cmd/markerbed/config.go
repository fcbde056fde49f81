package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/andreiashu/markerbed"
)

type Config struct {
	Service ServiceConfig `yaml:"service"`
	Dataset DatasetConfig `yaml:"dataset"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type ServiceConfig struct {
	Name                   string `yaml:"name"`
	Port                   int    `yaml:"port"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

type DatasetConfig struct {
	Path             string `yaml:"path"`
	BackupDir        string `yaml:"backup_dir"`
	DefaultKecamatan string `yaml:"default_kecamatan"`
	FuzzyDistance    int    `yaml:"fuzzy_distance"`
	Watch            bool   `yaml:"watch"` // reload read caches on out-of-band edits
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// LoadConfig reads a YAML config file. An empty path yields the defaults.
// Environment overrides and defaults are applied in both cases.
func LoadConfig(path string) (*Config, error) {
	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnv lets the deployment environment override the file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Service.Port = port
	}
	if v, ok := lookup("MARKERS_PATH"); ok && v != "" {
		c.Dataset.Path = v
	}
	if v, ok := lookup("MARKERS_BACKUP_DIR"); ok && v != "" {
		c.Dataset.BackupDir = v
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "markerbed"
	}
	if c.Service.Port == 0 {
		c.Service.Port = 3000
	}
	if c.Service.ReadTimeoutSeconds == 0 {
		c.Service.ReadTimeoutSeconds = 30
	}
	if c.Service.WriteTimeoutSeconds == 0 {
		c.Service.WriteTimeoutSeconds = 30
	}
	if c.Service.ShutdownTimeoutSeconds == 0 {
		c.Service.ShutdownTimeoutSeconds = 10
	}
	if c.Dataset.Path == "" {
		c.Dataset.Path = "markers.csv"
	}
	if c.Dataset.DefaultKecamatan == "" {
		c.Dataset.DefaultKecamatan = markerbed.DefaultKecamatan
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values the store or server cannot run with.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port %d out of range", c.Service.Port)
	}
	if c.Dataset.FuzzyDistance < 0 || c.Dataset.FuzzyDistance > 2 {
		return fmt.Errorf("dataset.fuzzy_distance must be between 0 and 2, got %d", c.Dataset.FuzzyDistance)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// storeOptions translates the dataset section into store options.
func (c *Config) storeOptions() []markerbed.Option {
	opts := []markerbed.Option{
		markerbed.WithDefaultKecamatan(c.Dataset.DefaultKecamatan),
		markerbed.WithFuzzyDistance(c.Dataset.FuzzyDistance),
	}
	if c.Dataset.BackupDir != "" {
		opts = append(opts, markerbed.WithBackupDir(c.Dataset.BackupDir))
	}
	return opts
}
