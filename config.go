package markerbed

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Config contains configuration options for a Store.
type Config struct {
	BackupDir        string           // Directory for snapshots (default: "<dataset dir>/backups")
	DefaultKecamatan string           // Region used when a payload has none (default: "Unknown")
	FuzzyDistance    int              // Max edit distance for alias matching (0 = disabled)
	Logger           *zap.Logger      // Default: no-op
	Metrics          *Metrics         // Optional Prometheus collectors
	Now              func() time.Time // Clock for ledger and backup names (default: time.Now)
}

// Option is a functional option for configuring a Store.
type Option func(*Config)

// WithBackupDir sets the snapshot directory.
func WithBackupDir(dir string) Option {
	return func(c *Config) {
		c.BackupDir = dir
	}
}

// WithDefaultKecamatan sets the region given to payloads without one. An
// empty string is allowed.
func WithDefaultKecamatan(k string) Option {
	return func(c *Config) {
		c.DefaultKecamatan = k
	}
}

// WithFuzzyDistance enables typo-tolerant alias matching.
func WithFuzzyDistance(d int) Option {
	return func(c *Config) {
		c.FuzzyDistance = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithClock replaces time.Now. Mostly useful in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// defaultConfig returns the configuration for a dataset at path.
func defaultConfig(path string) *Config {
	return &Config{
		BackupDir:        filepath.Join(filepath.Dir(path), "backups"),
		DefaultKecamatan: DefaultKecamatan,
		Logger:           zap.NewNop(),
		Now:              time.Now,
	}
}

func (c *Config) validate() error {
	if c.BackupDir == "" {
		return fmt.Errorf("%w: backup directory is empty", ErrInvalidConfig)
	}
	if c.FuzzyDistance < 0 || c.FuzzyDistance > maxFuzzyDistance {
		return fmt.Errorf("%w: fuzzy distance %d outside [0, %d]", ErrInvalidConfig, c.FuzzyDistance, maxFuzzyDistance)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}
