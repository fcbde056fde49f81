// Command markerbed serves and maintains a marker dataset.
//
// Usage:
//
//	markerbed serve --config markerbed.yaml
//	markerbed upsert '{"Outlet Code":"A1","lat":-6.2,"lng":106.8,"Nama Pemilik":"Ibu Tati"}'
//	markerbed import records.json --replace
//	markerbed clear --yes
//	markerbed export > markers.csv
//	markerbed verify
//	markerbed backups
//
// PORT, MARKERS_PATH and MARKERS_BACKUP_DIR override the config file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andreiashu/markerbed"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Set up by PersistentPreRunE
	logger *zap.Logger
	cfg    *Config
)

var rootCmd = &cobra.Command{
	Use:   "markerbed",
	Short: "Maintain a deduplicated outlet marker dataset",
	Long: `markerbed ingests outlet records pushed by automation tools under loosely
defined field names, merges them by shop code into a delimited text dataset
and backs up the previous file before every write.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("failed to parse log level: %w", err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, upsertCmd, importCmd, clearCmd, exportCmd, verifyCmd, backupsCmd)
}

// openStore opens the configured dataset. extra options are applied last.
func openStore(extra ...markerbed.Option) (*markerbed.Store, error) {
	opts := append(cfg.storeOptions(), markerbed.WithLogger(logger))
	opts = append(opts, extra...)
	s, err := markerbed.Open(cfg.Dataset.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
