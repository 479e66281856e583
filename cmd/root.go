package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/datahub-cli/internal/config"
	"github.com/KaramelBytes/datahub-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	jsonOut  bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "datahub",
	Short: "DataHub: explore, aggregate, chart and model tabular datasets",
	Long: `DataHub loads CSV/TSV/XLSX datasets and offers descriptive statistics, value counts,
grouped aggregations with charts, and linear/decision-tree regression with a seeded
train/test split. Run one-shot commands against a file or start the HTTP API with "serve".`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datahub/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON instead of tables")
	addLoadFlags(rootCmd)
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	if rootCmd.PersistentFlags().Changed("log-level") && logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

// config returns the loaded configuration or the defaults.
func config() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{
		ListenAddr:          ":8080",
		MaxUploadMB:         50,
		SessionTTLMin:       60,
		TestSize:            0.3,
		RandomSeed:          42,
		TreeMinSamplesSplit: 2,
		TreeMinSamplesLeaf:  1,
		ChartFormat:         "png",
		ChartWidth:          1024,
		ChartHeight:         600,
		LogLevel:            "info",
	}
}

// newLogger builds the process logger. One-shot commands stay quiet unless
// --debug is given.
func newLogger(quiet bool) (*slog.Logger, func(), error) {
	c := config()
	level := c.LogLevel
	if quiet {
		level = "warn"
	}
	if debug {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, SeqURL: c.SeqURL})
}
