package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// HTTP server
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Loading
	CSVDelimiter       string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Prediction
	TestSize            float64 `mapstructure:"test_size" yaml:"test_size"`
	RandomSeed          int64   `mapstructure:"random_seed" yaml:"random_seed"`
	TreeMaxDepth        int     `mapstructure:"tree_max_depth" yaml:"tree_max_depth"`
	TreeMinSamplesSplit int     `mapstructure:"tree_min_samples_split" yaml:"tree_min_samples_split"`
	TreeMinSamplesLeaf  int     `mapstructure:"tree_min_samples_leaf" yaml:"tree_min_samples_leaf"`

	// Charts
	ChartFormat string `mapstructure:"chart_format" yaml:"chart_format"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	SeqURL   string `mapstructure:"seq_url" yaml:"seq_url"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"listen_addr", "max_upload_mb", "session_ttl_min",
	"csv_delimiter", "decimal_separator", "thousands_separator", "max_rows",
	"test_size", "random_seed", "tree_max_depth", "tree_min_samples_split", "tree_min_samples_leaf",
	"chart_format", "chart_width", "chart_height",
	"log_level", "seq_url",
}

// Dir returns ~/.datahub.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datahub"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("csv_delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("max_rows", 0)
	// 70/30 split, fixed seed
	v.SetDefault("test_size", 0.3)
	v.SetDefault("random_seed", 42)
	v.SetDefault("tree_max_depth", 0)
	v.SetDefault("tree_min_samples_split", 2)
	v.SetDefault("tree_min_samples_leaf", 1)
	v.SetDefault("chart_format", "png")
	v.SetDefault("chart_width", 1024)
	v.SetDefault("chart_height", 600)
	v.SetDefault("log_level", "info")
	v.SetDefault("seq_url", "")
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datahub/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAHUB")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the loaders and models cannot use.
func (c *Global) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0, 1), got %v", c.TestSize)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if len([]rune(c.CSVDelimiter)) > 1 {
		return fmt.Errorf("csv_delimiter must be a single character, got %q", c.CSVDelimiter)
	}
	if c.TreeMaxDepth < 0 {
		return fmt.Errorf("tree_max_depth must be >= 0, got %d", c.TreeMaxDepth)
	}
	switch c.ChartFormat {
	case "png", "svg":
	default:
		return fmt.Errorf("chart_format must be png or svg, got %q", c.ChartFormat)
	}
	return nil
}
