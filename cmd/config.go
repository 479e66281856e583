package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/datahub-cli/internal/config"
	"github.com/KaramelBytes/datahub-cli/internal/logging"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataHub configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		out := cmd.OutOrStdout()
		if jsonOut {
			return printJSON(out, c)
		}
		b, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		var values map[string]any
		if err := yaml.Unmarshal(b, &values); err != nil {
			return fmt.Errorf("unmarshal yaml: %w", err)
		}
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"key", "value"})
		tw.SetAutoFormatHeaders(false)
		for _, k := range cfgpkg.Keys {
			tw.Append([]string{k, fmt.Sprint(values[k])})
		}
		tw.Render()
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func(lo int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < lo {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi(1)
	case "session_ttl_min":
		c.SessionTTLMin, err = atoi(0)
	case "csv_delimiter":
		if val == "tab" {
			val = "\t"
		}
		c.CSVDelimiter = val
	case "decimal_separator":
		_, err = parseDecimal(val)
		c.DecimalSeparator = val
	case "thousands_separator":
		_, err = parseThousands(val)
		c.ThousandsSeparator = val
	case "max_rows":
		c.MaxRows, err = atoi(0)
	case "test_size":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for test_size: %w", perr)
		}
		c.TestSize = f
	case "random_seed":
		s, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid int for random_seed: %w", perr)
		}
		c.RandomSeed = s
	case "tree_max_depth":
		c.TreeMaxDepth, err = atoi(0)
	case "tree_min_samples_split":
		c.TreeMinSamplesSplit, err = atoi(2)
	case "tree_min_samples_leaf":
		c.TreeMinSamplesLeaf, err = atoi(1)
	case "chart_format":
		c.ChartFormat = strings.ToLower(val)
	case "chart_width":
		c.ChartWidth, err = atoi(100)
	case "chart_height":
		c.ChartHeight, err = atoi(100)
	case "log_level":
		if _, err = logging.ParseLevel(val); err == nil {
			c.LogLevel = strings.ToLower(val)
		}
	case "seq_url":
		c.SeqURL = val
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}
