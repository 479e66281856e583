package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/chart"
	"github.com/spf13/cobra"
)

var (
	countColumn   string
	countTop      int
	countChartDir string
)

var countCmd = &cobra.Command{
	Use:   "count <file>",
	Short: "Count the most frequent values of a column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if countColumn == "" {
			return fmt.Errorf("--column is required")
		}
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		counts, err := analysis.ValueCounts(t, countColumn, countTop)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := printTable(out, counts); err != nil {
			return err
		}
		if countChartDir == "" {
			return nil
		}
		figs, err := chart.ValueCountFigures(counts)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(countChartDir, 0o755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
		ext := "." + config().ChartFormat
		for _, fig := range figs {
			path := filepath.Join(countChartDir, fmt.Sprintf("%s_%s%s", safeFileName(countColumn), fig.Kind, ext))
			if err := writeChart(fig, path); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
	countCmd.Flags().StringVarP(&countColumn, "column", "c", "", "column to count")
	countCmd.Flags().IntVarP(&countTop, "top", "k", 10, "number of values to show (clamped to [1, distinct values])")
	countCmd.Flags().StringVar(&countChartDir, "chart-dir", "", "write bar, line and pie charts into this directory")
}
