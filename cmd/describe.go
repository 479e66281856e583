package cmd

import (
	"fmt"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descHead       int
	descTail       int
	descMarkdown   bool
	descOutputPath string
	descSampleRows int
	descTopValues  int
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Show shape, statistics, column types and sample rows of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if descMarkdown {
			opt := analysis.DefaultReportOptions()
			if descSampleRows >= 0 {
				opt.SampleRows = descSampleRows
			}
			if descTopValues > 0 {
				opt.TopValues = descTopValues
			}
			md := analysis.BuildReport(t, opt).Markdown()
			if descOutputPath != "" {
				if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(out, "✓ Wrote report to %s\n", descOutputPath)
				return nil
			}
			fmt.Fprintln(out, md)
			return nil
		}

		d, err := analysis.Describe(t)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(out, map[string]any{
				"summary":  analysis.Summary(t),
				"columns":  analysis.Columns(t),
				"describe": tableRecords(d),
				"dtypes":   tableRecords(analysis.DTypes(t)),
				"head":     tableRecords(analysis.Head(t, descHead)),
				"tail":     tableRecords(analysis.Tail(t, descTail)),
			})
		}
		fmt.Fprintln(out, analysis.Summary(t))
		fmt.Fprintln(out, "\nStatistics")
		if err := printTable(out, d); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nColumn types")
		if err := printTable(out, analysis.DTypes(t)); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nFirst %d rows\n", min(max(descHead, 1), t.Rows()))
		if err := printTable(out, analysis.Head(t, descHead)); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nLast %d rows\n", min(max(descTail, 1), t.Rows()))
		return printTable(out, analysis.Tail(t, descTail))
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().IntVar(&descHead, "head", 5, "number of leading rows to show (clamped to [1, rows])")
	describeCmd.Flags().IntVar(&descTail, "tail", 5, "number of trailing rows to show (clamped to [1, rows])")
	describeCmd.Flags().BoolVar(&descMarkdown, "markdown", false, "print a Markdown dataset report instead of tables")
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "with --markdown: write the report to this path")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "with --markdown: number of sample rows to include (0 disables samples)")
	describeCmd.Flags().IntVar(&descTopValues, "top-values", 8, "with --markdown: most frequent values listed per text column")
}
