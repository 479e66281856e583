package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rptOutDir     string
	rptSampleRows int
	rptTopValues  int
	rptQuiet      bool
)

var reportCmd = &cobra.Command{
	Use:   "report <files...>",
	Short: "Write Markdown dataset reports for several CSV/TSV/XLSX files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		opt := analysis.DefaultReportOptions()
		if rptSampleRows >= 0 {
			opt.SampleRows = rptSampleRows
		}
		if rptTopValues > 0 {
			opt.TopValues = rptTopValues
		}
		if rptOutDir != "" {
			if err := os.MkdirAll(rptOutDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !rptQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := loadTable(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			md := analysis.BuildReport(t, opt).Markdown()
			if rptOutDir == "" {
				fmt.Fprintln(out, md)
				continue
			}
			outFile := summaryPath(rptOutDir, path)
			if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !rptQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&rptOutDir, "out", "", "write <name>.summary.md files into this directory instead of printing")
	reportCmd.Flags().IntVar(&rptSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	reportCmd.Flags().IntVar(&rptTopValues, "top-values", 8, "most frequent values listed per text column")
	reportCmd.Flags().BoolVar(&rptQuiet, "quiet", false, "suppress progress output")
}

// expandInputs resolves glob patterns, keeping literal paths that exist.
// The result is deduplicated and sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// summaryPath picks <dir>/<base>.summary.md, adding a __N suffix when a
// report with that name already exists.
func summaryPath(dir, input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	path := filepath.Join(dir, base+".summary.md")
	for idx := 2; ; idx++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s__%d.summary.md", base, idx))
	}
}
