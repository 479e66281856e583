package cmd

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/chart"
	"github.com/KaramelBytes/datahub-cli/internal/dataset"
	"github.com/KaramelBytes/datahub-cli/internal/predict"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	loadDelimiter  string
	loadDecimal    string
	loadThousands  string
	loadMaxRows    int
	loadSheetName  string
	loadSheetIndex int
)

func addLoadFlags(c *cobra.Command) {
	f := c.PersistentFlags()
	f.StringVar(&loadDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	f.StringVar(&loadDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	f.StringVar(&loadThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	f.IntVar(&loadMaxRows, "max-rows", 0, "maximum rows to load (0 = config value, unlimited by default)")
	f.StringVar(&loadSheetName, "sheet-name", "", "XLSX: sheet name to load")
	f.IntVar(&loadSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %s", s)
}

func parseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported decimal separator: %s (use '.'|'comma')", s)
}

func parseThousands(s string) (rune, error) {
	switch strings.ToLower(s) {
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space", " ":
		return ' ', nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported thousands separator: %s (use ','|'.'|'space')", s)
}

// loadOptions merges config values with the load flags; flags win.
func loadOptions() (dataset.LoadOptions, error) {
	c := config()
	pick := func(flag, conf string) string {
		if flag != "" {
			return flag
		}
		return conf
	}
	var opt dataset.LoadOptions
	var err error
	if opt.Delimiter, err = parseDelimiter(pick(loadDelimiter, c.CSVDelimiter)); err != nil {
		return opt, err
	}
	if opt.Number.DecimalSeparator, err = parseDecimal(pick(loadDecimal, c.DecimalSeparator)); err != nil {
		return opt, err
	}
	if opt.Number.ThousandsSeparator, err = parseThousands(pick(loadThousands, c.ThousandsSeparator)); err != nil {
		return opt, err
	}
	if opt.Number.ThousandsSeparator != 0 && opt.Number.DecimalSeparator == 0 {
		opt.Number.DecimalSeparator = '.'
	}
	opt.MaxRows = c.MaxRows
	if loadMaxRows > 0 {
		opt.MaxRows = loadMaxRows
	}
	opt.SheetName, opt.SheetIndex = loadSheetName, loadSheetIndex
	return opt, nil
}

func loadTable(path string) (*dataset.Table, error) {
	opt, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return dataset.LoadFile(path, opt)
}

func predictOptions() predict.Options {
	c := config()
	return predict.Options{
		TestSize:        c.TestSize,
		Seed:            c.RandomSeed,
		MaxDepth:        c.TreeMaxDepth,
		MinSamplesSplit: c.TreeMinSamplesSplit,
		MinSamplesLeaf:  c.TreeMinSamplesLeaf,
	}
}

// printTable renders t as a terminal table, or as JSON records with --json.
func printTable(w io.Writer, t *dataset.Table) error {
	if jsonOut {
		return printJSON(w, tableRecords(t))
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.Columns())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, rec := range t.Records() {
		tw.Append(rec)
	}
	tw.Render()
	return nil
}

func tableRecords(t *dataset.Table) []map[string]any {
	out := make([]map[string]any, t.Rows())
	for i := range out {
		row := make(map[string]any, t.Width())
		for j := 0; j < t.Width(); j++ {
			c := t.ColumnAt(j)
			switch {
			case c.IsNull(i):
				row[c.Name()] = nil
			case c.DType().Numeric():
				v, _ := c.Float(i)
				if math.IsInf(v, 0) {
					row[c.Name()] = c.String(i)
				} else {
					row[c.Name()] = v
				}
			default:
				row[c.Name()] = c.String(i)
			}
		}
		out[i] = row
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// writeChart renders fig to path; the extension picks PNG or SVG.
func writeChart(fig *chart.Figure, path string) error {
	c := config()
	format := chart.Format(c.ChartFormat)
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".svg"):
		format = chart.SVG
	case strings.HasSuffix(strings.ToLower(path), ".png"):
		format = chart.PNG
	}
	var buf bytes.Buffer
	if err := chart.Render(fig, &buf, format, c.ChartWidth, c.ChartHeight); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

// safeFileName keeps letters, digits, '-' and '_' so a column name can be
// used in a file name.
func safeFileName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "column"
	}
	return b.String()
}

func splitList(s []string) []string {
	var out []string
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
