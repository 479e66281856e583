package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// ReportOptions controls the Markdown dataset report.
type ReportOptions struct {
	// SampleRows determines how many head rows to include; 0 disables samples.
	SampleRows int
	// TopValues caps the most frequent values listed per object column.
	TopValues int
}

// DefaultReportOptions returns reasonable defaults for a dataset report.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{SampleRows: 5, TopValues: 8}
}

// Report is a markdown-friendly overview of a loaded table.
type Report struct {
	Name    string
	Rows    int
	Cols    []ColumnSummary
	Samples [][]string
}

// ColumnSummary captures the dtype and statistics of one column.
type ColumnSummary struct {
	Name    string
	DType   dataset.DType
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min, Max, Mean, Std float64
	// Object top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// BuildReport summarizes every column of t.
func BuildReport(t *dataset.Table, opt ReportOptions) *Report {
	if opt.TopValues <= 0 {
		opt.TopValues = 8
	}
	rep := &Report{Name: t.Name(), Rows: t.Rows()}
	for i := 0; i < t.Width(); i++ {
		c := t.ColumnAt(i)
		s := ColumnSummary{Name: c.Name(), DType: c.DType(), Missing: c.NullCount()}
		s.NonNull = c.Len() - s.Missing
		counts := countValues(c)
		s.Unique = len(counts)
		if c.DType().Numeric() {
			d := describeNumeric(c.Floats())
			s.Mean, s.Std, s.Min, s.Max = d[1], d[2], d[3], d[7]
		} else {
			for j, vc := range counts {
				if j >= opt.TopValues {
					break
				}
				s.TopValues = append(s.TopValues, CategoryCount{Value: c.String(vc.first), Count: vc.count})
			}
		}
		rep.Cols = append(rep.Cols, s)
	}
	if opt.SampleRows > 0 {
		rep.Samples = Head(t, opt.SampleRows).Records()
	}
	return rep
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.DType, c.NonNull, missPct))
		switch {
		case c.DType.Numeric() && c.NonNull > 0:
			b.WriteString(fmt.Sprintf(" - min %.4g, max %.4g, mean %.4g", c.Min, c.Max, c.Mean))
			if !math.IsNaN(c.Std) {
				b.WriteString(fmt.Sprintf(", std %.4g", c.Std))
			}
		case len(c.TopValues) > 0:
			b.WriteString(" - top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
