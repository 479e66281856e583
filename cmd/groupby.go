package cmd

import (
	"fmt"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/chart"
	"github.com/spf13/cobra"
)

var (
	grpBy      []string
	grpColumn  string
	grpOp      string
	grpResult  string
	grpKind    string
	grpX       string
	grpY       string
	grpColor   string
	grpSize    string
	grpFacet   string
	grpPath    []string
	grpValues  string
	grpNames   string
	grpText    string
	grpTitle   string
	grpOutPath string
	grpFigure  bool
)

var groupbyCmd = &cobra.Command{
	Use:   "groupby <file>",
	Short: "Aggregate a column per group and optionally chart the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := analysis.AggregationSpec{
			GroupBy:    splitList(grpBy),
			Column:     grpColumn,
			ResultName: grpResult,
		}
		op, err := analysis.ParseOp(grpOp)
		if err != nil {
			return err
		}
		spec.Op = op
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		agg, err := analysis.Aggregate(t, spec)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := printTable(out, agg); err != nil {
			return err
		}
		if grpKind == "" {
			return nil
		}

		kind, err := chart.ParseKind(grpKind)
		if err != nil {
			return err
		}
		req := chart.Request{
			Kind:   kind,
			X:      grpX,
			Y:      grpY,
			Color:  grpColor,
			Size:   grpSize,
			Facet:  grpFacet,
			Path:   splitList(grpPath),
			Values: grpValues,
			Names:  grpNames,
			Text:   grpText,
			Title:  grpTitle,
		}
		if kind == chart.Sunburst && req.Values == "" {
			req.Values = agg.ColumnAt(agg.Width() - 1).Name()
		}
		fig, err := chart.Build(agg, req)
		if err != nil {
			return err
		}
		if grpFigure {
			if err := printJSON(out, fig); err != nil {
				return err
			}
		}
		if grpOutPath == "" {
			if !grpFigure {
				return fmt.Errorf("--chart needs --out FILE or --figure")
			}
			return nil
		}
		if err := writeChart(fig, grpOutPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %s chart to %s\n", kind, grpOutPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupbyCmd)
	f := groupbyCmd.Flags()
	f.StringSliceVar(&grpBy, "by", nil, "comma-separated group-by columns (repeatable)")
	f.StringVarP(&grpColumn, "column", "c", "", "column to aggregate")
	f.StringVar(&grpOp, "op", "sum", "operation: sum|max|min|mean|median|count")
	f.StringVar(&grpResult, "result", analysis.DefaultResultName, "name of the aggregate column")
	f.StringVar(&grpKind, "chart", "", "chart kind: line|bar|scatter|pie|sunburst")
	f.StringVar(&grpX, "x", "", "chart x column")
	f.StringVar(&grpY, "y", "", "chart y column")
	f.StringVar(&grpColor, "color", "", "column splitting traces by color")
	f.StringVar(&grpSize, "size", "", "scatter: column scaling marker size")
	f.StringVar(&grpFacet, "facet", "", "column to facet by (recorded on the figure)")
	f.StringSliceVar(&grpPath, "path", nil, "sunburst: comma-separated hierarchy columns")
	f.StringVar(&grpValues, "values", "", "pie/sunburst: value column (sunburst defaults to the aggregate column)")
	f.StringVar(&grpNames, "names", "", "pie: label column")
	f.StringVar(&grpText, "text", "", "column used as point text")
	f.StringVar(&grpTitle, "title", "", "chart title")
	f.StringVar(&grpOutPath, "out", "", "write the chart image here (.png or .svg)")
	f.BoolVar(&grpFigure, "figure", false, "print the chart figure as JSON")
}
