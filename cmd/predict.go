package cmd

import (
	"fmt"

	"github.com/KaramelBytes/datahub-cli/internal/predict"
	"github.com/spf13/cobra"
)

var (
	predFeatures []string
	predTarget   string
	predModel    string
	predPlot     string
	predMaxDepth int
	predSeed     int64
)

var predictCmd = &cobra.Command{
	Use:   "predict <file>",
	Short: "Fit a regression model on a 70/30 split and report test predictions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := predict.ParseKind(predModel)
		if err != nil {
			return err
		}
		t, err := loadTable(args[0])
		if err != nil {
			return err
		}
		opt := predictOptions()
		if cmd.Flags().Changed("max-depth") {
			opt.MaxDepth = predMaxDepth
		}
		if cmd.Flags().Changed("seed") {
			opt.Seed = predSeed
		}
		log, cleanup, err := newLogger(true)
		if err != nil {
			return err
		}
		defer cleanup()

		spec := predict.ModelSpec{Features: splitList(predFeatures), Target: predTarget, Kind: kind}
		res, err := predict.Run(t, spec, opt)
		if err != nil {
			return err
		}
		log.Debug("model fitted", "model", kind, "train", len(res.TrainRows), "test", len(res.TestRows), "seed", opt.Seed)

		out := cmd.OutOrStdout()
		if jsonOut {
			return printJSON(out, res)
		}
		if err := printTable(out, res.Table); err != nil {
			return err
		}
		fmt.Fprintf(out, "Train rows: %d, test rows: %d\n", len(res.TrainRows), len(res.TestRows))
		fmt.Fprintln(out, predict.FormatMSE(res.MSE))
		if predPlot != "" {
			if err := writeChart(res.Figure, predPlot); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %s\n", predPlot)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringSliceVarP(&predFeatures, "features", "f", nil, "comma-separated feature columns")
	predictCmd.Flags().StringVarP(&predTarget, "target", "t", "", "target column")
	predictCmd.Flags().StringVarP(&predModel, "model", "m", "linear", "model: linear|tree")
	predictCmd.Flags().StringVar(&predPlot, "plot", "", "write the predicted-vs-actual scatter here (.png or .svg)")
	predictCmd.Flags().IntVar(&predMaxDepth, "max-depth", 0, "tree: maximum depth (0 = unlimited; overrides config)")
	predictCmd.Flags().Int64Var(&predSeed, "seed", 42, "split seed (overrides config)")
}
