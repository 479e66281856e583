package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag of c and its subcommands to its default so
// bound variables do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	loadConfig()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const salesCSV = "region,product,sales\nA,x,1\nB,y,2\nA,y,3\nB,x,4\nA,x,5\n"

func TestCLI_Describe(t *testing.T) {
	home := withHome(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "describe", p, "--head", "2")
	for _, want := range []string{"5 rows", "Statistics", "Column types", "First 2 rows", "Last 5 rows", "sales", "int64"} {
		if !strings.Contains(out, want) {
			t.Fatalf("describe output missing %q:\n%s", want, out)
		}
	}

	md := runCmd(t, "describe", p, "--markdown", "--sample-rows", "2")
	if !strings.Contains(md, "[DATASET SUMMARY]") || !strings.Contains(md, "[HEAD ROWS]") {
		t.Fatalf("unexpected markdown report:\n%s", md)
	}

	md = runCmd(t, "describe", p, "--markdown", "--sample-rows", "0")
	if !strings.Contains(md, "[DATASET SUMMARY]") || strings.Contains(md, "[HEAD ROWS]") {
		t.Fatalf("--sample-rows 0 should omit sample rows:\n%s", md)
	}
}

func TestCLI_CountWritesCharts(t *testing.T) {
	home := withHome(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	dir := filepath.Join(home, "charts")

	out := runCmd(t, "count", p, "-c", "region", "-k", "5", "--chart-dir", dir)
	if !strings.Contains(out, "A") || !strings.Contains(out, "3") {
		t.Fatalf("count output missing rows:\n%s", out)
	}
	for _, kind := range []string{"bar", "line", "pie"} {
		path := filepath.Join(dir, "region_"+kind+".png")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing %s chart: %v", kind, err)
		}
	}

	if _, err := execCmd(t, "count", p); err == nil {
		t.Fatalf("expected error without --column")
	}
	if _, err := execCmd(t, "count", p, "-c", "nope"); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestCLI_GroupbyChart(t *testing.T) {
	home := withHome(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	svg := filepath.Join(home, "out", "by_region.svg")
	if err := os.MkdirAll(filepath.Dir(svg), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out := runCmd(t, "groupby", p, "--by", "region", "-c", "sales", "--op", "sum",
		"--chart", "bar", "--x", "region", "--y", "newcol", "--out", svg)
	if !strings.Contains(out, "9") || !strings.Contains(out, "6") {
		t.Fatalf("expected sums 9 and 6:\n%s", out)
	}
	b, err := os.ReadFile(svg)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(b), "<svg") {
		t.Fatalf("output is not svg")
	}

	if _, err := execCmd(t, "groupby", p, "--by", "region", "-c", "sales", "--op", "mode"); err == nil {
		t.Fatalf("expected error for unknown op")
	}
	if _, err := execCmd(t, "groupby", p, "--by", "region", "-c", "sales", "--chart", "bar", "--x", "region"); err == nil {
		t.Fatalf("expected error for missing chart y")
	}
}

func TestCLI_Predict(t *testing.T) {
	home := withHome(t)
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, 2*i+1)
	}
	p := writeFile(t, filepath.Join(home, "line.csv"), b.String())
	plot := filepath.Join(home, "pred.png")

	out := runCmd(t, "predict", p, "-f", "x", "-t", "y", "--plot", plot)
	if !strings.Contains(out, "Train rows: 14, test rows: 6") {
		t.Fatalf("unexpected split:\n%s", out)
	}
	if !strings.Contains(out, "Mean Squared Error:") {
		t.Fatalf("missing MSE line:\n%s", out)
	}
	if _, err := os.Stat(plot); err != nil {
		t.Fatalf("missing plot: %v", err)
	}

	out = runCmd(t, "predict", p, "-f", "x", "-t", "y", "-m", "tree", "--max-depth", "2")
	if !strings.Contains(out, "Predicted") {
		t.Fatalf("missing predictions table:\n%s", out)
	}

	if _, err := execCmd(t, "predict", p, "-f", "x", "-t", "y", "-m", "forest"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestCLI_ReportBatchSuppressSamples(t *testing.T) {
	home := withHome(t)
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv)
	outDir := filepath.Join(home, "reports")

	runCmd(t, "report", filepath.Join(home, "d*", "metrics.csv"), "--out", outDir, "--sample-rows", "0", "--quiet")

	b1 := filepath.Join(outDir, "metrics.summary.md")
	b2 := filepath.Join(outDir, "metrics__2.summary.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing summary: %v", err)
		}
		if strings.Contains(string(body), "[HEAD ROWS]") {
			t.Fatalf("expected no sample rows in %s", p)
		}
	}

	if _, err := execCmd(t, "report", filepath.Join(home, "none*.csv")); err == nil {
		t.Fatalf("expected error when no files match")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := withHome(t)

	runCmd(t, "config", "set", "test_size", "0.25")
	if _, err := os.Stat(filepath.Join(home, ".datahub", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "0.25") {
		t.Fatalf("show missing saved value:\n%s", out)
	}

	if _, err := execCmd(t, "config", "set", "test_size", "1.5"); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := execCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
