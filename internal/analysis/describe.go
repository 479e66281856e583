package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// DescribeStats are the row labels of a numeric describe table.
var DescribeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// ObjectDescribeStats are the row labels used when a table has no numeric column.
var ObjectDescribeStats = []string{"count", "unique", "top", "freq"}

// Shape returns the row and column counts.
func Shape(t *dataset.Table) (rows, cols int) { return t.Rows(), t.Width() }

// Summary is the one-line shape sentence shown above the statistics.
func Summary(t *dataset.Table) string {
	return fmt.Sprintf("There are %d rows and %d columns in the dataset", t.Rows(), t.Width())
}

// Describe computes a statistical summary per numeric column: count, mean,
// sample std, min, quartiles (linear interpolation) and max. The first column,
// "stat", names the row. Tables without numeric columns get count/unique/top/freq
// per object column instead.
func Describe(t *dataset.Table) (*dataset.Table, error) {
	var numeric []*dataset.Column
	for i := 0; i < t.Width(); i++ {
		if c := t.ColumnAt(i); c.DType().Numeric() {
			numeric = append(numeric, c)
		}
	}
	if len(numeric) == 0 {
		return describeObjects(t)
	}
	cols := []*dataset.Column{dataset.NewTextColumn("stat", DescribeStats)}
	for _, c := range numeric {
		cols = append(cols, dataset.NewFloatColumn(c.Name(), describeNumeric(c.Floats())))
	}
	return dataset.NewTable(t.Name()+" (describe)", cols...)
}

func describeNumeric(vals []float64) []float64 {
	out := make([]float64, len(DescribeStats))
	out[0] = float64(len(vals))
	if len(vals) == 0 {
		for i := 1; i < len(out); i++ {
			out[i] = math.NaN()
		}
		return out
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	out[1] = mustStat(stats.Mean(vals))
	out[2] = math.NaN()
	if len(vals) > 1 {
		out[2] = mustStat(stats.StandardDeviationSample(vals))
	}
	out[3] = sorted[0]
	out[4] = quantile(sorted, 0.25)
	out[5] = quantile(sorted, 0.5)
	out[6] = quantile(sorted, 0.75)
	out[7] = sorted[len(sorted)-1]
	return out
}

func describeObjects(t *dataset.Table) (*dataset.Table, error) {
	cols := []*dataset.Column{dataset.NewTextColumn("stat", ObjectDescribeStats)}
	for i := 0; i < t.Width(); i++ {
		c := t.ColumnAt(i)
		counts := countValues(c)
		var top string
		var freq, nonNull int
		for _, vc := range counts {
			nonNull += vc.count
		}
		if len(counts) > 0 {
			top, freq = c.String(counts[0].first), counts[0].count
		}
		cols = append(cols, dataset.NewTextColumn(c.Name(), []string{
			fmt.Sprint(nonNull), fmt.Sprint(len(counts)), top, fmt.Sprint(freq),
		}))
	}
	return dataset.NewTable(t.Name()+" (describe)", cols...)
}

// Head returns the first n rows, n clamped to [1, rows].
func Head(t *dataset.Table, n int) *dataset.Table {
	return t.Slice(0, clampRows(n, t.Rows()))
}

// Tail returns the last n rows, n clamped to [1, rows].
func Tail(t *dataset.Table, n int) *dataset.Table {
	n = clampRows(n, t.Rows())
	return t.Slice(t.Rows()-n, t.Rows())
}

func clampRows(n, rows int) int {
	if rows == 0 {
		return 0
	}
	if n < 1 {
		return 1
	}
	if n > rows {
		return rows
	}
	return n
}

// DTypes lists each column with its declared dtype.
func DTypes(t *dataset.Table) *dataset.Table {
	names := t.Columns()
	types := make([]string, len(names))
	for i := range names {
		types[i] = string(t.ColumnAt(i).DType())
	}
	out, _ := dataset.NewTable(t.Name()+" (dtypes)",
		dataset.NewTextColumn("column", names),
		dataset.NewTextColumn("dtype", types))
	return out
}

// Columns returns the ordered column names.
func Columns(t *dataset.Table) []string { return t.Columns() }

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// mustStat maps a stats error (empty input) to NaN.
func mustStat(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}
