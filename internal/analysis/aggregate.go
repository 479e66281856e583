package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// Op is a group reduction.
type Op string

const (
	OpSum    Op = "sum"
	OpMax    Op = "max"
	OpMin    Op = "min"
	OpMean   Op = "mean"
	OpMedian Op = "median"
	OpCount  Op = "count"
)

// Ops lists the supported reductions in display order.
var Ops = []Op{OpSum, OpMax, OpMin, OpMean, OpMedian, OpCount}

// DefaultResultName is the name of the aggregate column.
const DefaultResultName = "newcol"

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	op := Op(strings.ToLower(strings.TrimSpace(s)))
	for _, o := range Ops {
		if o == op {
			return op, nil
		}
	}
	return "", fmt.Errorf("unsupported operation %q (use sum|max|min|mean|median|count)", s)
}

// AggregationSpec selects group-by columns, the operation column and the reduction.
type AggregationSpec struct {
	GroupBy    []string `json:"group_by" yaml:"group_by"`
	Column     string   `json:"column" yaml:"column"`
	Op         Op       `json:"operation" yaml:"operation"`
	ResultName string   `json:"result_name,omitempty" yaml:"result_name,omitempty"`
}

// Validate checks the spec against a table without computing anything.
// sum, mean and median need a numeric (or bool) column; min and max also
// accept object columns and compare text.
func (s AggregationSpec) Validate(t *dataset.Table) error {
	if len(s.GroupBy) == 0 {
		return &dataset.EmptySelectionError{What: "group-by columns"}
	}
	if s.Column == "" {
		return &dataset.EmptySelectionError{What: "operation column"}
	}
	if _, err := ParseOp(string(s.Op)); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, g := range s.GroupBy {
		if _, err := t.Column(g); err != nil {
			return err
		}
		if seen[g] {
			return fmt.Errorf("group-by column %q listed twice", g)
		}
		seen[g] = true
	}
	if seen[s.resultName()] {
		return fmt.Errorf("result column %q collides with a group-by column", s.resultName())
	}
	c, err := t.Column(s.Column)
	if err != nil {
		return err
	}
	switch s.Op {
	case OpSum, OpMean, OpMedian:
		if c.DType() == dataset.Object {
			return &dataset.TypeMismatchError{Column: s.Column, Op: string(s.Op), Want: "numeric", Got: c.DType()}
		}
	}
	return nil
}

func (s AggregationSpec) resultName() string {
	if s.ResultName != "" {
		return s.ResultName
	}
	return DefaultResultName
}

type group struct {
	first int
	rows  []int
}

// Aggregate partitions rows by the distinct combination of group-by values and
// reduces the operation column within each partition. Output rows are sorted by
// the group keys; rows with a null key are dropped. count is the partition size.
func Aggregate(t *dataset.Table, spec AggregationSpec) (*dataset.Table, error) {
	spec.Op = Op(strings.ToLower(string(spec.Op)))
	if err := spec.Validate(t); err != nil {
		return nil, err
	}
	keys := make([]*dataset.Column, len(spec.GroupBy))
	for i, g := range spec.GroupBy {
		keys[i], _ = t.Column(g)
	}
	target, _ := t.Column(spec.Column)

	pos := map[string]int{}
	var groups []*group
	parts := make([]string, len(keys))
rows:
	for r := 0; r < t.Rows(); r++ {
		for i, k := range keys {
			if k.IsNull(r) {
				continue rows
			}
			parts[i] = k.Key(r)
		}
		key := strings.Join(parts, "\x1f")
		j, ok := pos[key]
		if !ok {
			j = len(groups)
			pos[key] = j
			groups = append(groups, &group{first: r})
		}
		groups[j].rows = append(groups[j].rows, r)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return lessRow(keys, groups[a].first, groups[b].first)
	})

	firsts := make([]int, len(groups))
	for i, g := range groups {
		firsts[i] = g.first
	}
	cols := make([]*dataset.Column, 0, len(keys)+1)
	for _, k := range keys {
		cols = append(cols, k.Take(firsts))
	}
	cols = append(cols, reduceGroups(target, groups, spec.Op, spec.resultName()))
	return dataset.NewTable(t.Name()+" (grouped)", cols...)
}

func lessRow(keys []*dataset.Column, a, b int) bool {
	for _, k := range keys {
		if k.DType() != dataset.Object {
			x, _ := k.Float(a)
			y, _ := k.Float(b)
			if x != y {
				return x < y
			}
			continue
		}
		if x, y := k.String(a), k.String(b); x != y {
			return x < y
		}
	}
	return false
}

func reduceGroups(c *dataset.Column, groups []*group, op Op, name string) *dataset.Column {
	if op == OpCount {
		out := make([]int64, len(groups))
		for i, g := range groups {
			out[i] = int64(len(g.rows))
		}
		return dataset.NewIntColumn(name, out)
	}
	if c.DType() == dataset.Object {
		out := make([]string, len(groups))
		for i, g := range groups {
			out[i] = textExtreme(c, g.rows, op == OpMax)
		}
		return dataset.NewTextColumn(name, out)
	}
	vals := make([]float64, len(groups))
	for i, g := range groups {
		var xs []float64
		for _, r := range g.rows {
			if v, ok := c.Float(r); ok {
				xs = append(xs, v)
			}
		}
		vals[i] = reduce(op, xs)
	}
	integral := op == OpSum || op == OpMin || op == OpMax
	if integral && c.DType() != dataset.Float64 {
		ints := make([]int64, len(vals))
		for i, v := range vals {
			ints[i] = int64(v)
		}
		return dataset.NewIntColumn(name, ints)
	}
	return dataset.NewFloatColumn(name, vals)
}

// reduce applies op to non-null values. Empty input yields 0 for sum and NaN otherwise.
func reduce(op Op, xs []float64) float64 {
	if len(xs) == 0 {
		if op == OpSum {
			return 0
		}
		return math.NaN()
	}
	switch op {
	case OpSum:
		return mustStat(stats.Sum(xs))
	case OpMean:
		return mustStat(stats.Mean(xs))
	case OpMedian:
		return mustStat(stats.Median(xs))
	case OpMin:
		return mustStat(stats.Min(xs))
	case OpMax:
		return mustStat(stats.Max(xs))
	case OpCount:
		return float64(len(xs))
	}
	return math.NaN()
}

func textExtreme(c *dataset.Column, rows []int, max bool) string {
	var best string
	found := false
	for _, r := range rows {
		if c.IsNull(r) {
			continue
		}
		v := c.String(r)
		if !found || (max && v > best) || (!max && v < best) {
			best, found = v, true
		}
	}
	return best
}
