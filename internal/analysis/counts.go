package analysis

import (
	"sort"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// CountColumn names the frequency column of a value-count table.
const CountColumn = "count"

type valueCount struct {
	key   string
	first int // row of first occurrence
	count int
}

// countValues tallies non-null cells by value, ordered by descending count with
// ties in first-encountered order.
func countValues(c *dataset.Column) []valueCount {
	pos := map[string]int{}
	var out []valueCount
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		k := c.Key(i)
		if j, ok := pos[k]; ok {
			out[j].count++
			continue
		}
		pos[k] = len(out)
		out = append(out, valueCount{key: k, first: i, count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

// ValueCounts returns the top k distinct values of column with their counts.
// k is clamped to [1, distinct values]. The value column keeps the source dtype.
func ValueCounts(t *dataset.Table, column string, k int) (*dataset.Table, error) {
	if column == "" {
		return nil, &dataset.EmptySelectionError{What: "value-count column"}
	}
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	counts := countValues(c)
	if k < 1 {
		k = 1
	}
	if k > len(counts) {
		k = len(counts)
	}
	counts = counts[:k]
	idx := make([]int, len(counts))
	freq := make([]int64, len(counts))
	for i, vc := range counts {
		idx[i] = vc.first
		freq[i] = int64(vc.count)
	}
	countName := CountColumn
	if column == CountColumn {
		countName = "freq"
	}
	return dataset.NewTable(t.Name()+" (value counts)", c.Take(idx), dataset.NewIntColumn(countName, freq))
}
