package server

import (
	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

type tableJSON struct {
	Name    string       `json:"name"`
	Columns []columnInfo `json:"columns"`
	Rows    [][]any      `json:"rows"`
}

// encodeTable converts a table to JSON rows: nulls become null, numeric and
// bool columns keep their JSON types.
func encodeTable(t *dataset.Table) tableJSON {
	out := tableJSON{Name: t.Name(), Rows: make([][]any, t.Rows())}
	cols := make([]*dataset.Column, t.Width())
	for j := range cols {
		cols[j] = t.ColumnAt(j)
		out.Columns = append(out.Columns, columnInfo{Name: cols[j].Name(), DType: cols[j].DType(), Nulls: cols[j].NullCount()})
	}
	for i := range out.Rows {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = cell(c, i)
		}
		out.Rows[i] = row
	}
	return out
}

func cell(c *dataset.Column, i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.DType() {
	case dataset.Int64:
		v, _ := c.Float(i)
		return int64(v)
	case dataset.Float64:
		v, _ := c.Float(i)
		return v
	case dataset.Bool:
		v, _ := c.Float(i)
		return v != 0
	}
	return c.String(i)
}
