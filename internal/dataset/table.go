package dataset

import (
	"fmt"
	"strconv"
)

// Table is an immutable, ordered set of equally long named columns.
type Table struct {
	name  string
	cols  []*Column
	index map[string]int
	rows  int
}

// NewTable assembles columns into a table. Column names must be unique and all
// columns must have the same length.
func NewTable(name string, cols ...*Column) (*Table, error) {
	t := &Table{name: name, cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name())
		}
		t.index[c.Name()] = i
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name(), c.Len(), t.rows)
		}
	}
	return t, nil
}

// FromRecords builds a table from a header and string records, inferring dtypes.
// Short records are padded with nulls; duplicate or empty header names are
// disambiguated as "name.1" and "Unnamed: i".
func FromRecords(name string, header []string, records [][]string) (*Table, error) {
	return fromRecords(name, header, records, NumberFormat{})
}

func fromRecords(name string, header []string, records [][]string, nf NumberFormat) (*Table, error) {
	names := dedupeHeader(header)
	cols := make([]*Column, len(names))
	cells := make([]string, len(records))
	for j, n := range names {
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = rec[j]
			} else {
				cells[i] = ""
			}
		}
		cols[j] = newColumnWith(n, cells, nf)
	}
	return NewTable(name, cols...)
}

func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		base := h
		for n := seen[base]; ; n++ {
			if _, taken := seen[h]; !taken {
				break
			}
			h = base + "." + strconv.Itoa(n)
		}
		seen[base]++
		if h != base {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func (t *Table) Name() string { return t.name }
func (t *Table) Rows() int { return t.rows }
func (t *Table) Width() int { return len(t.cols) }

// Columns returns the ordered column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name()
	}
	return out
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &MissingColumnError{Column: name, Available: t.Columns()}
	}
	return t.cols[i], nil
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Record returns row i as display strings.
func (t *Table) Record(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.String(i)
	}
	return out
}

// Records returns all rows as display strings.
func (t *Table) Records() [][]string {
	out := make([][]string, t.rows)
	for i := range out {
		out[i] = t.Record(i)
	}
	return out
}

// Take returns a table with the rows at idx, in that order.
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for j, c := range t.cols {
		cols[j] = c.Take(idx)
	}
	return &Table{name: t.name, cols: cols, index: t.index, rows: len(idx)}
}

// Slice returns rows [start, end), clamped to the table bounds.
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end > t.rows {
		end = t.rows
	}
	if end < start {
		end = start
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return t.Take(idx)
}
