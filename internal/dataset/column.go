package dataset

import (
	"math"
	"strconv"
	"strings"
)

// DType is the declared type of a column, using the conventional dataframe
// dtype names shown to users.
type DType string

const (
	Int64   DType = "int64"
	Float64 DType = "float64"
	Bool    DType = "bool"
	Object  DType = "object"
)

// Numeric reports whether values of this dtype can feed numeric reductions.
func (d DType) Numeric() bool { return d == Int64 || d == Float64 }

// Column is a homogeneous, immutable sequence of values. Raw text is kept for
// every cell; numeric and bool columns also carry parsed floats (NaN for null).
type Column struct {
	name  string
	dtype DType
	raw   []string
	nums  []float64
	null  []bool
}

// NewColumn infers the dtype of raw cell text. Empty (after trimming) cells are null.
func NewColumn(name string, cells []string) *Column {
	return newColumnWith(name, cells, NumberFormat{})
}

func newColumnWith(name string, cells []string, nf NumberFormat) *Column {
	c := &Column{name: name, raw: make([]string, len(cells)), null: make([]bool, len(cells))}
	allInt, allNum, allBool := true, true, true
	nonNull := 0
	for i, v := range cells {
		v = strings.TrimSpace(v)
		if isNullToken(v) {
			v = ""
		}
		c.raw[i] = v
		if v == "" {
			c.null[i] = true
			continue
		}
		nonNull++
		if allBool {
			if _, ok := parseBool(v); !ok {
				allBool = false
			}
		}
		if allNum {
			if _, ok := nf.parse(v); !ok {
				allNum = false
				allInt = false
			} else if allInt && !isIntLiteral(v) {
				allInt = false
			}
		}
	}
	hasNull := nonNull < len(cells)
	switch {
	case nonNull == 0:
		// all-empty columns are float64 NaN
		c.dtype = Float64
	case allBool:
		c.dtype = Bool
		if hasNull {
			c.dtype = Object
		}
	case allInt && !hasNull:
		c.dtype = Int64
	case allNum:
		c.dtype = Float64
	default:
		c.dtype = Object
	}
	if c.dtype == Object {
		return c
	}
	c.nums = make([]float64, len(cells))
	for i, v := range c.raw {
		if c.null[i] {
			c.nums[i] = math.NaN()
			continue
		}
		if c.dtype == Bool {
			b, _ := parseBool(v)
			if b {
				c.nums[i] = 1
			}
			continue
		}
		c.nums[i], _ = nf.parse(v)
	}
	return c
}

// NewFloatColumn builds a float64 column; NaN values are null.
func NewFloatColumn(name string, vals []float64) *Column {
	c := &Column{name: name, dtype: Float64, raw: make([]string, len(vals)), nums: make([]float64, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		c.nums[i] = v
		if math.IsNaN(v) {
			c.null[i] = true
			continue
		}
		c.raw[i] = FormatFloat(v)
	}
	return c
}

// NewIntColumn builds an int64 column.
func NewIntColumn(name string, vals []int64) *Column {
	c := &Column{name: name, dtype: Int64, raw: make([]string, len(vals)), nums: make([]float64, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		c.nums[i] = float64(v)
		c.raw[i] = strconv.FormatInt(v, 10)
	}
	return c
}

// NewTextColumn builds an object column; empty strings are null.
func NewTextColumn(name string, vals []string) *Column {
	c := &Column{name: name, dtype: Object, raw: make([]string, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		c.raw[i] = v
		c.null[i] = v == ""
	}
	return c
}

func (c *Column) Name() string { return c.name }
func (c *Column) DType() DType { return c.dtype }
func (c *Column) Len() int { return len(c.raw) }
func (c *Column) IsNull(i int) bool { return c.null[i] }

// String returns the display text of cell i ("" for null).
func (c *Column) String(i int) string { return c.raw[i] }

// Float returns the numeric value of cell i. ok is false for null cells and
// object columns.
func (c *Column) Float(i int) (float64, bool) {
	if c.nums == nil || c.null[i] {
		return math.NaN(), false
	}
	return c.nums[i], true
}

// Key returns a grouping key for cell i: numeric cells compare by value, so
// "1.5" and "1.50" fall into the same group.
func (c *Column) Key(i int) string {
	if c.nums != nil && !c.null[i] {
		return strconv.FormatFloat(c.nums[i], 'g', -1, 64)
	}
	return c.raw[i]
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, b := range c.null {
		if b {
			n++
		}
	}
	return n
}

// Floats returns the non-null numeric values in row order.
func (c *Column) Floats() []float64 {
	if c.nums == nil {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for i, v := range c.nums {
		if !c.null[i] {
			out = append(out, v)
		}
	}
	return out
}

// Take returns a new column with the cells at idx, in that order.
func (c *Column) Take(idx []int) *Column {
	out := &Column{name: c.name, dtype: c.dtype, raw: make([]string, len(idx)), null: make([]bool, len(idx))}
	if c.nums != nil {
		out.nums = make([]float64, len(idx))
	}
	for j, i := range idx {
		out.raw[j] = c.raw[i]
		out.null[j] = c.null[i]
		if c.nums != nil {
			out.nums[j] = c.nums[i]
		}
	}
	return out
}

// Rename returns a copy of the column under a new name sharing the cell storage.
func (c *Column) Rename(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// FormatFloat renders a float the way the tables display it: integral values
// keep one decimal ("3.0"), everything else uses the shortest exact form.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// nullTokens are the cell spellings read as missing values.
var nullTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-NaN": {}, "-nan": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNullToken(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func isIntLiteral(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
