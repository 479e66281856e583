// Package chart turns tables into renderer-neutral figures and rasterizes them.
package chart

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// Kind is a chart type.
type Kind string

const (
	Line     Kind = "line"
	Bar      Kind = "bar"
	Scatter  Kind = "scatter"
	Pie      Kind = "pie"
	Sunburst Kind = "sunburst"
)

// Kinds lists the supported chart types in menu order.
var Kinds = []Kind{Line, Bar, Scatter, Pie, Sunburst}

// ParseKind validates a chart type name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Kinds {
		if v == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported chart kind %q (use line|bar|scatter|pie|sunburst)", s)
}

// DefaultValues is the column sunburst charts fall back to for segment sizes.
const DefaultValues = "newcol"

// Request binds table columns to chart roles. Empty strings mean "not set".
type Request struct {
	Kind   Kind     `json:"kind" yaml:"kind"`
	X      string   `json:"x,omitempty" yaml:"x,omitempty"`
	Y      string   `json:"y,omitempty" yaml:"y,omitempty"`
	Color  string   `json:"color,omitempty" yaml:"color,omitempty"`
	Size   string   `json:"size,omitempty" yaml:"size,omitempty"`
	Facet  string   `json:"facet,omitempty" yaml:"facet,omitempty"`
	Path   []string `json:"path,omitempty" yaml:"path,omitempty"`
	Values string   `json:"values,omitempty" yaml:"values,omitempty"`
	Names  string   `json:"names,omitempty" yaml:"names,omitempty"`
	Text   string   `json:"text,omitempty" yaml:"text,omitempty"`
	Title  string   `json:"title,omitempty" yaml:"title,omitempty"`
}

// FieldError reports a role the chart kind requires but the request left empty.
type FieldError struct {
	Kind  Kind
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s chart requires the %s field", e.Kind, e.Field)
}

// Trace is one series of a figure. X holds positions; for categorical axes
// Labels holds the category of each point.
type Trace struct {
	Name   string    `json:"name,omitempty"`
	X      []float64 `json:"x,omitempty"`
	Y      []float64 `json:"y"`
	Labels []string  `json:"labels,omitempty"`
	Sizes  []float64 `json:"sizes,omitempty"`
	Text   []string  `json:"text,omitempty"`
}

// Node is a sunburst segment. Value is the sum of all leaves below it.
type Node struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Children []*Node `json:"children,omitempty"`
}

// Figure is a chart independent of any renderer.
type Figure struct {
	Kind       Kind     `json:"kind"`
	Title      string   `json:"title,omitempty"`
	XTitle     string   `json:"x_title,omitempty"`
	YTitle     string   `json:"y_title,omitempty"`
	Facet      string   `json:"facet,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Traces     []Trace  `json:"traces"`
	Root       *Node    `json:"root,omitempty"`
}

// Validate checks that every role the kind needs is set, that referenced
// columns exist and that value roles are numeric.
func (r Request) Validate(t *dataset.Table) error {
	kind, err := ParseKind(string(r.Kind))
	if err != nil {
		return err
	}
	var numeric []string
	switch kind {
	case Line, Bar, Scatter:
		if r.X == "" {
			return &FieldError{Kind: kind, Field: "x"}
		}
		if r.Y == "" {
			return &FieldError{Kind: kind, Field: "y"}
		}
		numeric = append(numeric, r.Y)
		if r.Size != "" {
			numeric = append(numeric, r.Size)
		}
	case Pie:
		if r.Values == "" {
			return &FieldError{Kind: kind, Field: "values"}
		}
		if r.Names == "" {
			return &FieldError{Kind: kind, Field: "names"}
		}
		numeric = append(numeric, r.Values)
	case Sunburst:
		if len(r.Path) == 0 {
			return &FieldError{Kind: kind, Field: "path"}
		}
		if r.sunburstValues(t) == "" {
			return &FieldError{Kind: kind, Field: "values"}
		}
		numeric = append(numeric, r.sunburstValues(t))
	}
	refs := append([]string{r.X, r.Color, r.Facet, r.Names, r.Text}, r.Path...)
	for _, name := range append(refs, numeric...) {
		if name == "" {
			continue
		}
		if _, err := t.Column(name); err != nil {
			return err
		}
	}
	for _, name := range numeric {
		c, _ := t.Column(name)
		if !c.DType().Numeric() && c.DType() != dataset.Bool {
			return &dataset.TypeMismatchError{Column: name, Op: string(kind) + " chart", Want: "numeric", Got: c.DType()}
		}
	}
	return nil
}

func (r Request) sunburstValues(t *dataset.Table) string {
	if r.Values != "" {
		return r.Values
	}
	if t.Has(DefaultValues) {
		return DefaultValues
	}
	return ""
}

// Build validates req against t and assembles the figure.
func Build(t *dataset.Table, req Request) (*Figure, error) {
	if err := req.Validate(t); err != nil {
		return nil, err
	}
	req.Kind, _ = ParseKind(string(req.Kind))
	fig := &Figure{Kind: req.Kind, Title: req.Title, Facet: req.Facet}
	switch req.Kind {
	case Line, Bar, Scatter:
		buildXY(t, req, fig)
	case Pie:
		buildPie(t, req, fig)
	case Sunburst:
		buildSunburst(t, req, fig)
	}
	return fig, nil
}

func column(t *dataset.Table, name string) *dataset.Column {
	if name == "" {
		return nil
	}
	c, _ := t.Column(name)
	return c
}

func buildXY(t *dataset.Table, req Request, fig *Figure) {
	fig.XTitle, fig.YTitle = req.X, req.Y
	x, y := column(t, req.X), column(t, req.Y)
	color, size, text := column(t, req.Color), column(t, req.Size), column(t, req.Text)
	categorical := !x.DType().Numeric()

	catPos := map[string]int{}
	tracePos := map[string]int{}
	for i := 0; i < t.Rows(); i++ {
		yv, ok := y.Float(i)
		if !ok || x.IsNull(i) {
			continue
		}
		// a marker without a size has nothing to draw
		if size != nil && size.IsNull(i) {
			continue
		}
		var xv float64
		label := ""
		if categorical {
			label = x.String(i)
			p, seen := catPos[label]
			if !seen {
				p = len(fig.Categories)
				catPos[label] = p
				fig.Categories = append(fig.Categories, label)
			}
			xv = float64(p)
		} else {
			xv, _ = x.Float(i)
		}
		name := ""
		if color != nil {
			name = color.String(i)
		}
		j, seen := tracePos[name]
		if !seen {
			j = len(fig.Traces)
			tracePos[name] = j
			fig.Traces = append(fig.Traces, Trace{Name: name})
		}
		tr := &fig.Traces[j]
		tr.X = append(tr.X, xv)
		tr.Y = append(tr.Y, yv)
		if categorical {
			tr.Labels = append(tr.Labels, label)
		}
		if size != nil {
			sv, _ := size.Float(i)
			tr.Sizes = append(tr.Sizes, sv)
		}
		if text != nil {
			tr.Text = append(tr.Text, text.String(i))
		}
	}
}

func buildPie(t *dataset.Table, req Request, fig *Figure) {
	names, values := column(t, req.Names), column(t, req.Values)
	pos := map[string]int{}
	tr := Trace{Name: req.Values}
	for i := 0; i < t.Rows(); i++ {
		v, ok := values.Float(i)
		if !ok || names.IsNull(i) {
			continue
		}
		label := names.String(i)
		if j, seen := pos[label]; seen {
			tr.Y[j] += v
			continue
		}
		pos[label] = len(tr.Labels)
		tr.Labels = append(tr.Labels, label)
		tr.Y = append(tr.Y, v)
	}
	fig.Traces = []Trace{tr}
}

func buildSunburst(t *dataset.Table, req Request, fig *Figure) {
	values := column(t, req.sunburstValues(t))
	path := make([]*dataset.Column, len(req.Path))
	for i, p := range req.Path {
		path[i] = column(t, p)
	}
	root := &Node{}
	index := map[*Node]map[string]*Node{}
	var leaves []*Node
	var leafNames []string
rows:
	for i := 0; i < t.Rows(); i++ {
		v, ok := values.Float(i)
		if !ok {
			continue
		}
		for _, c := range path {
			if c.IsNull(i) {
				continue rows
			}
		}
		node := root
		node.Value += v
		labels := make([]string, len(path))
		for d, c := range path {
			labels[d] = c.String(i)
			kids := index[node]
			if kids == nil {
				kids = map[string]*Node{}
				index[node] = kids
			}
			child, seen := kids[labels[d]]
			if !seen {
				child = &Node{Label: labels[d]}
				kids[labels[d]] = child
				node.Children = append(node.Children, child)
				if d == len(path)-1 {
					leaves = append(leaves, child)
					leafNames = append(leafNames, strings.Join(labels, "/"))
				}
			}
			child.Value += v
			node = child
		}
	}
	tr := Trace{Name: req.sunburstValues(t), Labels: leafNames, Y: make([]float64, len(leaves))}
	for i, n := range leaves {
		tr.Y[i] = n.Value
	}
	fig.Root = root
	fig.Traces = []Trace{tr}
}

// ValueCountFigures builds the bar, line and pie views of a value-count table
// whose first column holds the values and second the counts.
func ValueCountFigures(counts *dataset.Table) ([]*Figure, error) {
	if counts.Width() < 2 {
		return nil, fmt.Errorf("value-count table needs 2 columns, got %d", counts.Width())
	}
	value, count := counts.ColumnAt(0).Name(), counts.ColumnAt(1).Name()
	reqs := []Request{
		{Kind: Bar, X: value, Y: count, Text: count, Title: "Value counts of " + value},
		{Kind: Line, X: value, Y: count, Text: count, Title: "Value counts of " + value},
		{Kind: Pie, Names: value, Values: count, Title: "Share of " + value},
	}
	figs := make([]*Figure, 0, len(reqs))
	for _, r := range reqs {
		f, err := Build(counts, r)
		if err != nil {
			return nil, err
		}
		if r.Kind != Pie && len(f.Categories) == 0 && len(f.Traces) == 1 {
			// numeric values still read as categories in a frequency chart
			f.Categories = make([]string, len(f.Traces[0].X))
			for i := range f.Traces[0].X {
				f.Categories[i] = counts.ColumnAt(0).String(i)
				f.Traces[0].X[i] = float64(i)
			}
			f.Traces[0].Labels = f.Categories
		}
		figs = append(figs, f)
	}
	return figs, nil
}

// PredictionFigure plots predicted against actual target values.
func PredictionFigure(actual, predicted []float64) *Figure {
	return &Figure{
		Kind:   Scatter,
		Title:  "Predictions vs Actual",
		XTitle: "Actual",
		YTitle: "Predicted",
		Traces: []Trace{{X: actual, Y: predicted}},
	}
}
