package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an image encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat validates an image format name; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (use png|svg)", s)
}

// ContentType is the MIME type of the encoded image.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Default canvas size.
const (
	DefaultWidth  = 1024
	DefaultHeight = 600
)

// ErrNoData is returned when a figure has nothing to draw.
var ErrNoData = errors.New("chart has no data points")

// Render rasterizes fig into w. Sunburst figures draw their leaf ring as a pie;
// facets are not split into panels.
func Render(fig *Figure, w io.Writer, format Format, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	provider := gochart.PNG
	if format == SVG {
		provider = gochart.SVG
	}
	var err error
	switch fig.Kind {
	case Line, Scatter:
		err = renderXY(fig, w, provider, width, height)
	case Bar:
		err = renderBar(fig, w, provider, width, height)
	case Pie, Sunburst:
		err = renderPie(fig, w, provider, width, height)
	default:
		return fmt.Errorf("unsupported chart kind %q", fig.Kind)
	}
	if err != nil {
		return fmt.Errorf("render %s chart: %w", fig.Kind, err)
	}
	return nil
}

func seriesStyle(kind Kind, col drawing.Color) gochart.Style {
	if kind == Scatter {
		return gochart.Style{StrokeWidth: gochart.Disabled, DotWidth: 5, DotColor: col}
	}
	return gochart.Style{StrokeWidth: 2, StrokeColor: col, DotWidth: 3, DotColor: col}
}

func renderXY(fig *Figure, w io.Writer, provider gochart.RendererProvider, width, height int) error {
	var series []gochart.Series
	var xs, ys []float64
	for i, tr := range fig.Traces {
		var px, py []float64
		for j := range tr.Y {
			if math.IsNaN(tr.X[j]) || math.IsNaN(tr.Y[j]) {
				continue
			}
			px = append(px, tr.X[j])
			py = append(py, tr.Y[j])
		}
		if len(px) == 0 {
			continue
		}
		xs, ys = append(xs, px...), append(ys, py...)
		st := seriesStyle(fig.Kind, gochart.GetDefaultColor(i))
		if fig.Kind == Scatter && len(tr.Sizes) == len(tr.Y) {
			st.DotWidthProvider = sizeProvider(tr.Sizes)
		}
		series = append(series, gochart.ContinuousSeries{Name: tr.Name, XValues: px, YValues: py, Style: st})
	}
	if len(series) == 0 {
		return ErrNoData
	}
	xAxis := gochart.XAxis{Name: fig.XTitle, Range: paddedRange(xs)}
	if len(fig.Categories) > 0 {
		ticks := make([]gochart.Tick, len(fig.Categories))
		for i, c := range fig.Categories {
			ticks[i] = gochart.Tick{Value: float64(i), Label: c}
		}
		xAxis.Ticks = ticks
		xAxis.Range = &gochart.ContinuousRange{Min: -0.5, Max: float64(len(fig.Categories)) - 0.5}
	}
	ch := gochart.Chart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      xAxis,
		YAxis:      gochart.YAxis{Name: fig.YTitle, Range: paddedRange(ys)},
		Series:     series,
	}
	if len(series) > 1 {
		ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	}
	return ch.Render(provider, w)
}

// sizeProvider scales dot widths linearly into [3, 15] pixels.
func sizeProvider(sizes []float64) gochart.SizeProvider {
	lo, hi := bounds(sizes)
	return func(_, _ gochart.Range, index int, _, _ float64) float64 {
		if index >= len(sizes) || hi == lo || math.IsNaN(sizes[index]) {
			return 5
		}
		return 3 + 12*(sizes[index]-lo)/(hi-lo)
	}
}

func renderBar(fig *Figure, w io.Writer, provider gochart.RendererProvider, width, height int) error {
	var bars []gochart.Value
	var ys []float64
	for i, tr := range fig.Traces {
		for j, y := range tr.Y {
			if math.IsNaN(y) {
				continue
			}
			label := strconv.FormatFloat(tr.X[j], 'g', -1, 64)
			if j < len(tr.Labels) {
				label = tr.Labels[j]
			}
			if tr.Name != "" && len(fig.Traces) > 1 {
				label += " (" + tr.Name + ")"
			}
			col := gochart.GetDefaultColor(i)
			bars = append(bars, gochart.Value{Label: label, Value: y, Style: gochart.Style{FillColor: col, StrokeColor: col}})
			ys = append(ys, y)
		}
	}
	if len(bars) == 0 {
		return ErrNoData
	}
	lo, hi := bounds(append(ys, 0))
	if hi == lo {
		hi = lo + 1
	}
	bw := barWidth(width, len(bars))
	bc := gochart.BarChart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		BarWidth:   bw,
		BarSpacing: bw,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		YAxis:      gochart.YAxis{Name: fig.YTitle, Range: &gochart.ContinuousRange{Min: lo, Max: hi}},
		Bars:       bars,
	}
	return bc.Render(provider, w)
}

// barWidth sizes bars so bars and equal gaps fit the plot area.
func barWidth(width, n int) int {
	bw := (width - 120) / (n * 2)
	if bw < 2 {
		return 2
	}
	if bw > 60 {
		return 60
	}
	return bw
}

func renderPie(fig *Figure, w io.Writer, provider gochart.RendererProvider, width, height int) error {
	var values []gochart.Value
	for _, tr := range fig.Traces {
		for j, v := range tr.Y {
			if math.IsNaN(v) || v <= 0 {
				continue
			}
			label := ""
			if j < len(tr.Labels) {
				label = tr.Labels[j]
			}
			values = append(values, gochart.Value{Label: label, Value: v})
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}
	pc := gochart.PieChart{
		Title:  fig.Title,
		Width:  width,
		Height: height,
		Values: values,
	}
	return pc.Render(provider, w)
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// paddedRange widens degenerate ranges so single points still render.
func paddedRange(vals []float64) *gochart.ContinuousRange {
	lo, hi := bounds(vals)
	if hi == lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := (hi - lo) * 0.05
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
