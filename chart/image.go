package chart

import (
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ImageRenderer draws figures as PNG or SVG images with go-chart. Heatmap,
// Pair Plot, Box Plot and Violin Plot have no go-chart equivalent and are
// rejected with ErrRenderUnsupported; Histogram draws the first column and
// Scatter Matrix the first pair.
type ImageRenderer struct {
	format string
	size   Size
}

func NewImageRenderer(format string, size Size) *ImageRenderer {
	if size.Width <= 0 {
		size.Width = 800
	}
	if size.Height <= 0 {
		size.Height = 600
	}
	return &ImageRenderer{format: format, size: size}
}

func (r *ImageRenderer) ContentType() string {
	if r.format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (r *ImageRenderer) provider() gochart.RendererProvider {
	if r.format == FormatSVG {
		return gochart.SVG
	}
	return gochart.PNG
}

// Supports reports whether the renderer can draw kind.
func (r *ImageRenderer) Supports(kind Kind) bool {
	switch kind {
	case Histogram, BarChart, PieChart, LineChart, DensityPlot, SwarmPlot, ScatterMatrix:
		return true
	}
	return false
}

func (r *ImageRenderer) Render(w io.Writer, fig *Figure) error {
	if !r.Supports(fig.Kind) {
		return fmt.Errorf("%w: %s as %s", ErrRenderUnsupported, fig.Kind, r.format)
	}

	var err error
	switch fig.Kind {
	case Histogram:
		err = r.histogram(w, fig)
	case BarChart:
		err = r.bars(w, fig.Title, fig.Counts.Labels, fig.Counts.Values)
	case PieChart:
		err = r.pie(w, fig)
	case LineChart, DensityPlot:
		err = r.series(w, fig, fig.Series, lineStyle)
	case SwarmPlot:
		err = r.series(w, fig, fig.Series, dotStyle)
	case ScatterMatrix:
		if len(fig.Pairs) == 0 {
			return ErrNoData
		}
		p := fig.Pairs[0]
		f := *fig
		f.XLabel, f.YLabel = p.X, p.Y
		err = r.series(w, &f, []Series{p.Points}, dotStyle)
	}
	if err != nil {
		return fmt.Errorf("chart: rendering %s: %w", fig.Kind, err)
	}
	return nil
}

func (r *ImageRenderer) histogram(w io.Writer, fig *Figure) error {
	h := fig.Histograms[0]
	title := fmt.Sprintf("Histogram of %s", h.Column)
	return r.bars(w, title, binLabels(h.Edges), h.Counts)
}

func (r *ImageRenderer) bars(w io.Writer, title string, labels []string, values []float64) error {
	if len(values) == 0 {
		return ErrNoData
	}
	bars := make([]gochart.Value, len(values))
	top := 0.0
	for i, v := range values {
		bars[i] = gochart.Value{Label: labels[i], Value: v}
		top = max(top, v)
	}
	if top == 0 {
		top = 1
	}

	spacing := 4
	width := (r.size.Width-120)/len(bars) - spacing
	if width < 2 {
		width = 2
	}
	bc := gochart.BarChart{
		Title:      title,
		Width:      r.size.Width,
		Height:     r.size.Height,
		BarWidth:   width,
		BarSpacing: spacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: top}},
		Bars:       bars,
	}
	return bc.Render(r.provider(), w)
}

func (r *ImageRenderer) pie(w io.Writer, fig *Figure) error {
	c := fig.Counts
	total := c.Total()
	values := make([]gochart.Value, len(c.Labels))
	for i := range c.Labels {
		values[i] = gochart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", c.Labels[i], 100*c.Values[i]/total),
			Value: c.Values[i],
		}
	}
	pc := gochart.PieChart{
		Title:  fig.Title,
		Width:  r.size.Width,
		Height: r.size.Height,
		Values: values,
	}
	return pc.Render(r.provider(), w)
}

type styleFunc func(color drawing.Color) gochart.Style

func lineStyle(color drawing.Color) gochart.Style {
	return gochart.Style{StrokeColor: color, StrokeWidth: 2}
}

// dotStyle renders points only, with no connecting line.
func dotStyle(color drawing.Color) gochart.Style {
	return gochart.Style{StrokeWidth: gochart.Disabled, DotWidth: 3, DotColor: color}
}

func (r *ImageRenderer) series(w io.Writer, fig *Figure, data []Series, style styleFunc) error {
	var all []gochart.Series
	var xs, ys []float64
	for i, s := range data {
		if len(s.X) == 0 {
			continue
		}
		color := drawing.ColorFromHex(palette[i%len(palette)][1:])
		all = append(all, gochart.ContinuousSeries{
			Name:    s.Name,
			XValues: s.X,
			YValues: s.Y,
			Style:   style(color),
		})
		xs = append(xs, s.X...)
		ys = append(ys, s.Y...)
	}
	if len(all) == 0 {
		return ErrNoData
	}

	ch := gochart.Chart{
		Title:      fig.Title,
		Width:      r.size.Width,
		Height:     r.size.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: fig.XLabel, Range: paddedRange(xs)},
		YAxis:      gochart.YAxis{Name: fig.YLabel, Range: paddedRange(ys)},
		Series:     all,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch.Render(r.provider(), w)
}

// paddedRange spans vals, widened when every value is the same so the axis
// never collapses to zero width.
func paddedRange(vals []float64) *gochart.ContinuousRange {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}
