// Package chart turns a table into chart data (a Figure) and renders figures
// as ECharts option documents or as PNG/SVG images.
package chart

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownChart      = errors.New("chart: unknown chart type")
	ErrShapeMismatch     = errors.New("chart: table does not have the data this chart needs")
	ErrNoData            = errors.New("chart: no data to plot")
	ErrRenderUnsupported = errors.New("chart: chart type not supported by this renderer")
)

// Kind identifies one of the supported chart types. The string value is the
// identifier users pick from.
type Kind string

const (
	Heatmap       Kind = "Heatmap"
	PairPlot      Kind = "Pair Plot"
	ScatterMatrix Kind = "Scatter Matrix"
	Histogram     Kind = "Histogram"
	BoxPlot       Kind = "Box Plot"
	ViolinPlot    Kind = "Violin Plot"
	DensityPlot   Kind = "Density Plot"
	BarChart      Kind = "Bar Chart"
	LineChart     Kind = "Line Chart"
	SwarmPlot     Kind = "Swarm Plot"
	PieChart      Kind = "Pie Chart"
)

var kinds = []Kind{
	Heatmap, PairPlot, ScatterMatrix, Histogram, BoxPlot, ViolinPlot,
	DensityPlot, BarChart, LineChart, SwarmPlot, PieChart,
}

// Kinds returns every chart type in selector order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind matches s against the chart identifiers. Matching ignores case
// and surrounding spaces, so "box plot" selects Box Plot.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
}

// categorical reports whether the chart plots value counts of a textual
// column rather than numeric columns.
func (k Kind) categorical() bool { return k == BarChart || k == PieChart }

// minNumeric is the number of numeric columns a numeric chart needs.
func (k Kind) minNumeric() int {
	switch k {
	case PairPlot, ScatterMatrix:
		return 2
	default:
		return 1
	}
}
