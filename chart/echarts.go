package chart

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Palette shared by the ECharts and image renderers.
var palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc",
}

// EChartsRenderer writes a figure as an ECharts option object. Every chart
// kind is supported.
type EChartsRenderer struct{}

func NewEChartsRenderer() *EChartsRenderer { return &EChartsRenderer{} }

func (r *EChartsRenderer) ContentType() string { return "application/json" }

func (r *EChartsRenderer) Render(w io.Writer, fig *Figure) error {
	opt, err := r.Option(fig)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(opt); err != nil {
		return fmt.Errorf("chart: encoding echarts option: %w", err)
	}
	return nil
}

// Option builds the ECharts option for fig.
func (r *EChartsRenderer) Option(fig *Figure) (map[string]any, error) {
	var opt map[string]any
	switch fig.Kind {
	case Heatmap:
		opt = r.heatmap(fig)
	case PairPlot, ScatterMatrix:
		opt = r.scatterGrid(fig)
	case Histogram:
		opt = r.histograms(fig)
	case BoxPlot:
		opt = r.boxplot(fig)
	case ViolinPlot:
		opt = r.violin(fig)
	case DensityPlot, LineChart:
		opt = r.lines(fig)
	case SwarmPlot:
		opt = r.swarm(fig)
	case BarChart:
		opt = r.bar(fig)
	case PieChart:
		opt = r.pie(fig)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, fig.Kind)
	}
	opt["title"] = map[string]any{"text": fig.Title, "left": "center"}
	opt["color"] = palette
	if _, ok := opt["tooltip"]; !ok {
		opt["tooltip"] = map[string]any{"trigger": "item"}
	}
	return opt, nil
}

func (r *EChartsRenderer) heatmap(fig *Figure) map[string]any {
	m := fig.Correlation
	data := make([]any, 0, len(m.Labels)*len(m.Labels))
	for i := range m.Values {
		for j, v := range m.Values[i] {
			// ECharts reads "-" as an empty cell.
			var cell any = "-"
			if !math.IsNaN(v) {
				cell = round(v, 2)
			}
			data = append(data, []any{j, i, cell})
		}
	}
	return map[string]any{
		"xAxis": map[string]any{"type": "category", "data": m.Labels, "splitArea": map[string]any{"show": true}},
		"yAxis": map[string]any{"type": "category", "data": m.Labels, "splitArea": map[string]any{"show": true}},
		"visualMap": map[string]any{
			"min": -1, "max": 1, "calculable": true,
			"orient": "horizontal", "left": "center", "bottom": 0,
			"inRange": map[string]any{"color": []string{"#3b4cc0", "#f7f7f7", "#b40426"}},
		},
		"series": []any{map[string]any{
			"type":  "heatmap",
			"data":  data,
			"label": map[string]any{"show": true},
		}},
	}
}

// scatterGrid lays out an n x n matrix of panels: scatters off the diagonal
// and the per-column distribution on it.
func (r *EChartsRenderer) scatterGrid(fig *Figure) map[string]any {
	n := len(fig.Columns)
	cell := 90.0 / float64(n)
	var grids, xAxes, yAxes, series []any

	pairs := make(map[[2]string]Pair, len(fig.Pairs))
	for _, p := range fig.Pairs {
		pairs[[2]string{p.Y, p.X}] = p
	}

	for i, yName := range fig.Columns {
		for j, xName := range fig.Columns {
			idx := len(grids)
			grids = append(grids, map[string]any{
				"left":   pct(5 + float64(j)*cell),
				"top":    pct(7 + float64(i)*cell),
				"width":  pct(cell - 2),
				"height": pct(cell - 3),
			})
			xAxis := map[string]any{"type": "value", "gridIndex": idx, "scale": true, "axisLabel": map[string]any{"show": i == n-1}}
			yAxis := map[string]any{"type": "value", "gridIndex": idx, "scale": true, "axisLabel": map[string]any{"show": j == 0}}
			if i == n-1 {
				xAxis["name"] = xName
				xAxis["nameLocation"] = "middle"
			}
			if j == 0 {
				yAxis["name"] = yName
				yAxis["nameLocation"] = "middle"
			}

			if i == j {
				if fig.Kind == PairPlot {
					h := fig.Histograms[i]
					xAxis["type"] = "category"
					xAxis["data"] = binLabels(h.Edges)
					series = append(series, map[string]any{
						"type": "bar", "xAxisIndex": idx, "yAxisIndex": idx,
						"data": h.Counts, "barCategoryGap": "5%",
					})
				} else {
					series = append(series, map[string]any{
						"type": "line", "xAxisIndex": idx, "yAxisIndex": idx,
						"data": points(fig.Series[i]), "showSymbol": false,
					})
				}
			} else {
				p := pairs[[2]string{yName, xName}]
				series = append(series, map[string]any{
					"type": "scatter", "xAxisIndex": idx, "yAxisIndex": idx,
					"data": points(p.Points), "symbolSize": 5,
					"itemStyle": map[string]any{"opacity": 0.8},
				})
			}
			xAxes = append(xAxes, xAxis)
			yAxes = append(yAxes, yAxis)
		}
	}
	return map[string]any{"grid": grids, "xAxis": xAxes, "yAxis": yAxes, "series": series}
}

func (r *EChartsRenderer) histograms(fig *Figure) map[string]any {
	n := len(fig.Histograms)
	height := 85.0 / float64(n)
	var grids, xAxes, yAxes, series []any
	for i, h := range fig.Histograms {
		grids = append(grids, map[string]any{
			"left": "8%", "right": "4%",
			"top":    pct(10 + float64(i)*height),
			"height": pct(height - 6),
		})
		xAxes = append(xAxes, map[string]any{"type": "category", "gridIndex": i, "data": binLabels(h.Edges)})
		yAxes = append(yAxes, map[string]any{"type": "value", "gridIndex": i, "name": h.Column})
		series = append(series, map[string]any{
			"name": h.Column, "type": "bar", "xAxisIndex": i, "yAxisIndex": i,
			"data": h.Counts, "barCategoryGap": "0%",
			"itemStyle": map[string]any{"color": "skyblue", "borderColor": "black", "borderWidth": 1},
		})
	}
	return map[string]any{
		"grid": grids, "xAxis": xAxes, "yAxis": yAxes, "series": series,
		"tooltip": map[string]any{"trigger": "axis"},
	}
}

func (r *EChartsRenderer) boxplot(fig *Figure) map[string]any {
	boxes := make([]any, len(fig.Boxes))
	var outliers []any
	for i, b := range fig.Boxes {
		boxes[i] = []float64{b.LowWhisker, b.Q1, b.Median, b.Q3, b.HighWhisker}
		for _, o := range b.Outliers {
			outliers = append(outliers, []any{i, o})
		}
	}
	return map[string]any{
		"xAxis": map[string]any{"type": "category", "data": fig.Columns},
		"yAxis": map[string]any{"type": "value", "scale": true},
		"series": []any{
			map[string]any{"name": "box", "type": "boxplot", "data": boxes},
			map[string]any{"name": "outlier", "type": "scatter", "data": outliers},
		},
	}
}

// violin draws each column's density mirrored around its position, with the
// quartile box on top.
func (r *EChartsRenderer) violin(fig *Figure) map[string]any {
	var series []any
	for i, s := range fig.Series {
		peak := 0.0
		for _, y := range s.Y {
			peak = math.Max(peak, y)
		}
		outline := make([]any, 0, 2*len(s.X)+1)
		for k := range s.X {
			outline = append(outline, []float64{float64(i) + halfWidth(s.Y[k], peak), s.X[k]})
		}
		for k := len(s.X) - 1; k >= 0; k-- {
			outline = append(outline, []float64{float64(i) - halfWidth(s.Y[k], peak), s.X[k]})
		}
		if len(outline) > 0 {
			outline = append(outline, outline[0])
		}
		series = append(series, map[string]any{
			"name": s.Name, "type": "line", "data": outline,
			"showSymbol": false, "smooth": true,
			"areaStyle": map[string]any{"opacity": 0.4},
		})

		b := fig.Boxes[i]
		series = append(series, map[string]any{
			"name": s.Name, "type": "line", "showSymbol": false,
			"lineStyle": map[string]any{"width": 4, "color": "#333"},
			"data": []any{[]float64{float64(i), b.Q1}, []float64{float64(i), b.Q3}},
		}, map[string]any{
			"name": s.Name, "type": "scatter", "symbolSize": 8,
			"itemStyle": map[string]any{"color": "#fff", "borderColor": "#333"},
			"data":      []any{[]float64{float64(i), b.Median}},
		})
	}
	return map[string]any{
		"xAxis": map[string]any{
			"type": "value", "min": -0.5, "max": float64(len(fig.Series)) - 0.5,
			"interval": 1, "axisLabel": map[string]any{"show": false},
		},
		"yAxis":  map[string]any{"type": "value", "scale": true},
		"legend": map[string]any{"data": fig.Columns, "top": 28},
		"series": series,
	}
}

func halfWidth(y, peak float64) float64 {
	if peak == 0 {
		return 0
	}
	return 0.4 * y / peak
}

func (r *EChartsRenderer) lines(fig *Figure) map[string]any {
	series := make([]any, len(fig.Series))
	for i, s := range fig.Series {
		line := map[string]any{"name": s.Name, "type": "line", "data": points(s)}
		if fig.Kind == LineChart {
			line["symbol"] = "circle"
		} else {
			line["showSymbol"] = false
		}
		series[i] = line
	}
	return map[string]any{
		"xAxis":   map[string]any{"type": "value", "name": fig.XLabel, "scale": true},
		"yAxis":   map[string]any{"type": "value", "name": fig.YLabel},
		"legend":  map[string]any{"data": fig.Columns, "top": 28},
		"tooltip": map[string]any{"trigger": "axis"},
		"series":  series,
	}
}

func (r *EChartsRenderer) swarm(fig *Figure) map[string]any {
	series := make([]any, len(fig.Series))
	for i, s := range fig.Series {
		series[i] = map[string]any{"name": s.Name, "type": "scatter", "symbolSize": 6, "data": points(s)}
	}
	return map[string]any{
		"xAxis": map[string]any{
			"type": "value", "min": -0.5, "max": float64(len(fig.Series)) - 0.5,
			"interval": 1, "axisLabel": map[string]any{"show": false},
		},
		"yAxis":  map[string]any{"type": "value", "scale": true},
		"legend": map[string]any{"data": fig.Columns, "top": 28},
		"series": series,
	}
}

func (r *EChartsRenderer) bar(fig *Figure) map[string]any {
	c := fig.Counts
	return map[string]any{
		"xAxis":   map[string]any{"type": "category", "data": c.Labels, "name": fig.XLabel},
		"yAxis":   map[string]any{"type": "value", "name": fig.YLabel},
		"tooltip": map[string]any{"trigger": "axis"},
		"series": []any{map[string]any{
			"type": "bar", "data": c.Values,
			"itemStyle": map[string]any{"color": "skyblue", "borderColor": "black", "borderWidth": 1},
		}},
	}
}

func (r *EChartsRenderer) pie(fig *Figure) map[string]any {
	c := fig.Counts
	data := make([]any, len(c.Labels))
	for i := range c.Labels {
		data[i] = map[string]any{"name": c.Labels[i], "value": c.Values[i]}
	}
	return map[string]any{
		"series": []any{map[string]any{
			"type": "pie", "radius": "60%", "data": data,
			"label": map[string]any{"formatter": "{b}: {d}%"},
		}},
	}
}

func points(s Series) []any {
	out := make([]any, len(s.X))
	for i := range s.X {
		out[i] = []float64{s.X[i], s.Y[i]}
	}
	return out
}

func binLabels(edges []float64) []string {
	if len(edges) < 2 {
		return nil
	}
	labels := make([]string, len(edges)-1)
	for i := range labels {
		labels[i] = strconv.FormatFloat((edges[i]+edges[i+1])/2, 'g', 4, 64)
	}
	return labels
}

func pct(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
