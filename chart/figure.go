package chart

import (
	"fmt"
	"math"

	"github.com/brunobiangulo/tabclean/table"
)

// Options tune the statistics computed for a figure.
type Options struct {
	Bins          int // histogram bins
	DensityPoints int // points at which densities are evaluated
}

func (o Options) withDefaults() Options {
	if o.Bins <= 0 {
		o.Bins = 20
	}
	if o.DensityPoints < 2 {
		o.DensityPoints = 100
	}
	return o
}

// Pair is the scatter of one numeric column against another.
type Pair struct {
	X      string `json:"x"`
	Y      string `json:"y"`
	Points Series `json:"points"`
}

// Figure is the renderer independent content of a chart. Only the fields
// relevant to Kind are set.
type Figure struct {
	Kind    Kind     `json:"kind"`
	Title   string   `json:"title"`
	XLabel  string   `json:"x_label,omitempty"`
	YLabel  string   `json:"y_label,omitempty"`
	Columns []string `json:"columns,omitempty"`

	Correlation *Matrix         `json:"correlation,omitempty"` // Heatmap
	Pairs       []Pair          `json:"pairs,omitempty"`       // Pair Plot, Scatter Matrix
	Histograms  []HistogramData `json:"histograms,omitempty"`  // Histogram, Pair Plot diagonal
	Boxes       []BoxData       `json:"boxes,omitempty"`       // Box Plot, Violin Plot
	Series      []Series        `json:"series,omitempty"`      // Density, Line, Swarm, Violin, Scatter Matrix diagonal
	Counts      *Counts         `json:"counts,omitempty"`      // Bar Chart, Pie Chart
}

// Build computes the figure for kind from t. The table is only read.
func Build(t *table.Table, kind Kind, opts Options) (*Figure, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if t == nil || t.NumRows() == 0 || t.NumCols() == 0 {
		return nil, ErrNoData
	}
	opts = opts.withDefaults()

	if kind.categorical() {
		return buildCounts(t, kind)
	}

	var cols []table.Column
	for _, j := range t.NumericColumns() {
		cols = append(cols, t.Column(j))
	}
	if len(cols) < kind.minNumeric() {
		return nil, fmt.Errorf("%w: %s needs at least %d numeric column(s), table has %d",
			ErrShapeMismatch, kind, kind.minNumeric(), len(cols))
	}

	for _, c := range cols {
		if !finite(c.Floats()) {
			return nil, fmt.Errorf("%w: column %q holds infinite or NaN values", ErrShapeMismatch, c.Name)
		}
	}

	fig := &Figure{Kind: kind, Title: fmt.Sprintf("%s of Numeric Columns", kind)}
	for _, c := range cols {
		fig.Columns = append(fig.Columns, c.Name)
	}

	switch kind {
	case Heatmap:
		m := correlation(cols)
		fig.Correlation = &m
		fig.Title = "Correlation Heatmap"
	case PairPlot, ScatterMatrix:
		fig.Pairs = pairs(cols)
		for _, c := range cols {
			if kind == PairPlot {
				fig.Histograms = append(fig.Histograms, histogram(c.Name, c.Floats(), opts.Bins))
			} else {
				fig.Series = append(fig.Series, density(c.Name, c.Floats(), opts.DensityPoints))
			}
		}
	case Histogram:
		for _, c := range cols {
			fig.Histograms = append(fig.Histograms, histogram(c.Name, c.Floats(), opts.Bins))
		}
		fig.YLabel = "Count"
	case BoxPlot:
		for _, c := range cols {
			fig.Boxes = append(fig.Boxes, boxStats(c.Name, c.Floats()))
		}
	case ViolinPlot:
		for _, c := range cols {
			fig.Boxes = append(fig.Boxes, boxStats(c.Name, c.Floats()))
			fig.Series = append(fig.Series, density(c.Name, c.Floats(), opts.DensityPoints))
		}
	case DensityPlot:
		for _, c := range cols {
			fig.Series = append(fig.Series, density(c.Name, c.Floats(), opts.DensityPoints))
		}
		fig.YLabel = "Density"
	case LineChart:
		for _, c := range cols {
			fig.Series = append(fig.Series, indexed(c))
		}
		fig.XLabel, fig.YLabel = "Index", "Values"
	case SwarmPlot:
		for i, c := range cols {
			fig.Series = append(fig.Series, strip(c.Name, i, c.Floats()))
		}
	}
	return fig, nil
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return false
		}
	}
	return true
}

func buildCounts(t *table.Table, kind Kind) (*Figure, error) {
	cat := t.CategoricalColumns()
	if len(cat) == 0 {
		return nil, fmt.Errorf("%w: %s needs a categorical column", ErrShapeMismatch, kind)
	}
	col := t.Column(cat[0])
	counts := valueCounts(col)
	if len(counts.Labels) == 0 {
		return nil, fmt.Errorf("%w: column %q has no values", ErrNoData, col.Name)
	}
	return &Figure{
		Kind:    kind,
		Title:   fmt.Sprintf("%s of %s", kind, col.Name),
		XLabel:  col.Name,
		YLabel:  "Count",
		Columns: []string{col.Name},
		Counts:  &counts,
	}, nil
}

// pairs returns every ordered pair of distinct columns, row major.
func pairs(cols []table.Column) []Pair {
	var out []Pair
	for i := range cols {
		for j := range cols {
			if i == j {
				continue
			}
			x, y := pairwise(cols[j], cols[i])
			out = append(out, Pair{
				X:      cols[j].Name,
				Y:      cols[i].Name,
				Points: Series{Name: cols[i].Name + " vs " + cols[j].Name, X: x, Y: y},
			})
		}
	}
	return out
}
