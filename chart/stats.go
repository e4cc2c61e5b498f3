package chart

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/brunobiangulo/tabclean/table"
)

// HistogramData holds equal-width bins over the range of a column. Edges has
// one more element than Counts; the last bin is closed on the right.
type HistogramData struct {
	Column string    `json:"column"`
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

func histogram(name string, xs []float64, bins int) HistogramData {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	return HistogramData{
		Column: name,
		Edges:  edges,
		Counts: stat.Histogram(nil, dividers, sorted, nil),
	}
}

// BoxData is the five number summary drawn by a box plot. Whiskers reach
// the most extreme values within 1.5 IQR of the quartiles; values beyond
// them are outliers.
type BoxData struct {
	Column      string    `json:"column"`
	LowWhisker  float64   `json:"low_whisker"`
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	HighWhisker float64   `json:"high_whisker"`
	Outliers    []float64 `json:"outliers,omitempty"`
}

func boxStats(name string, xs []float64) BoxData {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	b := BoxData{
		Column: name,
		Q1:     stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.LinInterp, sorted, nil),
	}
	iqr := b.Q3 - b.Q1
	lowFence, highFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr

	b.LowWhisker, b.HighWhisker = b.Q1, b.Q3
	for _, x := range sorted {
		if x < lowFence || x > highFence {
			b.Outliers = append(b.Outliers, x)
			continue
		}
		b.LowWhisker = math.Min(b.LowWhisker, x)
		b.HighWhisker = math.Max(b.HighWhisker, x)
	}
	return b
}

// Series is a named sequence of points.
type Series struct {
	Name string    `json:"name"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// scottBandwidth is Scott's rule for a one dimensional Gaussian kernel. A
// column without spread gets a unit bandwidth.
func scottBandwidth(xs []float64) float64 {
	if len(xs) < 2 {
		return 1
	}
	sd := stat.StdDev(xs, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 1
	}
	return sd * math.Pow(float64(len(xs)), -0.2)
}

// density evaluates a Gaussian kernel density estimate at points evenly
// spread over the data range widened by half of it on each side.
func density(name string, xs []float64, points int) Series {
	bw := scottBandwidth(xs)
	lo, hi := floats.Min(xs), floats.Max(xs)
	pad := (hi - lo) / 2
	if pad == 0 {
		pad = 3 * bw
	}
	grid := floats.Span(make([]float64, points), lo-pad, hi+pad)

	kernels := make([]distuv.Normal, len(xs))
	for i, x := range xs {
		kernels[i] = distuv.Normal{Mu: x, Sigma: bw}
	}
	ys := make([]float64, points)
	for i, g := range grid {
		var sum float64
		for _, k := range kernels {
			sum += k.Prob(g)
		}
		ys[i] = sum / float64(len(xs))
	}
	return Series{Name: name, X: grid, Y: ys}
}

// Matrix is a square matrix with labelled rows and columns. Undefined
// entries are NaN.
type Matrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// MarshalJSON writes undefined entries as null.
func (m Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				values[i][j] = &row[j]
			}
		}
	}
	return json.Marshal(struct {
		Labels []string     `json:"labels"`
		Values [][]*float64 `json:"values"`
	}{m.Labels, values})
}

// correlation computes Pearson coefficients over the rows where both
// columns hold a number.
func correlation(cols []table.Column) Matrix {
	m := Matrix{Labels: make([]string, len(cols)), Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Labels[i] = cols[i].Name
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			x, y := pairwise(cols[i], cols[j])
			r := math.NaN()
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

// pairwise returns the values of rows where both columns are numbers.
func pairwise(a, b table.Column) (x, y []float64) {
	for r := range a.Cells {
		ca, cb := a.Cells[r], b.Cells[r]
		if ca.Kind == table.Number && cb.Kind == table.Number {
			x = append(x, ca.Num)
			y = append(y, cb.Num)
		}
	}
	return x, y
}

// Counts holds the frequency of each distinct value of a column, most
// frequent first. Equal counts keep first-seen order.
type Counts struct {
	Column string    `json:"column"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func (c Counts) Total() float64 { return floats.Sum(c.Values) }

func valueCounts(col table.Column) Counts {
	idx := make(map[string]int)
	out := Counts{Column: col.Name}
	for _, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		s := cell.String()
		i, ok := idx[s]
		if !ok {
			i = len(out.Labels)
			idx[s] = i
			out.Labels = append(out.Labels, s)
			out.Values = append(out.Values, 0)
		}
		out.Values[i]++
	}

	order := make([]int, len(out.Labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return out.Values[order[a]] > out.Values[order[b]] })

	labels := make([]string, len(order))
	values := make([]float64, len(order))
	for i, o := range order {
		labels[i], values[i] = out.Labels[o], out.Values[o]
	}
	out.Labels, out.Values = labels, values
	return out
}

// jitterWidth is the horizontal spread of a swarm strip around its column
// position.
const jitterWidth = 0.8

// strip places the values of column pos around x = pos. Offsets follow the
// golden ratio sequence, so the same data always lands at the same place.
func strip(name string, pos int, xs []float64) Series {
	s := Series{Name: name, X: make([]float64, len(xs)), Y: append([]float64(nil), xs...)}
	const phi = 0.6180339887498949
	for i := range xs {
		frac := math.Mod(float64(i+1)*phi, 1)
		s.X[i] = float64(pos) + (frac-0.5)*jitterWidth
	}
	return s
}

// indexed returns the non-missing values of a column against their row
// index.
func indexed(col table.Column) Series {
	s := Series{Name: col.Name}
	for r, c := range col.Cells {
		if c.Kind == table.Number {
			s.X = append(s.X, float64(r))
			s.Y = append(s.Y, c.Num)
		}
	}
	return s
}
