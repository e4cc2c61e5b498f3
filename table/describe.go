package table

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ColumnSummary describes one column of a table.
type ColumnSummary struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"` // "number" or "text"
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean,omitempty"`
	Std     float64 `json:"std,omitempty"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Unique  int     `json:"unique,omitempty"`
	Top     string  `json:"top,omitempty"`
	TopFreq int     `json:"top_freq,omitempty"`
}

// Summary describes a whole table.
type Summary struct {
	Rows    int             `json:"rows"`
	Cols    int             `json:"cols"`
	Missing int             `json:"missing"`
	Columns []ColumnSummary `json:"columns"`
}

// Describe computes per-column statistics.
func Describe(t *Table) Summary {
	s := Summary{Rows: t.NumRows(), Cols: t.NumCols(), Missing: t.MissingCount()}
	for _, c := range t.cols {
		cs := ColumnSummary{Name: c.Name, Missing: c.MissingCount()}
		cs.Count = len(c.Cells) - cs.Missing
		if c.Numeric() {
			cs.Kind = Number.String()
			vals := finiteValues(c.Floats())
			if len(vals) == 0 {
				s.Columns = append(s.Columns, cs)
				continue
			}
			cs.Mean = stat.Mean(vals, nil)
			if len(vals) > 1 {
				cs.Std = stat.StdDev(vals, nil)
			}
			cs.Min, cs.Max = math.Inf(1), math.Inf(-1)
			for _, v := range vals {
				cs.Min = math.Min(cs.Min, v)
				cs.Max = math.Max(cs.Max, v)
			}
		} else {
			cs.Kind = Text.String()
			top, freq, unique := modeOf(c)
			cs.Top, cs.TopFreq, cs.Unique = top, freq, unique
		}
		s.Columns = append(s.Columns, cs)
	}
	return s
}

// finiteValues drops infinities and NaN, which have no JSON encoding.
func finiteValues(xs []float64) []float64 {
	out := xs[:0]
	for _, x := range xs {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func modeOf(c Column) (top string, freq, unique int) {
	counts := make(map[string]int)
	var order []string
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			continue
		}
		v := cell.String()
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	for _, v := range order {
		if counts[v] > freq {
			top, freq = v, counts[v]
		}
	}
	return top, freq, len(order)
}
