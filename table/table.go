// Package table holds the in-memory dataset: ordered named columns of
// positionally aligned cells. Every column of a Table has the same length.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRagged is returned when columns of differing lengths are combined.
var ErrRagged = errors.New("table: columns have different lengths")

// Kind is the kind of value a cell holds.
type Kind int

const (
	Missing Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "missing"
	}
}

// Cell is a single value. The zero Cell is Missing.
type Cell struct {
	Kind Kind
	Num  float64
	Str  string
}

// Num returns a numeric cell.
func Num(v float64) Cell { return Cell{Kind: Number, Num: v} }

// Str returns a textual cell.
func Str(s string) Cell { return Cell{Kind: Text, Str: s} }

// NA returns a missing cell.
func NA() Cell { return Cell{} }

func (c Cell) IsMissing() bool { return c.Kind == Missing }

// String renders the cell the way it is written to CSV. Missing cells
// render as the empty string.
func (c Cell) String() string {
	switch c.Kind {
	case Number:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case Text:
		return c.Str
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and value.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case Number:
		return c.Num == o.Num
	case Text:
		return c.Str == o.Str
	}
	return true
}

// Column is a named sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Numeric reports whether the column holds at least one number and no
// text. An all-missing column is not numeric.
func (c Column) Numeric() bool {
	seen := false
	for _, cell := range c.Cells {
		switch cell.Kind {
		case Text:
			return false
		case Number:
			seen = true
		}
	}
	return seen
}

// MissingCount returns the number of missing cells in the column.
func (c Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			n++
		}
	}
	return n
}

// Floats returns the non-missing numeric values of the column in row order.
func (c Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == Number {
			out = append(out, cell.Num)
		}
	}
	return out
}

// Table is an ordered set of equal-length columns.
type Table struct {
	cols []Column
	rows int
}

// New builds a table from columns. Columns are copied.
func New(cols []Column) (*Table, error) {
	t := &Table{cols: make([]Column, len(cols))}
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c.Cells)
		} else if len(c.Cells) != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrRagged, c.Name, len(c.Cells), t.rows)
		}
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		t.cols[i] = Column{Name: c.Name, Cells: cells}
	}
	return t, nil
}

// FromRows builds a table from row-major cells. Every row must have
// len(names) cells.
func FromRows(names []string, rows [][]Cell) (*Table, error) {
	cols := make([]Column, len(names))
	for j, name := range names {
		cols[j] = Column{Name: name, Cells: make([]Cell, len(rows))}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRagged, i, len(row), len(names))
		}
		for j, cell := range row {
			cols[j].Cells[i] = cell
		}
	}
	return &Table{cols: cols, rows: len(rows)}, nil
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the i-th column. The returned cells alias the table.
func (t *Table) Column(i int) Column { return t.cols[i] }

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at row r, column c.
func (t *Table) Cell(r, c int) Cell { return t.cols[c].Cells[r] }

// Set replaces the cell at row r, column c.
func (t *Table) Set(r, c int, v Cell) { t.cols[c].Cells[r] = v }

// Row returns a copy of row r.
func (t *Table) Row(r int) []Cell {
	row := make([]Cell, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Cells[r]
	}
	return row
}

// RowHasMissing reports whether any cell of row r is missing.
func (t *Table) RowHasMissing(r int) bool {
	for _, c := range t.cols {
		if c.Cells[r].IsMissing() {
			return true
		}
	}
	return false
}

// MissingCount returns the number of missing cells across the whole table.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.cols {
		n += c.MissingCount()
	}
	return n
}

// NumericColumns returns the indexes of numeric columns.
func (t *Table) NumericColumns() []int {
	var idx []int
	for i, c := range t.cols {
		if c.Numeric() {
			idx = append(idx, i)
		}
	}
	return idx
}

// CategoricalColumns returns the indexes of non-numeric columns.
func (t *Table) CategoricalColumns() []int {
	var idx []int
	for i, c := range t.cols {
		if !c.Numeric() {
			idx = append(idx, i)
		}
	}
	return idx
}

// SelectRows returns a new table holding the given rows in the given order.
func (t *Table) SelectRows(rows []int) *Table {
	out := &Table{cols: make([]Column, len(t.cols)), rows: len(rows)}
	for j, c := range t.cols {
		cells := make([]Cell, len(rows))
		for i, r := range rows {
			cells[i] = c.Cells[r]
		}
		out.cols[j] = Column{Name: c.Name, Cells: cells}
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out, _ := New(t.cols)
	return out
}

// Equal reports whether both tables have the same columns, in the same
// order, with equal cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for j := range t.cols {
		if t.cols[j].Name != o.cols[j].Name {
			return false
		}
		for i := range t.cols[j].Cells {
			if !t.cols[j].Cells[i].Equal(o.cols[j].Cells[i]) {
				return false
			}
		}
	}
	return true
}

// Records returns the header followed by every row rendered as strings.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, t.rows+1)
	out = append(out, t.Names())
	for i := 0; i < t.rows; i++ {
		rec := make([]string, len(t.cols))
		for j, c := range t.cols {
			rec[j] = c.Cells[i].String()
		}
		out = append(out, rec)
	}
	return out
}

// Head renders the first n rows as an aligned plain-text block.
func (t *Table) Head(n int) string {
	if n > t.rows {
		n = t.rows
	}
	recs := t.Records()[:n+1]
	widths := make([]int, len(t.cols))
	for _, rec := range recs {
		for j, s := range rec {
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}
	var b strings.Builder
	for _, rec := range recs {
		var line strings.Builder
		for j, s := range rec {
			if j > 0 {
				line.WriteString("  ")
			}
			line.WriteString(s)
			line.WriteString(strings.Repeat(" ", widths[j]-len(s)))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
	return b.String()
}
