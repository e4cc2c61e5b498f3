package table

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New([]Column{
		{Name: "age", Cells: []Cell{Num(31), NA(), Num(27)}},
		{Name: "city", Cells: []Cell{Str("Oslo"), Str("Lima"), NA()}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New([]Column{
		{Name: "a", Cells: []Cell{Num(1), Num(2)}},
		{Name: "b", Cells: []Cell{Num(1)}},
	})
	if !errors.Is(err, ErrRagged) {
		t.Fatalf("expected ErrRagged, got %v", err)
	}
}

func TestFromRows(t *testing.T) {
	tbl, err := FromRows([]string{"x", "y"}, [][]Cell{
		{Num(1), Str("a")},
		{Num(2), Str("b")},
	})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Fatalf("got %dx%d, want 2x2", tbl.NumRows(), tbl.NumCols())
	}
	if got := tbl.Cell(1, 1); !got.Equal(Str("b")) {
		t.Errorf("Cell(1,1) = %+v, want b", got)
	}

	if _, err := FromRows([]string{"x"}, [][]Cell{{Num(1), Num(2)}}); !errors.Is(err, ErrRagged) {
		t.Errorf("expected ErrRagged for wide row, got %v", err)
	}
}

func TestNewCopiesCells(t *testing.T) {
	cells := []Cell{Num(1)}
	tbl, err := New([]Column{{Name: "a", Cells: cells}})
	if err != nil {
		t.Fatal(err)
	}
	cells[0] = Num(99)
	if tbl.Cell(0, 0).Num != 1 {
		t.Error("table aliases caller slice")
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func TestMissingCounts(t *testing.T) {
	tbl := sampleTable(t)
	if got := tbl.MissingCount(); got != 2 {
		t.Errorf("MissingCount = %d, want 2", got)
	}
	if !tbl.RowHasMissing(1) || !tbl.RowHasMissing(2) || tbl.RowHasMissing(0) {
		t.Error("RowHasMissing mismatch")
	}
}

func TestColumnKinds(t *testing.T) {
	tbl := sampleTable(t)
	if got := tbl.NumericColumns(); len(got) != 1 || got[0] != 0 {
		t.Errorf("NumericColumns = %v, want [0]", got)
	}
	if got := tbl.CategoricalColumns(); len(got) != 1 || got[0] != 1 {
		t.Errorf("CategoricalColumns = %v, want [1]", got)
	}

	allMissing := Column{Name: "empty", Cells: []Cell{NA(), NA()}}
	if allMissing.Numeric() {
		t.Error("all-missing column should not be numeric")
	}
}

func TestSelectRowsAndClone(t *testing.T) {
	tbl := sampleTable(t)
	sub := tbl.SelectRows([]int{2, 0})
	if sub.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", sub.NumRows())
	}
	if sub.Cell(0, 0).Num != 27 || sub.Cell(1, 0).Num != 31 {
		t.Errorf("unexpected order: %v", sub.Records())
	}

	clone := tbl.Clone()
	clone.Set(0, 0, Num(0))
	if tbl.Cell(0, 0).Num != 31 {
		t.Error("Clone shares storage with original")
	}
	if tbl.Equal(clone) {
		t.Error("Equal should detect changed cell")
	}
	if !tbl.Equal(tbl.Clone()) {
		t.Error("fresh clone should be equal")
	}
}

func TestRecords(t *testing.T) {
	tbl := sampleTable(t)
	recs := tbl.Records()
	want := [][]string{
		{"age", "city"},
		{"31", "Oslo"},
		{"", "Lima"},
		{"27", ""},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if recs[i][j] != want[i][j] {
				t.Errorf("recs[%d][%d] = %q, want %q", i, j, recs[i][j], want[i][j])
			}
		}
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		cell Cell
		want string
	}{
		{Num(2), "2"},
		{Num(2.5), "2.5"},
		{Num(-0.125), "-0.125"},
		{Str("x y"), "x y"},
		{NA(), ""},
	}
	for _, tt := range tests {
		if got := tt.cell.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Inference
// ---------------------------------------------------------------------------

func TestInferColumn(t *testing.T) {
	num := InferColumn("n", []string{"1", "", "3.5", "NA"}, DefaultNAValues)
	if !num.Numeric() {
		t.Fatalf("expected numeric column, got %+v", num.Cells)
	}
	if num.MissingCount() != 2 {
		t.Errorf("missing = %d, want 2", num.MissingCount())
	}

	mixed := InferColumn("m", []string{"1", "abc", ""}, DefaultNAValues)
	if mixed.Numeric() {
		t.Fatal("mixed column should be text")
	}
	if !mixed.Cells[0].Equal(Str("1")) {
		t.Errorf("numeric token in text column should stay text, got %+v", mixed.Cells[0])
	}
	if !mixed.Cells[2].IsMissing() {
		t.Error("empty token should be missing")
	}
}

func TestInferColumnNonFiniteIsText(t *testing.T) {
	for _, tok := range []string{"inf", "-Infinity", "NAN", "1e999"} {
		col := InferColumn("v", []string{"1", tok, "3"}, []string{""})
		if col.Numeric() {
			t.Errorf("%q: column should be text", tok)
		}
		if !col.Cells[1].Equal(Str(tok)) {
			t.Errorf("%q: cell = %+v", tok, col.Cells[1])
		}
	}
}

func TestDescribeSkipsNonFinite(t *testing.T) {
	tbl, err := New([]Column{{Name: "v", Cells: []Cell{Num(1), Num(math.Inf(1)), Num(3), Num(math.NaN())}}})
	if err != nil {
		t.Fatal(err)
	}
	v := Describe(tbl).Columns[0]
	if v.Mean != 2 || v.Min != 1 || v.Max != 3 {
		t.Errorf("numeric summary = %+v", v)
	}
	if _, err := json.Marshal(Describe(tbl)); err != nil {
		t.Errorf("summary does not encode: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	tbl, err := New([]Column{
		{Name: "v", Cells: []Cell{Num(1), Num(3), NA()}},
		{Name: "c", Cells: []Cell{Str("a"), Str("b"), Str("a")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := Describe(tbl)
	if s.Rows != 3 || s.Cols != 2 || s.Missing != 1 {
		t.Fatalf("summary = %+v", s)
	}
	v := s.Columns[0]
	if v.Kind != "number" || v.Mean != 2 || v.Min != 1 || v.Max != 3 || v.Count != 2 {
		t.Errorf("numeric summary = %+v", v)
	}
	c := s.Columns[1]
	if c.Kind != "text" || c.Top != "a" || c.TopFreq != 2 || c.Unique != 2 {
		t.Errorf("text summary = %+v", c)
	}
}
