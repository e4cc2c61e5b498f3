package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/tabclean/parser"
	"github.com/brunobiangulo/tabclean/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New([]table.Column{
		{Name: "name", Cells: []table.Cell{table.Str("alice"), table.Str("bob, jr"), table.NA()}},
		{Name: "age", Cells: []table.Cell{table.Num(30), table.NA(), table.Num(41)}},
		{Name: "score", Cells: []table.Cell{table.Num(1.5), table.Num(0.1), table.Num(1e6)}},
	})
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, sampleTable(t)); err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	want := "name,age,score\n" +
		"alice,30,1.5\n" +
		"\"bob, jr\",,0.1\n" +
		",41,1e+06\n"
	if got := buf.String(); got != want {
		t.Errorf("EncodeCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	in := sampleTable(t)
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := parser.NewCSVParser(parser.Options{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if !got.Equal(in) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got.Records(), in.Records())
	}
}

func TestWriteCSVReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteCSV(path, sampleTable(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("name,age,score\n")) {
		t.Errorf("file not replaced: %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteCSVMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "out.csv")
	err := WriteCSV(path, sampleTable(t))
	if !errors.Is(err, ErrWrite) {
		t.Errorf("error = %v, want ErrWrite", err)
	}
}

func TestWriteFileUnsupportedTarget(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "out.parquet"), sampleTable(t))
	if !errors.Is(err, ErrUnsupportedTarget) {
		t.Errorf("error = %v, want ErrUnsupportedTarget", err)
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteFile(path, sampleTable(t)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("sheets = %v, want [%s]", sheets, SheetName)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0][0] != "name" || rows[0][2] != "score" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "alice" || rows[1][1] != "30" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[3][0] != "" {
		t.Errorf("missing cell should be blank, got %q", rows[3][0])
	}
}
