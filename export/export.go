// Package export writes tables to disk as CSV or XLSX.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/tabclean/table"
)

var (
	ErrWrite             = errors.New("export: write failed")
	ErrUnsupportedTarget = errors.New("export: unsupported target format")
)

// SheetName is the worksheet XLSX exports are written to.
const SheetName = "data"

// WriteFile writes t to path, choosing the encoding from the extension:
// ".xlsx" writes a workbook, anything else is written as CSV.
func WriteFile(path string, t *table.Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, t)
	case ".csv", ".txt", "":
		return WriteCSV(path, t)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTarget, filepath.Ext(path))
	}
}

// WriteCSV writes t to path as comma separated values with a header row and
// no index column. The file is replaced atomically; on failure any existing
// file at path is left untouched.
func WriteCSV(path string, t *table.Table) error {
	err := writeAtomic(path, func(w io.Writer) error { return EncodeCSV(w, t) })
	if err != nil {
		return err
	}
	slog.Info("export: csv written", "file", path, "rows", t.NumRows(), "cols", t.NumCols())
	return nil
}

// EncodeCSV writes the CSV encoding of t to w. Missing cells become empty
// fields.
func EncodeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// WriteXLSX writes t to a single-sheet workbook. Numbers are stored as
// numeric cells and missing cells are left blank.
func WriteXLSX(path string, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	header := make([]any, t.NumCols())
	for j, name := range t.Names() {
		header[j] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrWrite, err)
	}

	row := make([]any, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for j, cell := range t.Row(r) {
			switch cell.Kind {
			case table.Number:
				row[j] = cell.Num
			case table.Text:
				row[j] = cell.Str
			default:
				row[j] = nil
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := f.SetSheetRow(SheetName, axis, &row); err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrWrite, r, err)
		}
	}

	err := writeAtomic(path, func(w io.Writer) error {
		if _, err := f.WriteTo(w); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("export: xlsx written", "file", path, "rows", t.NumRows(), "cols", t.NumCols())
	return nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it over path once encode succeeds.
func writeAtomic(path string, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
