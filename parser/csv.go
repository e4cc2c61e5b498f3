package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"

	"github.com/brunobiangulo/tabclean/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser reads comma separated files whose first row is the header.
// Cells are read by gota and typed by table.InferColumn.
type CSVParser struct {
	opts Options
}

func NewCSVParser(opts Options) *CSVParser { return &CSVParser{opts: opts.withDefaults()} }

func (p *CSVParser) SupportedFormats() []Format { return []Format{FormatCSV} }

func (p *CSVParser) Parse(ctx context.Context, path string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return p.decode(data, ',')
}

// ParseReader reads CSV from r. It is used to restore snapshots.
func (p *CSVParser) ParseReader(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return p.decode(bytes.TrimPrefix(data, utf8BOM), ',')
}

func (p *CSVParser) decode(data []byte, delim rune) (*table.Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyData
	}
	// The header is read as a data row so gota keeps every cell verbatim.
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.WithDelimiter(delim),
		dataframe.NaNValues(nil),
	)
	return fromDataFrame(df, p.opts.NAValues)
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}

// fromDataFrame converts a headerless string frame into a table. The first
// row holds the column names; every column is typed by table.InferColumn.
func fromDataFrame(df dataframe.DataFrame, naValues []string) (*table.Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, df.Err)
	}
	// Records prepends gota's generated names.
	records := df.Records()[1:]
	if len(records) < 2 || len(records[0]) == 0 {
		return nil, ErrEmptyData
	}

	names := uniqueNames(records[0])
	rows := records[1:]
	cols := make([]table.Column, len(names))
	for j, name := range names {
		raw := make([]string, len(rows))
		for i, row := range rows {
			raw[i] = row[j]
		}
		cols[j] = table.InferColumn(name, raw, naValues)
	}

	t, err := table.New(cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return t, nil
}

// uniqueNames keeps the first occurrence of a header name and suffixes
// later ones with ".1", ".2" and so on, skipping names already taken.
func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			names[i] = h
			continue
		}
		name := fmt.Sprintf("%s.%d", h, n)
		for taken[name] {
			n++
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h] = n + 1
		taken[name] = true
		names[i] = name
	}
	return names
}
