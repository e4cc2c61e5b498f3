package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brunobiangulo/tabclean/table"
)

var (
	// ErrUnsupportedFormat is returned for paths whose suffix is not one of
	// the supported formats.
	ErrUnsupportedFormat = errors.New("parser: unsupported file format")

	// ErrIO is returned when the input file cannot be read.
	ErrIO = errors.New("parser: reading input failed")

	// ErrParse is returned when the input cannot be decoded into a table.
	ErrParse = errors.New("parser: decoding input failed")

	// ErrEmptyData is returned when decoding yields no columns or no rows.
	ErrEmptyData = errors.New("parser: input holds no data")

	// ErrNoExtractableText is returned when no PDF page yields text.
	ErrNoExtractableText = errors.New("parser: no extractable text found in the PDF")

	// ErrNoStructuredData is returned when PDF text has no tokens to tabulate.
	ErrNoStructuredData = errors.New("parser: failed to parse structured data from the PDF")
)

// Format identifies a parsing strategy.
type Format string

const (
	FormatCSV Format = "csv"
	FormatTXT Format = "txt"
	FormatPDF Format = "pdf"
)

// Detect selects a format from the path suffix. The match is case
// sensitive and never looks at file contents.
func Detect(path string) (Format, error) {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(path, ".txt"):
		return FormatTXT, nil
	case strings.HasSuffix(path, ".pdf"):
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Parser turns a file of a specific format into a table.
type Parser interface {
	Parse(ctx context.Context, path string) (*table.Table, error)
	SupportedFormats() []Format
}

// Options tunes the built-in parsers.
type Options struct {
	// NAValues are the tokens read as missing cells. Defaults to
	// table.DefaultNAValues.
	NAValues []string

	// SniffLines is how many non-blank lines the text parser inspects when
	// guessing the delimiter. Defaults to 10.
	SniffLines int
}

func (o Options) withDefaults() Options {
	if o.NAValues == nil {
		o.NAValues = table.DefaultNAValues
	}
	if o.SniffLines <= 0 {
		o.SniffLines = 10
	}
	return o
}
