package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/brunobiangulo/tabclean/table"
)

// whitespace marks a table split on runs of spaces and tabs.
const whitespace rune = ' '

// delimiterCandidates are tried in order; the first that yields the same
// field count (at least two) on every sampled line wins.
var delimiterCandidates = []rune{',', '\t', ';', '|'}

// TextParser handles delimited plain text (.txt) files. The delimiter is
// guessed from the first lines and the first row is the header.
type TextParser struct {
	opts Options
}

func NewTextParser(opts Options) *TextParser { return &TextParser{opts: opts.withDefaults()} }

func (p *TextParser) SupportedFormats() []Format { return []Format{FormatTXT} }

func (p *TextParser) Parse(ctx context.Context, path string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	lines := nonBlankLines(string(data))
	if len(lines) == 0 {
		return nil, ErrEmptyData
	}

	sample := lines
	if len(sample) > p.opts.SniffLines {
		sample = sample[:p.opts.SniffLines]
	}
	delim := sniffDelimiter(sample)
	slog.Debug("txt: delimiter detected", "file", filepath.Base(path), "delimiter", string(delim))

	if delim == whitespace {
		return p.decodeFields(lines)
	}
	return (&CSVParser{opts: p.opts}).decode(data, delim)
}

// decodeFields splits every line on whitespace runs.
func (p *TextParser) decodeFields(lines []string) (*table.Table, error) {
	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Fields(line)
		if len(records[i]) != len(records[0]) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrParse, i+1, len(records[i]), len(records[0]))
		}
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	)
	return fromDataFrame(df, p.opts.NAValues)
}

// sniffDelimiter picks the delimiter for the sampled lines. When no
// candidate produces a consistent multi-column split, the text is read as a
// single comma separated column.
func sniffDelimiter(lines []string) rune {
	for _, d := range delimiterCandidates {
		if n := consistentFields(lines, d); n >= 2 {
			return d
		}
	}
	if n := consistentWhitespaceFields(lines); n >= 2 {
		return whitespace
	}
	return ','
}

func consistentFields(lines []string, delim rune) int {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return 0
	}
	n := len(records[0])
	for _, rec := range records[1:] {
		if len(rec) != n {
			return 0
		}
	}
	return n
}

func consistentWhitespaceFields(lines []string) int {
	n := len(strings.Fields(lines[0]))
	for _, line := range lines[1:] {
		if len(strings.Fields(line)) != n {
			return 0
		}
	}
	return n
}

func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
