package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/brunobiangulo/tabclean/table"
)

const (
	// rowTolerance is the vertical distance (in points) under which two
	// glyphs are considered to sit on the same line.
	rowTolerance = 2.0

	// gapFactor is the horizontal gap, as a fraction of the font size,
	// above which a space is inserted between consecutive glyphs.
	gapFactor = 0.25
)

// PDFParser extracts the text layer of a PDF and splits every line on
// whitespace. Columns are positional ("0", "1", ...) and short rows are
// padded with missing cells up to the widest row.
type PDFParser struct {
	opts Options
}

func NewPDFParser(opts Options) *PDFParser { return &PDFParser{opts: opts.withDefaults()} }

func (p *PDFParser) SupportedFormats() []Format { return []Format{FormatPDF} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*table.Table, error) {
	text, err := p.extractText(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.tabulate(text)
}

// extractText returns the text of every page in reading order, pages joined
// by newlines. Pages without text are left out.
func (p *PDFParser) extractText(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %v", ErrIO, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := pageText(page)
		if err != nil {
			// Skip pages that fail to extract
			slog.Warn("pdf: page extraction failed", "file", filepath.Base(path), "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return "", ErrNoExtractableText
	}
	slog.Debug("pdf: text extracted", "file", filepath.Base(path), "pages", totalPages, "text_pages", len(pages))
	return strings.Join(pages, "\n"), nil
}

// pageText rebuilds the lines of a page from positioned glyphs: top to
// bottom, then left to right.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	lines := groupGlyphsIntoLines(page.Content().Text)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n"), nil
}

type glyphLine struct {
	y      float64
	glyphs []pdf.Text
}

func (l glyphLine) String() string {
	var b strings.Builder
	for i, g := range l.glyphs {
		if i > 0 {
			prev := l.glyphs[i-1]
			gap := g.X - (prev.X + prev.W)
			size := math.Max(prev.FontSize, g.FontSize)
			if size > 0 && gap > size*gapFactor {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return b.String()
}

func groupGlyphsIntoLines(texts []pdf.Text) []glyphLine {
	var lines []glyphLine
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		placed := false
		for i := range lines {
			if math.Abs(lines[i].y-t.Y) < rowTolerance {
				lines[i].glyphs = append(lines[i].glyphs, t)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, glyphLine{y: t.Y, glyphs: []pdf.Text{t}})
		}
	}

	// PDF y grows upwards, so the top line has the largest y.
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })
	for i := range lines {
		sort.SliceStable(lines[i].glyphs, func(a, b int) bool {
			return lines[i].glyphs[a].X < lines[i].glyphs[b].X
		})
	}
	return lines
}

// tabulate splits text into rows of whitespace separated tokens.
func (p *PDFParser) tabulate(text string) (*table.Table, error) {
	var rows [][]string
	width := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens := strings.Fields(line)
		rows = append(rows, tokens)
		width = max(width, len(tokens))
	}
	if len(rows) == 0 || width == 0 {
		return nil, ErrNoStructuredData
	}

	cols := make([]table.Column, width)
	for j := range cols {
		raw := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				raw[i] = row[j]
			}
		}
		// Padding is the empty token, which every NA list read by the
		// parsers treats as missing.
		cols[j] = table.InferColumn(strconv.Itoa(j), raw, padNA(p.opts.NAValues))
	}
	return table.New(cols)
}

func padNA(naValues []string) []string {
	for _, v := range naValues {
		if v == "" {
			return naValues
		}
	}
	return append([]string{""}, naValues...)
}
