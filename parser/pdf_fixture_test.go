package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestPDF writes a minimal single-font PDF. Each element of pages is
// the list of text lines drawn on that page, top to bottom. A page with no
// lines gets an empty content stream, i.e. no text layer.
func writeTestPDF(t *testing.T, pages [][]string) string {
	t.Helper()

	var objects []string
	numPages := len(pages)
	kids := make([]string, numPages)
	for k := range pages {
		kids[k] = fmt.Sprintf("%d 0 R", 4+2*k)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), numPages),
		fontObject(),
	)

	for _, lines := range pages {
		var content strings.Builder
		if len(lines) == 0 {
			content.WriteString("q Q")
		} else {
			content.WriteString("BT /F1 12 Tf 72 720 Td ")
			for i, line := range lines {
				if i > 0 {
					content.WriteString("0 -16 Td ")
				}
				fmt.Fprintf(&content, "(%s) Tj ", escapePDFString(line))
			}
			content.WriteString("ET")
		}
		pageNum := len(objects) + 1
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageNum+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

// fontObject is a Helvetica reference with explicit, uniform widths so glyph
// positions advance predictably.
func fontObject() string {
	widths := make([]string, 95)
	for i := range widths {
		widths[i] = "600"
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
