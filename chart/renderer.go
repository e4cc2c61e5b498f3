package chart

import (
	"fmt"
	"io"
	"strings"
)

// Renderer draws a figure.
type Renderer interface {
	Render(w io.Writer, fig *Figure) error
	ContentType() string
}

// Output formats accepted by NewRenderer.
const (
	FormatECharts = "echarts"
	FormatPNG     = "png"
	FormatSVG     = "svg"
)

// Size is the pixel size of image output.
type Size struct {
	Width  int
	Height int
}

// NewRenderer returns the renderer for an output format. An empty format
// selects ECharts.
func NewRenderer(format string, size Size) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatECharts, "json", "":
		return NewEChartsRenderer(), nil
	case FormatPNG:
		return NewImageRenderer(FormatPNG, size), nil
	case FormatSVG:
		return NewImageRenderer(FormatSVG, size), nil
	}
	return nil, fmt.Errorf("%w: output format %q", ErrRenderUnsupported, format)
}

// FormatForPath picks an output format from a file name: ".png" and ".svg"
// select images, everything else ECharts JSON.
func FormatForPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return FormatPNG
	case strings.HasSuffix(lower, ".svg"):
		return FormatSVG
	default:
		return FormatECharts
	}
}
