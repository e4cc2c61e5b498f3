package tabclean

import (
	"errors"

	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/export"
	"github.com/brunobiangulo/tabclean/parser"
	"github.com/brunobiangulo/tabclean/store"
)

var (
	// ErrNoDataset is returned when an operation needs a loaded table and
	// the session holds none.
	ErrNoDataset = errors.New("tabclean: no dataset loaded")

	// ErrLoadFailed wraps parser failures during Load.
	ErrLoadFailed = errors.New("tabclean: loading failed")

	// ErrCleanFailed wraps policy hook and resolver failures.
	ErrCleanFailed = errors.New("tabclean: cleaning failed")

	// ErrSaveFailed wraps export failures.
	ErrSaveFailed = errors.New("tabclean: saving failed")

	// ErrVisualizeFailed wraps chart build and render failures.
	ErrVisualizeFailed = errors.New("tabclean: visualization failed")

	// ErrHistoryDisabled is returned by History and Restore when the session
	// has no store.
	ErrHistoryDisabled = errors.New("tabclean: history is disabled")

	// ErrSnapshotNotFound is returned by Restore for unknown or foreign
	// snapshot ids.
	ErrSnapshotNotFound = errors.New("tabclean: snapshot not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("tabclean: invalid configuration")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat
)

// Notice maps err to the one-line message a shell shows the user.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoDataset):
		return "No data loaded. Please load a dataset first."
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "Unsupported file format. Please load a CSV, TXT or PDF file."
	case errors.Is(err, parser.ErrNoExtractableText):
		return "No extractable text found in the PDF."
	case errors.Is(err, parser.ErrNoStructuredData):
		return "Failed to parse structured data from the PDF."
	case errors.Is(err, parser.ErrEmptyData):
		return "The file contains no data rows."
	case errors.Is(err, parser.ErrIO):
		return "Could not read the file: " + err.Error()
	case errors.Is(err, parser.ErrParse):
		return "Could not parse the file: " + err.Error()
	case errors.Is(err, clean.ErrInvalidPolicy):
		return "Unknown cleaning policy. Use drop or fill."
	case errors.Is(err, chart.ErrUnknownChart):
		return "Unknown chart type."
	case errors.Is(err, chart.ErrShapeMismatch):
		return "The dataset does not have the columns this chart needs."
	case errors.Is(err, chart.ErrNoData):
		return "There is no data to plot."
	case errors.Is(err, chart.ErrRenderUnsupported):
		return "This chart cannot be rendered in the requested format."
	case errors.Is(err, export.ErrUnsupportedTarget):
		return "Unsupported output format. Save as .csv or .xlsx."
	case errors.Is(err, export.ErrWrite):
		return "Could not save the file: " + err.Error()
	case errors.Is(err, ErrHistoryDisabled):
		return "History is disabled."
	case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, store.ErrNotFound):
		return "Snapshot not found."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
