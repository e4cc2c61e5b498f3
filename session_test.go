package tabclean

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/export"
	"github.com/brunobiangulo/tabclean/parser"
	"github.com/brunobiangulo/tabclean/table"
)

const sampleCSV = "a,b,c\n1,x,2\n,y,4\n3,,6\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestSession(t *testing.T) Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.History = false
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadedSession(t *testing.T) Session {
	t.Helper()
	s := newTestSession(t)
	if _, err := s.Load(context.Background(), writeFile(t, "data.csv", sampleCSV)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoadCSV(t *testing.T) {
	s := newTestSession(t)
	info, err := s.Load(context.Background(), writeFile(t, "data.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Format != string(parser.FormatCSV) {
		t.Errorf("format = %q", info.Format)
	}
	if info.Summary.Rows != 3 || info.Summary.Cols != 3 || info.Summary.Missing != 2 {
		t.Errorf("summary = %+v", info.Summary)
	}
	if info.DatasetID != 0 {
		t.Errorf("dataset id = %d, want 0 without history", info.DatasetID)
	}
	if !strings.HasPrefix(info.Head, "a") {
		t.Errorf("head = %q", info.Head)
	}
}

func TestLoadFailureKeepsPreviousDataset(t *testing.T) {
	s := loadedSession(t)
	ctx := context.Background()

	cases := []struct {
		name string
		path string
		want error
	}{
		{"unsupported", writeFile(t, "report.docx", "whatever"), ErrUnsupportedFormat},
		{"missing file", filepath.Join(t.TempDir(), "nope.csv"), parser.ErrIO},
		{"header only", writeFile(t, "empty.csv", "a,b\n"), parser.ErrEmptyData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Load(ctx, tc.path)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ErrLoadFailed) {
				t.Errorf("error = %v, want ErrLoadFailed", err)
			}
			cur, err := s.Current()
			if err != nil {
				t.Fatalf("Current: %v", err)
			}
			if cur.NumRows() != 3 {
				t.Errorf("rows = %d, want previous dataset kept", cur.NumRows())
			}
		})
	}
}

func TestLoadCanceledContext(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Load(ctx, writeFile(t, "data.csv", sampleCSV)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCurrentIsACopy(t *testing.T) {
	s := loadedSession(t)
	cur, _ := s.Current()
	cur.Set(0, 0, table.Num(99))

	again, _ := s.Current()
	if again.Cell(0, 0).Num != 1 {
		t.Errorf("session table mutated through Current: %v", again.Cell(0, 0))
	}
}

// ---------------------------------------------------------------------------
// Operations without a dataset
// ---------------------------------------------------------------------------

func TestNoDataset(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	if _, err := s.Clean(ctx, clean.Fixed(clean.DropRows)); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Clean error = %v", err)
	}
	if err := s.Save(ctx, filepath.Join(t.TempDir(), "out.csv")); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Save error = %v", err)
	}
	if _, err := s.Visualize(ctx, chart.BoxPlot, "echarts", &bytes.Buffer{}); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Visualize error = %v", err)
	}
	if _, err := s.Current(); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Current error = %v", err)
	}
	if _, err := s.Summary(); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Summary error = %v", err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	if _, err := s.History(ctx); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("History error = %v", err)
	}
	if _, err := s.Snapshots(ctx); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Snapshots error = %v", err)
	}
	if _, err := s.Restore(ctx, 1); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Restore error = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Clean
// ---------------------------------------------------------------------------

func TestCleanDrop(t *testing.T) {
	s := loadedSession(t)

	var asked int
	decide := func(_ context.Context, missing int) (clean.Policy, error) {
		asked = missing
		return clean.DropRows, nil
	}
	rep, err := s.Clean(context.Background(), decide)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if asked != 2 {
		t.Errorf("hook saw %d missing, want 2", asked)
	}
	if rep.RowsAfter != 1 || rep.MissingAfter != 0 || rep.PolicyName != "drop" {
		t.Errorf("report = %+v", rep)
	}
	cur, _ := s.Current()
	if cur.NumRows() != 1 || cur.Cell(0, 1).Str != "x" {
		t.Errorf("cleaned table:\n%s", cur.Head(5))
	}
}

func TestCleanFill(t *testing.T) {
	s := loadedSession(t)
	rep, err := s.Clean(context.Background(), clean.Fixed(clean.FillMeanMode))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if rep.RowsAfter != 3 || rep.MissingAfter != 0 {
		t.Errorf("report = %+v", rep)
	}
	cur, _ := s.Current()
	if got := cur.Cell(1, 0); got.Kind != table.Number || got.Num != 2 {
		t.Errorf("filled a[1] = %v, want 2", got)
	}
	if got := cur.Cell(2, 1); got.Str != "x" {
		t.Errorf("filled b[2] = %v, want x", got)
	}
}

func TestCleanSkipsHookWhenNothingMissing(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Load(context.Background(), writeFile(t, "full.csv", "a,b\n1,2\n3,4\n")); err != nil {
		t.Fatal(err)
	}
	called := false
	rep, err := s.Clean(context.Background(), func(context.Context, int) (clean.Policy, error) {
		called = true
		return clean.DropRows, nil
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if called {
		t.Error("policy hook called for a table without missing cells")
	}
	if !rep.Skipped || rep.RowsAfter != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestCleanFailureKeepsTable(t *testing.T) {
	s := loadedSession(t)
	ctx := context.Background()
	abort := errors.New("user closed the dialog")

	cases := []struct {
		name   string
		decide clean.PolicyFunc
		want   error
	}{
		{"hook error", func(context.Context, int) (clean.Policy, error) { return 0, abort }, abort},
		{"invalid policy", clean.Fixed(clean.Policy(42)), clean.ErrInvalidPolicy},
		{"nil hook", nil, clean.ErrInvalidPolicy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Clean(ctx, tc.decide)
			if !errors.Is(err, tc.want) || !errors.Is(err, ErrCleanFailed) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			cur, _ := s.Current()
			if cur.MissingCount() != 2 {
				t.Errorf("missing = %d, table should be untouched", cur.MissingCount())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Save / Visualize
// ---------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	s := loadedSession(t)
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "cleaned.csv")

	if err := s.Save(ctx, out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := parser.NewCSVParser(parser.Options{}).Parse(ctx, out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	cur, _ := s.Current()
	if !back.Equal(cur) {
		t.Errorf("round trip mismatch:\n%s\nvs\n%s", back.Head(5), cur.Head(5))
	}
}

func TestSaveUnsupportedTarget(t *testing.T) {
	s := loadedSession(t)
	err := s.Save(context.Background(), filepath.Join(t.TempDir(), "out.parquet"))
	if !errors.Is(err, export.ErrUnsupportedTarget) || !errors.Is(err, ErrSaveFailed) {
		t.Errorf("error = %v", err)
	}
}

func TestVisualize(t *testing.T) {
	s := loadedSession(t)
	ctx := context.Background()

	var buf bytes.Buffer
	ct, err := s.Visualize(ctx, chart.BoxPlot, "echarts", &buf)
	if err != nil {
		t.Fatalf("Visualize: %v", err)
	}
	if ct != "application/json" || !strings.Contains(buf.String(), "boxplot") {
		t.Errorf("content type %q, body %s", ct, buf.String())
	}

	buf.Reset()
	ct, err = s.Visualize(ctx, chart.Histogram, "svg", &buf)
	if err != nil {
		t.Fatalf("Visualize svg: %v", err)
	}
	if !strings.HasPrefix(ct, "image/svg") || !strings.Contains(buf.String(), "<svg") {
		t.Errorf("content type %q", ct)
	}

	if _, err := s.Visualize(ctx, chart.BoxPlot, "gif", &buf); !errors.Is(err, chart.ErrRenderUnsupported) {
		t.Errorf("gif error = %v", err)
	}
}

func TestVisualizeShapeMismatch(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Load(context.Background(), writeFile(t, "one.csv", "a,b\n1,x\n2,y\n")); err != nil {
		t.Fatal(err)
	}
	_, err := s.Visualize(context.Background(), chart.PairPlot, "echarts", &bytes.Buffer{})
	if !errors.Is(err, chart.ErrShapeMismatch) || !errors.Is(err, ErrVisualizeFailed) {
		t.Errorf("error = %v", err)
	}
}

func TestVisualizeInfinityTokens(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	info, err := s.Load(ctx, writeFile(t, "inf.csv", "a,b,c\n1,x,4\ninf,y,5\n3,z,6\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := json.Marshal(info); err != nil {
		t.Fatalf("load result does not encode: %v", err)
	}
	cur, _ := s.Current()
	if cur.Column(0).Numeric() || !cur.Cell(1, 0).Equal(table.Str("inf")) {
		t.Errorf("column a = %+v, want text", cur.Column(0).Cells)
	}

	for _, k := range chart.Kinds() {
		for _, format := range []string{"echarts", "png", "svg"} {
			_, err := s.Visualize(ctx, k, format, &bytes.Buffer{})
			if err != nil && !errors.Is(err, chart.ErrShapeMismatch) {
				t.Errorf("%s/%s: error = %v", k, format, err)
			}
		}
	}
	if _, err := s.Visualize(ctx, chart.Histogram, "echarts", &bytes.Buffer{}); err != nil {
		t.Errorf("histogram of c: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Notice
// ---------------------------------------------------------------------------

func TestNotice(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoDataset, "No data loaded"},
		{errors.Join(ErrLoadFailed, parser.ErrUnsupportedFormat), "Unsupported file format"},
		{parser.ErrNoExtractableText, "No extractable text found in the PDF"},
		{parser.ErrNoStructuredData, "Failed to parse structured data from the PDF"},
		{chart.ErrShapeMismatch, "does not have the columns"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tc := range cases {
		if got := Notice(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("Notice(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}
