//go:build cgo

package tabclean

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/store"
)

func newHistorySession(t *testing.T, dbPath string) Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = dbPath
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryRecordsOperations(t *testing.T) {
	s := newHistorySession(t, filepath.Join(t.TempDir(), "h.db"))
	ctx := context.Background()

	info, err := s.Load(ctx, writeFile(t, "data.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.DatasetID == 0 {
		t.Fatal("expected dataset id with history enabled")
	}
	if _, err := s.Clean(ctx, clean.Fixed(clean.DropRows)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Visualize(ctx, chart.BarChart, "echarts", &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, filepath.Join(t.TempDir(), "out.csv")); err != nil {
		t.Fatal(err)
	}

	ops, err := s.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []string{store.ActionLoad, store.ActionClean, store.ActionVisualize, store.ActionSave}
	if len(ops) != len(want) {
		t.Fatalf("operations = %+v", ops)
	}
	for i, op := range ops {
		if op.Action != want[i] {
			t.Errorf("op %d = %s, want %s", i, op.Action, want[i])
		}
	}

	snaps, err := s.Snapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[0].Label != "load" || snaps[1].Label != "clean:drop" {
		t.Errorf("snapshots = %+v", snaps)
	}
}

func TestRestoreUndoesClean(t *testing.T) {
	s := newHistorySession(t, filepath.Join(t.TempDir(), "h.db"))
	ctx := context.Background()

	if _, err := s.Load(ctx, writeFile(t, "data.csv", sampleCSV)); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Current()
	if _, err := s.Clean(ctx, clean.Fixed(clean.FillMeanMode)); err != nil {
		t.Fatal(err)
	}

	snaps, _ := s.Snapshots(ctx)
	info, err := s.Restore(ctx, snaps[0].ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if info.Summary.Missing != 2 {
		t.Errorf("restored missing = %d, want 2", info.Summary.Missing)
	}
	after, _ := s.Current()
	if !after.Equal(before) {
		t.Errorf("restored table differs:\n%s\nvs\n%s", after.Head(5), before.Head(5))
	}

	if _, err := s.Restore(ctx, 9999); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("unknown snapshot error = %v", err)
	}
}

func TestRestoreRejectsOtherSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "h.db")
	ctx := context.Background()

	a := newHistorySession(t, dbPath)
	if _, err := a.Load(ctx, writeFile(t, "data.csv", sampleCSV)); err != nil {
		t.Fatal(err)
	}
	snaps, _ := a.Snapshots(ctx)

	b := newHistorySession(t, dbPath)
	if _, err := b.Restore(ctx, snaps[0].ID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("foreign snapshot error = %v", err)
	}
	if ops, _ := b.History(ctx); len(ops) != 0 {
		t.Errorf("session b sees %d operations of session a", len(ops))
	}
}

func TestSnapshotPruning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "h.db")
	cfg.MaxSnapshots = 1
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	s.Load(ctx, writeFile(t, "data.csv", sampleCSV))
	s.Clean(ctx, clean.Fixed(clean.DropRows))

	snaps, _ := s.Snapshots(ctx)
	if len(snaps) != 1 || snaps[0].Label != "clean:drop" {
		t.Errorf("snapshots after prune = %+v", snaps)
	}
}
