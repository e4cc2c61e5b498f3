package tabclean

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/export"
	"github.com/brunobiangulo/tabclean/logging"
	"github.com/brunobiangulo/tabclean/parser"
	"github.com/brunobiangulo/tabclean/store"
	"github.com/brunobiangulo/tabclean/table"
)

// headRows is how many rows Summary renders.
const headRows = 5

// Session holds the current dataset and runs the load, clean, visualize and
// save pipeline against it. All methods are safe for concurrent use; each
// operation holds the session lock for its whole duration.
type Session interface {
	// ID returns the session identifier used in the history store.
	ID() string

	// Load parses path and replaces the current dataset. On failure the
	// previous dataset is kept.
	Load(ctx context.Context, path string) (*Info, error)

	// Clean asks decide for a policy when the dataset has missing cells and
	// replaces the dataset with the cleaned copy. decide is not called when
	// nothing is missing.
	Clean(ctx context.Context, decide clean.PolicyFunc) (clean.Report, error)

	// Save writes the current dataset to path (.csv, .txt or .xlsx).
	Save(ctx context.Context, path string) error

	// Visualize renders kind in format ("echarts", "png" or "svg") to w and
	// returns the content type written.
	Visualize(ctx context.Context, kind chart.Kind, format string, w io.Writer) (string, error)

	// Current returns a deep copy of the current dataset.
	Current() (*table.Table, error)

	// Summary describes the current dataset.
	Summary() (*Info, error)

	// History returns the operation log of this session.
	History(ctx context.Context) ([]store.Operation, error)

	// Snapshots lists the restorable states of this session.
	Snapshots(ctx context.Context) ([]store.Snapshot, error)

	// Restore replaces the current dataset with a snapshot taken earlier in
	// this session.
	Restore(ctx context.Context, snapshotID int64) (*Info, error)

	// Close releases the history store.
	Close() error
}

// Info describes the dataset held by a session.
type Info struct {
	DatasetID int64         `json:"dataset_id,omitempty"`
	Path      string        `json:"path"`
	Format    string        `json:"format"`
	Summary   table.Summary `json:"summary"`
	Head      string        `json:"head"`
}

type session struct {
	mu sync.Mutex

	id      string
	cfg     Config
	parsers *parser.Registry
	store   *store.Store // nil when history is disabled

	current   *table.Table
	path      string
	format    parser.Format
	datasetID int64
}

// New creates a session. When cfg.History is set the SQLite history store
// is opened at the configured path.
func New(cfg Config) (Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{
		id:      uuid.NewString(),
		cfg:     cfg,
		parsers: parser.NewRegistry(cfg.ParserOptions()),
	}

	if cfg.History {
		st, err := store.New(cfg.resolveDBPath())
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		s.store = st
	}

	slog.Info("session: created", "session_id", s.id, "history", s.store != nil)
	return s, nil
}

func (s *session) ID() string { return s.id }

// Load detects the format, parses the file and installs the table.
func (s *session) Load(ctx context.Context, path string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logging.WithFields(logging.WithSession(ctx, s.id), "file", filepath.Base(path))

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving path: %w", ErrLoadFailed, err)
	}

	format, p, err := s.parsers.Detect(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	log.Info("load: parsing dataset", "format", format)
	start := time.Now()

	t, err := p.Parse(ctx, absPath)
	if err != nil {
		log.Warn("load: parsing failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	log.Info("load: parsing complete",
		"rows", t.NumRows(), "cols", t.NumCols(), "missing", t.MissingCount(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	s.current = t
	s.path = absPath
	s.format = format
	s.datasetID = 0

	if s.store != nil {
		s.recordLoad(ctx, log, t)
	}
	return s.info(), nil
}

// recordLoad registers the dataset in the history store. Store failures are
// logged and do not fail the load.
func (s *session) recordLoad(ctx context.Context, log *slog.Logger, t *table.Table) {
	hash, err := fileHash(s.path)
	if err != nil {
		log.Warn("load: hashing failed (non-fatal)", "error", err)
	}
	if hash != "" {
		if prev, err := s.store.FindByHash(ctx, hash); err == nil {
			log.Info("load: content seen before", "previous_dataset", prev.ID, "previous_path", prev.Path)
		}
	}

	id, err := s.store.InsertDataset(ctx, store.Dataset{
		SessionID:   s.id,
		Path:        s.path,
		Format:      string(s.format),
		ContentHash: hash,
		Rows:        t.NumRows(),
		Cols:        t.NumCols(),
	})
	if err != nil {
		log.Warn("load: recording dataset failed (non-fatal)", "error", err)
		return
	}
	s.datasetID = id
	s.logOperation(ctx, store.ActionLoad, map[string]any{
		"format": s.format, "rows": t.NumRows(), "cols": t.NumCols(), "missing": t.MissingCount(),
	})
	s.snapshot(ctx, store.ActionLoad, t)
}

// Clean runs the missing-value policy against the current dataset.
func (s *session) Clean(ctx context.Context, decide clean.PolicyFunc) (clean.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return clean.Report{}, ErrNoDataset
	}
	log := logging.WithFields(logging.WithSession(ctx, s.id), "file", filepath.Base(s.path))

	missing := s.current.MissingCount()
	if missing == 0 {
		_, rep, err := clean.Resolve(s.current, clean.DropRows)
		log.Info("clean: nothing to clean")
		return rep, err
	}
	if decide == nil {
		return clean.Report{}, fmt.Errorf("%w: %w: no policy given", ErrCleanFailed, clean.ErrInvalidPolicy)
	}

	policy, err := decide(ctx, missing)
	if err != nil {
		return clean.Report{}, fmt.Errorf("%w: %w", ErrCleanFailed, err)
	}

	out, rep, err := clean.Resolve(s.current, policy)
	if err != nil {
		return rep, fmt.Errorf("%w: %w", ErrCleanFailed, err)
	}
	for _, w := range rep.Warnings {
		log.Warn("clean: "+w.Message, "column", w.Column, "kind", w.Kind)
	}
	log.Info("clean: applied policy",
		"policy", rep.PolicyName, "missing_before", rep.MissingBefore,
		"rows_before", rep.RowsBefore, "rows_after", rep.RowsAfter)

	s.current = out
	if s.store != nil && s.datasetID != 0 {
		s.logOperation(ctx, store.ActionClean, rep)
		s.snapshot(ctx, store.ActionClean+":"+rep.PolicyName, out)
	}
	return rep, nil
}

// Save writes the current dataset through the export package.
func (s *session) Save(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoDataset
	}
	if err := export.WriteFile(path, s.current); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	logging.FromContext(logging.WithSession(ctx, s.id)).Info("save: dataset written", "target", path, "rows", s.current.NumRows())
	if s.store != nil && s.datasetID != 0 {
		s.logOperation(ctx, store.ActionSave, map[string]any{"target": path})
	}
	return nil
}

// Visualize builds the figure for kind and renders it in format.
func (s *session) Visualize(ctx context.Context, kind chart.Kind, format string, w io.Writer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", ErrNoDataset
	}
	r, err := chart.NewRenderer(format, s.cfg.ChartSize())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVisualizeFailed, err)
	}
	fig, err := chart.Build(s.current, kind, s.cfg.ChartOptions())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVisualizeFailed, err)
	}
	if err := r.Render(w, fig); err != nil {
		return "", fmt.Errorf("%w: %w", ErrVisualizeFailed, err)
	}

	logging.FromContext(logging.WithSession(ctx, s.id)).Info("visualize: chart rendered", "kind", kind, "format", format)
	if s.store != nil && s.datasetID != 0 {
		s.logOperation(ctx, store.ActionVisualize, map[string]any{"kind": kind, "format": format})
	}
	return r.ContentType(), nil
}

func (s *session) Current() (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoDataset
	}
	return s.current.Clone(), nil
}

func (s *session) Summary() (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoDataset
	}
	return s.info(), nil
}

func (s *session) History(ctx context.Context) ([]store.Operation, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.ListOperations(ctx, s.id)
}

func (s *session) Snapshots(ctx context.Context) ([]store.Snapshot, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.ListSnapshots(ctx, s.id)
}

// Restore decodes a stored snapshot and installs it as the current dataset.
func (s *session) Restore(ctx context.Context, snapshotID int64) (*Info, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.GetSnapshot(ctx, snapshotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, snapshotID)
	}
	if err != nil {
		return nil, err
	}
	ds, err := s.store.GetDataset(ctx, snap.DatasetID)
	if err != nil {
		return nil, err
	}
	if ds.SessionID != s.id {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, snapshotID)
	}

	t, err := parser.NewCSVParser(s.cfg.ParserOptions()).ParseReader(bytes.NewReader(snap.CSV))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %d: %w", snapshotID, err)
	}

	s.current = t
	s.path = ds.Path
	s.format = parser.Format(ds.Format)
	s.datasetID = ds.ID
	s.logOperation(ctx, store.ActionRestore, map[string]any{"snapshot": snap.ID, "label": snap.Label})

	logging.FromContext(logging.WithSession(ctx, s.id)).Info("restore: snapshot installed",
		"snapshot", snap.ID, "label", snap.Label, "rows", t.NumRows())
	return s.info(), nil
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// info must be called with s.mu held.
func (s *session) info() *Info {
	return &Info{
		DatasetID: s.datasetID,
		Path:      s.path,
		Format:    string(s.format),
		Summary:   table.Describe(s.current),
		Head:      s.current.Head(headRows),
	}
}

func (s *session) logOperation(ctx context.Context, action string, detail any) {
	if _, err := s.store.LogOperation(ctx, s.datasetID, action, detail); err != nil {
		slog.Warn("session: logging operation failed (non-fatal)", "action", action, "error", err)
	}
}

// snapshot stores the CSV encoding of t and prunes old snapshots.
func (s *session) snapshot(ctx context.Context, label string, t *table.Table) {
	var buf bytes.Buffer
	if err := export.EncodeCSV(&buf, t); err != nil {
		slog.Warn("session: encoding snapshot failed (non-fatal)", "error", err)
		return
	}
	if _, err := s.store.SaveSnapshot(ctx, store.Snapshot{
		DatasetID: s.datasetID,
		Label:     label,
		Rows:      t.NumRows(),
		Cols:      t.NumCols(),
		CSV:       buf.Bytes(),
	}); err != nil {
		slog.Warn("session: saving snapshot failed (non-fatal)", "error", err)
		return
	}
	if s.cfg.MaxSnapshots > 0 {
		if n, err := s.store.PruneSnapshots(ctx, s.datasetID, s.cfg.MaxSnapshots); err != nil {
			slog.Warn("session: pruning snapshots failed (non-fatal)", "error", err)
		} else if n > 0 {
			slog.Debug("session: pruned snapshots", "dataset_id", s.datasetID, "deleted", n)
		}
	}
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
