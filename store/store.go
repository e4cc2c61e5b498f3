// Package store persists the history of a session in SQLite: every loaded
// dataset, the operations applied to it, and CSV snapshots of the table
// after each change.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a dataset or snapshot does not exist.
var ErrNotFound = errors.New("store: not found")

// Action names recorded in the operations table.
const (
	ActionLoad      = "load"
	ActionClean     = "clean"
	ActionSave      = "save"
	ActionVisualize = "visualize"
	ActionRestore   = "restore"
)

// Dataset represents a row in the datasets table.
type Dataset struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id"`
	Path        string `json:"path"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	CreatedAt   string `json:"created_at"`
}

// Operation represents a row in the operations table joined with the path
// of its dataset.
type Operation struct {
	ID        int64           `json:"id"`
	DatasetID int64           `json:"dataset_id"`
	Path      string          `json:"path"`
	Action    string          `json:"action"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// Snapshot represents a row in the snapshots table. CSV is only populated
// by GetSnapshot.
type Snapshot struct {
	ID        int64  `json:"id"`
	DatasetID int64  `json:"dataset_id"`
	Label     string `json:"label"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	CSV       []byte `json:"-"`
	CreatedAt string `json:"created_at"`
}

// Stats holds row counts of the history tables.
type Stats struct {
	Datasets   int `json:"datasets"`
	Operations int `json:"operations"`
	Snapshots  int `json:"snapshots"`
}

// Store wraps the SQLite history database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and applies
// the schema and pending migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Datasets ---

// InsertDataset records a loaded dataset and returns its ID.
func (s *Store) InsertDataset(ctx context.Context, d Dataset) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO datasets (session_id, path, format, content_hash, row_count, col_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.SessionID, d.Path, d.Format, d.ContentHash, d.Rows, d.Cols)
	if err != nil {
		return 0, fmt.Errorf("inserting dataset: %w", err)
	}
	return res.LastInsertId()
}

// GetDataset retrieves a dataset by ID.
func (s *Store) GetDataset(ctx context.Context, id int64) (*Dataset, error) {
	d := &Dataset{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, path, format, content_hash, row_count, col_count, created_at
		FROM datasets WHERE id = ?
	`, id).Scan(&d.ID, &d.SessionID, &d.Path, &d.Format, &d.ContentHash, &d.Rows, &d.Cols, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: dataset %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDatasets returns the datasets of a session, oldest first. An empty
// session ID lists every dataset.
func (s *Store) ListDatasets(ctx context.Context, sessionID string) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, path, format, content_hash, row_count, col_count, created_at
		FROM datasets WHERE ? = '' OR session_id = ? ORDER BY id
	`, sessionID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Path, &d.Format, &d.ContentHash, &d.Rows, &d.Cols, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FindByHash returns the most recent dataset with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Dataset, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM datasets WHERE content_hash = ? ORDER BY id DESC LIMIT 1", hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: content hash %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, err
	}
	return s.GetDataset(ctx, id)
}

// DeleteDataset removes a dataset with its operations and snapshots.
func (s *Store) DeleteDataset(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM operations WHERE dataset_id = ?",
			"DELETE FROM snapshots WHERE dataset_id = ?",
			"DELETE FROM datasets WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Operations ---

// LogOperation appends an operation for a dataset. detail is stored as JSON;
// nil stores no detail.
func (s *Store) LogOperation(ctx context.Context, datasetID int64, action string, detail any) (int64, error) {
	var raw []byte
	if detail != nil {
		var err error
		if raw, err = json.Marshal(detail); err != nil {
			return 0, fmt.Errorf("encoding %s detail: %w", action, err)
		}
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO operations (dataset_id, action, detail) VALUES (?, ?, ?)",
		datasetID, action, nullableJSON(raw))
	if err != nil {
		return 0, fmt.Errorf("logging %s: %w", action, err)
	}
	return res.LastInsertId()
}

// ListOperations returns the operations of a session in the order they
// happened. An empty session ID lists every operation.
func (s *Store) ListOperations(ctx context.Context, sessionID string) ([]Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.dataset_id, d.path, o.action, o.detail, o.created_at
		FROM operations o JOIN datasets d ON d.id = o.dataset_id
		WHERE ? = '' OR d.session_id = ?
		ORDER BY o.id
	`, sessionID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		var op Operation
		var detail sql.NullString
		if err := rows.Scan(&op.ID, &op.DatasetID, &op.Path, &op.Action, &detail, &op.CreatedAt); err != nil {
			return nil, err
		}
		if detail.Valid {
			op.Detail = json.RawMessage(detail.String)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// --- Snapshots ---

// SaveSnapshot stores the CSV encoding of a table state.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (dataset_id, label, row_count, col_count, csv)
		VALUES (?, ?, ?, ?, ?)
	`, snap.DatasetID, snap.Label, snap.Rows, snap.Cols, snap.CSV)
	if err != nil {
		return 0, fmt.Errorf("saving snapshot: %w", err)
	}
	return res.LastInsertId()
}

// GetSnapshot retrieves a snapshot including its CSV payload.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, dataset_id, label, row_count, col_count, csv, created_at
		FROM snapshots WHERE id = ?
	`, id).Scan(&snap.ID, &snap.DatasetID, &snap.Label, &snap.Rows, &snap.Cols, &snap.CSV, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns the snapshots of a session without their payload,
// oldest first.
func (s *Store) ListSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sn.id, sn.dataset_id, sn.label, sn.row_count, sn.col_count, sn.created_at
		FROM snapshots sn JOIN datasets d ON d.id = sn.dataset_id
		WHERE ? = '' OR d.session_id = ?
		ORDER BY sn.id
	`, sessionID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.DatasetID, &snap.Label, &snap.Rows, &snap.Cols, &snap.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots of a dataset and deletes
// the rest. It returns the number of deleted snapshots.
func (s *Store) PruneSnapshots(ctx context.Context, datasetID int64, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE dataset_id = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE dataset_id = ? ORDER BY id DESC LIMIT ?
		)
	`, datasetID, datasetID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns row counts of the history tables.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"datasets", &st.Datasets},
		{"operations", &st.Operations},
		{"snapshots", &st.Snapshots},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullableJSON(raw []byte) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
