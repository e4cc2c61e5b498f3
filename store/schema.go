package store

// schemaSQL is the base schema. Later changes go through migrations.
const schemaSQL = `
-- One row per successfully loaded file
CREATE TABLE IF NOT EXISTS datasets (
    id INTEGER PRIMARY KEY,
    session_id TEXT NOT NULL,
    path TEXT NOT NULL,
    format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    col_count INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Audit log of load / clean / save / visualize / restore actions
CREATE TABLE IF NOT EXISTS operations (
    id INTEGER PRIMARY KEY,
    dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
    action TEXT NOT NULL,
    detail JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- CSV encoding of the table after each state change
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY,
    dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    col_count INTEGER NOT NULL,
    csv BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_datasets_session ON datasets(session_id);
CREATE INDEX IF NOT EXISTS idx_datasets_hash ON datasets(content_hash);
`
