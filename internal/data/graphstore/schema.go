package graphstore

import (
	"database/sql"
	"fmt"
)

func migrateStoreSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("graph store db is nil")
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
  name TEXT PRIMARY KEY,
  ord INTEGER NOT NULL,
  kind TEXT NOT NULL DEFAULT '',
  fingerprint TEXT NOT NULL DEFAULT '',
  num_nodes INTEGER NOT NULL,
  num_edges INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_ord ON entries(ord);
CREATE TABLE IF NOT EXISTS tables (
  entry TEXT NOT NULL REFERENCES entries(name) ON DELETE CASCADE,
  grp TEXT NOT NULL,
  name TEXT NOT NULL,
  ord INTEGER NOT NULL,
  num_rows INTEGER NOT NULL,
  width INTEGER NOT NULL,
  data BLOB NOT NULL,
  PRIMARY KEY (entry, grp, name)
);
CREATE TABLE IF NOT EXISTS edge_index (
  entry TEXT PRIMARY KEY REFERENCES entries(name) ON DELETE CASCADE,
  num_rows INTEGER NOT NULL,
  data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS targets (
  entry TEXT NOT NULL REFERENCES entries(name) ON DELETE CASCADE,
  name TEXT NOT NULL,
  value REAL NOT NULL,
  PRIMARY KEY (entry, name)
);
CREATE TABLE IF NOT EXISTS metadata (
  entry TEXT NOT NULL REFERENCES entries(name) ON DELETE CASCADE,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  PRIMARY KEY (entry, key)
);
`)
	if err != nil {
		return fmt.Errorf("migrate graph store schema: %w", err)
	}
	return nil
}
