// Package store persists a graph.Graph to a two-table node/edge schema,
// with two interchangeable back-ends: native (disk-backed, mandatory
// transactions for batch writes) and in-memory (RAM-resident, explicit
// Save flush, idempotent BEGIN/COMMIT no-ops).
//
// The upsert-with-ON-CONFLICT idiom, batching under SQLite's 999-bind-
// variable cap, and prepared-statement scan helpers follow a familiar
// shape for SQLite-backed batch writers; the schema itself (TEXT node
// primary key, no per-project column, autoincrement edge ID) persists
// one graph per database rather than multiple named projects sharing
// tables.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/graphkit-dev/callgraph/internal/graphcore"
)

const schemaSQL = `
CREATE TABLE nodes (
  id   TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  label TEXT,
  meta TEXT
);
CREATE TABLE edges (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  from_id TEXT NOT NULL,
  to_id   TEXT NOT NULL,
  type    TEXT NOT NULL,
  meta    TEXT,
  UNIQUE(from_id, to_id, type)
);
CREATE INDEX idx_nodes_type ON nodes(type);
CREATE INDEX idx_edges_from ON edges(from_id);
CREATE INDEX idx_edges_to   ON edges(to_id);
`

// Store wraps a *sql.DB opened against either backend, with the
// node/edge read-write API the graph builder and query engine use. The
// abstract database capability (prepare/exec/resetSchema/close/save) is
// realized here as Store's own methods rather than a separate interface
// type, since both back-ends are the same SQLite driver with different
// DSNs — the behavioral differences are whether Save is a no-op and
// whether SaveGraph wraps its upserts in a transaction.
type Store struct {
	db     *sql.DB
	memory bool
	dbPath string
}

// Open opens (creating if absent) a native, disk-backed store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", graphcore.ErrStoreWrite, dbPath, err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// OpenMemory opens a RAM-resident store. Writes are not durable until Save
// is called.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("%w: open memory store: %v", graphcore.ErrStoreWrite, err)
	}
	return &Store{db: db, memory: true, dbPath: ":memory:"}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save flushes an in-memory store to disk at path via SQLite's VACUUM INTO;
// a no-op on a native (already-durable) store, tolerated so callers can
// call Save unconditionally after a build.
func (s *Store) Save(path string) error {
	if !s.memory {
		return nil
	}
	if _, err := s.db.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("%w: save memory store: %v", graphcore.ErrStoreWrite, err)
	}
	return nil
}

// ResetSchema drops and recreates both tables and their indices. Both
// back-ends tolerate being called on a fresh, empty database.
func (s *Store) ResetSchema() error {
	if _, err := s.db.Exec(`DROP TABLE IF EXISTS edges; DROP TABLE IF EXISTS nodes;`); err != nil {
		return fmt.Errorf("%w: drop schema: %v", graphcore.ErrStoreWrite, err)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("%w: create schema: %v", graphcore.ErrStoreWrite, err)
	}
	return nil
}

// beginTx starts a transaction. On the in-memory backend this still issues
// a real SQLite transaction; transactions are merely optional there, not
// rejected.
func (s *Store) beginTx() (*sql.Tx, error) {
	return s.db.Begin()
}
