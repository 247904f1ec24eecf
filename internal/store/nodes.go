package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/graphkit-dev/callgraph/internal/graphcore"
)

// NodeRow is one row of the nodes table.
type NodeRow struct {
	ID    string
	Type  string
	Label string
	Meta  string // raw JSON
}

// Formula-derived batch size: SQLite's 999 bind-variable limit, 4 columns
// per node row.
const nodeCols = 4
const nodeBatchSize = 999 / nodeCols

// UpsertNodes writes every node in batched multi-row INSERTs with
// ON CONFLICT(id) DO UPDATE. Callers run this inside a transaction on the
// native backend (mandatory) and may skip the transaction on the
// in-memory backend.
func (s *Store) UpsertNodes(tx *sql.Tx, rows []NodeRow) error {
	exec := s.execer(tx)
	for i := 0; i < len(rows); i += nodeBatchSize {
		end := i + nodeBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := upsertNodeChunk(exec, rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func upsertNodeChunk(exec execer, chunk []NodeRow) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO nodes (id, type, label, meta) VALUES ")
	args := make([]any, 0, len(chunk)*nodeCols)
	for i, n := range chunk {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?)")
		args = append(args, n.ID, n.Type, n.Label, n.Meta)
	}
	sb.WriteString(` ON CONFLICT(id) DO UPDATE SET type=excluded.type, label=excluded.label, meta=excluded.meta`)
	if _, err := exec.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("%w: upsert nodes: %v", graphcore.ErrStoreWrite, err)
	}
	return nil
}

// GetNode returns the node with id, or nil if none exists; a missing
// node is not an error.
func (s *Store) GetNode(id string) (*NodeRow, error) {
	row := s.db.QueryRow(`SELECT id, type, label, meta FROM nodes WHERE id = ?`, id)
	var n NodeRow
	if err := row.Scan(&n.ID, &n.Type, &n.Label, &n.Meta); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get node %s: %v", graphcore.ErrStoreRead, id, err)
	}
	return &n, nil
}

// GetNodes returns every node whose ID is in ids, batched under the
// 999-bind-variable cap.
func (s *Store) GetNodes(ids []string) (map[string]*NodeRow, error) {
	out := map[string]*NodeRow{}
	if len(ids) == 0 {
		return out, nil
	}
	const batch = 999
	for i := 0; i < len(ids); i += batch {
		end := i + batch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[i:end]
		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for j, id := range chunk {
			placeholders[j] = "?"
			args[j] = id
		}
		query := fmt.Sprintf("SELECT id, type, label, meta FROM nodes WHERE id IN (%s)", strings.Join(placeholders, ","))
		rows, err := s.db.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: get nodes: %v", graphcore.ErrStoreRead, err)
		}
		if err := scanInto(rows, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanInto(rows *sql.Rows, out map[string]*NodeRow) error {
	defer rows.Close()
	for rows.Next() {
		var n NodeRow
		if err := rows.Scan(&n.ID, &n.Type, &n.Label, &n.Meta); err != nil {
			return fmt.Errorf("%w: scan node: %v", graphcore.ErrStoreRead, err)
		}
		out[n.ID] = &n
	}
	return rows.Err()
}

// AllNodes returns every node, optionally restricted to the given types.
func (s *Store) AllNodes(types []string) ([]*NodeRow, error) {
	query := `SELECT id, type, label, meta FROM nodes`
	var args []any
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += ` WHERE type IN (` + strings.Join(placeholders, ",") + `)`
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: all nodes: %v", graphcore.ErrStoreRead, err)
	}
	defer rows.Close()
	var out []*NodeRow
	for rows.Next() {
		var n NodeRow
		if err := rows.Scan(&n.ID, &n.Type, &n.Label, &n.Meta); err != nil {
			return nil, fmt.Errorf("%w: scan node: %v", graphcore.ErrStoreRead, err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return s.db
}
