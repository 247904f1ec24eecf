package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/graphkit-dev/callgraph/internal/graphcore"
)

// EdgeRow is one row of the edges table.
type EdgeRow struct {
	ID     int64
	FromID string
	ToID   string
	Type   string
	Meta   string
}

const edgeBatchSize = 999 / 4

// UpsertEdges writes every edge in batched multi-row INSERTs with
// ON CONFLICT(from_id,to_id,type) DO UPDATE.
func (s *Store) UpsertEdges(tx *sql.Tx, rows []EdgeRow) error {
	exec := s.execer(tx)
	for i := 0; i < len(rows); i += edgeBatchSize {
		end := i + edgeBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := upsertEdgeChunk(exec, rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func upsertEdgeChunk(exec execer, chunk []EdgeRow) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO edges (from_id, to_id, type, meta) VALUES ")
	args := make([]any, 0, len(chunk)*4)
	for i, e := range chunk {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?)")
		args = append(args, e.FromID, e.ToID, e.Type, e.Meta)
	}
	sb.WriteString(` ON CONFLICT(from_id, to_id, type) DO UPDATE SET meta=excluded.meta`)
	if _, err := exec.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("%w: upsert edges: %v", graphcore.ErrStoreWrite, err)
	}
	return nil
}

// EdgesFrom returns outgoing edges from id, optionally restricted to types.
func (s *Store) EdgesFrom(id string, types []string) ([]*EdgeRow, error) {
	return s.edgesWhere("from_id", id, types)
}

// EdgesTo returns incoming edges to id, optionally restricted to types.
func (s *Store) EdgesTo(id string, types []string) ([]*EdgeRow, error) {
	return s.edgesWhere("to_id", id, types)
}

func (s *Store) edgesWhere(column, id string, types []string) ([]*EdgeRow, error) {
	query := fmt.Sprintf(`SELECT id, from_id, to_id, type, meta FROM edges WHERE %s = ?`, column)
	args := []any{id}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += ` AND type IN (` + strings.Join(placeholders, ",") + `)`
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: edges %s=%s: %v", graphcore.ErrStoreRead, column, id, err)
	}
	defer rows.Close()
	var out []*EdgeRow
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.Type, &e.Meta); err != nil {
			return nil, fmt.Errorf("%w: scan edge: %v", graphcore.ErrStoreRead, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// AllEdges returns every edge in the store.
func (s *Store) AllEdges() ([]*EdgeRow, error) {
	rows, err := s.db.Query(`SELECT id, from_id, to_id, type, meta FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("%w: all edges: %v", graphcore.ErrStoreRead, err)
	}
	defer rows.Close()
	var out []*EdgeRow
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.Type, &e.Meta); err != nil {
			return nil, fmt.Errorf("%w: scan edge: %v", graphcore.ErrStoreRead, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CountEdgesByType returns the number of edges of each type, used by
// GetSemanticStats.
func (s *Store) CountEdgesByType() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT type, COUNT(*) FROM edges GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("%w: count edges by type: %v", graphcore.ErrStoreRead, err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, fmt.Errorf("%w: scan count: %v", graphcore.ErrStoreRead, err)
		}
		out[t] = c
	}
	return out, rows.Err()
}

// CountFrameworkEdges returns the number of edges whose meta flags
// isFramework=true.
func (s *Store) CountFrameworkEdges() (int, error) {
	var c int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM edges WHERE json_extract(meta, '$.isFramework') = 1`).Scan(&c)
	if err != nil {
		return 0, fmt.Errorf("%w: count framework edges: %v", graphcore.ErrStoreRead, err)
	}
	return c, nil
}
