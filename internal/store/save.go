package store

import (
	"database/sql"
	"fmt"

	"github.com/graphkit-dev/callgraph/internal/graph"
	"github.com/graphkit-dev/callgraph/internal/graphcore"
)

// SaveGraph implements the store write workflow: reset schema, upsert
// every node, upsert every edge, commit. On the native backend the upserts run
// inside one transaction (mandatory for batch insert); on the in-memory
// backend the same call path works without a transaction and the caller is
// expected to call Save afterward to flush to disk.
func (s *Store) SaveGraph(g *graph.Graph) error {
	if err := s.ResetSchema(); err != nil {
		return err
	}

	nodeRows := make([]NodeRow, 0, len(g.Nodes))
	for _, n := range g.SortedNodes() {
		meta, err := graph.MetaJSON(n.Meta)
		if err != nil {
			return fmt.Errorf("%w: %v", graphcore.ErrStoreWrite, err)
		}
		nodeRows = append(nodeRows, NodeRow{ID: n.ID, Type: string(n.Type), Label: n.Label, Meta: meta})
	}
	edgeRows := make([]EdgeRow, 0, len(g.Edges))
	for _, e := range g.SortedEdges() {
		meta, err := graph.MetaJSON(e.Meta)
		if err != nil {
			return fmt.Errorf("%w: %v", graphcore.ErrStoreWrite, err)
		}
		edgeRows = append(edgeRows, EdgeRow{FromID: e.From, ToID: e.To, Type: string(e.Type), Meta: meta})
	}

	if s.memory {
		if err := s.UpsertNodes(nil, nodeRows); err != nil {
			return err
		}
		if err := s.UpsertEdges(nil, edgeRows); err != nil {
			return err
		}
		return nil
	}

	tx, err := s.beginTx()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", graphcore.ErrStoreWrite, err)
	}
	if err := s.writeGraphTx(tx, nodeRows, edgeRows); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", graphcore.ErrStoreWrite, err)
	}
	return nil
}

func (s *Store) writeGraphTx(tx *sql.Tx, nodeRows []NodeRow, edgeRows []EdgeRow) error {
	if err := s.UpsertNodes(tx, nodeRows); err != nil {
		return err
	}
	if err := s.UpsertEdges(tx, edgeRows); err != nil {
		return err
	}
	return nil
}
