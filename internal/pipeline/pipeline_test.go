package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/graphkit-dev/callgraph/internal/config"
	"github.com/graphkit-dev/callgraph/internal/query"
	"github.com/graphkit-dev/callgraph/internal/store"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "a.js"), []byte(`
function helper() { return 1; }
function main() { return helper(); }
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(filepath.Join(dir, "b.js"), []byte(`
const fs = require('fs');
function readAll() { return fs.readFileSync('x'); }
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunBuildsGraphAndSaves(t *testing.T) {
	dir := writeProject(t)

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	p := New(context.Background(), dir, config.Default(), nil)
	res, err := p.Run(s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesDiscovered != 2 {
		t.Errorf("FilesDiscovered = %d, want 2", res.FilesDiscovered)
	}
	if res.FilesExtracted != 2 {
		t.Errorf("FilesExtracted = %d, want 2", res.FilesExtracted)
	}
	if res.Nodes == 0 || res.Edges == 0 {
		t.Fatalf("expected non-empty graph, got nodes=%d edges=%d", res.Nodes, res.Edges)
	}

	eng := query.New(s)
	found, err := eng.SearchNodes("main", query.Default())
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	if len(found) == 0 {
		t.Fatal("expected to find a node for function main")
	}
}

func TestRunSkipsUnparseableFileAndContinues(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "good.js"), []byte("function ok() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Not a real syntax failure for tree-sitter (it's error-tolerant), so
	// the failure path is exercised through extractOne's os.ReadFile
	// branch: bad.js is a symlink to a missing file, which discovery lists
	// and reading then fails on.
	if err := os.Symlink(filepath.Join(dir, "missing-target.js"), filepath.Join(dir, "bad.js")); err != nil {
		t.Fatal(err)
	}
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	p := New(context.Background(), dir, nil, nil)
	res, err := p.Run(s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesFailed != 1 {
		t.Errorf("FilesFailed = %d, want 1", res.FilesFailed)
	}
	if res.FilesExtracted != 1 {
		t.Errorf("FilesExtracted = %d, want 1", res.FilesExtracted)
	}
}
