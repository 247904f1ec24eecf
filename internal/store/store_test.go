package store

import (
	"testing"

	"github.com/graphkit-dev/callgraph/internal/graph"
	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/resolve"
)

func buildSampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	f := ir.NewFile("a.js")
	fnID := location.FunctionID("a.js", location.Span{})
	f.Functions = append(f.Functions, ir.Callable{ID: fnID, Name: "helper"})
	res := resolve.Resolution{
		Site:     ir.CallSite{From: location.TopLevelCaller("a.js"), CalleeName: "helper", Kind: ir.CallPlain},
		TargetID: fnID,
		Resolved: true,
	}
	g, err := graph.Build([]*ir.File{f}, map[string][]resolve.Resolution{"a.js": {res}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestSaveAndGetNode(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	g := buildSampleGraph(t)
	if err := s.SaveGraph(g); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}

	fileID := location.FileID("a.js")
	n, err := s.GetNode(fileID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if n == nil || n.Type != "file" {
		t.Fatalf("expected file node, got %+v", n)
	}
}

func TestGetNodeMissingReturnsNilNoError(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()
	if err := s.ResetSchema(); err != nil {
		t.Fatalf("ResetSchema: %v", err)
	}

	n, err := s.GetNode("file:does-not-exist.js")
	if err != nil {
		t.Fatalf("expected no error for missing node, got %v", err)
	}
	if n != nil {
		t.Fatalf("expected nil for missing node, got %+v", n)
	}
}

func TestSaveGraphIsIdempotent(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	g := buildSampleGraph(t)
	if err := s.SaveGraph(g); err != nil {
		t.Fatalf("first SaveGraph: %v", err)
	}
	if err := s.SaveGraph(g); err != nil {
		t.Fatalf("second SaveGraph: %v", err)
	}

	edges, err := s.AllEdges()
	if err != nil {
		t.Fatalf("AllEdges: %v", err)
	}
	if len(edges) != len(g.Edges) {
		t.Fatalf("expected %d edges after repeated save, got %d", len(g.Edges), len(edges))
	}
}

func TestEdgesFromAndTo(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	g := buildSampleGraph(t)
	if err := s.SaveGraph(g); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}

	fileID := location.FileID("a.js")
	out, err := s.EdgesFrom(fileID, nil)
	if err != nil {
		t.Fatalf("EdgesFrom: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one outgoing edge from file node")
	}
}
