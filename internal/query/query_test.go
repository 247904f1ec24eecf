package query

import (
	"testing"

	"github.com/graphkit-dev/callgraph/internal/graph"
	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/resolve"
	"github.com/graphkit-dev/callgraph/internal/store"
)

// buildChain produces a.js:a() -> b.js:b() -> a.js:a() (a 2-cycle) for
// traversal tests.
func buildChain(t *testing.T) *store.Store {
	t.Helper()
	a := ir.NewFile("a.js")
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})
	a.Functions = append(a.Functions, ir.Callable{ID: aID, Name: "a"})

	b := ir.NewFile("b.js")
	bID := location.FunctionID("b.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})
	b.Functions = append(b.Functions, ir.Callable{ID: bID, Name: "b"})

	resAtoB := resolve.Resolution{
		Site:     ir.CallSite{From: aID, CalleeName: "b", Kind: ir.CallPlain},
		TargetID: bID, Resolved: true,
	}
	resBtoA := resolve.Resolution{
		Site:     ir.CallSite{From: bID, CalleeName: "a", Kind: ir.CallPlain},
		TargetID: aID, Resolved: true,
	}

	g, err := graph.Build([]*ir.File{a, b}, map[string][]resolve.Resolution{
		"a.js": {resAtoB},
		"b.js": {resBtoA},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := s.SaveGraph(g); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetCallersAndCallees(t *testing.T) {
	s := buildChain(t)
	e := New(s)

	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})
	bID := location.FunctionID("b.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	callees, err := e.GetCallees(aID, Default())
	if err != nil {
		t.Fatalf("GetCallees: %v", err)
	}
	if len(callees) != 1 || callees[0].ID != bID {
		t.Fatalf("expected a->b, got %+v", callees)
	}

	callers, err := e.GetCallers(bID, Default())
	if err != nil {
		t.Fatalf("GetCallers: %v", err)
	}
	if len(callers) != 1 || callers[0].ID != aID {
		t.Fatalf("expected b callers=[a], got %+v", callers)
	}
}

func TestTransitiveCalleesFlatExcludesStartAndTerminates(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	out, err := e.TransitiveCalleesFlat(aID, Default())
	if err != nil {
		t.Fatalf("TransitiveCalleesFlat: %v", err)
	}
	for _, n := range out {
		if n.ID == aID {
			t.Fatalf("start node must not appear in flat transitive result")
		}
	}
	if len(out) == 0 {
		t.Fatal("expected at least one transitive callee")
	}
}

func TestTransitiveCalleesTreeCycleSafe(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	tree, err := e.TransitiveCalleesTree(aID, Default())
	if err != nil {
		t.Fatalf("TransitiveCalleesTree: %v", err)
	}
	if tree.NodeID != aID {
		t.Fatalf("expected root %s, got %s", aID, tree.NodeID)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child (b), got %d", len(tree.Children))
	}
	grandchild := tree.Children[0]
	if len(grandchild.Children) != 1 {
		t.Fatalf("expected b to have 1 child (back-edge to a as leaf), got %d", len(grandchild.Children))
	}
	leaf := grandchild.Children[0]
	if len(leaf.Children) != 0 {
		t.Fatalf("expected back-edge node to be a leaf, got children %+v", leaf.Children)
	}
}

func TestMaxDepthZeroIsNotUnset(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	opts := Default()
	opts.MaxDepth = 0

	flat, err := e.TransitiveCalleesFlat(aID, opts)
	if err != nil {
		t.Fatalf("TransitiveCalleesFlat: %v", err)
	}
	if len(flat) != 0 {
		t.Fatalf("expected empty result at max-depth=0, got %+v", flat)
	}

	tree, err := e.TransitiveCalleesTree(aID, opts)
	if err != nil {
		t.Fatalf("TransitiveCalleesTree: %v", err)
	}
	if tree.NodeID != aID || len(tree.Children) != 0 {
		t.Fatalf("expected root-only tree at max-depth=0, got %+v", tree)
	}
}

func TestExpandedFalseReturnsBareIDs(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})
	bID := location.FunctionID("b.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	opts := Default()
	opts.Expanded = false

	callees, err := e.GetCallees(aID, opts)
	if err != nil {
		t.Fatalf("GetCallees: %v", err)
	}
	if len(callees) != 1 || callees[0].ID != bID {
		t.Fatalf("expected a->b, got %+v", callees)
	}
	if callees[0].Label != "" || callees[0].File != "" || callees[0].Meta != nil {
		t.Fatalf("expected an unexpanded bare id+type node, got %+v", callees[0])
	}
	if callees[0].Type == "" {
		t.Fatal("expected type to still be populated for filtering even when unexpanded")
	}
}

func TestAllCallChainsSimplePaths(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})
	bID := location.FunctionID("b.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	paths, err := e.AllCallChains(aID, bID, Default())
	if err != nil {
		t.Fatalf("AllCallChains: %v", err)
	}
	if len(paths) != 1 || len(paths[0]) != 2 || paths[0][0] != aID || paths[0][1] != bID {
		t.Fatalf("unexpected paths: %+v", paths)
	}
}

func TestAllCallChainsSameStartAndTargetFindsCycleNotTrivialPath(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	aID := location.FunctionID("a.js", location.Span{Start: location.Position{Line: 0}, End: location.Position{Line: 0, Col: 1}})

	paths, err := e.AllCallChains(aID, aID, Default())
	if err != nil {
		t.Fatalf("AllCallChains: %v", err)
	}
	if len(paths) != 1 || len(paths[0]) != 3 {
		t.Fatalf("expected one 3-node cycle through b, got %+v", paths)
	}
	for _, p := range paths {
		if len(p) == 1 {
			t.Fatalf("zero-length path must not be returned when start == target: %+v", p)
		}
	}
}

func TestHotspots(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	hotspots, err := e.Hotspots(Default())
	if err != nil {
		t.Fatalf("Hotspots: %v", err)
	}
	if len(hotspots) == 0 {
		t.Fatal("expected at least one hotspot")
	}
	for i := 1; i < len(hotspots); i++ {
		if hotspots[i-1].Score < hotspots[i].Score {
			t.Fatalf("hotspots not sorted descending by score: %+v", hotspots)
		}
	}
}

func TestGetSemanticStats(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	stats, err := e.GetSemanticStats()
	if err != nil {
		t.Fatalf("GetSemanticStats: %v", err)
	}
	if stats.Functions != 2 {
		t.Errorf("expected 2 functions, got %d", stats.Functions)
	}
	if stats.Files != 2 {
		t.Errorf("expected 2 files, got %d", stats.Files)
	}
	if stats.CallEdges != 2 {
		t.Errorf("expected 2 call edges, got %d", stats.CallEdges)
	}
}

func TestGetSemanticStatsUnresolvedRatio(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	stats, err := e.GetSemanticStats()
	if err != nil {
		t.Fatalf("GetSemanticStats: %v", err)
	}
	if stats.UnresolvedCallRatio != 0 {
		t.Errorf("expected 0 unresolved ratio for a fully-resolved chain, got %f", stats.UnresolvedCallRatio)
	}
	if stats.Placeholders != 0 {
		t.Errorf("expected 0 placeholders, got %d", stats.Placeholders)
	}
}

func TestSearchNodesByLabel(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	results, err := e.SearchNodes("a.js", Default())
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one match for 'a.js'")
	}
}

func TestGetNodeMissingReturnsNil(t *testing.T) {
	s := buildChain(t)
	e := New(s)
	n, err := e.GetNode("file:missing.js")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != nil {
		t.Fatalf("expected nil for missing node, got %+v", n)
	}
}
