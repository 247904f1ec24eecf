// Package query implements the read-only query operations over a
// persisted store.Store: neighbor expansion, bounded BFS/DFS traversal,
// simple-path enumeration, hotspot ranking, and fuzzy search.
//
// The BFS/DFS/simple-path shapes are grounded on WhiteBite's
// callgraph_builder.go (GetTransitiveDependencies, GetDependencyPath,
// GetImpact); the fuzzy search is a four-stage union over this module's
// own schema and node/edge kinds.
package query

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/graphkit-dev/callgraph/internal/store"
)

var callEdgeTypes = []string{"call", "method_call"}

const (
	defaultFlatMaxDepth = 200
	defaultTreeMaxDepth = 50
	defaultPathDepth    = 20
	defaultMaxPaths     = 1000
	searchCap           = 100
	defaultHotspotsTop  = 20
)

// Options is the common set of query parameters shared across operations.
//
// MaxDepth, DepthLimit and MaxPaths default to -1 ("use the operation's
// built-in default") rather than 0, so that an explicit 0 is distinguishable
// from an unset field: MaxDepth: 0 means "don't traverse at all", not "use
// the default depth". Callers should construct Options via Default() and
// override only the fields they care about.
type Options struct {
	// Expanded selects whether matched IDs are resolved into full
	// ExpandedNode records (label, file, span, metadata) or returned as bare
	// id+type pairs. Matched nodes are looked up and type-filtered either
	// way; false skips decoding their metadata, for callers that only need
	// the ID set (e.g. to feed into another query).
	Expanded     bool
	IncludeTypes []string
	ExcludeTypes []string
	MaxDepth     int
	DepthLimit   int
	MaxPaths     int
	Top          int
}

// Default returns an Options with expanded=true and the depth/path bounds
// left unset (-1), so each operation falls back to its own default; callers
// override what they need.
func Default() Options {
	return Options{Expanded: true, MaxDepth: -1, DepthLimit: -1, MaxPaths: -1}
}

// ExpandedNode is the fully-hydrated node shape returned when
// Options.Expanded is true.
type ExpandedNode struct {
	ID    string
	Type  string
	Label string
	File  string
	Name  string
	Start int
	End   int
	Meta  map[string]any
}

// Engine answers read-only queries against one persisted graph.
type Engine struct {
	store *store.Store
}

// New wraps a store for querying.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

func expand(n *store.NodeRow) ExpandedNode {
	meta := map[string]any{}
	_ = json.Unmarshal([]byte(n.Meta), &meta)
	e := ExpandedNode{ID: n.ID, Type: n.Type, Label: n.Label, Meta: meta}
	if file, ok := meta["file"].(string); ok {
		e.File = file
	} else if path, ok := meta["path"].(string); ok {
		e.File = path
	}
	if name, ok := meta["name"].(string); ok {
		e.Name = name
	}
	if start, ok := meta["start"].(float64); ok {
		e.Start = int(start)
	}
	if end, ok := meta["end"].(float64); ok {
		e.End = int(end)
	}
	return e
}

func passesFilter(nodeType string, opts Options) bool {
	for _, t := range opts.ExcludeTypes {
		if t == nodeType {
			return false
		}
	}
	if len(opts.IncludeTypes) == 0 {
		return true
	}
	for _, t := range opts.IncludeTypes {
		if t == nodeType {
			return true
		}
	}
	return false
}

// GetNode returns the node with id, or nil if none exists.
func (e *Engine) GetNode(id string) (*ExpandedNode, error) {
	n, err := e.store.GetNode(id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	expanded := expand(n)
	return &expanded, nil
}

// GetCallers returns the direct callers of id across call/method_call edges.
func (e *Engine) GetCallers(id string, opts Options) ([]ExpandedNode, error) {
	edges, err := e.store.EdgesTo(id, callEdgeTypes)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.FromID)
	}
	return e.expandFiltered(ids, opts)
}

// GetCallees returns the direct callees of id across call/method_call edges.
func (e *Engine) GetCallees(id string, opts Options) ([]ExpandedNode, error) {
	edges, err := e.store.EdgesFrom(id, callEdgeTypes)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.ToID)
	}
	return e.expandFiltered(ids, opts)
}

// GetFunctionsInFile returns the outgoing contains-targets of a file or
// class node, also used for "methods of a class" / "classes in a file" by
// setting opts.IncludeTypes.
func (e *Engine) GetFunctionsInFile(id string, opts Options) ([]ExpandedNode, error) {
	edges, err := e.store.EdgesFrom(id, []string{"contains"})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.ToID)
	}
	return e.expandFiltered(ids, opts)
}

func (e *Engine) expandFiltered(ids []string, opts Options) ([]ExpandedNode, error) {
	nodes, err := e.store.GetNodes(ids)
	if err != nil {
		return nil, err
	}
	var out []ExpandedNode
	for _, id := range ids {
		n, ok := nodes[id]
		if !ok || !passesFilter(n.Type, opts) {
			continue
		}
		if !opts.Expanded {
			out = append(out, ExpandedNode{ID: n.ID, Type: n.Type})
			continue
		}
		out = append(out, expand(n))
	}
	return out, nil
}

// TransitiveCalleesFlat performs a BFS over outgoing call/method_call
// edges, excluding the start node from the result.
func (e *Engine) TransitiveCalleesFlat(id string, opts Options) ([]ExpandedNode, error) {
	return e.bfs(id, opts, e.store.EdgesFrom, func(edge *store.EdgeRow) string { return edge.ToID })
}

// TransitiveCallersFlat performs a BFS over incoming call/method_call edges.
func (e *Engine) TransitiveCallersFlat(id string, opts Options) ([]ExpandedNode, error) {
	return e.bfs(id, opts, e.store.EdgesTo, func(edge *store.EdgeRow) string { return edge.FromID })
}

type edgesFunc func(id string, types []string) ([]*store.EdgeRow, error)

func (e *Engine) bfs(start string, opts Options, edgesOf edgesFunc, other func(*store.EdgeRow) string) ([]ExpandedNode, error) {
	maxDepth := opts.MaxDepth
	if maxDepth < 0 {
		maxDepth = defaultFlatMaxDepth
	}
	visited := map[string]bool{start: true}
	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{start, 0}}
	var order []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		edges, err := edgesOf(cur.id, callEdgeTypes)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			next := other(edge)
			if visited[next] {
				continue
			}
			visited[next] = true
			order = append(order, next)
			queue = append(queue, queued{next, cur.depth + 1})
		}
	}
	return e.expandFiltered(order, opts)
}

// TreeNode is a rooted DFS traversal tree.
type TreeNode struct {
	NodeID   string
	Node     *ExpandedNode
	Children []*TreeNode
}

// TransitiveCalleesTree performs a cycle-safe DFS over outgoing edges,
// producing a rooted tree; a previously-visited node reappears as a leaf.
func (e *Engine) TransitiveCalleesTree(id string, opts Options) (*TreeNode, error) {
	return e.dfsTree(id, opts, e.store.EdgesFrom, func(edge *store.EdgeRow) string { return edge.ToID })
}

// TransitiveCallersTree is the reverse-direction counterpart.
func (e *Engine) TransitiveCallersTree(id string, opts Options) (*TreeNode, error) {
	return e.dfsTree(id, opts, e.store.EdgesTo, func(edge *store.EdgeRow) string { return edge.FromID })
}

func (e *Engine) dfsTree(start string, opts Options, edgesOf edgesFunc, other func(*store.EdgeRow) string) (*TreeNode, error) {
	maxDepth := opts.MaxDepth
	if maxDepth < 0 {
		maxDepth = defaultTreeMaxDepth
	}
	visited := map[string]bool{}
	root, err := e.buildTreeNode(start, 0, maxDepth, visited, opts, edgesOf, other)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func (e *Engine) buildTreeNode(id string, depth, maxDepth int, visited map[string]bool, opts Options, edgesOf edgesFunc, other func(*store.EdgeRow) string) (*TreeNode, error) {
	node := &TreeNode{NodeID: id}
	if opts.Expanded {
		if n, err := e.GetNode(id); err == nil {
			node.Node = n
		}
	}
	if visited[id] || depth >= maxDepth {
		return node, nil
	}
	visited[id] = true

	edges, err := edgesOf(id, callEdgeTypes)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		childID := other(edge)
		childRow, err := e.store.GetNode(childID)
		if err != nil {
			return nil, err
		}
		if childRow != nil && !passesFilter(childRow.Type, opts) {
			continue
		}
		child, err := e.buildTreeNode(childID, depth+1, maxDepth, visited, opts, edgesOf, other)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// AllCallChains enumerates simple paths (no repeated interior node) from
// start to target, depth-first, capped at opts.MaxPaths, in
// edge-insertion order. Every returned path has at least one edge, so
// when start == target this finds cycles back to start rather than a
// trivial zero-length path.
func (e *Engine) AllCallChains(start, target string, opts Options) ([][]string, error) {
	depthLimit := opts.DepthLimit
	if depthLimit < 0 {
		depthLimit = defaultPathDepth
	}
	maxPaths := opts.MaxPaths
	if maxPaths < 0 {
		maxPaths = defaultMaxPaths
	}

	// A chain always requires at least one edge: when start == target,
	// this finds cycles back to start rather than returning the trivial
	// zero-length path immediately.
	var paths [][]string
	visited := map[string]bool{start: true}
	path := []string{start}

	var walk func(node string) error
	walk = func(node string) error {
		if len(paths) >= maxPaths {
			return nil
		}
		if len(path)-1 >= depthLimit {
			return nil
		}
		edges, err := e.store.EdgesFrom(node, callEdgeTypes)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			if len(paths) >= maxPaths {
				return nil
			}
			if edge.ToID == target {
				cp := make([]string, len(path)+1)
				copy(cp, path)
				cp[len(path)] = edge.ToID
				paths = append(paths, cp)
				continue
			}
			if visited[edge.ToID] {
				continue
			}
			visited[edge.ToID] = true
			path = append(path, edge.ToID)
			if err := walk(edge.ToID); err != nil {
				return err
			}
			path = path[:len(path)-1]
			visited[edge.ToID] = false
		}
		return nil
	}
	if err := walk(start); err != nil {
		return nil, err
	}
	return paths, nil
}

// Hotspot is one ranked entry from Hotspots.
type Hotspot struct {
	Node  ExpandedNode
	In    int
	Out   int
	Score int
}

// Hotspots ranks nodes by fan-in * fan-out.
func (e *Engine) Hotspots(opts Options) ([]Hotspot, error) {
	nodes, err := e.store.AllNodes(opts.IncludeTypes)
	if err != nil {
		return nil, err
	}
	top := opts.Top
	if top == 0 {
		top = defaultHotspotsTop
	}

	var hotspots []Hotspot
	for _, n := range nodes {
		if !passesFilter(n.Type, opts) {
			continue
		}
		inEdges, err := e.store.EdgesTo(n.ID, callEdgeTypes)
		if err != nil {
			return nil, err
		}
		outEdges, err := e.store.EdgesFrom(n.ID, callEdgeTypes)
		if err != nil {
			return nil, err
		}
		in, out := len(inEdges), len(outEdges)
		hotspots = append(hotspots, Hotspot{Node: expand(n), In: in, Out: out, Score: in * out})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Score != hotspots[j].Score {
			return hotspots[i].Score > hotspots[j].Score
		}
		return hotspots[i].Node.ID < hotspots[j].Node.ID
	})
	if len(hotspots) > top {
		hotspots = hotspots[:top]
	}
	return hotspots, nil
}

// SemanticStats aggregates counts across the whole graph.
type SemanticStats struct {
	TotalNodes      int
	TotalEdges      int
	Classes         int
	Methods         int
	Functions       int
	Files           int
	MethodCallEdges int
	CallEdges       int
	FrameworkEdges  int

	// ExternalModules and Placeholders are additive node-type counts beyond
	// the counts above. UnresolvedCallRatio is the fraction
	// of call edges that point at a placeholder rather than a real or
	// external node.
	ExternalModules     int
	Placeholders        int
	UnresolvedCallRatio float64
}

// GetSemanticStats computes the aggregate counts for the whole graph.
func (e *Engine) GetSemanticStats() (*SemanticStats, error) {
	nodes, err := e.store.AllNodes(nil)
	if err != nil {
		return nil, err
	}
	edges, err := e.store.AllEdges()
	if err != nil {
		return nil, err
	}
	edgesByType, err := e.store.CountEdgesByType()
	if err != nil {
		return nil, err
	}
	framework, err := e.store.CountFrameworkEdges()
	if err != nil {
		return nil, err
	}

	stats := &SemanticStats{
		TotalNodes:      len(nodes),
		TotalEdges:      len(edges),
		MethodCallEdges: edgesByType["method_call"],
		CallEdges:       edgesByType["call"],
		FrameworkEdges:  framework,
	}
	nodeType := make(map[string]string, len(nodes))
	for _, n := range nodes {
		nodeType[n.ID] = n.Type
		switch n.Type {
		case "class":
			stats.Classes++
		case "method":
			stats.Methods++
		case "function":
			stats.Functions++
		case "file":
			stats.Files++
		case "external":
			stats.ExternalModules++
		case "placeholder":
			stats.Placeholders++
		}
	}

	var callEdges, unresolved int
	for _, ed := range edges {
		if ed.Type != "call" && ed.Type != "method_call" {
			continue
		}
		callEdges++
		if nodeType[ed.ToID] == "placeholder" {
			unresolved++
		}
	}
	if callEdges > 0 {
		stats.UnresolvedCallRatio = float64(unresolved) / float64(callEdges)
	}

	return stats, nil
}

// SearchNodes implements a 4-stage union search, first-match-wins across
// stages, truncated to searchCap results.
func (e *Engine) SearchNodes(q string, opts Options) ([]ExpandedNode, error) {
	if q == "" {
		return nil, nil
	}
	lowerQ := strings.ToLower(q)
	seen := map[string]bool{}
	var out []ExpandedNode

	add := func(n *store.NodeRow) {
		if n == nil || seen[n.ID] || !passesFilter(n.Type, opts) {
			return
		}
		seen[n.ID] = true
		out = append(out, expand(n))
	}

	all, err := e.store.AllNodes(nil)
	if err != nil {
		return nil, err
	}

	// Stage 1: id LIKE %q% OR label LIKE %q%.
	for _, n := range all {
		if len(out) >= searchCap {
			return out, nil
		}
		if strings.Contains(strings.ToLower(n.ID), lowerQ) || strings.Contains(strings.ToLower(n.Label), lowerQ) {
			add(n)
		}
	}

	// Stage 2: substring match over meta.moduleName and meta.name.
	for _, n := range all {
		if len(out) >= searchCap {
			return out, nil
		}
		if seen[n.ID] {
			continue
		}
		meta := map[string]any{}
		_ = json.Unmarshal([]byte(n.Meta), &meta)
		if matchesMeta(meta, "moduleName", lowerQ) || matchesMeta(meta, "name", lowerQ) {
			add(n)
		}
	}

	// Stage 3: edge-metadata alias match (receiver/moduleName) yielding the
	// edge's target nodes.
	edges, err := e.store.AllEdges()
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		if len(out) >= searchCap {
			return out, nil
		}
		meta := map[string]any{}
		_ = json.Unmarshal([]byte(edge.Meta), &meta)
		if matchesMeta(meta, "receiver", lowerQ) || matchesMeta(meta, "moduleName", lowerQ) {
			if seen[edge.ToID] {
				continue
			}
			target, err := e.store.GetNode(edge.ToID)
			if err != nil {
				return nil, err
			}
			add(target)
		}
	}

	return out, nil
}

func matchesMeta(meta map[string]any, key, lowerQ string) bool {
	v, ok := meta[key].(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v), lowerQ)
}
