// Package graph builds the final node/edge lists from resolved per-file IR,
// materializing in a fixed order: classes before methods before files
// before functions, then calls last, with ID-keyed node dedup and
// (from,to,kind)-keyed edge dedup.
//
// Call targets that match no declared entity (external and unresolved
// callees) are synthesized as placeholder nodes on demand.
package graph

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/graphkit-dev/callgraph/internal/graphcore"
	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/resolve"
)

// NodeKind and EdgeKind enumerate the vertex and arc kinds the graph uses.
type NodeKind string

const (
	NodeFile        NodeKind = "file"
	NodeClass       NodeKind = "class"
	NodeMethod      NodeKind = "method"
	NodeFunction    NodeKind = "function"
	NodeExternal    NodeKind = "external"
	NodePlaceholder NodeKind = "placeholder"
)

type EdgeKind string

const (
	EdgeContains   EdgeKind = "contains"
	EdgeCall       EdgeKind = "call"
	EdgeMethodCall EdgeKind = "method_call"
)

// Node is one graph vertex.
type Node struct {
	ID    string
	Type  NodeKind
	Label string
	Meta  map[string]any
}

// Edge is one directed arc, keyed by (From, To, Type).
type Edge struct {
	From, To string
	Type     EdgeKind
	Meta     map[string]any
}

// Graph is the deduplicated output of a build.
type Graph struct {
	Nodes map[string]Node
	Edges map[edgeKey]Edge
}

type edgeKey struct {
	from, to string
	kind     EdgeKind
}

func newGraph() *Graph {
	return &Graph{Nodes: map[string]Node{}, Edges: map[edgeKey]Edge{}}
}

// putNode inserts n, or no-ops if an identical node is already present
// under the same ID. Two distinct nodes sharing an ID is an identifier
// collision: a build-time invariant violation, not something to paper
// over by letting the later write win.
func (g *Graph) putNode(n Node) error {
	if existing, ok := g.Nodes[n.ID]; ok {
		if reflect.DeepEqual(existing, n) {
			return nil
		}
		return fmt.Errorf("%w: node id %q: existing=%+v incoming=%+v", graphcore.ErrIdentifierCollision, n.ID, existing, n)
	}
	g.Nodes[n.ID] = n
	return nil
}

// putEdge inserts e, or no-ops if an identical edge is already present
// under the same (from,to,type) key. Two distinct edges sharing a key is
// an identifier collision, same as putNode.
func (g *Graph) putEdge(e Edge) error {
	key := edgeKey{e.From, e.To, e.Type}
	if existing, ok := g.Edges[key]; ok {
		if reflect.DeepEqual(existing, e) {
			return nil
		}
		return fmt.Errorf("%w: edge %s->%s (%s): existing=%+v incoming=%+v", graphcore.ErrIdentifierCollision, e.From, e.To, e.Type, existing, e)
	}
	g.Edges[key] = e
	return nil
}

// SortedNodes and SortedEdges give a stable iteration order for persistence
// and for tests, since map iteration order is not deterministic.
func (g *Graph) SortedNodes() []Node {
	out := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Graph) SortedEdges() []Edge {
	out := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Build materializes the graph for a full set of extracted files and their
// resolved call sites, in a fixed materialization order. It returns
// graphcore.ErrIdentifierCollision if two distinct entities would produce
// the same node or edge ID within this build; the build aborts at the
// first such collision rather than letting one silently overwrite the
// other.
func Build(files []*ir.File, resolutions map[string][]resolve.Resolution) (*Graph, error) {
	g := newGraph()

	for _, f := range files {
		for _, c := range f.Classes {
			if err := g.putNode(Node{ID: c.ID, Type: NodeClass, Label: c.Name, Meta: map[string]any{
				"file": f.RelPath, "name": c.Name, "start": c.Span.Start.Line1(), "end": c.Span.End.Line1(),
			}}); err != nil {
				return nil, err
			}
			fileID := location.FileID(f.RelPath)
			if err := g.ensureFileNode(fileID, f.RelPath); err != nil {
				return nil, err
			}
			if err := g.putEdge(Edge{From: fileID, To: c.ID, Type: EdgeContains}); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range files {
		for _, m := range f.Methods {
			if err := g.putNode(Node{ID: m.ID, Type: NodeMethod, Label: m.ClassName + "." + m.MethodName, Meta: map[string]any{
				"file": f.RelPath, "className": m.ClassName, "methodName": m.MethodName,
				"start": m.Span.Start.Line1(), "end": m.Span.End.Line1(),
			}}); err != nil {
				return nil, err
			}
			classID := location.ClassID(f.RelPath, m.ClassName)
			if err := g.putEdge(Edge{From: classID, To: m.ID, Type: EdgeContains}); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range files {
		if err := g.ensureFileNode(location.FileID(f.RelPath), f.RelPath); err != nil {
			return nil, err
		}
	}

	for _, f := range files {
		for _, fn := range f.Functions {
			label := fn.Name
			meta := map[string]any{"file": f.RelPath, "start": fn.Span.Start.Line1(), "end": fn.Span.End.Line1()}
			if fn.Name != "" {
				meta["name"] = fn.Name
			} else {
				label = "(anonymous)"
			}
			if err := g.putNode(Node{ID: fn.ID, Type: NodeFunction, Label: label, Meta: meta}); err != nil {
				return nil, err
			}
			fileID := location.FileID(f.RelPath)
			if err := g.putEdge(Edge{From: fileID, To: fn.ID, Type: EdgeContains}); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range files {
		for _, res := range resolutions[f.RelPath] {
			if err := g.applyCall(f, res); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func (g *Graph) ensureFileNode(id, relPath string) error {
	if _, ok := g.Nodes[id]; ok {
		return nil
	}
	return g.putNode(Node{ID: id, Type: NodeFile, Label: relPath, Meta: map[string]any{"path": relPath}})
}

func (g *Graph) applyCall(f *ir.File, res resolve.Resolution) error {
	from := res.Site.From
	if location.IsTopLevelCaller(from) {
		from = location.FileID(location.TopLevelFile(from))
	}

	edgeType := EdgeCall
	meta := map[string]any{}
	if res.Site.Kind == ir.CallMethod {
		edgeType = EdgeMethodCall
		meta["receiver"] = res.Site.Receiver
		meta["method"] = res.Site.Method
	}
	if res.IsFramework {
		meta["isFramework"] = true
	}

	switch {
	case res.Resolved:
		if _, ok := g.Nodes[res.TargetID]; !ok {
			// Defensive: the resolver returned an ID with no matching node.
			if err := g.putNode(Node{ID: res.TargetID, Type: NodePlaceholder, Label: res.Site.CalleeName, Meta: map[string]any{
				"placeholderId": res.TargetID, "calleeName": res.Site.CalleeName, "file": f.RelPath, "line": res.Site.Line,
			}}); err != nil {
				return err
			}
		}
		meta["resolved"] = true
		return g.putEdge(Edge{From: from, To: res.TargetID, Type: edgeType, Meta: meta})

	case res.External:
		label := res.Site.CalleeName + "()"
		if res.Site.Receiver != "" && res.Site.Method != "" {
			label = res.Site.Receiver + "." + res.Site.Method + "()"
		}
		phMeta := map[string]any{
			"placeholderId": res.TargetID, "file": f.RelPath, "line": res.Site.Line,
			"calleeName": res.Site.CalleeName, "external": true, "moduleName": res.ModuleName,
		}
		if res.Site.Receiver != "" {
			phMeta["receiver"] = res.Site.Receiver
		}
		if res.Site.Method != "" {
			phMeta["method"] = res.Site.Method
		}
		if res.IsFramework {
			phMeta["isFramework"] = true
		}
		if err := g.putNode(Node{ID: res.TargetID, Type: NodePlaceholder, Label: label, Meta: phMeta}); err != nil {
			return err
		}
		if err := g.ensureExternalNode(res.ModuleName); err != nil {
			return err
		}
		meta["resolved"] = false
		meta["external"] = true
		meta["moduleName"] = res.ModuleName
		return g.putEdge(Edge{From: from, To: res.TargetID, Type: edgeType, Meta: meta})

	default:
		label := res.Site.CalleeName
		if label == "" {
			label = "(anonymous)"
		}
		if err := g.putNode(Node{ID: res.TargetID, Type: NodePlaceholder, Label: label + "()", Meta: map[string]any{
			"placeholderId": res.TargetID, "file": f.RelPath, "line": res.Site.Line, "calleeName": res.Site.CalleeName,
		}}); err != nil {
			return err
		}
		meta["resolved"] = false
		return g.putEdge(Edge{From: from, To: res.TargetID, Type: edgeType, Meta: meta})
	}
}

func (g *Graph) ensureExternalNode(moduleName string) error {
	id := location.ExternalID(moduleName)
	if _, ok := g.Nodes[id]; ok {
		return nil
	}
	return g.putNode(Node{ID: id, Type: NodeExternal, Label: moduleName, Meta: map[string]any{"moduleName": moduleName}})
}

// MetaJSON serializes a node or edge's metadata for storage, matching the
// store's meta_json column.
func MetaJSON(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal meta: %w", err)
	}
	return string(b), nil
}
