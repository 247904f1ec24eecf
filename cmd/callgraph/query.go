package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/graphkit-dev/callgraph/internal/query"
	"github.com/graphkit-dev/callgraph/internal/store"
)

func runQuery(args []string) int {
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	dbPath := fs.String("db", "", "database file to query (required)")
	asJSON := fs.Bool("json", false, "print raw JSON instead of a summary")
	top := fs.Int("top", 0, "result cap, where the operation supports one (0 = operation default)")
	maxDepth := fs.Int("max-depth", -1, "maximum traversal depth for transitive-callees/callers and tree-callees/callers (-1 = operation default, 0 = don't traverse)")
	depthLimit := fs.Int("depth-limit", -1, "maximum chain length for chains (-1 = operation default)")
	maxPaths := fs.Int("max-paths", -1, "maximum number of chains to return for chains (-1 = operation default)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: callgraph query <operation> [args...] --db <file> [--json]")
		return 1
	}
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "error: --db is required")
		return 1
	}

	s, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open store: %v\n", err)
		return 1
	}
	defer s.Close()

	eng := query.New(s)
	opts := query.Default()
	if *top > 0 {
		opts.Top = *top
	}
	if *maxDepth >= 0 {
		opts.MaxDepth = *maxDepth
	}
	if *depthLimit >= 0 {
		opts.DepthLimit = *depthLimit
	}
	if *maxPaths >= 0 {
		opts.MaxPaths = *maxPaths
	}

	op := fs.Arg(0)
	rest := fs.Args()[1:]

	result, err := dispatchQuery(eng, op, rest, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *asJSON {
		printJSON(result)
		return 0
	}
	printQueryResult(op, result)
	return 0
}

func dispatchQuery(eng *query.Engine, op string, args []string, opts query.Options) (any, error) {
	switch op {
	case "node":
		return requireOne(args, "query node <id>", func(id string) (any, error) { return eng.GetNode(id) })
	case "callers":
		return requireOne(args, "query callers <id>", func(id string) (any, error) { return eng.GetCallers(id, opts) })
	case "callees":
		return requireOne(args, "query callees <id>", func(id string) (any, error) { return eng.GetCallees(id, opts) })
	case "functions-in-file":
		return requireOne(args, "query functions-in-file <file-id>", func(id string) (any, error) { return eng.GetFunctionsInFile(id, opts) })
	case "transitive-callees":
		return requireOne(args, "query transitive-callees <id>", func(id string) (any, error) { return eng.TransitiveCalleesFlat(id, opts) })
	case "transitive-callers":
		return requireOne(args, "query transitive-callers <id>", func(id string) (any, error) { return eng.TransitiveCallersFlat(id, opts) })
	case "tree-callees":
		return requireOne(args, "query tree-callees <id>", func(id string) (any, error) { return eng.TransitiveCalleesTree(id, opts) })
	case "tree-callers":
		return requireOne(args, "query tree-callers <id>", func(id string) (any, error) { return eng.TransitiveCallersTree(id, opts) })
	case "chains":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: query chains <start-id> <target-id>")
		}
		return eng.AllCallChains(args[0], args[1], opts)
	case "hotspots":
		return eng.Hotspots(opts)
	case "stats":
		return eng.GetSemanticStats()
	case "search":
		return requireOne(args, "query search <text>", func(q string) (any, error) { return eng.SearchNodes(q, opts) })
	default:
		return nil, fmt.Errorf("unknown query operation %q", op)
	}
}

func requireOne(args []string, usage string, fn func(string) (any, error)) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	return fn(args[0])
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: marshal: %v\n", err)
		return
	}
	fmt.Println(string(b))
}

func printQueryResult(op string, result any) {
	switch v := result.(type) {
	case *query.ExpandedNode:
		if v == nil {
			fmt.Println("not found")
			return
		}
		printNode(*v)
	case []query.ExpandedNode:
		fmt.Printf("%d result(s)\n", len(v))
		for _, n := range v {
			printNode(n)
		}
	case *query.TreeNode:
		printTree(v, 0)
	case [][]string:
		fmt.Printf("%d chain(s)\n", len(v))
		for _, chain := range v {
			fmt.Println("  " + joinArrow(chain))
		}
	case []query.Hotspot:
		for _, h := range v {
			fmt.Printf("  %-6d in=%-4d out=%-4d %s\n", h.Score, h.In, h.Out, h.Node.Label)
		}
	case *query.SemanticStats:
		fmt.Printf("nodes=%d edges=%d files=%d functions=%d methods=%d classes=%d\n",
			v.TotalNodes, v.TotalEdges, v.Files, v.Functions, v.Methods, v.Classes)
		fmt.Printf("call edges=%d method-call edges=%d framework edges=%d\n",
			v.CallEdges, v.MethodCallEdges, v.FrameworkEdges)
		fmt.Printf("external modules=%d placeholders=%d unresolved call ratio=%.2f\n",
			v.ExternalModules, v.Placeholders, v.UnresolvedCallRatio)
	default:
		printJSON(result)
	}
}

func printNode(n query.ExpandedNode) {
	if n.File != "" {
		fmt.Printf("  [%s] %-30s %s:%d\n", n.Type, n.Label, n.File, n.Start)
		return
	}
	fmt.Printf("  [%s] %s\n", n.Type, n.Label)
}

func printTree(t *query.TreeNode, depth int) {
	if t == nil {
		return
	}
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += "  "
	}
	if t.Node != nil {
		fmt.Printf("%s%s\n", prefix, t.Node.Label)
	} else {
		fmt.Printf("%s%s\n", prefix, t.NodeID)
	}
	for _, c := range t.Children {
		printTree(c, depth+1)
	}
}

func joinArrow(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}
