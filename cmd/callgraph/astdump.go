package main

import (
	"fmt"
	"os"
	"path/filepath"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/graphkit-dev/callgraph/internal/lang"
	"github.com/graphkit-dev/callgraph/internal/parser"
)

func runDumpAST(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: callgraph dump-ast <file>")
		return 1
	}
	path := args[0]
	l, ok := lang.LanguageForExtension(filepath.Ext(path))
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unsupported extension %q\n", filepath.Ext(path))
		return 1
	}
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	tree, err := parser.Parse(l, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse: %v\n", err)
		return 1
	}
	defer tree.Close()
	printNodeTree(tree.RootNode(), source, 0)
	return 0
}

func printNodeTree(node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := ""
	for i := 0; i < indent; i++ {
		prefix += "  "
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s %q\n", prefix, node.Kind(), text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printNodeTree(node.Child(i), source, indent+1)
	}
}
