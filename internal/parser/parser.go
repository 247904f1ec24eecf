// Package parser is a thin, pooled wrapper over the tree-sitter bindings for
// the JavaScript/TypeScript grammar family. It is the AST adapter named in
// the architecture overview: everything above this package only ever sees a
// walkable tree-sitter tree plus byte offsets into the source it was parsed
// from.
package parser

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/graphkit-dev/callgraph/internal/lang"
)

// dialect pairs one of the three ECMAScript-family dialects this module
// understands with the constructor for its tree-sitter grammar. Unlike a
// general-purpose AST adapter juggling an open-ended set of unrelated
// grammars, this is a closed, fixed family: JavaScript and TypeScript share
// almost everything, and TSX is carried separately only because the
// TypeScript grammar package exposes JSX support as its own entry point
// rather than a parse-time flag.
type dialect struct {
	language lang.Language
	grammar  func() *tree_sitter.Language
}

var dialects = []dialect{
	{lang.JavaScript, func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) }},
	{lang.TypeScript, func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) }},
	{lang.TSX, func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) }},
}

var (
	languagesOnce sync.Once
	languages     map[lang.Language]*tree_sitter.Language
	parserPools   map[lang.Language]*sync.Pool
)

func initLanguages() {
	languagesOnce.Do(func() {
		languages = make(map[lang.Language]*tree_sitter.Language, len(dialects))
		parserPools = make(map[lang.Language]*sync.Pool, len(dialects))
		for _, d := range dialects {
			tsLang := d.grammar()
			languages[d.language] = tsLang
			parserPools[d.language] = &sync.Pool{
				New: func() any {
					p := tree_sitter.NewParser()
					if err := p.SetLanguage(tsLang); err != nil {
						panic(fmt.Sprintf("set language: %v", err))
					}
					return p
				},
			}
		}
	})
}

// GetLanguage returns the tree-sitter Language for a lang.Language.
func GetLanguage(l lang.Language) (*tree_sitter.Language, error) {
	initLanguages()
	tsLang, ok := languages[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	return tsLang, nil
}

// Parse parses source code into a tree-sitter AST Tree.
// The caller must call tree.Close() when done.
// Parsers are pooled per language via sync.Pool to avoid per-file allocation.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	initLanguages()

	pool, ok := parserPools[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}

	p, _ := pool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, fmt.Errorf("failed to get parser for language %s", l)
	}
	tree := p.Parse(source, nil)
	pool.Put(p)

	if tree == nil {
		return nil, fmt.Errorf("parse failed for language %s", l)
	}

	return tree, nil
}

// WalkFunc is called for each node during AST traversal.
// Return false to skip children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk traverses the AST in depth-first order.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			Walk(child, fn)
		}
	}
}

// NodeText returns the text content of a node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
