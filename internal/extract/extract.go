// Package extract implements the file extractor: one AST pass per file
// producing a per-file IR of functions, classes, methods, imports,
// exports, an instance→class map, and unresolved call sites.
//
// The node-kind vocabulary here (import_statement, class_heritage,
// method_definition, call_expression, member_expression, new_expression,
// named_imports, namespace_import...) is the standard tree-sitter
// JavaScript/TypeScript grammar surface; the walk shape — a structural pass
// that records entities and bindings, followed by a call-site pass that
// resolves against the maps the structural pass built — mirrors how every
// tree-sitter-based extractor in this family is written.
package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/parser"
)

// File extracts the per-file IR from a parsed AST.
func File(relPath string, source []byte, root *tree_sitter.Node) *ir.File {
	e := &extractor{
		relPath: relPath,
		source:  source,
		file:    ir.NewFile(relPath),
		byID:    map[string]bool{},
		byName:  map[string]string{},
	}
	e.walkStructure(root)
	e.resolveLocalExports()
	e.walkCalls(root)
	return e.file
}

type extractor struct {
	relPath string
	source  []byte
	file    *ir.File

	// byID guards the "record exactly once per AST node" policy.
	byID map[string]bool

	// byName indexes this file's top-level functions by name, for the
	// local-function lookup used by export resolution.
	byName map[string]string
}

func (e *extractor) text(n *tree_sitter.Node) string {
	return parser.NodeText(n, e.source)
}

func (e *extractor) span(n *tree_sitter.Node) location.Span {
	start := n.StartPosition()
	end := n.EndPosition()
	return location.Span{
		Start: location.Position{Line: int(start.Row), Col: int(start.Column)},
		End:   location.Position{Line: int(end.Row), Col: int(end.Column)},
	}
}

// --- structural pass: classes, methods, functions, imports, instance map ---

func (e *extractor) walkStructure(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node)
		return
	case "export_statement":
		e.extractExportStatement(node)
		return
	case "class_declaration", "abstract_class_declaration":
		e.extractClass(node, "")
		return
	case "function_declaration", "generator_function_declaration":
		e.extractFunction(node, node)
		return
	case "lexical_declaration", "variable_declaration":
		e.extractVariableDeclarations(node)
		return
	case "new_expression":
		e.extractInstanceMapping(node)
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		e.walkStructure(node.NamedChild(i))
	}
}

func (e *extractor) extractImport(node *tree_sitter.Node) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	src := stripQuotes(e.text(sourceNode))

	clause := firstChildOfKind(node, "import_clause")
	if clause == nil {
		// Side-effect-only import: `import "./polyfill"`. Nothing to bind.
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			// Default import: import Foo from './foo'
			e.bindImport(e.text(child), "default", src, ir.ImportDefault)
		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				if nameNode == nil {
					continue
				}
				imported := e.text(nameNode)
				local := imported
				if aliasNode != nil {
					local = e.text(aliasNode)
				}
				e.bindImport(local, imported, src, ir.ImportNamed)
			}
		case "namespace_import":
			// import * as ns from './mod'
			for j := uint(0); j < child.NamedChildCount(); j++ {
				gc := child.NamedChild(j)
				if gc.Kind() == "identifier" {
					e.bindImport(e.text(gc), "", src, ir.ImportNamespace)
				}
			}
		}
	}
}

func (e *extractor) bindImport(local, imported, src string, kind ir.ImportKind) {
	if local == "" {
		return
	}
	e.file.Imports[local] = ir.Import{
		LocalName:    local,
		ImportedName: imported,
		Source:       src,
		Kind:         kind,
		External:     isExternalSource(src),
	}
}

func isExternalSource(src string) bool {
	return !(strings.HasPrefix(src, ".") || strings.HasPrefix(src, "/"))
}

func (e *extractor) extractExportStatement(node *tree_sitter.Node) {
	// export default <expr>;
	if hasChildText(node, e.source, "default") {
		e.extractDefaultExport(node)
		return
	}

	// export { a, b as c } [from './mod'];
	if clause := firstChildOfKind(node, "export_clause"); clause != nil {
		for i := uint(0); i < clause.NamedChildCount(); i++ {
			spec := clause.NamedChild(i)
			if spec.Kind() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			aliasNode := spec.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			local := e.text(nameNode)
			exported := local
			if aliasNode != nil {
				exported = e.text(aliasNode)
			}
			e.file.Exports[exported] = ir.ExportLocalSentinel + local
		}
		return
	}

	// export function foo() {}, export class Foo {}, export const foo = ...
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "class_declaration", "abstract_class_declaration":
			e.extractClass(child, "")
		case "function_declaration", "generator_function_declaration":
			id := e.extractFunction(child, child)
			if name := e.callableName(id); name != "" {
				e.file.Exports[name] = id
			}
		case "lexical_declaration", "variable_declaration":
			e.extractVariableDeclarations(child)
			e.exportDeclaredNames(child)
		}
	}
}

func (e *extractor) extractDefaultExport(node *tree_sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "class_declaration", "abstract_class_declaration":
			id := e.extractClass(child, "")
			e.file.Exports["default"] = id
			return
		case "function_declaration", "generator_function_declaration":
			id := e.extractFunction(child, child)
			e.file.Exports["default"] = id
			return
		case "identifier":
			// export default foo; — resolved post-walk like a re-export.
			e.file.Exports["default"] = ir.ExportLocalSentinel + e.text(child)
			return
		}
	}
}

// exportDeclaredNames records a local-name sentinel in exports["name"] for
// each identifier bound by a `export const a = ..., b = ...` declaration
// that is not already exported; the post-walk export pass later resolves
// each sentinel against this file's named functions.
func (e *extractor) exportDeclaredNames(node *tree_sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		decl := node.NamedChild(i)
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		name := e.text(nameNode)
		if _, already := e.file.Exports[name]; !already {
			e.file.Exports[name] = ir.ExportLocalSentinel + name
		}
	}
}

func (e *extractor) extractClass(node *tree_sitter.Node, _ string) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := e.text(nameNode)
	id := location.ClassID(e.relPath, name)
	if !e.byID[id] {
		e.byID[id] = true
		e.file.Classes = append(e.file.Classes, ir.Class{ID: id, Name: name, Span: e.span(node)})
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return id
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		if member.Kind() == "method_definition" {
			e.extractMethod(member, name)
		}
	}
	return id
}

func (e *extractor) extractMethod(node *tree_sitter.Node, className string) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	methodName := e.text(nameNode)
	id := location.MethodID(e.relPath, className, methodName)
	if e.byID[id] {
		return id
	}
	e.byID[id] = true
	e.file.Methods = append(e.file.Methods, ir.Callable{
		ID:         id,
		Name:       methodName,
		Span:       e.span(node),
		IsMethod:   true,
		ClassName:  className,
		MethodName: methodName,
	})
	return id
}

// extractFunction records a function_declaration/generator_function_declaration.
// nameHolder is the node carrying the "name" field (usually node itself).
func (e *extractor) extractFunction(node, nameHolder *tree_sitter.Node) string {
	name := ""
	if nameNode := nameHolder.ChildByFieldName("name"); nameNode != nil {
		name = e.text(nameNode)
	}
	return e.recordFunction(node, name)
}

func (e *extractor) recordFunction(node *tree_sitter.Node, name string) string {
	span := e.span(node)
	id := location.FunctionID(e.relPath, span)
	if e.byID[id] {
		return id
	}
	e.byID[id] = true
	e.file.Functions = append(e.file.Functions, ir.Callable{ID: id, Name: name, Span: span})
	if name != "" {
		if _, exists := e.byName[name]; !exists {
			e.byName[name] = id
		}
	}
	return id
}

func (e *extractor) callableName(id string) string {
	for _, f := range e.file.Functions {
		if f.ID == id {
			return f.Name
		}
	}
	return ""
}

// extractVariableDeclarations handles `const f = () => {}`, `let g = function () {}`,
// `const x = require('y')`, `const v = new C()` (instance map), and plain
// value bindings (ignored here; the call-site pass revisits this subtree
// independently).
func (e *extractor) extractVariableDeclarations(node *tree_sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		decl := node.NamedChild(i)
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		valueNode := decl.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		name := e.text(nameNode)

		switch valueNode.Kind() {
		case "arrow_function", "function_expression":
			e.recordFunction(valueNode, name)
		case "call_expression":
			if mod := requireModule(valueNode, e.source); mod != "" {
				e.bindImport(name, "", mod, ir.ImportDefault)
			}
		case "new_expression":
			e.extractInstanceMapping(valueNode)
		}
	}
}

// extractInstanceMapping populates `variable -> class` from `const v = new C(...)`.
// new_expression itself doesn't carry the variable name; its parent
// variable_declarator does.
func (e *extractor) extractInstanceMapping(node *tree_sitter.Node) {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil {
		return
	}
	className := e.text(ctor)
	if className == "" {
		return
	}
	parent := node.Parent()
	if parent == nil || parent.Kind() != "variable_declarator" {
		return
	}
	nameNode := parent.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return
	}
	e.file.InstanceMapping[e.text(nameNode)] = className
}

// resolveLocalExports is an intermediate pass that replaces each
// __LOCAL__:<name> sentinel with the ID of the first function named
// <name> defined in this file; drop it if none exists.
func (e *extractor) resolveLocalExports() {
	for exported, target := range e.file.Exports {
		if !strings.HasPrefix(target, ir.ExportLocalSentinel) {
			continue
		}
		local := strings.TrimPrefix(target, ir.ExportLocalSentinel)
		if id, ok := e.byName[local]; ok {
			e.file.Exports[exported] = id
		} else {
			delete(e.file.Exports, exported)
		}
	}
}

// --- call-site pass ---

func (e *extractor) walkCalls(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	if node.Kind() == "call_expression" {
		e.extractCallSite(node)
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		e.walkCalls(node.NamedChild(i))
	}
}

func (e *extractor) extractCallSite(node *tree_sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}

	line := int(node.StartPosition().Row) + 1
	caller := e.findEnclosingCallable(node)

	switch fn.Kind() {
	case "identifier":
		name := e.text(fn)
		if name == "require" {
			return
		}
		e.addCall(caller, ir.CallSite{
			From:       caller,
			To:         location.PlaceholderID(e.relPath, name, line),
			CalleeName: name,
			Kind:       ir.CallPlain,
			Line:       line,
		})
	case "member_expression":
		objectNode := fn.ChildByFieldName("object")
		propertyNode := fn.ChildByFieldName("property")
		if objectNode == nil || propertyNode == nil {
			return
		}
		receiver := e.text(objectNode)
		method := e.text(propertyNode)
		e.addCall(caller, ir.CallSite{
			From:       caller,
			To:         location.PlaceholderID(e.relPath, method, line),
			CalleeName: method,
			Receiver:   receiver,
			Method:     method,
			Kind:       ir.CallMethod,
			Line:       line,
		})
	}
}

func (e *extractor) addCall(caller string, site ir.CallSite) {
	site.From = caller
	e.file.Calls = append(e.file.Calls, site)
}

// findEnclosingCallable walks up from a call site to the nearest enclosing
// function, arrow function, or method, lazily recording it if the
// structural pass somehow missed it (e.g. an
// arrow function nested inside an expression the structural walk does not
// special-case, such as a callback argument). Calls at module scope are
// attributed to the file via location.TopLevelCaller.
func (e *extractor) findEnclosingCallable(node *tree_sitter.Node) string {
	current := node.Parent()
	for current != nil {
		switch current.Kind() {
		case "method_definition":
			if className := e.findAncestorClassName(current); className != "" {
				if nameNode := current.ChildByFieldName("name"); nameNode != nil {
					return e.extractMethod(current, className)
				}
			}
		case "function_declaration", "generator_function_declaration":
			return e.recordFunction(current, e.nameOf(current))
		case "arrow_function", "function_expression":
			if name := e.declaredNameOf(current); name != "" {
				return e.recordFunction(current, name)
			}
			return e.recordFunction(current, "")
		}
		current = current.Parent()
	}
	return location.TopLevelCaller(e.relPath)
}

func (e *extractor) nameOf(node *tree_sitter.Node) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return e.text(n)
	}
	return ""
}

// declaredNameOf returns the variable name a function/arrow expression was
// assigned to, e.g. the "f" in `const f = () => {}`.
func (e *extractor) declaredNameOf(node *tree_sitter.Node) string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "variable_declarator" {
		return ""
	}
	nameNode := parent.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return ""
	}
	return e.text(nameNode)
}

func (e *extractor) findAncestorClassName(node *tree_sitter.Node) string {
	current := node.Parent()
	for current != nil {
		if current.Kind() == "class_declaration" || current.Kind() == "abstract_class_declaration" {
			if nameNode := current.ChildByFieldName("name"); nameNode != nil {
				return e.text(nameNode)
			}
		}
		current = current.Parent()
	}
	return ""
}

// --- small node helpers ---

func firstChildOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if c := node.NamedChild(i); c.Kind() == kind {
			return c
		}
	}
	return nil
}

func hasChildText(node *tree_sitter.Node, source []byte, text string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && parser.NodeText(child, source) == text {
			return true
		}
	}
	return false
}

func requireModule(callNode *tree_sitter.Node, source []byte) string {
	fn := callNode.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || parser.NodeText(fn, source) != "require" {
		return ""
	}
	args := callNode.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg.Kind() == "string" {
			return stripQuotes(parser.NodeText(arg, source))
		}
	}
	return ""
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
