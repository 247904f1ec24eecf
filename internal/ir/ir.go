// Package ir defines the per-file intermediate representation produced by
// the file extractor and consumed by the resolver.
package ir

import "github.com/graphkit-dev/callgraph/internal/location"

// CallKind distinguishes a plain function call from a member-call
// expression.
type CallKind string

const (
	CallPlain  CallKind = "call"
	CallMethod CallKind = "method_call"
)

// ImportKind classifies how a name was bound by an import.
type ImportKind string

const (
	ImportNamed     ImportKind = "named"
	ImportDefault   ImportKind = "default"
	ImportNamespace ImportKind = "namespace"
)

// Import records one local binding introduced by an import statement or a
// CommonJS require() assignment.
type Import struct {
	LocalName    string
	ImportedName string // the name as exported by the source module; "default" for an ES default import, "" for namespace imports and require() bindings
	Source       string // raw module specifier, e.g. "./util" or "lodash"
	Kind         ImportKind
	External     bool // Source does not start with "." or "/"
}

// Callable is a recorded function, method, arrow, or object-method
// definition.
type Callable struct {
	ID         string
	Name       string // "" for anonymous function/arrow expressions
	Span       location.Span
	IsMethod   bool
	ClassName  string // set when IsMethod
	MethodName string // set when IsMethod
}

// Class is a recorded class declaration.
type Class struct {
	ID   string
	Name string
	Span location.Span
}

// ExportLocalSentinel prefixes an export value that re-exports a local name
// rather than naming an entity ID directly; resolved in the intermediate
// local-export pass.
const ExportLocalSentinel = "__LOCAL__:"

// CallSite is one unresolved call recorded during extraction.
type CallSite struct {
	From       string // caller entity ID, or a location.TopLevelCaller placeholder
	To         string // temporary placeholder ID, see location.PlaceholderID
	CalleeName string
	Receiver   string // set for method calls, e.g. "obj" in obj.m()
	Method     string // set for method calls, e.g. "m" in obj.m()
	Kind       CallKind
	Line       int // 1-based
}

// File is the complete per-file extraction result.
type File struct {
	RelPath string

	Functions []Callable
	Classes   []Class
	Methods   []Callable

	// Imports maps local name to the import record that bound it.
	Imports map[string]Import

	// Exports maps exported name to the entity ID it resolves to, or to
	// an ExportLocalSentinel pending Pass 1.5 resolution.
	Exports map[string]string

	// InstanceMapping maps a local variable name to the class name it was
	// constructed from via `new C(...)`.
	InstanceMapping map[string]string

	Calls []CallSite
}

// NewFile returns an empty File ready for extraction.
func NewFile(relPath string) *File {
	return &File{
		RelPath:         relPath,
		Imports:         map[string]Import{},
		Exports:         map[string]string{},
		InstanceMapping: map[string]string{},
	}
}
