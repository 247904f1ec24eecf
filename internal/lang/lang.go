// Package lang classifies tree-sitter node kinds for the ECMAScript-family
// languages the analyzer understands: JavaScript, TypeScript, and TSX.
package lang

// Language identifies one of the supported source dialects.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// AllLanguages returns every dialect the analyzer can parse.
func AllLanguages() []Language {
	return []Language{JavaScript, TypeScript, TSX}
}

// LanguageSpec names the tree-sitter node kinds that carry each kind of
// entity for one dialect. All three dialects share the same grammar family,
// so the specs differ mainly in which class-like and function-like
// declarations the dialect adds on top of plain JavaScript.
type LanguageSpec struct {
	Language Language

	// FileExtensions this dialect is registered under, including the dot.
	FileExtensions []string

	// FunctionNodeTypes are node kinds that introduce a callable: function
	// declarations/expressions, arrow functions, method definitions.
	FunctionNodeTypes []string

	// ClassNodeTypes are node kinds that introduce a class-shaped entity.
	// TypeScript and TSX additionally list abstract classes and interfaces.
	ClassNodeTypes []string

	// ModuleNodeTypes is the root node kind for a parsed file.
	ModuleNodeTypes []string

	// CallNodeTypes are node kinds representing a call expression.
	CallNodeTypes []string

	// ImportNodeTypes are node kinds that can introduce a binding the
	// extractor must track as an import (import statements, require()
	// assigned via a lexical declaration, or re-exports).
	ImportNodeTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".ts").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(l Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == l {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language registered for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}
