// Package resolve implements the second build pass: rewriting each
// extracted call site's placeholder target into a stable entity ID, or
// classifying it as external or leaving it unresolved, using registries
// built across every file in the build.
//
// The registry-then-resolve shape mirrors a FunctionRegistry/Resolve
// approach used elsewhere in this codebase's call-graph heritage,
// generalized from a four-strategy order to a six-rule resolution order.
package resolve

import (
	"path"
	"strings"

	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
)

// FrameworkSets configures the receiver/method vocabulary used to tag a
// method call as framework plumbing. Overridable via internal/config;
// these are the built-in defaults.
type FrameworkSets struct {
	Receivers map[string]bool
	Methods   map[string]bool
}

// DefaultFrameworkSets returns the built-in default receiver and method
// vocabularies.
func DefaultFrameworkSets() FrameworkSets {
	return FrameworkSets{
		Receivers: toSet("res", "req", "app", "next", "router"),
		Methods:   toSet("json", "send", "status", "render", "redirect", "listen", "use", "get", "post", "put", "delete", "patch", "route"),
	}
}

func toSet(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// IsFramework reports whether a method call should be tagged as framework
// plumbing: receiver in the framework-receiver set, OR method in the
// framework-method set while receiver is in the narrower
// {res,req,app,router} set.
func (f FrameworkSets) IsFramework(receiver, method string) bool {
	if f.Receivers[receiver] {
		return true
	}
	if f.Methods[method] {
		switch receiver {
		case "res", "req", "app", "router":
			return true
		}
	}
	return false
}

// Resolution is the outcome of resolving one call site.
type Resolution struct {
	Site       ir.CallSite
	TargetID   string
	Resolved   bool
	External   bool
	ModuleName string
	IsFramework bool
}

// Registries are the three global indices built once across every file in
// the build.
type Registries struct {
	// Functions maps a name to every function ID sharing that name,
	// across both local and exported bindings.
	Functions map[string][]indexedID
	// Methods maps "Class.method" to matching method IDs.
	Methods map[string][]indexedID
	// MethodsByName is the fallback methodName -> [methodNode] index.
	MethodsByName map[string][]indexedID
	// Instances is the union of every file's instance->class map, keyed
	// "relPath\x00varName" for local lookups and "\x00varName" for the
	// cross-file fallback (rare; instance vars are usually local).
	Instances map[string]string

	files map[string]*ir.File
}

type indexedID struct {
	id      string
	relPath string
}

// Build constructs the global registries from every file's extraction
// result. Call order does not matter; insertion order within a name bucket
// follows the order files are passed in.
func Build(files []*ir.File) *Registries {
	r := &Registries{
		Functions:     map[string][]indexedID{},
		Methods:       map[string][]indexedID{},
		MethodsByName: map[string][]indexedID{},
		Instances:     map[string]string{},
		files:         map[string]*ir.File{},
	}
	for _, f := range files {
		r.files[f.RelPath] = f
		for _, fn := range f.Functions {
			if fn.Name == "" {
				continue
			}
			r.Functions[fn.Name] = append(r.Functions[fn.Name], indexedID{fn.ID, f.RelPath})
		}
		for exported, id := range f.Exports {
			r.Functions[exported] = append(r.Functions[exported], indexedID{id, f.RelPath})
		}
		for _, m := range f.Methods {
			qualified := m.ClassName + "." + m.MethodName
			r.Methods[qualified] = append(r.Methods[qualified], indexedID{m.ID, f.RelPath})
			r.MethodsByName[m.MethodName] = append(r.MethodsByName[m.MethodName], indexedID{m.ID, f.RelPath})
		}
		for varName, className := range f.InstanceMapping {
			r.Instances[f.RelPath+"\x00"+varName] = className
			if _, seen := r.Instances["\x00"+varName]; !seen {
				r.Instances["\x00"+varName] = className
			}
		}
	}
	return r
}

// File resolves every call site recorded in one file's IR against the
// global registries, returning one Resolution per call site in the same
// order.
func File(f *ir.File, reg *Registries, fw FrameworkSets) []Resolution {
	out := make([]Resolution, 0, len(f.Calls))
	for _, site := range f.Calls {
		out = append(out, resolveOne(f, site, reg, fw))
	}
	return out
}

func resolveOne(f *ir.File, site ir.CallSite, reg *Registries, fw FrameworkSets) Resolution {
	if site.Kind == ir.CallMethod {
		if res, ok := resolveKnownInstance(f, site, reg); ok {
			res.IsFramework = fw.IsFramework(site.Receiver, site.Method)
			return res
		}
		if res, ok := resolveThisMethod(f, site, reg); ok {
			res.IsFramework = fw.IsFramework(site.Receiver, site.Method)
			return res
		}
		if res, ok := resolveExternalMethod(f, site); ok {
			res.IsFramework = fw.IsFramework(site.Receiver, site.Method)
			return res
		}
	}
	if res, ok := resolveViaImport(f, site, reg); ok {
		if site.Kind == ir.CallMethod {
			res.IsFramework = fw.IsFramework(site.Receiver, site.Method)
		}
		return res
	}
	if res, ok := resolveLocalFunction(f, site, reg); ok {
		return res
	}
	if res, ok := resolveGlobalUnique(site, reg); ok {
		return res
	}
	res := Resolution{Site: site, TargetID: normalizeSlashes(site.To), Resolved: false}
	if site.Kind == ir.CallMethod {
		res.IsFramework = fw.IsFramework(site.Receiver, site.Method)
	}
	return res
}

// rule 1: method-call via known instance mapping (local, then global).
func resolveKnownInstance(f *ir.File, site ir.CallSite, reg *Registries) (Resolution, bool) {
	className, ok := f.InstanceMapping[site.Receiver]
	if !ok {
		className, ok = reg.Instances["\x00"+site.Receiver]
		if !ok {
			return Resolution{}, false
		}
	}
	candidates := reg.Methods[className+"."+site.Method]
	id, found := pickCandidate(candidates, f.RelPath)
	if !found {
		return Resolution{}, false
	}
	return Resolution{Site: site, TargetID: id, Resolved: true}, true
}

// rule 2: this-qualified method call resolved against the caller's
// enclosing class.
func resolveThisMethod(f *ir.File, site ir.CallSite, reg *Registries) (Resolution, bool) {
	if site.Receiver != "this" {
		return Resolution{}, false
	}
	className := enclosingClassOf(f, site.From)
	if className == "" {
		return Resolution{}, false
	}
	candidates := reg.Methods[className+"."+site.Method]
	id, found := pickCandidate(candidates, f.RelPath)
	if !found {
		return Resolution{}, false
	}
	return Resolution{Site: site, TargetID: id, Resolved: true}, true
}

func enclosingClassOf(f *ir.File, callerID string) string {
	prefix := location.ClassID(f.RelPath, "")
	if !strings.HasPrefix(callerID, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(callerID, prefix)
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		return rest[:dot]
	}
	return ""
}

// rule 3: external method call via an import binding whose source is
// external.
func resolveExternalMethod(f *ir.File, site ir.CallSite) (Resolution, bool) {
	imp, ok := f.Imports[site.Receiver]
	if !ok || !imp.External {
		return Resolution{}, false
	}
	return Resolution{
		Site:       site,
		TargetID:   location.PlaceholderID(f.RelPath, site.Method, site.Line),
		External:   true,
		ModuleName: imp.Source,
	}, true
}

// rule 4: resolution via import, relative or external, covering both plain
// calls (by callee name) and method calls (by receiver name).
func resolveViaImport(f *ir.File, site ir.CallSite, reg *Registries) (Resolution, bool) {
	name := site.CalleeName
	if site.Kind == ir.CallMethod {
		name = site.Receiver
	}
	imp, ok := f.Imports[name]
	if !ok {
		return Resolution{}, false
	}
	if imp.External {
		return Resolution{
			Site:       site,
			TargetID:   location.PlaceholderID(f.RelPath, site.CalleeName, site.Line),
			External:   true,
			ModuleName: imp.Source,
		}, true
	}

	targetFile := probeRelativeSource(reg, f.RelPath, imp.Source)
	if targetFile == nil {
		return Resolution{}, false
	}

	switch imp.Kind {
	case ir.ImportNamespace:
		return Resolution{}, false
	case ir.ImportDefault:
		if id, ok := targetFile.Exports["default"]; ok {
			return Resolution{Site: site, TargetID: id, Resolved: true}, true
		}
		for _, fn := range targetFile.Functions {
			if fn.Name == "default" {
				return Resolution{Site: site, TargetID: fn.ID, Resolved: true}, true
			}
		}
		return Resolution{}, false
	default: // named
		want := imp.ImportedName
		if id, ok := targetFile.Exports[want]; ok {
			return Resolution{Site: site, TargetID: id, Resolved: true}, true
		}
		for _, fn := range targetFile.Functions {
			if fn.Name == want {
				return Resolution{Site: site, TargetID: fn.ID, Resolved: true}, true
			}
		}
		return Resolution{}, false
	}
}

var relativeExtensions = []string{".ts", ".tsx", ".js", ".jsx"}
var indexSuffixes = []string{"/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

// probeRelativeSource resolves an import source relative to the importing
// file's directory against the build's file set, trying the source as-is,
// then each extension, then each index-file candidate.
func probeRelativeSource(reg *Registries, fromRelPath, source string) *ir.File {
	dir := path.Dir(fromRelPath)
	joined := path.Clean(path.Join(dir, source))

	if f, ok := reg.files[joined]; ok {
		return f
	}
	for _, ext := range relativeExtensions {
		if f, ok := reg.files[joined+ext]; ok {
			return f
		}
	}
	for _, suffix := range indexSuffixes {
		if f, ok := reg.files[joined+suffix]; ok {
			return f
		}
	}
	return nil
}

func pickCandidate(candidates []indexedID, preferRelPath string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if c.relPath == preferRelPath {
			return c.id, true
		}
	}
	return candidates[0].id, true
}

// rule 5: first function in this file whose name equals the callee name.
func resolveLocalFunction(f *ir.File, site ir.CallSite, reg *Registries) (Resolution, bool) {
	if site.Kind == ir.CallMethod {
		return Resolution{}, false
	}
	for _, fn := range f.Functions {
		if fn.Name == site.CalleeName {
			return Resolution{Site: site, TargetID: fn.ID, Resolved: true}, true
		}
	}
	return Resolution{}, false
}

// rule 6: exactly one function in the whole project bears this name.
func resolveGlobalUnique(site ir.CallSite, reg *Registries) (Resolution, bool) {
	if site.Kind == ir.CallMethod {
		return Resolution{}, false
	}
	candidates := reg.Functions[site.CalleeName]
	if len(candidates) == 0 {
		return Resolution{}, false
	}
	// An exported function is indexed under its local and its export name,
	// so the same ID can appear more than once in a bucket.
	for _, c := range candidates[1:] {
		if c.id != candidates[0].id {
			return Resolution{}, false
		}
	}
	return Resolution{Site: site, TargetID: candidates[0].id, Resolved: true}, true
}

func normalizeSlashes(id string) string {
	return path.Clean(strings.ReplaceAll(id, "\\", "/"))
}
