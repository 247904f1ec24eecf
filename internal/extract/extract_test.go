package extract

import (
	"testing"

	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/lang"
	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/parser"
)

func parseFile(t *testing.T, l lang.Language, source string) *ir.File {
	t.Helper()
	tree, err := parser.Parse(l, []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()
	return File("a.js", []byte(source), tree.RootNode())
}

func TestExtractFunctionAndCall(t *testing.T) {
	src := `
function helper() {}
function main() {
	helper();
}
`
	f := parseFile(t, lang.JavaScript, src)
	if len(f.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d: %+v", len(f.Functions), f.Functions)
	}
	if len(f.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d: %+v", len(f.Calls), f.Calls)
	}
	call := f.Calls[0]
	if call.CalleeName != "helper" {
		t.Errorf("CalleeName = %q, want helper", call.CalleeName)
	}
	if !location.IsPlaceholderID(call.To) {
		t.Errorf("expected placeholder callee ID, got %q", call.To)
	}
}

func TestExtractClassAndMethodCall(t *testing.T) {
	src := `
class Service {
	create() {
		this.validate();
	}
	validate() {}
}
`
	f := parseFile(t, lang.JavaScript, src)
	if len(f.Classes) != 1 || f.Classes[0].Name != "Service" {
		t.Fatalf("unexpected classes: %+v", f.Classes)
	}
	if len(f.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d: %+v", len(f.Methods), f.Methods)
	}
	var found bool
	for _, c := range f.Calls {
		if c.Method == "validate" && c.Receiver == "this" {
			found = true
			if c.From != location.MethodID("a.js", "Service", "create") {
				t.Errorf("unexpected caller attribution: %q", c.From)
			}
		}
	}
	if !found {
		t.Fatalf("expected a this.validate() call site, got %+v", f.Calls)
	}
}

func TestExtractImports(t *testing.T) {
	src := `
import { helper } from './util';
import Default from './thing';
import * as ns from 'lodash';
`
	f := parseFile(t, lang.JavaScript, src)
	if imp, ok := f.Imports["helper"]; !ok || imp.Source != "./util" || imp.External {
		t.Errorf("unexpected helper import: %+v", imp)
	}
	if imp, ok := f.Imports["Default"]; !ok || imp.Kind != ir.ImportDefault {
		t.Errorf("unexpected default import: %+v", imp)
	}
	if imp, ok := f.Imports["ns"]; !ok || !imp.External || imp.Kind != ir.ImportNamespace {
		t.Errorf("unexpected namespace import: %+v", imp)
	}
}

func TestExtractExportsAndInstanceMapping(t *testing.T) {
	src := `
export function build() {}
const svc = new Service();
export { build as make };
`
	f := parseFile(t, lang.JavaScript, src)
	if _, ok := f.Exports["build"]; !ok {
		t.Errorf("expected export 'build', got %+v", f.Exports)
	}
	if id, ok := f.Exports["make"]; !ok || id != f.Exports["build"] {
		t.Errorf("expected re-export 'make' to resolve to same ID as 'build', got %+v", f.Exports)
	}
	if cls, ok := f.InstanceMapping["svc"]; !ok || cls != "Service" {
		t.Errorf("expected instance mapping svc->Service, got %+v", f.InstanceMapping)
	}
}

func TestExtractTopLevelCall(t *testing.T) {
	src := `bootstrap();`
	f := parseFile(t, lang.JavaScript, src)
	if len(f.Calls) != 1 {
		t.Fatalf("expected 1 call, got %+v", f.Calls)
	}
	if !location.IsTopLevelCaller(f.Calls[0].From) {
		t.Errorf("expected top-level caller, got %q", f.Calls[0].From)
	}
}
