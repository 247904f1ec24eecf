package resolve

import (
	"testing"

	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
)

func TestResolveKnownInstance(t *testing.T) {
	svc := ir.NewFile("service.js")
	svc.Methods = append(svc.Methods, ir.Callable{
		ID: location.MethodID("service.js", "Service", "run"), ClassName: "Service", MethodName: "run", IsMethod: true,
	})

	caller := ir.NewFile("main.js")
	caller.InstanceMapping["svc"] = "Service"
	caller.Calls = append(caller.Calls, ir.CallSite{
		From: location.TopLevelCaller("main.js"), Receiver: "svc", Method: "run", Kind: ir.CallMethod, Line: 3,
		To: location.PlaceholderID("main.js", "run", 3),
	})

	reg := Build([]*ir.File{svc, caller})
	results := File(caller, reg, DefaultFrameworkSets())
	if len(results) != 1 || !results[0].Resolved {
		t.Fatalf("expected resolved call, got %+v", results)
	}
	if results[0].TargetID != location.MethodID("service.js", "Service", "run") {
		t.Errorf("unexpected target: %s", results[0].TargetID)
	}
}

func TestResolveThisMethod(t *testing.T) {
	f := ir.NewFile("service.js")
	createID := location.MethodID("service.js", "Service", "create")
	validateID := location.MethodID("service.js", "Service", "validate")
	f.Methods = append(f.Methods,
		ir.Callable{ID: createID, ClassName: "Service", MethodName: "create", IsMethod: true},
		ir.Callable{ID: validateID, ClassName: "Service", MethodName: "validate", IsMethod: true},
	)
	f.Calls = append(f.Calls, ir.CallSite{
		From: createID, Receiver: "this", Method: "validate", Kind: ir.CallMethod, Line: 2,
		To: location.PlaceholderID("service.js", "validate", 2),
	})

	reg := Build([]*ir.File{f})
	results := File(f, reg, DefaultFrameworkSets())
	if len(results) != 1 || !results[0].Resolved || results[0].TargetID != validateID {
		t.Fatalf("unexpected resolution: %+v", results)
	}
}

func TestResolveExternalMethodImport(t *testing.T) {
	f := ir.NewFile("main.js")
	f.Imports["axios"] = ir.Import{LocalName: "axios", Source: "axios", External: true, Kind: ir.ImportDefault}
	f.Calls = append(f.Calls, ir.CallSite{
		From: location.TopLevelCaller("main.js"), Receiver: "axios", Method: "get", Kind: ir.CallMethod, Line: 1,
		To: location.PlaceholderID("main.js", "get", 1),
	})

	reg := Build([]*ir.File{f})
	results := File(f, reg, DefaultFrameworkSets())
	if len(results) != 1 || !results[0].External || results[0].ModuleName != "axios" {
		t.Fatalf("unexpected resolution: %+v", results)
	}
}

func TestResolveViaRelativeImport(t *testing.T) {
	util := ir.NewFile("lib/util.js")
	helperID := location.FunctionID("lib/util.js", location.Span{})
	util.Functions = append(util.Functions, ir.Callable{ID: helperID, Name: "helper"})
	util.Exports["helper"] = helperID

	main := ir.NewFile("main.js")
	main.Imports["helper"] = ir.Import{LocalName: "helper", ImportedName: "helper", Source: "./lib/util", Kind: ir.ImportNamed}
	main.Calls = append(main.Calls, ir.CallSite{
		From: location.TopLevelCaller("main.js"), CalleeName: "helper", Kind: ir.CallPlain, Line: 1,
		To: location.PlaceholderID("main.js", "helper", 1),
	})

	reg := Build([]*ir.File{util, main})
	results := File(main, reg, DefaultFrameworkSets())
	if len(results) != 1 || !results[0].Resolved || results[0].TargetID != helperID {
		t.Fatalf("unexpected resolution: %+v", results)
	}
}

func TestResolveLocalFunctionFallback(t *testing.T) {
	f := ir.NewFile("a.js")
	fnID := location.FunctionID("a.js", location.Span{})
	f.Functions = append(f.Functions, ir.Callable{ID: fnID, Name: "foo"})
	f.Calls = append(f.Calls, ir.CallSite{
		From: location.TopLevelCaller("a.js"), CalleeName: "foo", Kind: ir.CallPlain, Line: 1,
		To: location.PlaceholderID("a.js", "foo", 1),
	})

	reg := Build([]*ir.File{f})
	results := File(f, reg, DefaultFrameworkSets())
	if len(results) != 1 || !results[0].Resolved || results[0].TargetID != fnID {
		t.Fatalf("unexpected resolution: %+v", results)
	}
}

func TestResolveUnresolvedKeepsPlaceholder(t *testing.T) {
	f := ir.NewFile("a.js")
	f.Calls = append(f.Calls, ir.CallSite{
		From: location.TopLevelCaller("a.js"), CalleeName: "mystery", Kind: ir.CallPlain, Line: 4,
		To: location.PlaceholderID("a.js", "mystery", 4),
	})

	reg := Build([]*ir.File{f})
	results := File(f, reg, DefaultFrameworkSets())
	if len(results) != 1 || results[0].Resolved || results[0].External {
		t.Fatalf("expected unresolved placeholder, got %+v", results)
	}
}

func TestIsFramework(t *testing.T) {
	fw := DefaultFrameworkSets()
	if !fw.IsFramework("res", "json") {
		t.Error("expected res.json() to be framework")
	}
	if !fw.IsFramework("app", "listen") {
		t.Error("expected app.listen() to be framework")
	}
	if fw.IsFramework("svc", "json") {
		t.Error("svc.json() should not be tagged framework")
	}
}
