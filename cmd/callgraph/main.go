// Command callgraph is the build driver and query front-end for the
// analyzer: it turns a source tree into a stored call graph and lets a
// caller walk that graph from the command line.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("callgraph", version)
		return
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "build":
		code = runBuild(os.Args[2:])
	case "query":
		code = runQuery(os.Args[2:])
	case "list":
		code = runList(os.Args[2:])
	case "forget":
		code = runForget(os.Args[2:])
	case "dump-ast":
		code = runDumpAST(os.Args[2:])
	case "--help", "-h", "help":
		usage()
		code = 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		code = 1
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: callgraph <command> [flags]

Commands:
  build <path>        analyze a source tree and save its call graph
  query <operation>    run a query against a built graph
  list                 list tracked projects
  forget <path>        stop tracking a project
  dump-ast <file>       print the tree-sitter AST for one source file

Run "callgraph <command> --help" for command-specific flags.
`)
}
