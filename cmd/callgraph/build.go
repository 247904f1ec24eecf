package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/graphkit-dev/callgraph/internal/config"
	"github.com/graphkit-dev/callgraph/internal/pipeline"
	"github.com/graphkit-dev/callgraph/internal/progress"
	"github.com/graphkit-dev/callgraph/internal/registry"
	"github.com/graphkit-dev/callgraph/internal/store"
)

func runBuild(args []string) int {
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	dbPath := fs.String("db", "", "database file to write (default: derived from project root via the registry)")
	configPath := fs.String("config", "", "path inside the directory holding the .callgraphrc.yaml to load; only its directory is used, the file name is ignored (default: <path>/.callgraphrc.yaml)")
	inMemory := fs.Bool("memory", false, "build into an in-memory store; --db becomes the path it's saved to afterward")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: callgraph build <path> [--db file] [--config file] [--memory]")
		return 1
	}
	root := fs.Arg(0)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	cfgDir := *configPath
	if cfgDir == "" {
		cfgDir = absRoot
	} else {
		cfgDir = filepath.Dir(cfgDir)
	}
	cfg, err := config.Load(cfgDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: config: %v\n", err)
		return 1
	}

	reg, err := openRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: registry: %v\n", err)
		return 1
	}

	detectedRoot, name, err := registry.DetectRoot(absRoot)
	if err != nil {
		detectedRoot, name = absRoot, filepath.Base(absRoot)
	}

	path := *dbPath
	if path == "" {
		path = reg.DBPath(detectedRoot)
	}

	var s *store.Store
	if *inMemory {
		s, err = store.OpenMemory()
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		s, err = store.Open(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open store: %v\n", err)
		return 1
	}
	defer s.Close()

	sink := progress.NewBar(os.Stderr, os.Stderr.Fd(), 0)
	p := pipeline.New(context.Background(), absRoot, cfg, sink)

	t := time.Now()
	res, err := p.Run(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: build: %v\n", err)
		return 1
	}

	if *inMemory && *dbPath != "" {
		if err := s.Save(*dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: save: %v\n", err)
			return 1
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	reg.Track(detectedRoot, name, now)
	if err := reg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: registry save: %v\n", err)
	}

	fmt.Printf("%s %q: %d file(s), %d node(s), %d edge(s) in %s\n",
		color.GreenString("indexed"), name, res.FilesExtracted, res.Nodes, res.Edges, time.Since(t).Round(time.Millisecond))
	if res.FilesFailed > 0 {
		fmt.Printf("  %s\n", color.YellowString("%d file(s) failed to parse and were skipped", res.FilesFailed))
	}
	fmt.Printf("  db: %s\n", path)
	return 0
}
