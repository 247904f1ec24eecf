package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/graphkit-dev/callgraph/internal/registry"
)

// defaultRegistryDir returns the directory callgraph keeps its registry
// file and derived database cache in, honoring $CALLGRAPH_HOME if set.
func defaultRegistryDir() (string, error) {
	if dir := os.Getenv("CALLGRAPH_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".callgraph"), nil
}

func openRegistry() (*registry.Registry, error) {
	dir, err := defaultRegistryDir()
	if err != nil {
		return nil, err
	}
	regPath := filepath.Join(dir, "registry.json")
	cacheDir := filepath.Join(dir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	return registry.Load(regPath, cacheDir)
}

func runList(args []string) int {
	reg, err := openRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	entries := reg.List()
	if len(entries) == 0 {
		fmt.Println("No projects tracked.")
		return 0
	}
	for _, e := range entries {
		fmt.Printf("%-30s %s\n", e.Name, e.RootPath)
		fmt.Printf("%-30s db: %s  last used: %s\n", "", e.DBPath, e.LastUsed)
	}
	return 0
}

func runForget(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: callgraph forget <path>")
		return 1
	}
	absRoot, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	reg, err := openRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	root, _, err := registry.DetectRoot(absRoot)
	if err != nil {
		root = absRoot
	}
	reg.Forget(root)
	if err := reg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("forgot %s\n", root)
	return 0
}
