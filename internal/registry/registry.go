// Package registry implements project detection and the on-disk project
// registry: given a directory, find its project root by searching
// upward for a recognized manifest file, then track that root's database
// path and usage timestamps.
//
// The registry is an explicitly owned value rather than a static/global
// singleton — callers construct one (New) and thread it through, rather
// than reaching for a package-level instance backed by a shared,
// implicitly-opened database.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
)

// manifestFiles are searched for, in order, at each ancestor directory;
// the first ancestor containing any of them is the project root.
var manifestFiles = []string{"package.json", "requirements.txt", "pyproject.toml", "go.mod", "Cargo.toml"}

// DetectRoot searches upward from dir for the nearest ancestor containing a
// recognized manifest file. The project name is that ancestor's basename.
func DetectRoot(dir string) (root, name string, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("detect root: %w", err)
	}
	current := abs
	for {
		for _, manifest := range manifestFiles {
			if _, statErr := os.Stat(filepath.Join(current, manifest)); statErr == nil {
				return current, filepath.Base(current), nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs, filepath.Base(abs), nil
		}
		current = parent
	}
}

// Entry is one tracked project.
type Entry struct {
	Name         string `json:"name"`
	RootPath     string `json:"rootPath"`
	DBPath       string `json:"dbPath"`
	LastAnalyzed string `json:"lastAnalyzed,omitempty"`
	LastUsed     string `json:"lastUsed,omitempty"`
}

// Registry is an owned, in-memory collection of project entries, keyed by
// root path, with an explicit Save to persist it as JSON.
type Registry struct {
	mu      sync.Mutex
	path    string
	cacheDir string
	entries map[string]*Entry
}

// New constructs an empty registry backed by the JSON file at path, with
// derived database files written under cacheDir.
func New(path, cacheDir string) *Registry {
	return &Registry{path: path, cacheDir: cacheDir, entries: map[string]*Entry{}}
}

// Load reads a previously-saved registry file, or returns an empty
// registry if none exists yet.
func Load(path, cacheDir string) (*Registry, error) {
	r := New(path, cacheDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	for _, e := range entries {
		r.entries[e.RootPath] = e
	}
	return r, nil
}

// Save writes the registry to disk as a sorted JSON array (sorted so
// repeated saves of an unchanged registry are byte-identical).
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RootPath < entries[j].RootPath })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("mkdir registry dir: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// DBPath derives a deterministic per-root database file path from an
// xxh3 hash of the absolute root path. Collision-resistance within a
// single machine suffices; stability across hosts is not required, so a
// fast non-cryptographic hash is the right tool.
func (r *Registry) DBPath(rootPath string) string {
	sum := xxh3.HashString(rootPath)
	return filepath.Join(r.cacheDir, fmt.Sprintf("%016x.db", sum))
}

// Track registers or refreshes an entry for rootPath, returning it.
func (r *Registry) Track(rootPath, name, nowISO8601 string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[rootPath]
	if !ok {
		e = &Entry{Name: name, RootPath: rootPath, DBPath: r.DBPath(rootPath)}
		r.entries[rootPath] = e
	}
	e.LastAnalyzed = nowISO8601
	e.LastUsed = nowISO8601
	return e
}

// Touch updates LastUsed for an already-tracked root, without re-running
// analysis bookkeeping. No-op if rootPath isn't tracked.
func (r *Registry) Touch(rootPath, nowISO8601 string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[rootPath]; ok {
		e.LastUsed = nowISO8601
	}
}

// Get returns the tracked entry for rootPath, or nil.
func (r *Registry) Get(rootPath string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[rootPath]
}

// List returns every tracked entry, sorted by root path.
func (r *Registry) List() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RootPath < out[j].RootPath })
	return out
}

// Forget removes a tracked root from the registry. It does not delete the
// underlying database file; callers that want that do it explicitly.
func (r *Registry) Forget(rootPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, rootPath)
}
