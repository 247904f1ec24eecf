package location

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/graphkit-dev/callgraph/internal/lang"
)

// DefaultIgnoreDirs are the directory names always skipped during discovery.
// Callers extend this list via DiscoverOptions.IgnoreDirs, they never
// replace it outright — see internal/config for the override surface.
var DefaultIgnoreDirs = []string{
	"node_modules", ".git", "dist", "build", "coverage", "__pycache__", ".venv", "target",
}

// DefaultExtensions are the file extensions the extractor understands out
// of the box.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// DiscoverOptions configures a source-tree walk.
type DiscoverOptions struct {
	// IgnoreDirs are directory basenames to prune during the walk, merged
	// with DefaultIgnoreDirs.
	IgnoreDirs []string
	// Extensions restricts which files are returned, merged with
	// DefaultExtensions, so the merged set always holds the defaults.
	// Extensions with no registered language are ignored.
	Extensions []string
}

// FileInfo is one discovered source file.
type FileInfo struct {
	AbsPath  string        // absolute path on disk
	RelPath  string        // project-relative, forward-slash
	Language lang.Language // dialect selected by extension
}

// Discover walks root and returns every matching source file, in stable
// lexicographic order per directory level. The walk respects ctx
// cancellation between directory entries.
func Discover(ctx context.Context, root string, opts DiscoverOptions) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, ErrInvalidPath
	}
	if info, statErr := os.Stat(absRoot); statErr != nil || !info.IsDir() {
		return nil, ErrInvalidPath
	}

	ignore := mergeSet(DefaultIgnoreDirs, opts.IgnoreDirs)
	exts := mergeSet(DefaultExtensions, opts.Extensions)

	extToLang := map[string]lang.Language{}
	for ext := range exts {
		if l, ok := lang.LanguageForExtension(ext); ok {
			extToLang[ext] = l
		}
	}

	var files []FileInfo
	err = walkSorted(absRoot, func(path string, isDir bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(path)
		if isDir {
			if path != absRoot && ignore[name] {
				return filepath.SkipDir
			}
			return nil
		}
		l, ok := extToLang[filepath.Ext(path)]
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			AbsPath:  path,
			RelPath:  filepath.ToSlash(rel),
			Language: l,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func mergeSet(base, extra []string) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for _, v := range base {
		out[v] = true
	}
	for _, v := range extra {
		out[v] = true
	}
	return out
}

// walkSorted is filepath.Walk with each directory's entries sorted
// lexicographically before recursion, so a build's file-visit order is
// deterministic across filesystems that don't already guarantee it.
func walkSorted(dir string, visit func(path string, isDir bool) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // unreadable directory: skip quietly, matches filepath.Walk's SkipDir-on-error posture
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := visit(path, true); err != nil {
				if err == filepath.SkipDir {
					continue
				}
				return err
			}
			if err := walkSorted(path, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(path, false); err != nil {
			return err
		}
	}
	return nil
}
