// Package pipeline orchestrates a full build: discover source files, parse
// and extract each one concurrently, resolve calls across the whole file
// set, materialize the graph, and persist it to a store. It is the
// top-level phase/errgroup/slog-timing shape the rest of the module's
// components are assembled under.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/graphkit-dev/callgraph/internal/config"
	"github.com/graphkit-dev/callgraph/internal/extract"
	"github.com/graphkit-dev/callgraph/internal/graph"
	"github.com/graphkit-dev/callgraph/internal/graphcore"
	"github.com/graphkit-dev/callgraph/internal/ir"
	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/parser"
	"github.com/graphkit-dev/callgraph/internal/progress"
	"github.com/graphkit-dev/callgraph/internal/resolve"
	"github.com/graphkit-dev/callgraph/internal/store"
)

// Pipeline runs one build against a root directory, writing the resulting
// graph to a Store.
type Pipeline struct {
	ctx      context.Context
	RootPath string
	Config   *config.Config
	Progress progress.Sink
}

// New constructs a Pipeline with the given config and progress sink. A nil
// cfg falls back to config.Default(); a nil sink falls back to progress.Noop().
func New(ctx context.Context, rootPath string, cfg *config.Config, sink progress.Sink) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if sink == nil {
		sink = progress.Noop()
	}
	return &Pipeline{ctx: ctx, RootPath: rootPath, Config: cfg, Progress: sink}
}

// Result summarizes a completed build.
type Result struct {
	RunID           string
	FilesDiscovered int
	FilesExtracted  int
	FilesFailed     int
	Nodes           int
	Edges           int
}

// Run executes discover -> parse/extract -> resolve -> graph -> store. Each
// run is tagged with a fresh RunID so its slog lines can be correlated
// across a long build without threading a logger value through every call.
func (p *Pipeline) Run(s *store.Store) (Result, error) {
	var res Result
	res.RunID = uuid.NewString()
	log := slog.With("run_id", res.RunID)

	t := time.Now()
	files, err := location.Discover(p.ctx, p.RootPath, p.Config.DiscoverOptions())
	if err != nil {
		return res, fmt.Errorf("discover: %w", err)
	}
	res.FilesDiscovered = len(files)
	log.Info("pipeline.discovered", "files", len(files), "elapsed", time.Since(t))
	if err := p.ctx.Err(); err != nil {
		return res, err
	}

	t = time.Now()
	irFiles, failed := p.extractAll(files)
	res.FilesExtracted = len(irFiles)
	res.FilesFailed = failed
	p.Progress.Done()
	log.Info("pipeline.extracted", "ok", len(irFiles), "failed", failed, "elapsed", time.Since(t))
	if err := p.ctx.Err(); err != nil {
		return res, err
	}

	t = time.Now()
	reg := resolve.Build(irFiles)
	fw := p.Config.FrameworkSets()
	resolutions := make(map[string][]resolve.Resolution, len(irFiles))
	for _, f := range irFiles {
		resolutions[f.RelPath] = resolve.File(f, reg, fw)
	}
	log.Info("pipeline.resolved", "files", len(irFiles), "elapsed", time.Since(t))
	if err := p.ctx.Err(); err != nil {
		return res, err
	}

	t = time.Now()
	g, err := graph.Build(irFiles, resolutions)
	if err != nil {
		return res, err
	}
	res.Nodes = len(g.Nodes)
	res.Edges = len(g.Edges)
	log.Info("pipeline.graph", "nodes", res.Nodes, "edges", res.Edges, "elapsed", time.Since(t))
	if err := p.ctx.Err(); err != nil {
		return res, err
	}

	t = time.Now()
	if err := s.SaveGraph(g); err != nil {
		return res, fmt.Errorf("%w: %v", graphcore.ErrStoreWrite, err)
	}
	log.Info("pipeline.saved", "elapsed", time.Since(t))

	return res, nil
}

// extractAll parses and extracts every discovered file concurrently,
// bounded by CPU count through an errgroup worker pool. A file that
// fails to parse is logged and skipped rather than aborting the whole
// build.
func (p *Pipeline) extractAll(files []location.FileInfo) ([]*ir.File, int) {
	results := make([]*ir.File, len(files))
	failed := make([]bool, len(files))

	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}
	if numWorkers == 0 {
		return nil, 0
	}

	g, gctx := errgroup.WithContext(p.ctx)
	g.SetLimit(numWorkers)
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			irFile, err := p.extractOne(f)
			if err != nil {
				slog.Warn("pipeline.extract.err", "path", f.RelPath, "err", err)
				failed[i] = true
				return nil
			}
			results[i] = irFile
			p.Progress.Report(f.RelPath, 1)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*ir.File, 0, len(files))
	failedCount := 0
	for i, r := range results {
		if r != nil {
			out = append(out, r)
		} else if failed[i] {
			failedCount++
		}
	}
	return out, failedCount
}

func (p *Pipeline) extractOne(f location.FileInfo) (*ir.File, error) {
	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", graphcore.ErrParseError, err)
	}
	tree, err := parser.Parse(f.Language, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", graphcore.ErrParseError, err)
	}
	defer tree.Close()
	return extract.File(f.RelPath, source, tree.RootNode()), nil
}
