// Package engine is the composition root: the single graph-thread
// object that owns the relationship graph, the per-file analyzer
// pipeline, the working-memory cache, and the watcher, and exposes the
// externally callable operations.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/relctx/relctx/internal/analyzer"
	"github.com/relctx/relctx/internal/builder"
	relctxcontext "github.com/relctx/relctx/internal/context"
	"github.com/relctx/relctx/internal/detector"
	"github.com/relctx/relctx/internal/graph"
	"github.com/relctx/relctx/internal/ignore"
	"github.com/relctx/relctx/internal/journal"
	"github.com/relctx/relctx/internal/relctxerr"
	"github.com/relctx/relctx/internal/resolver"
	"github.com/relctx/relctx/internal/suppress"
	"github.com/relctx/relctx/internal/symbolcache"
	"github.com/relctx/relctx/internal/updater"
	"github.com/relctx/relctx/internal/watcher"
	"github.com/relctx/relctx/pkg/types"

	relctxcache "github.com/relctx/relctx/internal/cache"
)

// Logger is satisfied by internal/updater.Logger; the engine uses the
// same minimal interface for its own diagnostics.
type Logger = updater.Logger

// Engine wires every component into a single graph thread and
// implements the external operations. Public methods assume
// single-goroutine access except where a component documents its own
// locking (cache, timestamp map).
type Engine struct {
	cfg         *types.Config
	projectRoot string

	graph      *graph.Graph
	cache      *relctxcache.Cache
	analyzer   *analyzer.Analyzer
	builder    *builder.Builder
	updater    *updater.Updater
	resolver   *resolver.Resolver
	assembler  *relctxcontext.Assembler
	suppress   *suppress.Manager
	journal    *journal.Journal
	watcher    *watcher.Watcher
	ignorePol  *ignore.Policy
	log        Logger
}

// New builds an Engine from cfg. It does not start the file watcher;
// call StartWatching for that.
func New(cfg *types.Config, log Logger) (*Engine, error) {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if log == nil {
		log = updater.NopLogger{}
	}

	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve project root: %w", err)
	}

	g := graph.New()

	res := detector.NewResolver(root, cfg)
	registry := analyzer.NewRegistry(res)
	symCache := symbolcache.New(symbolcache.DefaultMaxEntries, false)
	az := analyzer.New(registry).WithSymbolCache(symCache).WithLogger(log)
	b := builder.New()

	policy := ignore.New(cfg.IgnorePatterns)

	var w *watcher.Watcher
	wa, werr := watcher.New(root, policy)
	if werr == nil {
		w = wa
	} else {
		log.Warnf("engine: file watcher unavailable: %v", werr)
	}

	up := updater.New(g, az, b, w, root, log)
	rs := resolver.New(g, func(file string) bool {
		return needsAnalysis(g, w, file)
	}, up.AnalyzeFile)

	var watcherTs relctxcache.WatcherTimestamp
	if w != nil {
		watcherTs = w.LastEventTime
	}
	c := relctxcache.New(cfg.CacheSizeLimitBytes, watcherTs)
	if w != nil {
		w.RegisterInvalidationCallback(c.Invalidate)
	}

	assembler := relctxcontext.New(g, c, cfg.ContextTokenLimit, analyzer.MaxFileSizeBytes)
	sup := suppress.FromConfig(root, cfg)
	jr := journal.New(dataRoot(cfg, root))

	return &Engine{
		cfg: cfg, projectRoot: root,
		graph: g, cache: c, analyzer: az, builder: b, updater: up, resolver: rs,
		assembler: assembler, suppress: sup, journal: jr, watcher: w, ignorePol: policy,
		log: log,
	}, nil
}

func dataRoot(cfg *types.Config, root string) string {
	if cfg.DataRoot == "" {
		return filepath.Join(root, ".relctx")
	}
	if filepath.IsAbs(cfg.DataRoot) {
		return cfg.DataRoot
	}
	return filepath.Join(root, cfg.DataRoot)
}

// needsAnalysis is the staleness predicate the resolver uses: a file
// the graph has never seen metadata for, or one whose last watcher
// event postdates its last analysis.
func needsAnalysis(g *graph.Graph, w *watcher.Watcher, file string) bool {
	meta, known := g.GetMetadata(file)
	if !known {
		return true
	}
	if w == nil {
		return false
	}
	ts, ok := w.LastEventTime(file)
	if !ok {
		return false
	}
	return ts.UnixNano() > meta.LastAnalyzed
}

// StartWatching begins the background file watcher, if one was
// constructed successfully, invalidating the cache as files change.
func (e *Engine) StartWatching(ctx context.Context) (<-chan watcher.Event, error) {
	if e.watcher == nil {
		return nil, fmt.Errorf("engine: no watcher configured")
	}
	return e.watcher.Start(ctx)
}

// ProcessPending drains watcher events and applies them via the graph
// updater, logging broken-reference warnings to the journal.
func (e *Engine) ProcessPending() updater.ProcessPendingStats {
	stats := e.updater.ProcessPending()
	now := time.Now().UnixNano()
	for _, w := range stats.BrokenReferences {
		_ = e.journal.Append(journal.CategoryWarnings, journal.WarningRecord{
			Kind: "broken_reference", File: w.DependentFile, Line: w.SourceLine,
			Message: fmt.Sprintf("reference to deleted file %s (symbol %s)", w.DeletedFile, w.TargetSymbol),
			Timestamp: now,
		})
	}
	_ = e.journal.Append(journal.CategorySessionMetrics, journal.SessionMetricsRecord{
		Operation: "process_pending", FilesTouched: stats.Total,
		ElapsedMs: stats.Elapsed.Milliseconds(), Timestamp: now,
	})
	return stats
}

// ReadWithContext validates path, resolves staleness, reads via the
// cache, and assembles bounded dependency/dependent context plus any
// surfaced warnings.
type ReadWithContextResult struct {
	Path     string
	Content  string
	Context  string
	Warnings []types.DynamicPatternWarning
}

func (e *Engine) ReadWithContext(path string) (ReadWithContextResult, error) {
	abs, err := e.validatedAbs(path)
	if err != nil {
		return ReadWithContextResult{}, err
	}

	e.resolver.ResolveStaleness(abs)

	content, err := e.cache.Get(abs, relctxcache.LineRange{}, analyzer.MaxFileSizeBytes)
	if err != nil {
		return ReadWithContextResult{}, err
	}

	result := e.assembler.Assemble(abs)
	warnings := e.GetWarnings(abs)

	if e.cfg.EnableContextInjection {
		_ = e.journal.Append(journal.CategoryInjections, journal.InjectionRecord{
			Path: abs, ContextChars: len(result.Text), BudgetExceeded: result.BudgetExceeded,
			Timestamp: time.Now().UnixNano(),
		})
	}

	return ReadWithContextResult{Path: abs, Content: string(content), Context: result.Text, Warnings: warnings}, nil
}

// AnalyzeFile runs the full two-phase pipeline for path and applies it
// to the graph, as a fresh create or a modify of a known file.
func (e *Engine) AnalyzeFile(path string) bool {
	abs, err := e.validatedAbs(path)
	if err != nil {
		e.log.Warnf("analyze_file: %v", err)
		return false
	}
	if _, known := e.graph.GetMetadata(abs); known {
		return e.updater.OnModify(abs)
	}
	return e.updater.OnCreate(abs)
}

// AnalyzeDirectory walks root, analysing every file the ignore policy
// and supported-extension set accept.
func (e *Engine) AnalyzeDirectory(root string) (int, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return 0, relctxerr.New(relctxerr.KindInvalidInput, err)
	}

	start := time.Now()
	count := 0
	var analyzed []string
	walkErr := filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if e.ignorePol.ShouldIgnore(path) && path != abs {
				return filepath.SkipDir
			}
			return nil
		}
		if e.ignorePol.ShouldIgnore(path) || !ignore.IsSupportedFile(path) {
			return nil
		}
		if e.updater.OnCreate(path) {
			count++
			analyzed = append(analyzed, path)
		}
		return nil
	})

	// Analysing a file removes the edges other files hold into it, so
	// edges from files walked earlier are rebuilt once every file's
	// symbol data is known.
	for _, p := range analyzed {
		e.graph.RemoveOutgoing(p)
		for _, r := range e.builder.BuildFor(p) {
			_ = e.graph.Add(r)
		}
	}

	_ = e.journal.Append(journal.CategorySessionMetrics, journal.SessionMetricsRecord{
		Operation: "analyze_directory", FilesTouched: count,
		ElapsedMs: time.Since(start).Milliseconds(), Timestamp: time.Now().UnixNano(),
	})

	if walkErr != nil {
		return count, relctxerr.New(relctxerr.KindIoError, walkErr)
	}
	return count, nil
}

// GetDependencies returns the outgoing relationships from path, as
// currently held in the graph.
func (e *Engine) GetDependencies(path string) []types.Relationship {
	abs, err := e.validatedAbs(path)
	if err != nil {
		return nil
	}
	return e.graph.Dependencies(abs)
}

// GetDependents returns the incoming relationships into path.
func (e *Engine) GetDependents(path string) []types.Relationship {
	abs, err := e.validatedAbs(path)
	if err != nil {
		return nil
	}
	return e.graph.Dependents(abs)
}

// ExportGraph returns a structural dump suitable for round-tripping
// through graph.Import.
func (e *Engine) ExportGraph() graph.Export {
	return e.graph.Export()
}

// GetWarnings returns the suppression-filtered dynamic-pattern warnings
// known for path, or every file's warnings when path is empty.
func (e *Engine) GetWarnings(path string) []types.DynamicPatternWarning {
	if path == "" {
		var all []types.DynamicPatternWarning
		for _, ws := range e.updater.AllWarnings() {
			all = append(all, e.suppress.Filter(ws)...)
		}
		return all
	}
	abs, err := e.validatedAbs(path)
	if err != nil {
		return nil
	}
	return e.suppress.Filter(e.updater.Warnings(abs))
}

// InvalidateCache drops one cache entry, or every entry when path is
// empty.
func (e *Engine) InvalidateCache(path string) {
	if path == "" {
		e.cache.Clear()
		return
	}
	if abs, err := e.validatedAbs(path); err == nil {
		e.cache.Invalidate(abs)
	}
}

// validatedAbs resolves path to an absolute form and rejects anything
// outside the project root, null bytes, or traversal segments.
func (e *Engine) validatedAbs(path string) (string, error) {
	for _, r := range path {
		if r == 0 {
			return "", relctxerr.New(relctxerr.KindInvalidInput, fmt.Errorf("path contains a null byte"))
		}
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.projectRoot, path)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(e.projectRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", relctxerr.New(relctxerr.KindInvalidInput, fmt.Errorf("%s escapes project root", path))
	}
	return abs, nil
}

// Close releases the journal's open file handles and stops the watcher.
func (e *Engine) Close() error {
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	return e.journal.Close()
}
