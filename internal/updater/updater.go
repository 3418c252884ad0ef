// Package updater implements the graph updater: the sole authorised
// single-threaded mutator of the graph in response to create, modify,
// and delete events, with snapshot-based rollback on a failed modify and
// broken-reference warnings emitted before a deletion removes edges.
package updater

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/relctx/relctx/internal/analyzer"
	"github.com/relctx/relctx/internal/builder"
	"github.com/relctx/relctx/internal/graph"
	"github.com/relctx/relctx/internal/relctxerr"
	"github.com/relctx/relctx/internal/watcher"
	"github.com/relctx/relctx/pkg/types"
)

// PerformanceWarningThreshold is the per-file wall-time budget;
// exceeding it logs a warning, it is not a failure.
const PerformanceWarningThreshold = 200 * time.Millisecond

// Logger is the shared diagnostic sink, defined alongside the analyzer
// so both ends of the pipeline log through one interface.
type Logger = analyzer.Logger

// NopLogger discards every message.
type NopLogger = analyzer.NopLogger

// Updater coordinates the graph, analyzer, relationship builder, and
// file watcher. It is NOT safe for concurrent use: it, the graph, and
// the detector registry all belong to a single graph thread.
type Updater struct {
	graph       *graph.Graph
	analyzer    *analyzer.Analyzer
	builder     *builder.Builder
	watcher     *watcher.Watcher
	projectRoot string
	log         Logger

	warningsMu sync.Mutex
	warnings   map[string][]types.DynamicPatternWarning
}

// New builds an Updater. watcher may be nil when process_pending is
// never called (e.g. a one-shot analyze-directory run).
func New(g *graph.Graph, a *analyzer.Analyzer, b *builder.Builder, w *watcher.Watcher, projectRoot string, log Logger) *Updater {
	if log == nil {
		log = NopLogger{}
	}
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	return &Updater{
		graph: g, analyzer: a, builder: b, watcher: w, projectRoot: root, log: log,
		warnings: make(map[string][]types.DynamicPatternWarning),
	}
}

// validateFilepath is the path safety check applied before every
// operation: the resolved path (symlinks followed) must be under the
// configured project root, and must not contain a null byte or
// traversal segment.
func (u *Updater) validateFilepath(file string) bool {
	if strings.ContainsRune(file, 0) {
		return false
	}
	resolved, err := filepath.EvalSymlinks(file)
	if err != nil {
		// File may not exist yet (create) or no longer exist (delete);
		// fall back to Abs+Clean so deletions can still be validated.
		abs, absErr := filepath.Abs(file)
		if absErr != nil {
			return false
		}
		resolved = filepath.Clean(abs)
	}
	rel, err := filepath.Rel(u.projectRoot, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// AnalyzeFile runs the full two-phase pipeline for file and applies the
// result to the graph: Phase 1 extraction, Phase 2 joining via the
// relationship builder, then RemoveAllFor + Add. It satisfies
// resolver.AnalyzeFile.
func (u *Updater) AnalyzeFile(file string) bool {
	data, warnings, err := u.analyzer.ExtractSymbolData(context.Background(), u.projectRoot, file)
	if err != nil {
		switch relctxerr.KindOf(err) {
		case relctxerr.KindParseFailed:
			// Unparseable: stale edges are removed and the file is
			// flagged; OnModify does not roll this back.
			u.log.Warnf("analyze %s: %v", file, err)
			u.builder.RemoveFile(file)
			u.graph.RemoveAllFor(file)
			u.graph.SetMetadata(file, types.FileMetadata{
				Filepath:      file,
				LastAnalyzed:  time.Now().UnixNano(),
				IsUnparseable: true,
			})
			return false
		case relctxerr.KindFileTooLarge, relctxerr.KindLineCountExceeded:
			// Logged and skipped; not an error to the caller.
			u.log.Warnf("skipping %s: %v", file, err)
			return true
		case relctxerr.KindDetectorFailed:
			// Partial results preferred over crash; keep what we got.
			u.log.Warnf("analyze %s: %v", file, err)
		default:
			u.log.Warnf("analyze %s: %v", file, err)
			return false
		}
	}

	u.warningsMu.Lock()
	if len(warnings) > 0 {
		u.warnings[file] = warnings
	} else {
		delete(u.warnings, file)
	}
	u.warningsMu.Unlock()

	u.builder.AddFile(data)
	rels := u.builder.BuildFor(file)

	u.graph.RemoveAllFor(file)
	for _, r := range rels {
		_ = u.graph.Add(r)
	}

	u.graph.SetMetadata(file, types.FileMetadata{
		Filepath:            file,
		LastAnalyzed:        time.Now().UnixNano(),
		RelationshipCount:   len(u.graph.Dependencies(file)),
		HasDynamicPatterns:  data.HasDynamicPatterns,
		DynamicPatternTypes: data.DynamicPatternTypes,
	})
	return true
}

// OnCreate handles a newly created file: validate, analyse, warn past
// PerformanceWarningThreshold.
func (u *Updater) OnCreate(file string) bool {
	if !u.validateFilepath(file) {
		u.log.Warnf("rejecting create outside project root: %s", file)
		return false
	}
	start := time.Now()
	ok := u.AnalyzeFile(file)
	u.warnIfSlow(file, "create", time.Since(start))
	return ok
}

// OnModify handles a modified file: snapshot pre-state, re-analyse, and
// roll back to the snapshot on failure, except when the file is now
// unparseable, in which case the stale edges stay removed and the file
// stays flagged.
func (u *Updater) OnModify(file string) bool {
	if !u.validateFilepath(file) {
		u.log.Warnf("rejecting modify outside project root: %s", file)
		return false
	}

	oldOutgoing := u.graph.Dependencies(file)
	oldIncoming := u.graph.Dependents(file)
	oldMeta, hadMeta := u.graph.GetMetadata(file)

	start := time.Now()
	ok := u.AnalyzeFile(file)
	u.warnIfSlow(file, "modify", time.Since(start))

	if meta, exists := u.graph.GetMetadata(file); exists && meta.IsUnparseable {
		// Unparseable is never rolled back: stale edges stay removed and
		// the file stays flagged.
		return ok
	}

	if !ok {
		u.rollback(file, oldOutgoing, oldIncoming, oldMeta, hadMeta)
	}
	return ok
}

func (u *Updater) rollback(file string, outgoing, incoming []types.Relationship, meta types.FileMetadata, hadMeta bool) {
	u.graph.RemoveAllFor(file)
	for _, r := range outgoing {
		_ = u.graph.Add(r)
	}
	for _, r := range incoming {
		_ = u.graph.Add(r)
	}
	if hadMeta {
		u.graph.SetMetadata(file, meta)
	}
	u.log.Warnf("rolled back failed update for %s", file)
}

// OnDelete handles a deleted file: emit a broken-reference warning per
// dependent before removing edges, then flag the file deleted in
// metadata.
func (u *Updater) OnDelete(file string) []types.BrokenReferenceWarning {
	if !u.validateFilepath(file) {
		u.log.Warnf("rejecting delete outside project root: %s", file)
		return nil
	}

	start := time.Now()
	dependents := u.graph.Dependents(file)

	warnings := make([]types.BrokenReferenceWarning, 0, len(dependents))
	now := time.Now().UnixNano()
	for _, rel := range dependents {
		warnings = append(warnings, types.BrokenReferenceWarning{
			DependentFile: rel.SourceFile,
			DeletedFile:   file,
			TargetSymbol:  rel.TargetSymbol,
			SourceLine:    rel.LineNumber,
			Timestamp:     now,
		})
	}

	u.graph.RemoveAllFor(file)
	u.builder.RemoveFile(file)

	u.warningsMu.Lock()
	delete(u.warnings, file)
	u.warningsMu.Unlock()

	u.graph.SetMetadata(file, types.FileMetadata{
		Filepath:     file,
		Deleted:      true,
		DeletionTime: now,
	})

	u.warnIfSlow(file, "delete", time.Since(start))
	return warnings
}

// ProcessPending drains the watcher's accumulated event timestamps and
// dispatches each path to OnCreate/OnModify/OnDelete, classified by
// current existence on disk and prior graph metadata.
type ProcessPendingStats struct {
	Total, Modified, Created, Deleted, Failed int
	Elapsed                                   time.Duration
	BrokenReferences                          []types.BrokenReferenceWarning
}

func (u *Updater) ProcessPending() ProcessPendingStats {
	start := time.Now()
	stats := ProcessPendingStats{}
	if u.watcher == nil {
		return stats
	}

	timestamps := u.watcher.DrainTimestamps()
	for file := range timestamps {
		stats.Total++
		if _, err := os.Stat(file); err == nil {
			if _, known := u.graph.GetMetadata(file); !known {
				if u.OnCreate(file) {
					stats.Created++
				} else {
					stats.Failed++
				}
			} else {
				if u.OnModify(file) {
					stats.Modified++
				} else {
					stats.Failed++
				}
			}
		} else {
			stats.BrokenReferences = append(stats.BrokenReferences, u.OnDelete(file)...)
			stats.Deleted++
		}
	}

	stats.Elapsed = time.Since(start)
	u.log.Debugf("processed %d changes in %s: %d modified, %d created, %d deleted, %d failed",
		stats.Total, stats.Elapsed, stats.Modified, stats.Created, stats.Deleted, stats.Failed)
	return stats
}

// Warnings returns the dynamic-pattern warnings currently known for file,
// as produced by its most recent successful analysis.
func (u *Updater) Warnings(file string) []types.DynamicPatternWarning {
	u.warningsMu.Lock()
	defer u.warningsMu.Unlock()
	return append([]types.DynamicPatternWarning(nil), u.warnings[file]...)
}

// AllWarnings returns every dynamic-pattern warning currently known
// across the project, keyed by file.
func (u *Updater) AllWarnings() map[string][]types.DynamicPatternWarning {
	u.warningsMu.Lock()
	defer u.warningsMu.Unlock()
	out := make(map[string][]types.DynamicPatternWarning, len(u.warnings))
	for f, ws := range u.warnings {
		out[f] = append([]types.DynamicPatternWarning(nil), ws...)
	}
	return out
}

func (u *Updater) warnIfSlow(file, op string, elapsed time.Duration) {
	if elapsed > PerformanceWarningThreshold {
		u.log.Warnf("performance target exceeded: %s %s took %s (target %s)", op, file, elapsed, PerformanceWarningThreshold)
	}
}
