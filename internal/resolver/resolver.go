// Package resolver implements the staleness resolver: a frozen snapshot
// of the dependency graph, a topological sort of stale files by Kahn's
// algorithm with a sorted queue for determinism, and the
// store/restore-pending mechanism that keeps a dependent's edges intact
// when a stale dependency's relationships are wiped by re-analysis.
package resolver

import (
	"sort"

	"github.com/relctx/relctx/internal/graph"
)

// NeedsAnalysis reports whether file should be re-analyzed before it is
// considered fresh. Typically: the watcher's last event time for the
// file postdates its last analysis, or the file is unknown to the
// graph.
type NeedsAnalysis func(file string) bool

// AnalyzeFile re-analyzes file and applies the result to the graph,
// removing its old edges and adding fresh ones. Returns false on
// failure; the resolver keeps processing regardless.
type AnalyzeFile func(file string) bool

// Resolver drives staleness resolution over g using the caller-supplied
// needsAnalysis predicate and analyzeFile callback.
type Resolver struct {
	graph         *graph.Graph
	needsAnalysis NeedsAnalysis
	analyzeFile   AnalyzeFile
}

func New(g *graph.Graph, needsAnalysis NeedsAnalysis, analyzeFile AnalyzeFile) *Resolver {
	return &Resolver{graph: g, needsAnalysis: needsAnalysis, analyzeFile: analyzeFile}
}

// ResolveStaleness re-analyzes every stale file in target's transitive
// dependency cone and restores the edges of their non-stale dependents.
// Returns true only if every file that needed processing analyzed
// successfully; processing is never aborted early, so the graph never
// ends up half-updated.
func (r *Resolver) ResolveStaleness(target string) bool {
	snap := r.graph.Snapshot()

	stale := r.findStaleFiles(target, snap)
	if len(stale) == 0 {
		return true
	}

	sortedStale := r.topoSortRestricted(stale, snap)
	r.removeAndMarkPending(sortedStale)

	toProcess := r.filesToProcess(target, stale, snap)
	ok := r.processFiles(toProcess, stale)

	// A dependent of a stale file can sit outside target's reachable
	// cone and so never make it into toProcess; restore its snapshotted
	// edges here so no file is left with pending relationships set.
	for _, f := range r.graph.FilesWithPending() {
		r.graph.RestorePending(f)
	}
	return ok
}

// findStaleFiles checks target and every transitive dependency reachable
// from it in snap, skipping sentinel paths.
func (r *Resolver) findStaleFiles(target string, snap graph.Snapshot) map[string]bool {
	stale := make(map[string]bool)
	if r.needsAnalysis(target) {
		stale[target] = true
	}
	for _, dep := range graph.TransitiveDependencies(target, snap) {
		if r.needsAnalysis(dep) {
			stale[dep] = true
		}
	}
	return stale
}

// topoSortRestricted sorts files (a subset of snap's nodes) such that if
// a depends on b (even transitively, possibly through non-stale
// intermediate nodes), b precedes a. Kahn's algorithm; the ready queue is
// kept sorted by path for deterministic output. A cycle (should not
// happen in a well-formed graph) falls back to appending the remaining
// nodes in sorted order, with no error raised; an import cycle is a
// property of the analyzed project, not a resolver failure.
func (r *Resolver) topoSortRestricted(files map[string]bool, snap graph.Snapshot) []string {
	if len(files) == 0 {
		return nil
	}

	deps := make(map[string]map[string]bool, len(files))
	for f := range files {
		deps[f] = make(map[string]bool)
		for _, dep := range graph.TransitiveDependencies(f, snap) {
			if files[dep] {
				deps[f][dep] = true
			}
		}
	}

	inDegree := make(map[string]int, len(files))
	for f := range files {
		inDegree[f] = len(deps[f])
	}

	var queue []string
	for f := range files {
		if inDegree[f] == 0 {
			queue = append(queue, f)
		}
	}

	var result []string
	processed := make(map[string]bool)
	for len(queue) > 0 {
		sort.Strings(queue)
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)
		processed[current] = true

		for f := range files {
			if processed[f] {
				continue
			}
			if deps[f][current] {
				inDegree[f]--
				if inDegree[f] == 0 {
					queue = append(queue, f)
				}
			}
		}
	}

	if len(result) != len(files) {
		var remaining []string
		for f := range files {
			if !processed[f] {
				remaining = append(remaining, f)
			}
		}
		sort.Strings(remaining)
		result = append(result, remaining...)
	}

	return result
}

// removeAndMarkPending walks the stale files in topological order,
// snapshotting and clearing each one's outgoing edges, then marks every
// direct dependent pending and snapshots its outgoing edges too if not
// already stored: analyzeFile will call RemoveAllFor on the stale file,
// which would otherwise destroy the dependent's own relationships.
func (r *Resolver) removeAndMarkPending(sortedStale []string) {
	for _, file := range sortedStale {
		r.graph.StorePending(file)

		for _, rel := range r.graph.Dependents(file) {
			dependent := rel.SourceFile
			if dependent == "" {
				continue
			}
			if !r.graph.HasPending(dependent) {
				r.graph.StorePending(dependent)
			}
		}
	}
}

// filesToProcess is the union of stale files and pending files,
// intersected with the set reachable from target in the original
// snapshot, topologically re-sorted.
func (r *Resolver) filesToProcess(target string, stale map[string]bool, snap graph.Snapshot) []string {
	reachable := make(map[string]bool)
	for _, f := range graph.TransitiveDependencies(target, snap) {
		reachable[f] = true
	}
	reachable[target] = true

	candidates := make(map[string]bool)
	for f := range stale {
		candidates[f] = true
	}
	for _, f := range r.graph.FilesWithPending() {
		candidates[f] = true
	}

	toProcess := make(map[string]bool)
	for f := range candidates {
		if reachable[f] {
			toProcess[f] = true
		}
	}

	return r.topoSortRestricted(toProcess, snap)
}

// processFiles analyzes stale files, restores pending-only files, and
// always clears the pending flag. Processing never stops early on an
// individual failure.
func (r *Resolver) processFiles(toProcess []string, stale map[string]bool) bool {
	success := true
	for _, file := range toProcess {
		if stale[file] {
			if !r.analyzeFile(file) {
				success = false
			}
		} else {
			r.graph.RestorePending(file)
		}
		r.graph.ClearPending(file)
	}
	return success
}
