// Package graph implements the relationship graph: an in-memory store of
// Relationship values indexed both forward (by source file) and in
// reverse (by target file), with deduplication, pending-relationship
// storage for rollback-safe staleness resolution, and snapshot support
// for the staleness resolver.
package graph

import (
	"sort"
	"sync"

	"github.com/relctx/relctx/internal/relctxerr"
	"github.com/relctx/relctx/pkg/types"
)

// Graph is created once per process and mutated only by the graph thread
// (the analyzer, graph updater, and staleness resolver). It still guards
// its indexes with an internal mutex so tests and callers outside the
// single-threaded model may use it safely, rather than asserting the
// single-writer discipline with no guard at all.
type Graph struct {
	mu sync.RWMutex

	forward map[string][]types.Relationship
	reverse map[string][]types.Relationship
	meta    map[string]types.FileMetadata
	pending map[string][]types.Relationship
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		forward: make(map[string][]types.Relationship),
		reverse: make(map[string][]types.Relationship),
		meta:    make(map[string]types.FileMetadata),
		pending: make(map[string][]types.Relationship),
	}
}

// Add inserts r into both indexes unless an equal relationship is already
// present under r.SourceFile, in which case it is a no-op. Returns a
// *relctxerr.Error of KindInvalidInput if r fails validation.
func (g *Graph) Add(r types.Relationship) error {
	if err := r.Validate(); err != nil {
		return relctxerr.New(relctxerr.KindInvalidInput, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.forward[r.SourceFile] {
		if existing.Equal(r) {
			return nil
		}
	}

	g.forward[r.SourceFile] = append(g.forward[r.SourceFile], r)
	g.reverse[r.TargetFile] = append(g.reverse[r.TargetFile], r)

	m := g.meta[r.SourceFile]
	m.Filepath = r.SourceFile
	m.RelationshipCount = len(g.forward[r.SourceFile])
	g.meta[r.SourceFile] = m

	return nil
}

// RemoveAllFor atomically drops every relationship where file is either
// the source or the target side. Called by the analyzer before
// re-storing a file's freshly discovered relationships.
func (g *Graph) RemoveAllFor(file string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeAllForLocked(file)
}

func (g *Graph) removeAllForLocked(file string) {
	// Drop file's own outgoing edges, and remove the matching reverse
	// entries they created.
	for _, r := range g.forward[file] {
		g.reverse[r.TargetFile] = removeOne(g.reverse[r.TargetFile], r)
	}
	delete(g.forward, file)

	// Drop edges incoming to file, and remove the matching forward
	// entries they created.
	for _, r := range g.reverse[file] {
		g.forward[r.SourceFile] = removeOne(g.forward[r.SourceFile], r)
		m := g.meta[r.SourceFile]
		m.RelationshipCount = len(g.forward[r.SourceFile])
		g.meta[r.SourceFile] = m
	}
	delete(g.reverse, file)

	m := g.meta[file]
	m.Filepath = file
	m.RelationshipCount = len(g.forward[file])
	g.meta[file] = m
}

// RemoveOutgoing drops only file's forward set, leaving relationships that
// reference file as a target intact.
func (g *Graph) RemoveOutgoing(file string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeOutgoingLocked(file)
}

func (g *Graph) removeOutgoingLocked(file string) {
	for _, r := range g.forward[file] {
		g.reverse[r.TargetFile] = removeOne(g.reverse[r.TargetFile], r)
	}
	delete(g.forward, file)
	m := g.meta[file]
	m.RelationshipCount = 0
	g.meta[file] = m
}

func removeOne(set []types.Relationship, r types.Relationship) []types.Relationship {
	for i, existing := range set {
		if existing.Equal(r) {
			out := make([]types.Relationship, 0, len(set)-1)
			out = append(out, set[:i]...)
			out = append(out, set[i+1:]...)
			return out
		}
	}
	return set
}

// Dependencies returns a snapshot vector of file's outgoing relationships.
// The caller may not assume the slice stays valid across a mutation.
func (g *Graph) Dependencies(file string) []types.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]types.Relationship(nil), g.forward[file]...)
}

// Dependents returns a snapshot vector of relationships targeting file.
func (g *Graph) Dependents(file string) []types.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]types.Relationship(nil), g.reverse[file]...)
}

// Snapshot returns a deep copy of the forward index only, which is all
// staleness resolution needs.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(Snapshot, len(g.forward))
	for file, rels := range g.forward {
		out[file] = append([]types.Relationship(nil), rels...)
	}
	return out
}

// Snapshot is a frozen copy of the forward adjacency map, used by the
// staleness resolver so concurrent removals do not affect traversal.
type Snapshot map[string][]types.Relationship

// TransitiveDependencies performs a depth-first traversal over snap
// starting at file, skipping sentinel targets and terminating on cycles
// via a visited set.
func TransitiveDependencies(file string, snap Snapshot) []string {
	visited := map[string]bool{file: true}
	var order []string
	var walk func(string)
	walk = func(f string) {
		for _, r := range snap[f] {
			if types.IsSentinel(r.TargetFile) {
				continue
			}
			if visited[r.TargetFile] {
				continue
			}
			visited[r.TargetFile] = true
			order = append(order, r.TargetFile)
			walk(r.TargetFile)
		}
	}
	walk(file)
	return order
}

// StorePending snapshots file's current outgoing relationships into the
// pending-store and clears them from the forward (and corresponding
// reverse) index, setting PendingRelationships on its metadata. Returns
// the snapshotted relationships. A second call before a restore/clear is
// a no-op that returns the existing pending snapshot, so the staleness
// resolver can mark a dependent without clobbering an earlier snapshot.
func (g *Graph) StorePending(file string) []types.Relationship {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.pending[file]; ok {
		return append([]types.Relationship(nil), existing...)
	}

	snap := append([]types.Relationship(nil), g.forward[file]...)
	g.pending[file] = snap
	g.removeOutgoingLocked(file)

	m := g.meta[file]
	m.Filepath = file
	m.PendingRelationships = true
	g.meta[file] = m

	return append([]types.Relationship(nil), snap...)
}

// RestorePending re-adds file's pending relationships verbatim and clears
// the pending flag. A no-op if nothing is pending.
func (g *Graph) RestorePending(file string) {
	g.mu.Lock()
	rels, ok := g.pending[file]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.pending, file)
	g.mu.Unlock()

	for _, r := range rels {
		_ = g.Add(r)
	}

	g.mu.Lock()
	m := g.meta[file]
	m.PendingRelationships = false
	g.meta[file] = m
	g.mu.Unlock()
}

// HasPending reports whether file currently has a pending snapshot.
func (g *Graph) HasPending(file string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.pending[file]
	return ok
}

// ClearPending discards file's pending snapshot without restoring it
// (used once re-analysis has supplied fresh edges instead) and clears the
// pending flag.
func (g *Graph) ClearPending(file string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, file)
	m := g.meta[file]
	m.PendingRelationships = false
	g.meta[file] = m
}

// FilesWithPending returns every file currently holding a pending
// snapshot, sorted for determinism.
func (g *Graph) FilesWithPending() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.pending))
	for f := range g.pending {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SetMetadata replaces file's FileMetadata wholesale.
func (g *Graph) SetMetadata(file string, m types.FileMetadata) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m.Filepath = file
	g.meta[file] = m
}

// GetMetadata returns file's FileMetadata and whether it exists.
func (g *Graph) GetMetadata(file string) (types.FileMetadata, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.meta[file]
	return m, ok
}

// Export materializes a structural description of the graph for
// inspection or external consumers; not used on a hot path.
type Export struct {
	Files         []string                     `json:"files"`
	Relationships []types.Relationship          `json:"relationships"`
	Metadata      map[string]types.FileMetadata `json:"metadata"`
}

func (g *Graph) Export() Export {
	g.mu.RLock()
	defer g.mu.RUnlock()

	files := make([]string, 0, len(g.meta))
	for f := range g.meta {
		files = append(files, f)
	}
	sort.Strings(files)

	var rels []types.Relationship
	srcFiles := make([]string, 0, len(g.forward))
	for f := range g.forward {
		srcFiles = append(srcFiles, f)
	}
	sort.Strings(srcFiles)
	for _, f := range srcFiles {
		rels = append(rels, g.forward[f]...)
	}

	meta := make(map[string]types.FileMetadata, len(g.meta))
	for k, v := range g.meta {
		meta[k] = v
	}

	return Export{Files: files, Relationships: rels, Metadata: meta}
}

// Import reconstructs a Graph from an Export; Import(g.Export()) is
// structurally identical to g.
func Import(e Export) *Graph {
	g := New()
	for _, r := range e.Relationships {
		_ = g.Add(r)
	}
	for f, m := range e.Metadata {
		g.SetMetadata(f, m)
	}
	return g
}
