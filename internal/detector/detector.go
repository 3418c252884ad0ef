// Package detector implements the detector plugin registry and the
// individual syntactic detectors: five relationship-producing
// (import, conditional import, wildcard import, function call, class
// inheritance) and five warning-only (dynamic dispatch, exec/eval,
// attribute rebinding, decorator, metaclass).
package detector

import (
	"errors"
	"sort"

	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// ErrWalkTruncated reports that the node walk hit pyast.MaxDepth and
// deeper nodes went unvisited; the results gathered above the cap are
// still returned.
var ErrWalkTruncated = errors.New("ast walk truncated at depth limit")

// Detector is the tagged interface every syntactic analyzer implements.
// Warning-only detectors always return an empty relationship slice from
// Detect; a speculative edge is worse than a missing one.
type Detector interface {
	Name() string
	Priority() int
	SupportsSymbolExtraction() bool

	// Detect runs the Phase 1A syntactic pass over node (typically the
	// module root) and returns any relationships found.
	Detect(node *pyast.Node, file string, projectRoot string) []types.Relationship

	// ExtractSymbols runs Phase 1 symbol extraction, if
	// SupportsSymbolExtraction reports true.
	ExtractSymbols(node *pyast.Node, file string, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference)

	// DrainWarnings returns and clears any warnings accumulated since the
	// last call. Only warning-only detectors produce non-empty results.
	DrainWarnings() []types.DynamicPatternWarning
}

// Detector priorities. The import foundation pass runs first so later
// detectors can read resolved imports; warning-only detectors run last.
const (
	PriorityImport             = 100
	PriorityConditionalImport  = 95
	PriorityWildcardImport     = 90
	PriorityClassInheritance   = 50
	PriorityFunctionCall       = 50
	PriorityDynamicPattern     = 25
)

// Primer is implemented by detectors that hold a per-file cache: Prime
// is called once per file, before any Detect/ExtractSymbols call for
// that file's node walk, so the cache is warmed exactly once instead of
// lazily on the first node (which would otherwise need to special-case
// "have I seen root yet").
type Primer interface {
	Prime(file string, root *pyast.Node)
}

// Registry holds detectors ordered by descending priority, ties broken by
// insertion order (a stable sort preserves that automatically).
type Registry struct {
	detectors []Detector
}

// NewRegistry builds a Registry from detectors, sorting once at
// construction time.
func NewRegistry(detectors ...Detector) *Registry {
	r := &Registry{detectors: append([]Detector(nil), detectors...)}
	sort.SliceStable(r.detectors, func(i, j int) bool {
		return r.detectors[i].Priority() > r.detectors[j].Priority()
	})
	return r
}

// Detectors returns the ordered detector list.
func (r *Registry) Detectors() []Detector { return r.detectors }

// primeAll calls Prime on every detector that implements Primer, once per
// file, before the node-by-node walk begins. Detectors that hold no
// per-file cache (the warning-only detectors) simply don't implement
// Primer and are skipped.
func (r *Registry) primeAll(file string, root *pyast.Node) {
	for _, d := range r.detectors {
		if p, ok := d.(Primer); ok {
			p.Prime(file, root)
		}
	}
}

// DetectAll walks every node of root, invoking every detector in priority
// order at each node, and returns the aggregated relationships. A
// detector panic is recovered, reported via the returned error slice,
// and does not stop the remaining detectors or nodes: partial results
// beat a crash.
func (r *Registry) DetectAll(root *pyast.Node, file, projectRoot string) (rels []types.Relationship, detectorErrs []error) {
	r.primeAll(file, root)
	truncated := root.Walk(func(n *pyast.Node) {
		for _, d := range r.detectors {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						detectorErrs = append(detectorErrs, panicErr(d.Name(), rec))
					}
				}()
				rels = append(rels, d.Detect(n, file, projectRoot)...)
			}()
		}
	})
	if truncated {
		detectorErrs = append(detectorErrs, ErrWalkTruncated)
	}
	return rels, detectorErrs
}

// ExtractAll runs symbol extraction for every detector that supports it,
// across every node of root, and aggregates the results for Phase 1 of
// two-phase analysis. Detectors without symbol extraction (the
// warning-only ones) run their Detect pass instead, so their warnings
// are collected for DrainWarnings.
func (r *Registry) ExtractAll(root *pyast.Node, file, projectRoot string) (types.FileSymbolData, []error) {
	data := types.FileSymbolData{Filepath: file, IsValid: true}
	var errs []error

	r.primeAll(file, root)
	truncated := root.Walk(func(n *pyast.Node) {
		for _, d := range r.detectors {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						errs = append(errs, panicErr(d.Name(), rec))
					}
				}()
				if !d.SupportsSymbolExtraction() {
					d.Detect(n, file, projectRoot)
					return
				}
				defs, refs := d.ExtractSymbols(n, file, projectRoot)
				data.Definitions = append(data.Definitions, defs...)
				data.References = append(data.References, refs...)
			}()
		}
	})
	if truncated {
		errs = append(errs, ErrWalkTruncated)
	}

	return data, errs
}

// DrainWarnings collects and clears warnings from every detector.
func (r *Registry) DrainWarnings() []types.DynamicPatternWarning {
	var out []types.DynamicPatternWarning
	for _, d := range r.detectors {
		out = append(out, d.DrainWarnings()...)
	}
	return out
}

func panicErr(name string, rec interface{}) error {
	return detectorPanic{Detector: name, Value: rec}
}

type detectorPanic struct {
	Detector string
	Value    interface{}
}

func (e detectorPanic) Error() string {
	return "detector panic in " + e.Detector
}
