package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// WildcardImportDetector owns `from module import *` forms: exactly one
// relationship to the module, marked wildcard=true. Later detectors
// cannot resolve names such an import introduces, since the set of
// names is undecidable without executing module.
type WildcardImportDetector struct {
	resolver *Resolver
}

func NewWildcardImportDetector(resolver *Resolver) *WildcardImportDetector {
	return &WildcardImportDetector{resolver: resolver}
}

func (d *WildcardImportDetector) Name() string                   { return "wildcard_import" }
func (d *WildcardImportDetector) Priority() int                  { return PriorityWildcardImport }
func (d *WildcardImportDetector) SupportsSymbolExtraction() bool { return true }
func (d *WildcardImportDetector) DrainWarnings() []types.DynamicPatternWarning { return nil }

func (d *WildcardImportDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if node.Kind != "import_from_statement" || underConditionalGuard(node) {
		return nil
	}
	var out []types.Relationship
	for _, binding := range importFromBindings(node, file, d.resolver) {
		if !binding.IsWildcard {
			continue
		}
		out = append(out, types.Relationship{
			SourceFile:       file,
			TargetFile:       binding.ResolvedModule,
			RelationshipType: types.RelationshipImport,
			LineNumber:       node.Line,
			Metadata:         map[string]string{"wildcard": "true"},
		})
	}
	return out
}

func (d *WildcardImportDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	if node.Kind != "import_from_statement" || underConditionalGuard(node) {
		return nil, nil
	}
	var refs []types.SymbolReference
	for _, binding := range importFromBindings(node, file, d.resolver) {
		if !binding.IsWildcard {
			continue
		}
		refs = append(refs, types.SymbolReference{
			Name: "*", Kind: types.ReferenceImport, LineNumber: node.Line,
			ResolvedModule: binding.ResolvedModule, IsWildcard: true,
		})
	}
	return nil, refs
}
