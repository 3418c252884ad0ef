package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// ImportDetector is the foundation-pass detector: it extracts every
// import form and resolves the target module against the filesystem,
// stdlib set, and known-third-party set, in that fixed order.
type ImportDetector struct {
	resolver *Resolver
}

func NewImportDetector(resolver *Resolver) *ImportDetector {
	return &ImportDetector{resolver: resolver}
}

func (d *ImportDetector) Name() string                   { return "import" }
func (d *ImportDetector) Priority() int                   { return PriorityImport }
func (d *ImportDetector) SupportsSymbolExtraction() bool  { return true }
func (d *ImportDetector) DrainWarnings() []types.DynamicPatternWarning { return nil }

func (d *ImportDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if underConditionalGuard(node) {
		return nil
	}
	switch node.Kind {
	case "import_statement":
		return d.detectImportStatement(node, file)
	case "import_from_statement":
		return d.detectImportFromStatement(node, file)
	default:
		return nil
	}
}

func (d *ImportDetector) detectImportStatement(node *pyast.Node, file string) []types.Relationship {
	var out []types.Relationship
	for _, binding := range importStatementBindings(node, d.resolver) {
		out = append(out, types.Relationship{
			SourceFile:       file,
			TargetFile:       binding.ResolvedModule,
			RelationshipType: types.RelationshipImport,
			LineNumber:       node.Line,
			TargetSymbol:     binding.ResolvedSymbol,
		})
	}
	return out
}

func (d *ImportDetector) detectImportFromStatement(node *pyast.Node, file string) []types.Relationship {
	var out []types.Relationship
	for _, binding := range importFromBindings(node, file, d.resolver) {
		if binding.IsWildcard {
			// Owned by WildcardImportDetector.
			continue
		}
		out = append(out, types.Relationship{
			SourceFile:       file,
			TargetFile:       binding.ResolvedModule,
			RelationshipType: types.RelationshipImport,
			LineNumber:       node.Line,
			TargetSymbol:     binding.ResolvedSymbol,
		})
	}
	return out
}

func (d *ImportDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	if underConditionalGuard(node) {
		return nil, nil
	}
	var refs []types.SymbolReference
	switch node.Kind {
	case "import_statement":
		for _, binding := range importStatementBindings(node, d.resolver) {
			refs = append(refs, types.SymbolReference{
				Name:           binding.name,
				Kind:           types.ReferenceImport,
				LineNumber:     node.Line,
				ResolvedModule: binding.ResolvedModule,
				ResolvedSymbol: binding.ResolvedSymbol,
			})
		}
	case "import_from_statement":
		level, modDotted := relativeImportInfo(node)
		for _, binding := range importFromBindings(node, file, d.resolver) {
			refs = append(refs, types.SymbolReference{
				Name:           binding.name,
				Kind:           types.ReferenceImport,
				LineNumber:     node.Line,
				ResolvedModule: binding.ResolvedModule,
				ResolvedSymbol: binding.ResolvedSymbol,
				ModuleName:     modDotted,
				IsRelative:     level > 0,
				RelativeLevel:  level,
				IsWildcard:     binding.IsWildcard,
			})
		}
	}
	return nil, refs
}
