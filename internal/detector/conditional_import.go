package detector

import (
	"strings"

	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// ConditionalImportDetector matches `if TYPE_CHECKING:` and
// `if sys.version_info <op> (...):` guards. Only imports in the guard's
// immediate body are emitted; nested if-blocks are not descended.
type ConditionalImportDetector struct {
	resolver *Resolver
}

func NewConditionalImportDetector(resolver *Resolver) *ConditionalImportDetector {
	return &ConditionalImportDetector{resolver: resolver}
}

func (d *ConditionalImportDetector) Name() string                  { return "conditional_import" }
func (d *ConditionalImportDetector) Priority() int                 { return PriorityConditionalImport }
func (d *ConditionalImportDetector) SupportsSymbolExtraction() bool { return true }
func (d *ConditionalImportDetector) DrainWarnings() []types.DynamicPatternWarning { return nil }

func (d *ConditionalImportDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	conditionType, ok := classifyGuard(node)
	if !ok {
		return nil
	}

	var out []types.Relationship
	for _, stmt := range immediateBody(node) {
		switch stmt.Kind {
		case "import_statement":
			for _, binding := range importStatementBindings(stmt, d.resolver) {
				out = append(out, conditionalRelationship(file, stmt.Line, binding.ImportBinding, conditionType))
			}
		case "import_from_statement":
			for _, binding := range importFromBindings(stmt, file, d.resolver) {
				out = append(out, conditionalRelationship(file, stmt.Line, binding.ImportBinding, conditionType))
			}
		}
	}
	return out
}

func (d *ConditionalImportDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	conditionType, ok := classifyGuard(node)
	if !ok {
		return nil, nil
	}
	var refs []types.SymbolReference
	for _, stmt := range immediateBody(node) {
		switch stmt.Kind {
		case "import_statement":
			for _, binding := range importStatementBindings(stmt, d.resolver) {
				refs = append(refs, types.SymbolReference{
					Name: binding.name, Kind: types.ReferenceImport, LineNumber: stmt.Line,
					ResolvedModule: binding.ResolvedModule, IsConditional: true,
					Metadata: map[string]string{"condition_type": conditionType},
				})
			}
		case "import_from_statement":
			for _, binding := range importFromBindings(stmt, file, d.resolver) {
				refs = append(refs, types.SymbolReference{
					Name: binding.name, Kind: types.ReferenceImport, LineNumber: stmt.Line,
					ResolvedModule: binding.ResolvedModule, ResolvedSymbol: binding.ResolvedSymbol,
					IsConditional: true,
					Metadata:      map[string]string{"condition_type": conditionType},
				})
			}
		}
	}
	return nil, refs
}

func conditionalRelationship(file string, line int, binding ImportBinding, conditionType string) types.Relationship {
	return types.Relationship{
		SourceFile:       file,
		TargetFile:       binding.ResolvedModule,
		RelationshipType: types.RelationshipImport,
		LineNumber:       line,
		TargetSymbol:     binding.ResolvedSymbol,
		Metadata: map[string]string{
			"conditional":    "true",
			"condition_type": conditionType,
		},
	}
}

// classifyGuard reports whether node is an if_statement matching one of
// the two recognised conditional-import guards, and which kind.
func classifyGuard(node *pyast.Node) (conditionType string, ok bool) {
	if node.Kind != "if_statement" {
		return "", false
	}
	cond := conditionOf(node)
	if cond == nil {
		return "", false
	}

	text := strings.TrimSpace(cond.Text)
	if text == "TYPE_CHECKING" || strings.HasSuffix(text, ".TYPE_CHECKING") {
		return "TYPE_CHECKING", true
	}
	if strings.Contains(text, "sys.version_info") {
		return "version_check", true
	}
	return "", false
}

// conditionOf returns the condition expression node of an if_statement:
// the first child that isn't the "if" keyword or the colon/block.
func conditionOf(node *pyast.Node) *pyast.Node {
	for _, c := range node.Children {
		switch c.Kind {
		case "if", ":", "block", "elif_clause", "else_clause":
			continue
		default:
			return c
		}
	}
	return nil
}

// underConditionalGuard reports whether node sits in the immediate body
// of a recognised conditional-import guard. The plain import detectors
// skip such nodes: they belong to ConditionalImportDetector, which
// attaches the conditional metadata.
func underConditionalGuard(node *pyast.Node) bool {
	if node.Parent == nil || node.Parent.Kind != "block" {
		return false
	}
	ifStmt := node.Parent.Parent
	if ifStmt == nil {
		return false
	}
	_, ok := classifyGuard(ifStmt)
	return ok
}

// immediateBody returns the direct statement children of an if_statement's
// block, without descending into nested if_statements.
func immediateBody(node *pyast.Node) []*pyast.Node {
	block := node.Child("block")
	if block == nil {
		return nil
	}
	return block.Children
}
