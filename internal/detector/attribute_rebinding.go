package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// AttributeRebindingDetector flags assignment to an import-qualified
// attribute: the leftmost name of the target must resolve through the
// current file's import map. self.attr and cls.attr assignments are
// excluded, as is any root name that is not an import: those are
// ordinary instance/object attribute writes, not a rebinding of an
// imported module's surface.
type AttributeRebindingDetector struct {
	resolver *Resolver
	fileCache
	warnings []types.DynamicPatternWarning
}

func NewAttributeRebindingDetector(resolver *Resolver) *AttributeRebindingDetector {
	return &AttributeRebindingDetector{resolver: resolver}
}

func (d *AttributeRebindingDetector) Prime(file string, root *pyast.Node) {
	d.fileCache.refresh(file, root, d.resolver)
}

func (d *AttributeRebindingDetector) Name() string                   { return "attribute_rebinding" }
func (d *AttributeRebindingDetector) Priority() int                  { return PriorityDynamicPattern }
func (d *AttributeRebindingDetector) SupportsSymbolExtraction() bool { return false }

func (d *AttributeRebindingDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	return nil, nil
}

func (d *AttributeRebindingDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if node.Kind != "assignment" || len(node.Children) == 0 {
		return nil
	}
	left := node.Children[0]
	if left.Kind != "attribute" {
		return nil
	}
	root := attributeRoot(left)
	if root == "" || root == "self" || root == "cls" {
		return nil
	}
	if _, imported := d.importMap[root]; !imported {
		return nil
	}

	d.warnings = append(d.warnings, types.DynamicPatternWarning{
		Type:         types.PatternAttributeRebinding,
		File:         file,
		Line:         node.Line,
		Severity:     types.SeverityWarning,
		Pattern:      types.PatternAttributeRebinding,
		Message:      "attribute rebinding detected: " + left.Text,
		IsTestModule: isTestModule(file),
	})
	return nil
}

func (d *AttributeRebindingDetector) DrainWarnings() []types.DynamicPatternWarning {
	out := d.warnings
	d.warnings = nil
	return out
}
