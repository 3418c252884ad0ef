package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// DynamicDispatchDetector flags getattr(obj, name) calls whose attribute
// argument is not a string literal: the target cannot be determined
// statically, so a warning is emitted instead of a relationship.
// getattr(obj, "known_method") is resolvable and produces no warning.
type DynamicDispatchDetector struct {
	warnings []types.DynamicPatternWarning
}

func NewDynamicDispatchDetector() *DynamicDispatchDetector {
	return &DynamicDispatchDetector{}
}

func (d *DynamicDispatchDetector) Name() string                  { return "dynamic_dispatch" }
func (d *DynamicDispatchDetector) Priority() int                 { return PriorityDynamicPattern }
func (d *DynamicDispatchDetector) SupportsSymbolExtraction() bool { return false }

func (d *DynamicDispatchDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	return nil, nil
}

func (d *DynamicDispatchDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if node.Kind != "call" {
		return nil
	}
	callee := calleeOf(node)
	if callee == nil || callee.Kind != "identifier" || callee.Text != "getattr" {
		return nil
	}
	arglist := node.Child("argument_list")
	if arglist == nil {
		return nil
	}
	args := callArguments(arglist)
	if len(args) < 2 || args[1].Kind == "string" {
		return nil
	}

	d.warnings = append(d.warnings, types.DynamicPatternWarning{
		Type:         types.PatternDynamicDispatch,
		File:         file,
		Line:         node.Line,
		Severity:     types.SeverityWarning,
		Pattern:      types.PatternDynamicDispatch,
		Message:      "getattr() called with dynamic attribute name: " + args[1].Text,
		IsTestModule: isTestModule(file),
	})
	return nil
}

func (d *DynamicDispatchDetector) DrainWarnings() []types.DynamicPatternWarning {
	out := d.warnings
	d.warnings = nil
	return out
}
