package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// ExecEvalDetector flags exec()/eval() calls: the code they run is
// opaque to static analysis, so no relationship can be produced.
type ExecEvalDetector struct {
	warnings []types.DynamicPatternWarning
}

func NewExecEvalDetector() *ExecEvalDetector {
	return &ExecEvalDetector{}
}

func (d *ExecEvalDetector) Name() string                   { return "exec_eval" }
func (d *ExecEvalDetector) Priority() int                  { return PriorityDynamicPattern }
func (d *ExecEvalDetector) SupportsSymbolExtraction() bool { return false }

func (d *ExecEvalDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	return nil, nil
}

func (d *ExecEvalDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if node.Kind != "call" {
		return nil
	}
	callee := calleeOf(node)
	if callee == nil || callee.Kind != "identifier" {
		return nil
	}
	name := callee.Text
	if name != "exec" && name != "eval" {
		return nil
	}

	d.warnings = append(d.warnings, types.DynamicPatternWarning{
		Type:         types.PatternExecEval,
		File:         file,
		Line:         node.Line,
		Severity:     types.SeverityWarning,
		Pattern:      types.PatternExecEval,
		Message:      name + "() call detected - dynamic code execution is not analyzable",
		Metadata:     map[string]string{"function_name": name},
		IsTestModule: isTestModule(file),
	})
	return nil
}

func (d *ExecEvalDetector) DrainWarnings() []types.DynamicPatternWarning {
	out := d.warnings
	d.warnings = nil
	return out
}
