package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// DecoratorDetector flags decorators outside the known-safe set in
// allowedDecorators: a custom decorator can rewrap the decorated
// function or class into something unrelated to its source, so the true
// call target cannot be determined statically.
type DecoratorDetector struct {
	warnings []types.DynamicPatternWarning
}

func NewDecoratorDetector() *DecoratorDetector {
	return &DecoratorDetector{}
}

func (d *DecoratorDetector) Name() string                   { return "decorator" }
func (d *DecoratorDetector) Priority() int                  { return PriorityDynamicPattern }
func (d *DecoratorDetector) SupportsSymbolExtraction() bool { return false }

func (d *DecoratorDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	return nil, nil
}

func (d *DecoratorDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if node.Kind != "decorated_definition" {
		return nil
	}
	definitionType := ""
	for _, c := range node.Children {
		switch c.Kind {
		case "function_definition":
			definitionType = "function"
		case "class_definition":
			definitionType = "class"
		}
	}
	if definitionType == "" {
		return nil
	}

	for _, dec := range node.ChildrenOf("decorator") {
		name := decoratorName(dec)
		if name == "" || allowedDecorators[name] {
			continue
		}
		d.warnings = append(d.warnings, types.DynamicPatternWarning{
			Type:         types.PatternDecorator,
			File:         file,
			Line:         dec.Line,
			Severity:     types.SeverityInfo,
			Pattern:      types.PatternDecorator,
			Message:      "custom decorator applied: " + name,
			Metadata:     map[string]string{"decorator_name": name, "definition_type": definitionType},
			IsTestModule: isTestModule(file),
		})
	}
	return nil
}

func (d *DecoratorDetector) DrainWarnings() []types.DynamicPatternWarning {
	out := d.warnings
	d.warnings = nil
	return out
}

// decoratorName extracts the dotted decorator name from a "decorator"
// node, unwrapping a trailing call (e.g. @rate_limit(calls=10) ->
// "rate_limit").
func decoratorName(dec *pyast.Node) string {
	var expr *pyast.Node
	for _, c := range dec.Children {
		if c.Kind == "@" {
			continue
		}
		expr = c
		break
	}
	if expr == nil {
		return ""
	}
	if expr.Kind == "call" {
		callee := calleeOf(expr)
		if callee == nil {
			return ""
		}
		return callee.Text
	}
	return expr.Text
}
