package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// FunctionCallDetector matches bare-name calls (f()) and module-qualified
// two-level calls (m.f()). Method chains and attribute chains longer
// than two levels are deliberately not emitted: correctness over
// coverage.
type FunctionCallDetector struct {
	resolver *Resolver
	fileCache
}

func NewFunctionCallDetector(resolver *Resolver) *FunctionCallDetector {
	return &FunctionCallDetector{resolver: resolver}
}

func (d *FunctionCallDetector) Name() string                   { return "function_call" }
func (d *FunctionCallDetector) Priority() int                  { return PriorityFunctionCall }
func (d *FunctionCallDetector) SupportsSymbolExtraction() bool { return true }
func (d *FunctionCallDetector) DrainWarnings() []types.DynamicPatternWarning { return nil }

func (d *FunctionCallDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	rel, ok := d.detectCall(node, file)
	if !ok {
		return nil
	}
	return []types.Relationship{rel}
}

func (d *FunctionCallDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	switch node.Kind {
	case "function_definition":
		if def, ok := functionDefinition(node); ok {
			return []types.SymbolDefinition{def}, nil
		}
		return nil, nil
	case "assignment":
		if def, ok := moduleVariableDefinition(node); ok {
			return []types.SymbolDefinition{def}, nil
		}
		return nil, nil
	}

	rel, ok := d.detectCall(node, file)
	if !ok {
		return nil, nil
	}
	return nil, []types.SymbolReference{{
		Name: rel.SourceSymbol, Kind: types.ReferenceFunctionCall, LineNumber: rel.LineNumber,
		ResolvedModule: rel.TargetFile, ResolvedSymbol: rel.TargetSymbol,
		IsMethodCall: rel.Metadata["method_call"] == "true",
	}}
}

// functionDefinition builds the SymbolDefinition for a function_definition
// node: kind method when the nearest enclosing definition is a class,
// with the enclosing class name, the parameter-list signature, any
// decorators from a wrapping decorated_definition, and a leading
// docstring when present.
func functionDefinition(node *pyast.Node) (types.SymbolDefinition, bool) {
	id := node.Child("identifier")
	if id == nil {
		return types.SymbolDefinition{}, false
	}

	def := types.SymbolDefinition{
		Name:      id.Text,
		Kind:      types.SymbolFunction,
		LineStart: node.Line,
		LineEnd:   node.EndLine,
		Docstring: docstringOf(node),
	}
	if params := node.Child("parameters"); params != nil {
		def.Signature = id.Text + params.Text
	}
	if class := enclosingClass(node); class != nil {
		def.Kind = types.SymbolMethod
		def.ParentClass = classNameOf(class)
	}
	if node.Parent != nil && node.Parent.Kind == "decorated_definition" {
		for _, dec := range node.Parent.ChildrenOf("decorator") {
			if name := decoratorName(dec); name != "" {
				def.Decorators = append(def.Decorators, name)
			}
		}
	}
	return def, true
}

// moduleVariableDefinition builds a variable SymbolDefinition for a
// module-level "name = ..." assignment. Class- and function-scoped
// assignments are skipped; so are tuple/attribute targets.
func moduleVariableDefinition(node *pyast.Node) (types.SymbolDefinition, bool) {
	if node.Parent == nil || node.Parent.Kind != "expression_statement" {
		return types.SymbolDefinition{}, false
	}
	stmt := node.Parent
	if stmt.Parent == nil || stmt.Parent.Kind != "module" {
		return types.SymbolDefinition{}, false
	}
	if len(node.Children) == 0 || node.Children[0].Kind != "identifier" {
		return types.SymbolDefinition{}, false
	}
	return types.SymbolDefinition{
		Name:      node.Children[0].Text,
		Kind:      types.SymbolVariable,
		LineStart: node.Line,
		LineEnd:   node.EndLine,
	}, true
}

// enclosingClass walks up from n to the nearest class_definition,
// stopping at an intervening function_definition (a function nested in a
// method is still a function, not a method of the outer class).
func enclosingClass(n *pyast.Node) *pyast.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Kind {
		case "class_definition":
			return p
		case "function_definition":
			return nil
		}
	}
	return nil
}

// docstringOf returns the text of a definition body's leading string
// expression, stripped of its quotes, or "".
func docstringOf(node *pyast.Node) string {
	block := node.Child("block")
	if block == nil || len(block.Children) == 0 {
		return ""
	}
	first := block.Children[0]
	if first.Kind != "expression_statement" || len(first.Children) == 0 {
		return ""
	}
	str := first.Children[0]
	if str.Kind != "string" {
		return ""
	}
	return stripQuotes(str.Text)
}

func stripQuotes(s string) string {
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && s[:len(q)] == q && s[len(s)-len(q):] == q {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

func (d *FunctionCallDetector) detectCall(node *pyast.Node, file string) (types.Relationship, bool) {
	if node.Kind != "call" {
		return types.Relationship{}, false
	}
	callee := calleeOf(node)
	if callee == nil {
		return types.Relationship{}, false
	}

	switch callee.Kind {
	case "identifier":
		name := callee.Text
		target, targetSymbol := d.resolveBareName(name)
		return types.Relationship{
			SourceFile: file, TargetFile: target, RelationshipType: types.RelationshipFunctionCall,
			LineNumber: node.Line, SourceSymbol: name, TargetSymbol: targetSymbol,
		}, true
	case "attribute":
		obj := callee.Children
		if len(obj) < 2 {
			return types.Relationship{}, false
		}
		object := callee.Child("identifier")
		// attribute node shape: object . attribute; object must itself be
		// a bare identifier (not a further attribute/call) to stay within
		// the two-level limit.
		if callee.Children[0].Kind != "identifier" {
			return types.Relationship{}, false
		}
		attrName := lastIdentifier(callee)
		if object == nil || attrName == nil || object == attrName {
			return types.Relationship{}, false
		}
		moduleName := callee.Children[0].Text
		target := d.resolveQualified(moduleName)
		return types.Relationship{
			SourceFile: file, TargetFile: target, RelationshipType: types.RelationshipFunctionCall,
			LineNumber: node.Line, SourceSymbol: moduleName + "." + attrName.Text, TargetSymbol: attrName.Text,
			Metadata: map[string]string{"method_call": "true"},
		}, true
	default:
		return types.Relationship{}, false
	}
}

func (d *FunctionCallDetector) resolveBareName(name string) (target, symbol string) {
	if d.localNames[name] {
		return d.cachedFile, name
	}
	if binding, ok := d.importMap[name]; ok {
		return binding.ResolvedModule, firstNonEmpty(binding.ResolvedSymbol, name)
	}
	if builtinNames[name] {
		return "<builtin:" + name + ">", name
	}
	return "<unresolved:" + name + ">", name
}

func (d *FunctionCallDetector) resolveQualified(moduleAlias string) string {
	if binding, ok := d.importMap[moduleAlias]; ok {
		return binding.ResolvedModule
	}
	return "<unresolved:" + moduleAlias + ">"
}

// calleeOf returns the callable expression of a "call" node: its first
// child that is not the trailing argument_list.
func calleeOf(node *pyast.Node) *pyast.Node {
	for _, c := range node.Children {
		if c.Kind != "argument_list" {
			return c
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Prime implements detector.Primer: it warms the per-file local-name and
// import-map caches once per file, before Detect/ExtractSymbols are
// invoked node-by-node across that file's walk.
func (d *FunctionCallDetector) Prime(file string, root *pyast.Node) {
	d.fileCache.refresh(file, root, d.resolver)
}
