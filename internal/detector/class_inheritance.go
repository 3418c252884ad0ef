package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// ClassInheritanceDetector produces one relationship per base class
// listed in a class definition, resolving each against a per-file
// local-class cache and import map rebuilt whenever the detector sees a
// new file.
type ClassInheritanceDetector struct {
	resolver *Resolver
	fileCache
}

func NewClassInheritanceDetector(resolver *Resolver) *ClassInheritanceDetector {
	return &ClassInheritanceDetector{resolver: resolver}
}

func (d *ClassInheritanceDetector) Name() string                  { return "class_inheritance" }
func (d *ClassInheritanceDetector) Priority() int                 { return PriorityClassInheritance }
func (d *ClassInheritanceDetector) SupportsSymbolExtraction() bool { return true }
func (d *ClassInheritanceDetector) DrainWarnings() []types.DynamicPatternWarning { return nil }

func (d *ClassInheritanceDetector) Prime(file string, root *pyast.Node) {
	d.fileCache.refresh(file, root, d.resolver)
}

func (d *ClassInheritanceDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	class, bases := classDefAndBases(node)
	if class == nil {
		return nil
	}
	total := len(bases)
	var out []types.Relationship
	for i, base := range bases {
		target, symbol := d.resolveBase(base.text)
		out = append(out, types.Relationship{
			SourceFile:       file,
			TargetFile:       target,
			RelationshipType: types.RelationshipClassInheritance,
			LineNumber:       class.Line,
			SourceSymbol:     classNameOf(class),
			TargetSymbol:     symbol,
			Metadata: map[string]string{
				"inheritance_order": itoa(i),
				"total_parents":     itoa(total),
			},
		})
	}
	return out
}

func (d *ClassInheritanceDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	class, bases := classDefAndBases(node)
	if class == nil {
		return nil, nil
	}

	var baseNames []string
	var refs []types.SymbolReference
	for _, base := range bases {
		baseNames = append(baseNames, base.text)
		target, symbol := d.resolveBase(base.text)
		refs = append(refs, types.SymbolReference{
			Name: base.text, Kind: types.ReferenceClassReference, LineNumber: class.Line,
			ResolvedModule: target, ResolvedSymbol: symbol,
		})
	}

	def := types.SymbolDefinition{
		Name:      classNameOf(class),
		Kind:      types.SymbolClass,
		LineStart: class.Line,
		LineEnd:   classEndLine(class),
		Docstring: docstringOf(class),
		Bases:     baseNames,
	}
	if class.Parent != nil && class.Parent.Kind == "decorated_definition" {
		for _, dec := range class.Parent.ChildrenOf("decorator") {
			if name := decoratorName(dec); name != "" {
				def.Decorators = append(def.Decorators, name)
			}
		}
	}
	return []types.SymbolDefinition{def}, refs
}

// resolveBase resolves a single base-class reference in order: local
// class -> imported name -> builtin type -> unresolved. Module-qualified
// bases (pkg.Base) resolve via the import map for the module prefix.
func (d *ClassInheritanceDetector) resolveBase(baseText string) (target, symbol string) {
	if qualifier, attr, ok := splitQualified(baseText); ok {
		if binding, ok := d.importMap[qualifier]; ok {
			return binding.ResolvedModule, attr
		}
		return "<unresolved:" + baseText + ">", attr
	}

	if d.localNames[baseText] {
		return d.cachedFile, baseText
	}
	if binding, ok := d.importMap[baseText]; ok {
		return binding.ResolvedModule, firstNonEmpty(binding.ResolvedSymbol, baseText)
	}
	if builtinNames[baseText] {
		return "<builtin:" + baseText + ">", baseText
	}
	return "<unresolved:" + baseText + ">", baseText
}

// classDefAndBases returns node when it is a class_definition, plus its
// direct base-class expressions in source order, skipping keyword
// arguments (e.g. metaclass=...). A decorated class is handled when the
// walk reaches the inner class_definition node, so a
// decorated_definition wrapper never produces a second emission.
func classDefAndBases(node *pyast.Node) (*pyast.Node, []baseRef) {
	if node.Kind != "class_definition" {
		return nil, nil
	}
	class := node

	arglist := class.Child("argument_list")
	if arglist == nil {
		return class, nil
	}

	var bases []baseRef
	for _, arg := range arglist.Children {
		switch arg.Kind {
		case "identifier", "attribute":
			bases = append(bases, baseRef{text: arg.Text})
		case "keyword_argument":
			// metaclass=X and similar: not a base class.
			continue
		}
	}
	return class, bases
}

type baseRef struct{ text string }

func classNameOf(class *pyast.Node) string {
	if id := class.Child("identifier"); id != nil {
		return id.Text
	}
	return ""
}

func classEndLine(class *pyast.Node) int {
	if class.EndLine > 0 {
		return class.EndLine
	}
	return class.Line
}

// splitQualified splits a "pkg.Name" base-class expression into its module
// prefix and attribute name; ok is false for a bare identifier.
func splitQualified(text string) (qualifier, attr string, ok bool) {
	idx := -1
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", "", false
	}
	return text[:idx], text[idx+1:], true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
