package detector

import (
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

// MetaclassDetector flags class metaclass=X declarations where X is not
// one of knownStandardMetaclasses: a custom metaclass can synthesize
// attributes and bases the static analysis never sees. The warning is
// informational and fires in every module, test code included, since a
// metaclass affects all instances of the class.
type MetaclassDetector struct {
	warnings []types.DynamicPatternWarning
}

func NewMetaclassDetector() *MetaclassDetector {
	return &MetaclassDetector{}
}

func (d *MetaclassDetector) Name() string                   { return "metaclass" }
func (d *MetaclassDetector) Priority() int                  { return PriorityDynamicPattern }
func (d *MetaclassDetector) SupportsSymbolExtraction() bool { return false }

func (d *MetaclassDetector) ExtractSymbols(node *pyast.Node, file, projectRoot string) ([]types.SymbolDefinition, []types.SymbolReference) {
	return nil, nil
}

func (d *MetaclassDetector) Detect(node *pyast.Node, file, projectRoot string) []types.Relationship {
	if node.Kind != "class_definition" {
		return nil
	}
	arglist := node.Child("argument_list")
	if arglist == nil {
		return nil
	}
	metaclass := metaclassArg(arglist)
	if metaclass == "" || knownStandardMetaclasses[metaclass] {
		return nil
	}

	d.warnings = append(d.warnings, types.DynamicPatternWarning{
		Type:         types.PatternMetaclass,
		File:         file,
		Line:         node.Line,
		Severity:     types.SeverityInfo,
		Pattern:      types.PatternMetaclass,
		Message:      "custom metaclass " + metaclass + " used by class " + classNameOf(node),
		Metadata:     map[string]string{"class_name": classNameOf(node), "metaclass_name": metaclass},
		IsTestModule: isTestModule(file),
	})
	return nil
}

func (d *MetaclassDetector) DrainWarnings() []types.DynamicPatternWarning {
	out := d.warnings
	d.warnings = nil
	return out
}

// metaclassArg returns the value of a metaclass=X keyword argument in
// arglist, or "" if none is present.
func metaclassArg(arglist *pyast.Node) string {
	for _, arg := range arglist.Children {
		if arg.Kind != "keyword_argument" {
			continue
		}
		name := arg.Child("identifier")
		if name == nil || name.Text != "metaclass" {
			continue
		}
		for _, c := range arg.Children {
			if c == name || c.Kind == "=" {
				continue
			}
			return c.Text
		}
	}
	return ""
}
