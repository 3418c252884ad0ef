package detector

import (
	"path/filepath"
	"strings"

	"github.com/relctx/relctx/internal/pyast"
)

// isTestModule classifies file as a test module by filename convention
// (test_*.py, *_test.py, conftest.py) or by location under a "tests"
// directory. The classification never suppresses emission by itself;
// warning-suppression config decides whether a test-module warning is
// dropped.
func isTestModule(file string) bool {
	base := filepath.Base(file)
	if base == "conftest.py" {
		return true
	}
	name := strings.TrimSuffix(base, ".py")
	if strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(file)), "/") {
		if part == "tests" {
			return true
		}
	}
	return false
}

// callArguments returns the real argument expressions of an
// argument_list node, skipping the literal "(", ",", ")" tokens that
// tree-sitter includes as direct children.
func callArguments(arglist *pyast.Node) []*pyast.Node {
	var out []*pyast.Node
	for _, c := range arglist.Children {
		switch c.Kind {
		case "(", ")", ",":
			continue
		default:
			out = append(out, c)
		}
	}
	return out
}

// attributeRoot returns the leftmost identifier of a possibly-nested
// attribute chain (a.b.c -> "a").
func attributeRoot(node *pyast.Node) string {
	for node != nil {
		if node.Kind == "identifier" {
			return node.Text
		}
		if node.Kind != "attribute" || len(node.Children) == 0 {
			return ""
		}
		node = node.Children[0]
	}
	return ""
}
