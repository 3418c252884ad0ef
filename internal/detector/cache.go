package detector

import (
	"github.com/relctx/relctx/internal/pyast"
)

// refresh rebuilds c's localNames and importMap from root's top-level
// statements if file differs from the cached file. Detector instances
// are reused across files, so cache invalidation must be keyed on the
// file argument of every call, not on a constructor-time value. Only
// top-level definitions are cached; nested scopes are not scanned.
func (c *fileCache) refresh(file string, root *pyast.Node, resolver *Resolver) {
	if c.cachedFile == file && c.localNames != nil {
		return
	}

	c.cachedFile = file
	c.localNames = make(map[string]bool)
	c.importMap = make(map[string]ImportBinding)

	if root == nil {
		return
	}

	for _, stmt := range topLevelStatements(root) {
		switch stmt.Kind {
		case "function_definition", "class_definition":
			if id := stmt.Child("identifier"); id != nil {
				c.localNames[id.Text] = true
			}
		case "decorated_definition":
			for _, inner := range stmt.Children {
				if inner.Kind == "function_definition" || inner.Kind == "class_definition" {
					if id := inner.Child("identifier"); id != nil {
						c.localNames[id.Text] = true
					}
				}
			}
		case "import_statement":
			for _, binding := range importStatementBindings(stmt, resolver) {
				c.importMap[binding.name] = binding.ImportBinding
			}
		case "import_from_statement":
			for _, binding := range importFromBindings(stmt, file, resolver) {
				c.importMap[binding.name] = binding.ImportBinding
			}
		}
	}
}

// topLevelStatements returns the direct children of root as the
// top-level statements, whatever root's kind; no wrapping node is
// descended into.
func topLevelStatements(root *pyast.Node) []*pyast.Node {
	if root.Kind == "module" {
		return root.Children
	}
	return root.Children
}

type namedBinding struct {
	name string
	ImportBinding
}

// importStatementBindings handles "import a.b.c" and "import a.b.c as x"
// and comma-separated forms, producing one binding per introduced local
// name.
func importStatementBindings(stmt *pyast.Node, resolver *Resolver) []namedBinding {
	var out []namedBinding
	for _, child := range stmt.Children {
		switch child.Kind {
		case "dotted_name":
			dotted := child.Text
			head := firstSegment(dotted)
			out = append(out, namedBinding{
				name: head,
				ImportBinding: ImportBinding{
					ResolvedModule: resolver.ResolveAbsolute(dotted),
				},
			})
		case "aliased_import":
			dottedNode := child.Child("dotted_name")
			aliasNode := lastIdentifier(child)
			if dottedNode == nil || aliasNode == nil {
				continue
			}
			out = append(out, namedBinding{
				name: aliasNode.Text,
				ImportBinding: ImportBinding{
					ResolvedModule: resolver.ResolveAbsolute(dottedNode.Text),
				},
			})
		}
	}
	return out
}

// importFromBindings handles "from a.b import c, d as e" and relative
// forms ("from . import x", "from ..pkg import y").
func importFromBindings(stmt *pyast.Node, file string, resolver *Resolver) []namedBinding {
	level, modDotted := relativeImportInfo(stmt)
	var moduleTarget string
	if level > 0 {
		moduleTarget = resolver.ResolveRelative(file, level, modDotted)
	} else {
		moduleTarget = resolver.ResolveAbsolute(modDotted)
	}

	var out []namedBinding
	for _, child := range stmt.Children {
		switch child.Kind {
		case "wildcard_import":
			out = append(out, namedBinding{
				name: "*",
				ImportBinding: ImportBinding{
					ResolvedModule: moduleTarget,
					IsWildcard:     true,
				},
			})
		case "dotted_name":
			// Skip the module-name occurrence itself; imported names in
			// tree-sitter-python's import_from_statement appear as
			// sibling dotted_name/aliased_import nodes after "import".
			if child.Text == modDotted {
				continue
			}
			out = append(out, namedBinding{
				name: child.Text,
				ImportBinding: ImportBinding{
					ResolvedModule: moduleTarget,
					ResolvedSymbol: child.Text,
				},
			})
		case "aliased_import":
			dottedNode := child.Child("dotted_name")
			aliasNode := lastIdentifier(child)
			if dottedNode == nil || aliasNode == nil {
				continue
			}
			out = append(out, namedBinding{
				name: aliasNode.Text,
				ImportBinding: ImportBinding{
					ResolvedModule: moduleTarget,
					ResolvedSymbol: dottedNode.Text,
				},
			})
		}
	}
	return out
}

// relativeImportInfo scans an import_from_statement for a leading
// relative_import node (sequence of '.' tokens) and the module dotted
// name that follows it, returning level=0 when the import is absolute.
func relativeImportInfo(stmt *pyast.Node) (level int, dotted string) {
	for _, child := range stmt.Children {
		switch child.Kind {
		case "relative_import":
			for _, c := range child.Children {
				if c.Kind == "import_prefix" {
					level += len(c.Text)
				}
				if c.Kind == "dotted_name" {
					dotted = c.Text
				}
			}
		case "import_prefix":
			level += len(child.Text)
		}
	}
	if level == 0 {
		// First dotted_name in the statement (before "import") is the
		// module, for the absolute "from a.b import c" form.
		for _, child := range stmt.Children {
			if child.Kind == "dotted_name" {
				return 0, child.Text
			}
		}
	}
	return level, dotted
}

func firstSegment(dotted string) string {
	for i, r := range dotted {
		if r == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

func lastIdentifier(n *pyast.Node) *pyast.Node {
	var last *pyast.Node
	for _, c := range n.Children {
		if c.Kind == "identifier" {
			last = c
		}
	}
	return last
}
