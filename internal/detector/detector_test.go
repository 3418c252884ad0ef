package detector_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relctx/relctx/internal/analyzer"
	"github.com/relctx/relctx/internal/detector"
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/pkg/types"
)

func parse(t *testing.T, dir, name, source string) (string, *pyast.Node) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	root, err := pyast.NewParser().Parse(context.Background(), path, []byte(source))
	require.NoError(t, err)
	return path, root
}

// TestSimpleImportResolution: a.py imports utils.py, present on disk.
// Detecting a.py must yield exactly one import relationship resolving
// to utils.py's path, at line 1.
func TestSimpleImportResolution(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "utils.py"), []byte("def helper():\n    pass\n"), 0o644))
	a, root := parse(t, dir, "a.py", "import utils\n")

	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	rels, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)
	require.Len(t, rels, 1)
	assert.Equal(t, types.RelationshipImport, rels[0].RelationshipType)
	assert.Equal(t, filepath.Join(dir, "utils.py"), rels[0].TargetFile)
	assert.Equal(t, 1, rels[0].LineNumber)
}

// TestDynamicDetectorsNeverEmitRelationships: no warning-only detector
// may ever produce a relationship, even when the source syntactically
// suggests one (getattr with a dynamic name, exec/eval, attribute
// rebinding, an unknown decorator, and a metaclass=).
func TestDynamicDetectorsNeverEmitRelationships(t *testing.T) {
	dir := t.TempDir()
	source := `
import os

def pick(name):
    return getattr(os, name)

def run(code):
    exec(code)
    eval(code)

os.environ = {}

@some_unknown_decorator
def decorated():
    pass

class Meta(type):
    pass

class Widget(metaclass=Meta):
    pass
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	rels, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)

	for _, r := range rels {
		assert.NotEqual(t, "dynamic_dispatch", string(r.RelationshipType))
	}

	warnings := registry.DrainWarnings()
	require.NotEmpty(t, warnings)

	seen := map[string]bool{}
	for _, w := range warnings {
		seen[w.Pattern] = true
	}
	assert.True(t, seen[types.PatternDynamicDispatch], "expected a dynamic_dispatch warning")
	assert.True(t, seen[types.PatternExecEval], "expected an exec_eval warning")
	assert.True(t, seen[types.PatternAttributeRebinding], "expected an attribute_rebinding warning")
	assert.True(t, seen[types.PatternDecorator], "expected a decorator warning")
	assert.True(t, seen[types.PatternMetaclass], "expected a metaclass warning")
}

// TestGetattrWithLiteralProducesNoWarning: a literal attribute name is
// statically resolvable and must not be flagged.
func TestGetattrWithLiteralProducesNoWarning(t *testing.T) {
	dir := t.TempDir()
	a, root := parse(t, dir, "a.py", "x = getattr(obj, \"known_method\")\n")
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	_, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)
	warnings := registry.DrainWarnings()
	assert.Empty(t, warnings)
}

// TestDetectorCacheInvalidationAcrossFiles: analysing A then B on a
// shared detector instance must yield the same result as analysing B on
// a fresh detector. Demonstrated on the function-call detector, whose
// per-file cache is the correctness-critical invalidation point.
func TestDetectorCacheInvalidationAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	res := detector.NewResolver(dir, types.DefaultConfig())

	aSrc := "def helper():\n    pass\n\nhelper()\n"
	bSrc := "helper()\n"

	a, aRoot := parse(t, dir, "a.py", aSrc)
	b, bRoot := parse(t, dir, "b.py", bSrc)

	// Shared registry: analyze A, then B.
	shared := analyzer.NewRegistry(res)
	_, errs := shared.DetectAll(aRoot, a, dir)
	require.Empty(t, errs)
	sharedRels, errs := shared.DetectAll(bRoot, b, dir)
	require.Empty(t, errs)

	// Fresh registry analyzing only B.
	fresh := analyzer.NewRegistry(res)
	freshRels, errs := fresh.DetectAll(bRoot, b, dir)
	require.Empty(t, errs)

	require.Len(t, sharedRels, 1)
	require.Len(t, freshRels, 1)
	// B's bare call to helper() must resolve as unresolved in both cases:
	// A's local "helper" definition must not leak into B's cache entry.
	assert.Equal(t, freshRels[0].TargetFile, sharedRels[0].TargetFile)
	assert.Contains(t, sharedRels[0].TargetFile, "<unresolved:helper>")
}

// TestFunctionCallResolutionOrder exercises the four-branch resolution
// order within a single file: local definition, imported name, builtin,
// and unresolved.
func TestFunctionCallResolutionOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"), []byte("def do_thing():\n    pass\n"), 0o644))

	source := `import helpers

def local_fn():
    pass

local_fn()
helpers.do_thing()
len([1, 2])
totally_unknown_fn()
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	rels, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)

	byTargetSymbol := map[string]types.Relationship{}
	for _, r := range rels {
		if r.RelationshipType == types.RelationshipFunctionCall {
			byTargetSymbol[r.SourceSymbol] = r
		}
	}

	local, ok := byTargetSymbol["local_fn"]
	require.True(t, ok)
	assert.Equal(t, a, local.TargetFile)

	imported, ok := byTargetSymbol["helpers.do_thing"]
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "helpers.py"), imported.TargetFile)

	builtin, ok := byTargetSymbol["len"]
	require.True(t, ok)
	assert.Equal(t, "<builtin:len>", builtin.TargetFile)

	unresolved, ok := byTargetSymbol["totally_unknown_fn"]
	require.True(t, ok)
	assert.Equal(t, "<unresolved:totally_unknown_fn>", unresolved.TargetFile)
}

// TestAttributeRebindingRequiresImportedRoot: assignment to an attribute
// of a plain local object is an ordinary write, not a rebinding; only a
// root name that resolves through the file's import map is flagged.
func TestAttributeRebindingRequiresImportedRoot(t *testing.T) {
	dir := t.TempDir()
	source := `import os

widget = make_widget()
widget.color = "red"
os.environ = {}
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	_, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)

	var rebinds []types.DynamicPatternWarning
	for _, w := range registry.DrainWarnings() {
		if w.Pattern == types.PatternAttributeRebinding {
			rebinds = append(rebinds, w)
		}
	}
	require.Len(t, rebinds, 1, "only the import-qualified target may be flagged")
	assert.Contains(t, rebinds[0].Message, "os.environ")
}

// TestConditionalImportEmittedOnce: an import guarded by
// `if TYPE_CHECKING:` belongs to the conditional-import detector alone;
// the plain import detector must not emit a second, unannotated
// relationship for the same statement.
func TestConditionalImportEmittedOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"), []byte("def do_thing():\n    pass\n"), 0o644))

	source := `from typing import TYPE_CHECKING

if TYPE_CHECKING:
    import helpers
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	rels, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)

	var toHelpers []types.Relationship
	for _, r := range rels {
		if r.TargetFile == filepath.Join(dir, "helpers.py") {
			toHelpers = append(toHelpers, r)
		}
	}
	require.Len(t, toHelpers, 1, "guarded import must be emitted exactly once")
	assert.Equal(t, "true", toHelpers[0].Metadata["conditional"])
	assert.Equal(t, "TYPE_CHECKING", toHelpers[0].Metadata["condition_type"])
}

// TestExtractSymbolsDefinitionKinds covers Phase 1 extraction across the
// full SymbolKind set: class, method (with parent class), function (with
// signature), and module-level variable.
func TestExtractSymbolsDefinitionKinds(t *testing.T) {
	dir := t.TempDir()
	source := `VERSION = "1"

class Widget:
    def render(self):
        pass

def helper(x, y):
    return x + y
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	data, errs := registry.ExtractAll(root, a, dir)
	require.Empty(t, errs)

	byName := map[string]types.SymbolDefinition{}
	for _, d := range data.Definitions {
		byName[d.Name] = d
	}

	require.Contains(t, byName, "Widget")
	assert.Equal(t, types.SymbolClass, byName["Widget"].Kind)

	require.Contains(t, byName, "render")
	assert.Equal(t, types.SymbolMethod, byName["render"].Kind)
	assert.Equal(t, "Widget", byName["render"].ParentClass)

	require.Contains(t, byName, "helper")
	assert.Equal(t, types.SymbolFunction, byName["helper"].Kind)
	assert.Equal(t, "helper(x, y)", byName["helper"].Signature)

	require.Contains(t, byName, "VERSION")
	assert.Equal(t, types.SymbolVariable, byName["VERSION"].Kind)
}

// TestDecoratedClassExtractedOnce: a decorated class definition is
// visited both through its decorated_definition wrapper and as the inner
// class_definition node; exactly one definition (carrying the decorator
// name) may result.
func TestDecoratedClassExtractedOnce(t *testing.T) {
	dir := t.TempDir()
	source := `def register(cls):
    return cls

@register
class Widget:
    pass
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	data, errs := registry.ExtractAll(root, a, dir)
	require.Empty(t, errs)

	var widgets []types.SymbolDefinition
	for _, d := range data.Definitions {
		if d.Name == "Widget" {
			widgets = append(widgets, d)
		}
	}
	require.Len(t, widgets, 1)
	assert.Contains(t, widgets[0].Decorators, "register")
}

// TestClassInheritanceResolutionAndOrder exercises base-class resolution
// order plus the inheritance_order/total_parents metadata, and that a
// metaclass= keyword argument is not treated as a base class.
func TestClassInheritanceResolutionAndOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.py"), []byte("class Base:\n    pass\n"), 0o644))

	source := `import base

class Local:
    pass

class Meta(type):
    pass

class Child(Local, base.Base, Exception, metaclass=Meta):
    pass
`
	a, root := parse(t, dir, "a.py", source)
	res := detector.NewResolver(dir, types.DefaultConfig())
	registry := analyzer.NewRegistry(res)

	rels, errs := registry.DetectAll(root, a, dir)
	require.Empty(t, errs)

	var childRels []types.Relationship
	for _, r := range rels {
		if r.RelationshipType == types.RelationshipClassInheritance && r.SourceSymbol == "Child" {
			childRels = append(childRels, r)
		}
	}
	require.Len(t, childRels, 3, "metaclass= must not be counted as a base class")

	byTarget := map[string]types.Relationship{}
	for _, r := range childRels {
		byTarget[r.TargetSymbol] = r
		assert.Equal(t, "3", r.Metadata["total_parents"])
	}

	local := byTarget["Local"]
	assert.Equal(t, a, local.TargetFile)
	assert.Equal(t, "0", local.Metadata["inheritance_order"])

	imported := byTarget["Base"]
	assert.Equal(t, filepath.Join(dir, "base.py"), imported.TargetFile)
	assert.Equal(t, "1", imported.Metadata["inheritance_order"])

	builtin := byTarget["Exception"]
	assert.Equal(t, "<builtin:Exception>", builtin.TargetFile)
	assert.Equal(t, "2", builtin.Metadata["inheritance_order"])
}
