package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relctx/relctx/internal/cache"
	"github.com/relctx/relctx/internal/graph"
	"github.com/relctx/relctx/pkg/types"
)

func TestAssembleListsDependenciesAndDependents(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "b.py")
	require.NoError(t, os.WriteFile(b, []byte("def helper():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("from b import helper\nhelper()\n"), 0o644))

	g := graph.New()
	require.NoError(t, g.Add(types.Relationship{
		SourceFile: a, TargetFile: b, RelationshipType: types.RelationshipImport,
		LineNumber: 1, TargetSymbol: "helper", TargetLine: 1,
	}))

	c := cache.New(1<<20, nil)
	asm := New(g, c, 500, 1<<20)

	result := asm.Assemble(a)
	assert.Contains(t, result.Text, "## Dependencies")
	assert.Contains(t, result.Text, b)
	assert.False(t, result.BudgetExceeded)

	depResult := asm.Assemble(b)
	assert.Contains(t, depResult.Text, "## Dependents")
	assert.Contains(t, depResult.Text, a)
}

func TestAssembleHandlesSentinelDependencyWithoutSnippet(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("import os\n"), 0o644))

	g := graph.New()
	sentinel := types.Sentinel(types.SentinelStdlib, "os")
	require.NoError(t, g.Add(types.Relationship{
		SourceFile: a, TargetFile: sentinel, RelationshipType: types.RelationshipImport, LineNumber: 1,
	}))

	asm := New(g, nil, 500, 1<<20)
	result := asm.Assemble(a)
	assert.Contains(t, result.Text, sentinel)
}

func TestAssembleReportsBudgetExceeded(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("pass\n"), 0o644))

	g := graph.New()
	for i := 0; i < 50; i++ {
		target := filepath.Join(dir, "m"+strings.Repeat("x", i)+".py")
		require.NoError(t, g.Add(types.Relationship{
			SourceFile: a, TargetFile: target, RelationshipType: types.RelationshipImport, LineNumber: i + 1,
		}))
	}

	asm := New(g, nil, 10, 1<<20)
	result := asm.Assemble(a)
	assert.True(t, result.BudgetExceeded)
}

func TestAssembleWithNoRelationships(t *testing.T) {
	g := graph.New()
	asm := New(g, nil, 500, 1<<20)
	result := asm.Assemble("/tmp/solo.py")
	assert.Contains(t, result.Text, "_none_")
}
