package updater

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relctx/relctx/internal/analyzer"
	"github.com/relctx/relctx/internal/builder"
	"github.com/relctx/relctx/internal/detector"
	"github.com/relctx/relctx/internal/graph"
	"github.com/relctx/relctx/pkg/types"
)

func newTestUpdater(t *testing.T, root string) (*Updater, *graph.Graph) {
	t.Helper()
	g := graph.New()
	res := detector.NewResolver(root, types.DefaultConfig())
	az := analyzer.New(analyzer.NewRegistry(res))
	b := builder.New()
	return New(g, az, b, nil, root, nil), g
}

func TestOnCreateAddsRelationshipsForImport(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b.py")
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(b, []byte("def helper():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("import b\nb.helper()\n"), 0o644))

	u, g := newTestUpdater(t, dir)
	require.True(t, u.OnCreate(b))
	require.True(t, u.OnCreate(a))

	deps := g.Dependencies(a)
	assert.NotEmpty(t, deps)
}

func TestOnModifyRollsBackOnFailureUnlessUnparseable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("x = 1\n"), 0o644))

	u, g := newTestUpdater(t, dir)
	require.True(t, u.OnCreate(a))

	require.NoError(t, os.WriteFile(a, []byte("def broken(:\n"), 0o644))
	u.OnModify(a)

	meta, ok := g.GetMetadata(a)
	require.True(t, ok)
	assert.True(t, meta.IsUnparseable)
}

func TestOnDeleteEmitsBrokenReferenceWarningsAndRemovesEdges(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b.py")
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(b, []byte("def helper():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("import b\nb.helper()\n"), 0o644))

	u, g := newTestUpdater(t, dir)
	require.True(t, u.OnCreate(b))
	require.True(t, u.OnCreate(a))
	require.NotEmpty(t, g.Dependents(b))

	require.NoError(t, os.Remove(b))
	warnings := u.OnDelete(b)

	assert.NotEmpty(t, warnings)
	assert.Empty(t, g.Dependents(b))
	meta, ok := g.GetMetadata(b)
	require.True(t, ok)
	assert.True(t, meta.Deleted)
}

func TestValidateFilepathRejectsOutsideRoot(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	u, _ := newTestUpdater(t, dir)

	outside := filepath.Join(other, "evil.py")
	require.NoError(t, os.WriteFile(outside, []byte("x = 1\n"), 0o644))
	assert.False(t, u.OnCreate(outside))
}

func TestProcessPendingWithNoWatcherIsNoop(t *testing.T) {
	dir := t.TempDir()
	u, _ := newTestUpdater(t, dir)
	stats := u.ProcessPending()
	assert.Equal(t, 0, stats.Total)
}
