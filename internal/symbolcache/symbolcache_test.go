package symbolcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relctx/relctx/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetMissThenHitAfterSet(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.py", "x = 1\n")

	c := New(0, false)
	_, ok := c.Get(file)
	assert.False(t, ok)

	c.Set(file, types.FileSymbolData{Filepath: file})
	data, ok := c.Get(file)
	assert.True(t, ok)
	assert.Equal(t, file, data.Filepath)
}

func TestMtimeChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.py", "x = 1\n")

	c := New(0, false)
	c.Set(file, types.FileSymbolData{Filepath: file})
	_, ok := c.Get(file)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("x = 2\n"), 0o644))

	_, ok = c.Get(file)
	assert.False(t, ok)
}

func TestContentHashValidation(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.py", "x = 1\n")

	c := New(0, true)
	c.Set(file, types.FileSymbolData{Filepath: file})

	info, err := os.Stat(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))
	require.NoError(t, os.Chtimes(file, info.ModTime(), info.ModTime()))

	data, ok := c.Get(file)
	assert.True(t, ok)
	assert.Equal(t, file, data.Filepath)
}

func TestEvictsOldestBeyondMaxEntries(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.py", "1\n")
	b := writeFile(t, dir, "b.py", "2\n")
	cc := writeFile(t, dir, "c.py", "3\n")

	c := New(2, false)
	c.Set(a, types.FileSymbolData{Filepath: a})
	c.Set(b, types.FileSymbolData{Filepath: b})
	c.Set(cc, types.FileSymbolData{Filepath: cc})

	_, ok := c.Get(a)
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get(cc)
	assert.True(t, ok)
}

func TestInvalidateAllClears(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.py", "x = 1\n")

	c := New(0, false)
	c.Set(file, types.FileSymbolData{Filepath: file})
	c.InvalidateAll()

	_, ok := c.Get(file)
	assert.False(t, ok)
}

func TestStatisticsTrackHitsAndMisses(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.py", "x = 1\n")

	c := New(0, false)
	c.Get(file)
	c.Set(file, types.FileSymbolData{Filepath: file})
	c.Get(file)

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
