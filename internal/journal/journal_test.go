package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCreatesDatedFileUnderCategory(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	require.NoError(t, j.Append(CategoryWarnings, WarningRecord{
		Kind: "broken_reference", File: "a.py", Line: 3, Timestamp: time.Now().UnixNano(),
	}))

	today := time.Now().UTC().Format("2006-01-02")
	expected := filepath.Join(dir, string(CategoryWarnings), today+"-"+j.SessionID()+".jsonl")
	_, err := os.Stat(expected)
	require.NoError(t, err)
}

func TestAppendWritesOneJSONObjectPerLine(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	require.NoError(t, j.Append(CategorySessionMetrics, SessionMetricsRecord{Operation: "analyze", FilesTouched: 1}))
	require.NoError(t, j.Append(CategorySessionMetrics, SessionMetricsRecord{Operation: "analyze", FilesTouched: 2}))

	today := time.Now().UTC().Format("2006-01-02")
	f, err := os.Open(filepath.Join(dir, string(CategorySessionMetrics), today+"-"+j.SessionID()+".jsonl"))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var rec SessionMetricsRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "analyze", rec.Operation)
	assert.Equal(t, 1, rec.FilesTouched)
}

func TestDifferentCategoriesGetSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	require.NoError(t, j.Append(CategoryInjections, InjectionRecord{Path: "a.py"}))
	require.NoError(t, j.Append(CategoryWarnings, WarningRecord{File: "a.py"}))

	today := time.Now().UTC().Format("2006-01-02")
	_, err := os.Stat(filepath.Join(dir, string(CategoryInjections), today+"-"+j.SessionID()+".jsonl"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, string(CategoryWarnings), today+"-"+j.SessionID()+".jsonl"))
	assert.NoError(t, err)
}

func TestCloseReleasesHandles(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)
	require.NoError(t, j.Append(CategoryWarnings, WarningRecord{File: "a.py"}))
	assert.NoError(t, j.Close())
}
