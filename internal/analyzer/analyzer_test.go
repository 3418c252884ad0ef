package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relctx/relctx/internal/detector"
	"github.com/relctx/relctx/internal/relctxerr"
	"github.com/relctx/relctx/pkg/types"
)

func newTestAnalyzer(root string) *Analyzer {
	res := detector.NewResolver(root, types.DefaultConfig())
	return New(NewRegistry(res))
}

func TestAnalyzeFileSimpleImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "utils.py"), []byte("def helper():\n    pass\n"), 0o644))
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("import utils\n"), 0o644))

	az := newTestAnalyzer(dir)
	result, err := az.AnalyzeFile(context.Background(), dir, a)
	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, filepath.Join(dir, "utils.py"), result.Relationships[0].TargetFile)
	assert.False(t, result.Unparseable)
}

func TestAnalyzeFileRejectsTooManyLines(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	content := strings.Repeat("x = 1\n", MaxLineCount+1)
	require.NoError(t, os.WriteFile(a, []byte(content), 0o644))

	az := newTestAnalyzer(dir)
	_, err := az.AnalyzeFile(context.Background(), dir, a)
	require.Error(t, err)
	assert.Equal(t, relctxerr.KindLineCountExceeded, relctxerr.KindOf(err))
}

func TestAnalyzeFileRejectsTooLarge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	content := make([]byte, MaxFileSizeBytes+1)
	for i := range content {
		content[i] = '#'
	}
	require.NoError(t, os.WriteFile(a, content, 0o644))

	az := newTestAnalyzer(dir)
	_, err := az.AnalyzeFile(context.Background(), dir, a)
	require.Error(t, err)
	assert.Equal(t, relctxerr.KindFileTooLarge, relctxerr.KindOf(err))
}

func TestAnalyzeFileMissingIsIoError(t *testing.T) {
	dir := t.TempDir()
	az := newTestAnalyzer(dir)
	_, err := az.AnalyzeFile(context.Background(), dir, filepath.Join(dir, "missing.py"))
	require.Error(t, err)
	assert.Equal(t, relctxerr.KindIoError, relctxerr.KindOf(err))
}

// TestAnalyzeFileSyntaxErrorMarksUnparseable: a file whose source does
// not parse cleanly is marked unparseable rather than crashing the
// pipeline. tree-sitter recovers malformed input into a tree with ERROR
// nodes; pyast.Parse reports that as ErrSyntax so the file is treated
// the way a line-oriented parser would treat a syntax error.
func TestAnalyzeFileSyntaxErrorMarksUnparseable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("def broken(:\n"), 0o644))

	az := newTestAnalyzer(dir)
	result, err := az.AnalyzeFile(context.Background(), dir, a)
	require.Error(t, err)
	assert.Equal(t, relctxerr.KindParseFailed, relctxerr.KindOf(err))
	assert.True(t, result.Unparseable)
}

type recordingLogger struct{ warnings []string }

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Debugf(string, ...any) {}

// TestReadFallsBackOnInvalidUTF8AndWarns: a file that is not valid UTF-8
// is decoded byte-for-byte instead of failing the read, and the fallback
// is logged.
func TestReadFallsBackOnInvalidUTF8AndWarns(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("x = \"caf\xe9\"\n"), 0o644))

	log := &recordingLogger{}
	az := newTestAnalyzer(dir).WithLogger(log)
	result, err := az.AnalyzeFile(context.Background(), dir, a)
	require.NoError(t, err)
	assert.False(t, result.Unparseable)
	require.NotEmpty(t, log.warnings)
	assert.Contains(t, log.warnings[0], "not valid UTF-8")
}

// TestExtractSymbolDataTwoPhase exercises the Phase 1 extraction path: a
// function definition and a function-call reference land in
// FileSymbolData without writing to any graph.
func TestExtractSymbolDataTwoPhase(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("def helper():\n    pass\n\nhelper()\n"), 0o644))

	az := newTestAnalyzer(dir)
	data, warnings, err := az.ExtractSymbolData(context.Background(), dir, a)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.True(t, data.IsValid)

	var foundDef bool
	for _, d := range data.Definitions {
		if d.Name == "helper" && d.Kind == types.SymbolFunction {
			foundDef = true
		}
	}
	assert.True(t, foundDef, "expected a definition for helper")

	var foundRef bool
	for _, r := range data.References {
		if r.Name == "helper" && r.Kind == types.ReferenceFunctionCall {
			foundRef = true
		}
	}
	assert.True(t, foundRef, "expected a reference to helper")
}

func TestExtractSymbolDataRecordsDynamicPatternSummary(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(a, []byte("x = eval(code)\n"), 0o644))

	az := newTestAnalyzer(dir)
	data, warnings, err := az.ExtractSymbolData(context.Background(), dir, a)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	assert.True(t, data.HasDynamicPatterns)
	assert.Contains(t, data.DynamicPatternTypes, types.PatternExecEval)
}
