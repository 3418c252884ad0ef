// Package analyzer implements the per-file pipeline: read with size
// guards, parse with a wall-clock timeout, dispatch every detector over
// the AST, and either build relationships directly (single-phase) or
// extract symbol data for the relationship builder (two-phase).
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/relctx/relctx/internal/detector"
	"github.com/relctx/relctx/internal/pyast"
	"github.com/relctx/relctx/internal/relctxerr"
	"github.com/relctx/relctx/internal/symbolcache"
	"github.com/relctx/relctx/pkg/types"
)

// MaxFileSizeBytes and MaxLineCount are the hard input limits; files
// past either are skipped, not analyzed.
const (
	MaxFileSizeBytes = 10 * 1024 * 1024
	MaxLineCount     = 10000
)

// NewRegistry builds the default registry of ten detectors, all sharing
// one Resolver instance so their import maps agree on
// third-party/stdlib classification.
func NewRegistry(resolver *detector.Resolver) *detector.Registry {
	return detector.NewRegistry(
		detector.NewImportDetector(resolver),
		detector.NewConditionalImportDetector(resolver),
		detector.NewWildcardImportDetector(resolver),
		detector.NewClassInheritanceDetector(resolver),
		detector.NewFunctionCallDetector(resolver),
		detector.NewDynamicDispatchDetector(),
		detector.NewExecEvalDetector(),
		detector.NewAttributeRebindingDetector(resolver),
		detector.NewDecoratorDetector(),
		detector.NewMetaclassDetector(),
	)
}

// Logger is the minimal sink analysis components write diagnostic lines
// to; the engine wires it to its own logger, tests may wire it to
// nothing.
type Logger interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// NopLogger discards every message.
type NopLogger struct{}

func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Debugf(string, ...any) {}

// Analyzer runs the read/parse/dispatch pipeline for a single file at a
// time. It holds no per-file state of its own beyond an optional symbol
// cache; the detector registry and parser it wraps are safe to reuse
// across files processed sequentially by one owner.
type Analyzer struct {
	parser    *pyast.Parser
	registry  *detector.Registry
	symbolCache *symbolcache.Cache
	log       Logger
}

func New(registry *detector.Registry) *Analyzer {
	return &Analyzer{parser: pyast.NewParser(), registry: registry, log: NopLogger{}}
}

// WithLogger directs a's diagnostics to l (nil restores the default
// discard).
func (a *Analyzer) WithLogger(l Logger) *Analyzer {
	if l == nil {
		l = NopLogger{}
	}
	a.log = l
	return a
}

// WithSymbolCache attaches the optional symbol-data cache to a, so
// ExtractSymbolData can skip re-parsing files whose mtime (and, when
// enabled, content hash) has not changed since the last call.
func (a *Analyzer) WithSymbolCache(c *symbolcache.Cache) *Analyzer {
	a.symbolCache = c
	return a
}

// Result is the outcome of analyzing one file: relationships, warnings,
// and parse diagnostics.
type Result struct {
	Relationships []types.Relationship
	SymbolData    types.FileSymbolData
	Warnings      []types.DynamicPatternWarning
	ParseTimeMillis int64
	Unparseable   bool
}

// AnalyzeFile runs the full single-phase pipeline: read, parse, dispatch
// every detector, and return the relationships and warnings found. It
// does not touch the graph; callers remove the file's old edges and add
// the fresh ones themselves, so the same pipeline serves both
// AnalyzeFile and the Phase 1 extraction path.
func (a *Analyzer) AnalyzeFile(ctx context.Context, projectRoot, file string) (Result, error) {
	source, err := a.read(file)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	root, err := a.parser.Parse(ctx, file, source)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Unparseable: true, ParseTimeMillis: elapsed.Milliseconds()}, relctxerr.New(relctxerr.KindParseFailed, err)
	}

	rels, detectorErrs := a.registry.DetectAll(root, file, projectRoot)
	warnings := a.registry.DrainWarnings()
	result := Result{
		Relationships:   rels,
		Warnings:        warnings,
		ParseTimeMillis: elapsed.Milliseconds(),
	}
	if len(detectorErrs) > 0 {
		return result, relctxerr.New(relctxerr.KindDetectorFailed, detectorErrs[0])
	}
	return result, nil
}

// ExtractSymbolData runs Phase 1 of two-phase analysis: parse and run
// symbol extraction over every detector, producing a FileSymbolData
// with no graph writes. It also returns the full structured warnings
// produced for file; FileSymbolData itself only carries the
// HasDynamicPatterns/DynamicPatternTypes summary, so a symbol-cache hit
// returns no warnings (they were already surfaced the first time the
// file was parsed).
func (a *Analyzer) ExtractSymbolData(ctx context.Context, projectRoot, file string) (types.FileSymbolData, []types.DynamicPatternWarning, error) {
	if a.symbolCache != nil {
		if cached, ok := a.symbolCache.Get(file); ok {
			return cached, nil, nil
		}
	}

	source, err := a.read(file)
	if err != nil {
		return types.FileSymbolData{Filepath: file, IsValid: false, ErrorMessage: err.Error()}, nil, err
	}

	start := time.Now()
	root, err := a.parser.Parse(ctx, file, source)
	elapsed := time.Since(start)
	if err != nil {
		return types.FileSymbolData{
			Filepath: file, IsValid: false, ErrorMessage: err.Error(),
			ParseTimeMillis: elapsed.Milliseconds(),
		}, nil, relctxerr.New(relctxerr.KindParseFailed, err)
	}

	data, errs := a.registry.ExtractAll(root, file, projectRoot)
	data.ParseTimeMillis = elapsed.Milliseconds()
	data.IsValid = true

	warnings := a.registry.DrainWarnings()
	for _, w := range warnings {
		data.HasDynamicPatterns = true
		data.DynamicPatternTypes = appendUnique(data.DynamicPatternTypes, w.Pattern)
	}
	if len(errs) > 0 {
		return data, warnings, relctxerr.New(relctxerr.KindDetectorFailed, errs[0])
	}
	if a.symbolCache != nil {
		a.symbolCache.Set(file, data)
	}
	return data, warnings, nil
}

// read applies the size and line-count guards, decoding as UTF-8 with a
// lossy bytes-as-chars fallback on invalid encoding.
func (a *Analyzer) read(file string) ([]byte, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, relctxerr.New(relctxerr.KindIoError, err)
	}
	if info.Size() > MaxFileSizeBytes {
		return nil, relctxerr.New(relctxerr.KindFileTooLarge, fmt.Errorf("%s: %d bytes", file, info.Size()))
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, relctxerr.New(relctxerr.KindIoError, err)
	}

	lines := bytes.Count(content, []byte("\n"))
	if len(content) > 0 && content[len(content)-1] != '\n' {
		lines++
	}
	if lines > MaxLineCount {
		return nil, relctxerr.New(relctxerr.KindLineCountExceeded, fmt.Errorf("%s: %d lines", file, lines))
	}

	if !utf8.Valid(content) {
		a.log.Warnf("reading %s: not valid UTF-8, decoding byte-for-byte", file)
		content = toLatin1Fallback(content)
	}
	return content, nil
}

// toLatin1Fallback re-encodes content byte-for-byte as UTF-8 runes (one
// byte -> one rune), so a file in an odd encoding still produces a
// parseable byte stream instead of an outright read failure.
func toLatin1Fallback(content []byte) []byte {
	out := make([]byte, 0, len(content)*2)
	for _, b := range content {
		out = utf8.AppendRune(out, rune(b))
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
