// Package context assembles the textual context string returned beside
// a file's contents: a bounded summary of the file's dependencies and
// dependents, with resolved symbol locations and cached line snippets.
package context

import (
	"fmt"
	"strings"

	"github.com/relctx/relctx/internal/cache"
	"github.com/relctx/relctx/internal/graph"
	"github.com/relctx/relctx/pkg/types"
)

// SnippetLines is how many source lines are pulled around a resolved
// target line for the cached-snippet preview.
const SnippetLines = 2

// AssembleResult is what Assemble returns: the rendered context string
// plus whether the configured budget was exceeded. The text is never
// truncated; callers decide what to do with an oversized context.
type AssembleResult struct {
	Text           string
	BudgetExceeded bool
}

// Assembler builds the context string for a file from the relationship
// graph and the working-memory cache.
type Assembler struct {
	graph       *graph.Graph
	cache       *cache.Cache
	tokenLimit  int
	maxReadBytes int64
}

// New builds an Assembler. tokenLimit is the soft context_token_limit
// budget; 0 disables the budget check.
func New(g *graph.Graph, c *cache.Cache, tokenLimit int, maxReadBytes int64) *Assembler {
	return &Assembler{graph: g, cache: c, tokenLimit: tokenLimit, maxReadBytes: maxReadBytes}
}

// Assemble produces the context string for file: its dependencies (with
// resolved target file, line, and a short cached snippet) and its
// dependents (file and symbol).
func (a *Assembler) Assemble(file string) AssembleResult {
	var sb strings.Builder

	deps := a.graph.Dependencies(file)
	dependents := a.graph.Dependents(file)

	fmt.Fprintf(&sb, "# Context for %s\n\n", file)

	sb.WriteString("## Dependencies\n\n")
	if len(deps) == 0 {
		sb.WriteString("_none_\n\n")
	} else {
		for _, r := range deps {
			a.writeDependency(&sb, r)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Dependents\n\n")
	if len(dependents) == 0 {
		sb.WriteString("_none_\n\n")
	} else {
		for _, r := range dependents {
			a.writeDependent(&sb, r)
		}
	}

	text := sb.String()
	exceeded := a.tokenLimit > 0 && estimateTokens(text) > a.tokenLimit
	return AssembleResult{Text: text, BudgetExceeded: exceeded}
}

func (a *Assembler) writeDependency(sb *strings.Builder, r types.Relationship) {
	if types.IsSentinel(r.TargetFile) {
		fmt.Fprintf(sb, "- `%s` line %d -> %s", r.RelationshipType, r.LineNumber, r.TargetFile)
		if r.TargetSymbol != "" {
			fmt.Fprintf(sb, " (%s)", r.TargetSymbol)
		}
		sb.WriteString("\n")
		return
	}

	fmt.Fprintf(sb, "- `%s` line %d -> %s", r.RelationshipType, r.LineNumber, r.TargetFile)
	if r.TargetSymbol != "" {
		fmt.Fprintf(sb, "::%s", r.TargetSymbol)
	}
	if r.TargetLine > 0 {
		fmt.Fprintf(sb, " (line %d)", r.TargetLine)
		if snippet := a.snippet(r.TargetFile, r.TargetLine); snippet != "" {
			fmt.Fprintf(sb, "\n  ```\n  %s\n  ```", strings.ReplaceAll(snippet, "\n", "\n  "))
		}
	}
	sb.WriteString("\n")
}

func (a *Assembler) writeDependent(sb *strings.Builder, r types.Relationship) {
	fmt.Fprintf(sb, "- %s", r.SourceFile)
	if r.SourceSymbol != "" {
		fmt.Fprintf(sb, "::%s", r.SourceSymbol)
	}
	fmt.Fprintf(sb, " (line %d, %s)\n", r.LineNumber, r.RelationshipType)
}

func (a *Assembler) snippet(file string, line int) string {
	if a.cache == nil {
		return ""
	}
	rng := cache.LineRange{Start: line - SnippetLines, End: line + SnippetLines}
	if rng.Start < 1 {
		rng.Start = 1
	}
	content, err := a.cache.Get(file, rng, a.maxReadBytes)
	if err != nil {
		return ""
	}
	return string(content)
}

// estimateTokens is a rough chars/4 estimate; the budget is soft, so no
// real tokenizer is warranted.
func estimateTokens(s string) int {
	return len(s) / 4
}
