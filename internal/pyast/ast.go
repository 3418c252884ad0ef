// Package pyast builds a lightweight AST from Python source using
// tree-sitter's Python grammar. Nodes are detached from the tree-sitter
// tree during conversion so detectors can hold them without keeping the
// parser alive.
package pyast

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// MaxChildren bounds the number of children converted per node, a guard
// against pathological trees.
const MaxChildren = 1000

// MaxDepth is the hard recursion cap applied both when converting the
// tree-sitter tree and when walking converted nodes. Source nesting past
// this depth fails the parse the same way the size and line-count
// limits fail the read.
const MaxDepth = 100

// Node carries a tree-sitter node's kind, source span, raw text, and
// children, detached from the tree-sitter tree so detectors can hold it
// past the parser's lifetime.
type Node struct {
	Kind     string
	Line     int // 1-based
	Column   int
	EndLine  int
	EndCol   int
	Text     string
	Children []*Node

	// Parent is set during conversion so detectors can walk upward (e.g.
	// to find the enclosing class of a method definition).
	Parent *Node
}

// Walk invokes fn for n and every descendant, depth-first, pre-order,
// descending at most MaxDepth levels. Returns true if any subtree was
// cut off by the cap.
func (n *Node) Walk(fn func(*Node)) bool {
	return n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node), depth int) bool {
	if n == nil {
		return false
	}
	fn(n)
	if depth >= MaxDepth {
		return len(n.Children) > 0
	}
	truncated := false
	for _, c := range n.Children {
		if c.walk(fn, depth+1) {
			truncated = true
		}
	}
	return truncated
}

// Child returns n's first direct child of the given kind, or nil.
func (n *Node) Child(kind string) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOf returns every direct child of n with the given kind.
func (n *Node) ChildrenOf(kind string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Parser wraps a tree-sitter parser configured for Python.
type Parser struct {
	language *sitter.Language
}

// NewParser constructs a Parser bound to the tree-sitter Python grammar.
func NewParser() *Parser {
	return &Parser{language: sitter.NewLanguage(tspython.Language())}
}

// ParseTimeout is the wall-clock budget for a single parse.
const ParseTimeout = 5 * time.Second

// ErrTimeout is returned when parsing exceeds ParseTimeout.
type ErrTimeout struct{ File string }

func (e ErrTimeout) Error() string { return fmt.Sprintf("parse timeout: %s", e.File) }

// ErrTooDeep is returned when the source nests past MaxDepth.
type ErrTooDeep struct{ File string }

func (e ErrTooDeep) Error() string { return fmt.Sprintf("nesting exceeds depth limit: %s", e.File) }

// ErrSyntax is returned when the parser cannot build a usable tree.
type ErrSyntax struct {
	File    string
	Line    int
	Message string
}

func (e ErrSyntax) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// Parse builds a Node tree from source, enforcing ParseTimeout on a
// separate worker goroutine so the caller's thread is never blocked past
// the timeout.
func (p *Parser) Parse(ctx context.Context, file string, source []byte) (*Node, error) {
	type result struct {
		root *Node
		err  error
	}
	done := make(chan result, 1)

	go func() {
		parser := sitter.NewParser()
		defer parser.Close()
		if err := parser.SetLanguage(p.language); err != nil {
			done <- result{nil, err}
			return
		}
		tree := parser.Parse(source, nil)
		if tree == nil {
			done <- result{nil, ErrSyntax{File: file, Line: 1, Message: "parser returned no tree"}}
			return
		}
		defer tree.Close()
		root := tree.RootNode()
		if root == nil {
			done <- result{nil, ErrSyntax{File: file, Line: 1, Message: "empty root node"}}
			return
		}
		if root.HasError() {
			line := firstErrorLine(root)
			if line == 0 {
				line = 1
			}
			done <- result{nil, ErrSyntax{File: file, Line: line, Message: "syntax error"}}
			return
		}
		var truncated bool
		converted := convert(root, source, nil, 0, &truncated)
		if truncated {
			done <- result{nil, ErrTooDeep{File: file}}
			return
		}
		done <- result{converted, nil}
	}()

	timer := time.NewTimer(ParseTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.root, res.err
	case <-timer.C:
		return nil, ErrTimeout{File: file}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// firstErrorLine locates the first ERROR or missing node so ErrSyntax can
// report where the parse went wrong, the way a line-oriented parser would.
func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if line := firstErrorLine(child); line > 0 {
			return line
		}
	}
	return 0
}

func convert(n *sitter.Node, source []byte, parent *Node, depth int, truncated *bool) *Node {
	start := n.StartPosition()
	end := n.EndPosition()
	out := &Node{
		Kind:    n.Kind(),
		Line:    int(start.Row) + 1,
		Column:  int(start.Column),
		EndLine: int(end.Row) + 1,
		EndCol:  int(end.Column),
		Text:    string(n.Utf8Text(source)),
		Parent:  parent,
	}

	if depth >= MaxDepth {
		if n.ChildCount() > 0 {
			*truncated = true
		}
		return out
	}

	childCount := int(n.ChildCount())
	if childCount > MaxChildren {
		childCount = MaxChildren
	}
	for i := 0; i < childCount; i++ {
		child := n.Child(uint(i))
		if child == nil {
			continue
		}
		out.Children = append(out.Children, convert(child, source, out, depth+1, truncated))
	}
	return out
}
