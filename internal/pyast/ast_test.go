package pyast

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildsNodeTree(t *testing.T) {
	p := NewParser()
	src := []byte("import os\n\ndef f():\n    pass\n")
	root, err := p.Parse(context.Background(), "a.py", src)
	require.NoError(t, err)
	require.NotNil(t, root)

	var kinds []string
	root.Walk(func(n *Node) {
		kinds = append(kinds, n.Kind)
	})
	assert.Contains(t, kinds, "import_statement")
	assert.Contains(t, kinds, "function_definition")
}

func TestNodeChildAndChildrenOf(t *testing.T) {
	p := NewParser()
	src := []byte("def f(a, b):\n    pass\n")
	root, err := p.Parse(context.Background(), "a.py", src)
	require.NoError(t, err)

	var fn *Node
	root.Walk(func(n *Node) {
		if n.Kind == "function_definition" {
			fn = n
		}
	})
	require.NotNil(t, fn)

	id := fn.Child("identifier")
	require.NotNil(t, id)
	assert.Equal(t, "f", id.Text)
}

func TestParseReportsLineNumbers(t *testing.T) {
	p := NewParser()
	src := []byte("x = 1\ny = 2\ndef f():\n    pass\n")
	root, err := p.Parse(context.Background(), "a.py", src)
	require.NoError(t, err)

	var fnLine int
	root.Walk(func(n *Node) {
		if n.Kind == "function_definition" {
			fnLine = n.Line
		}
	})
	assert.Equal(t, 3, fnLine)
}

func TestWalkOnNilNodeIsNoop(t *testing.T) {
	var n *Node
	called := false
	truncated := n.Walk(func(*Node) { called = true })
	assert.False(t, called)
	assert.False(t, truncated)
}

func TestParseRejectsDeeplyNestedSource(t *testing.T) {
	p := NewParser()
	depth := MaxDepth + 20
	src := []byte("x = " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + "\n")

	_, err := p.Parse(context.Background(), "a.py", src)
	require.Error(t, err)
	var tooDeep ErrTooDeep
	assert.ErrorAs(t, err, &tooDeep)
}

// TestWalkStopsAtMaxDepth: a hand-built node chain deeper than MaxDepth
// is cut off and the truncation reported.
func TestWalkStopsAtMaxDepth(t *testing.T) {
	root := &Node{Kind: "module"}
	cur := root
	for i := 0; i < MaxDepth+50; i++ {
		child := &Node{Kind: "block", Parent: cur}
		cur.Children = []*Node{child}
		cur = child
	}

	visited := 0
	truncated := root.Walk(func(*Node) { visited++ })
	assert.True(t, truncated)
	assert.Equal(t, MaxDepth+1, visited)
}
