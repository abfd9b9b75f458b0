// Package syntax builds navigable trees out of bracketed text and answers
// structural questions about them: which node encloses a range, how far a
// selection can grow, and how editor coordinates map onto text offsets.
//
// Offsets count Unicode code points. Positions count lines (split on '\n')
// and UTF-16 code units within a line, matching LSP 3.16.
package syntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindRoot Kind = iota
	KindGroup
	KindAtom
	KindOperator
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindAtom:
		return "atom"
	case KindOperator:
		return "operator"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Range is the half-open offset interval [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int    { return r.End - r.Start }
func (r Range) Empty() bool { return r.Start == r.End }

// Contains reports whether o lies within r, boundaries included.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Path addresses a node by the child indexes leading to it from the root.
// A path is only meaningful for the tree that produced it.
type Path []int

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Node is an element of a tree. Children are ordered and their ranges are
// disjoint and nested within the parent's range.
type Node struct {
	Kind     Kind    `json:"kind"`
	Tag      string  `json:"tag,omitempty"`
	Range    Range   `json:"range"`
	Children []*Node `json:"children,omitempty"`
}

// Tree is an immutable parse result for a single text snapshot.
type Tree struct {
	text  []rune
	root  *Node
	lines []int
}

var (
	ErrOutOfRange  = errors.New("syntax: position out of range")
	ErrInvalidPath = errors.New("syntax: invalid path")
)

// ParseError reports input the engine could not turn into a tree.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// NewTree wraps root, which must span the whole of text, into a Tree.
// Engines other than Parse use it to expose their results.
func NewTree(text string, root *Node) *Tree {
	runes := []rune(text)
	lines := []int{0}
	for i, r := range runes {
		if r == '\n' {
			lines = append(lines, i+1)
		}
	}
	if root == nil {
		root = &Node{Kind: KindRoot}
	}
	root.Kind = KindRoot
	root.Range = Range{Start: 0, End: len(runes)}
	return &Tree{text: runes, root: root, lines: lines}
}

func (t *Tree) Root() *Node  { return t.root }
func (t *Tree) Text() string { return string(t.text) }
func (t *Tree) Len() int     { return len(t.text) }

// Slice returns the text covered by r. r must lie within the tree.
func (t *Tree) Slice(r Range) string {
	return string(t.text[r.Start:r.End])
}

// Walk visits every node depth-first in document order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(fn func(path Path, n *Node) bool) {
	var visit func(path Path, n *Node)
	visit = func(path Path, n *Node) {
		if !fn(path, n) {
			return
		}
		for i, c := range n.Children {
			visit(append(path[:len(path):len(path)], i), c)
		}
	}
	visit(Path{}, t.root)
}

// Dump renders the tree as an indented outline, one node per line.
func (t *Tree) Dump() string {
	var b strings.Builder
	t.Walk(func(path Path, n *Node) bool {
		b.WriteString(strings.Repeat("  ", len(path)))
		b.WriteString(n.Kind.String())
		if n.Tag != "" {
			b.WriteString(" " + strconv.Quote(n.Tag))
		}
		b.WriteString(" " + n.Range.String())
		if len(n.Children) == 0 && n.Kind != KindRoot {
			b.WriteString(" " + strconv.Quote(t.Slice(n.Range)))
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
