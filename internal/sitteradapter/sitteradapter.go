// Package sitteradapter parses documents with a tree-sitter grammar and
// converts the result into a syntax.Tree, so that profiles naming a grammar
// get the same structural navigation as bracket profiles.
package sitteradapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

var grammars = map[string]func() *sitter.Language{
	"bash":       bash.GetLanguage,
	"go":         golang.GetLanguage,
	"javascript": javascript.GetLanguage,
	"python":     python.GetLanguage,
}

func init() {
	profile.RegisterGrammar(Grammars()...)
}

// Grammars lists the grammar names a profile may refer to.
func Grammars() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine keeps a fixed pool of tree-sitter parsers for one grammar.
type Engine struct {
	grammar string
	pool    chan *sitter.Parser
}

// NewEngine creates an Engine with n parsers for the named grammar.
func NewEngine(grammar string, n int) (*Engine, error) {
	lang, ok := grammars[grammar]
	if !ok {
		return nil, fmt.Errorf("unknown grammar %q (have %s)", grammar, strings.Join(Grammars(), ", "))
	}
	if n < 1 {
		n = 1
	}
	e := &Engine{grammar: grammar, pool: make(chan *sitter.Parser, n)}
	language := lang()
	for i := 0; i < n; i++ {
		p := sitter.NewParser()
		p.SetLanguage(language)
		e.pool <- p
	}
	return e, nil
}

func (e *Engine) Grammar() string { return e.grammar }

// Parse borrows a parser from the pool and converts the resulting tree.
// Syntax errors reported by the grammar become *syntax.ParseError.
func (e *Engine) Parse(ctx context.Context, text string) (*syntax.Tree, error) {
	var p *sitter.Parser
	select {
	case p = <-e.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { e.pool <- p }()

	source := []byte(text)
	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	offsets := runeOffsets(source)
	root := tree.RootNode()
	if bad := firstError(root); bad != nil {
		return nil, &syntax.ParseError{
			Offset:  offsets[bad.StartByte()],
			Message: fmt.Sprintf("%s: unexpected %s", e.grammar, describe(bad)),
		}
	}
	return syntax.NewTree(text, convert(root, offsets)), nil
}

// Close releases every parser in the pool. The Engine must not be used
// afterwards.
func (e *Engine) Close() error {
	close(e.pool)
	for p := range e.pool {
		p.Close()
	}
	return nil
}

// runeOffsets maps every byte offset of source to the offset, in runes, of
// the character that byte belongs to.
func runeOffsets(source []byte) []int {
	offsets := make([]int, len(source)+1)
	r := 0
	for i := 0; i < len(source); {
		_, size := utf8.DecodeRune(source[i:])
		for j := 0; j < size; j++ {
			offsets[i+j] = r
		}
		i += size
		r++
	}
	offsets[len(source)] = r
	return offsets
}

// convert keeps only named nodes; anonymous tokens such as punctuation are
// covered by their parent's range.
func convert(n *sitter.Node, offsets []int) *syntax.Node {
	out := &syntax.Node{
		Kind: syntax.KindAtom,
		Tag:  n.Type(),
		Range: syntax.Range{
			Start: offsets[n.StartByte()],
			End:   offsets[n.EndByte()],
		},
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		out.Children = append(out.Children, convert(child, offsets))
	}
	if len(out.Children) > 0 {
		out.Kind = syntax.KindGroup
	}
	return out
}

func firstError(n *sitter.Node) *sitter.Node {
	if !n.HasError() {
		return nil
	}
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil {
			if bad := firstError(c); bad != nil {
				return bad
			}
		}
	}
	return n
}

func describe(n *sitter.Node) string {
	if n.IsMissing() {
		return "missing " + n.Type()
	}
	return "input " + n.Type()
}
