package syntax

import (
	"fmt"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
)

type tokenKind int

const (
	tokNone tokenKind = iota
	tokSeparator
	tokEscape
	tokOpen
	tokClose
	tokPrefix
	tokInfix
)

type token struct {
	kind  tokenKind
	runes []rune
	index int // into profile.Brackets or profile.Operators
}

type grammar struct {
	tokens   []token
	brackets []profile.Bracket
	ops      []profile.Operator
}

func compile(p profile.Profile) grammar {
	g := grammar{brackets: p.Brackets, ops: p.Operators}
	for _, s := range p.Separators {
		g.tokens = append(g.tokens, token{kind: tokSeparator, runes: []rune(s)})
	}
	if p.Escape != "" {
		g.tokens = append(g.tokens, token{kind: tokEscape, runes: []rune(p.Escape)})
	}
	for i, b := range p.Brackets {
		g.tokens = append(g.tokens,
			token{kind: tokOpen, runes: []rune(b.Open), index: i},
			token{kind: tokClose, runes: []rune(b.Close), index: i},
		)
	}
	for i, op := range p.Operators {
		kind := tokPrefix
		if op.Infix {
			kind = tokInfix
		}
		g.tokens = append(g.tokens, token{kind: kind, runes: []rune(op.Token), index: i})
	}
	return g
}

type parser struct {
	g   grammar
	src []rune
	pos int
}

// Parse builds a tree for text under profile p. Unbalanced or mismatched
// brackets yield a *ParseError.
func Parse(p profile.Profile, text string) (*Tree, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ps := &parser{g: compile(p), src: []rune(text)}
	children, err := ps.sequence(-1)
	if err != nil {
		return nil, err
	}
	return NewTree(text, &Node{Kind: KindRoot, Children: children}), nil
}

// match returns the longest token starting at pos.
func (ps *parser) match(pos int) (token, bool) {
	var best token
	found := false
	for _, tok := range ps.g.tokens {
		n := len(tok.runes)
		if n == 0 || pos+n > len(ps.src) || (found && n <= len(best.runes)) {
			continue
		}
		if equalRunes(ps.src[pos:pos+n], tok.runes) {
			best, found = tok, true
		}
	}
	return best, found
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (ps *parser) skipSeparators() {
	for ps.pos < len(ps.src) {
		tok, ok := ps.match(ps.pos)
		if !ok || tok.kind != tokSeparator {
			return
		}
		ps.pos += len(tok.runes)
	}
}

// sequence parses siblings until the closer of bracket index `closer` or the
// end of input when closer is -1. The closer itself is left unconsumed.
func (ps *parser) sequence(closer int) ([]*Node, error) {
	var nodes []*Node
	for {
		ps.skipSeparators()
		if ps.pos >= len(ps.src) {
			return nodes, nil
		}
		if tok, ok := ps.match(ps.pos); ok && tok.kind == tokClose {
			// Pairs may share a close token, so compare text, not index.
			if closer >= 0 && equalRunes(tok.runes, []rune(ps.g.brackets[closer].Close)) {
				return nodes, nil
			}
			if closer < 0 {
				return nil, &ParseError{Offset: ps.pos, Message: fmt.Sprintf("unmatched %q", string(tok.runes))}
			}
			return nil, &ParseError{
				Offset:  ps.pos,
				Message: fmt.Sprintf("expected %q, found %q", ps.g.brackets[closer].Close, string(tok.runes)),
			}
		}
		n, err := ps.operand()
		if err != nil {
			return nil, err
		}
		n, err = ps.infix(n)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

// infix folds left-associative infix operators following left.
func (ps *parser) infix(left *Node) (*Node, error) {
	for {
		save := ps.pos
		ps.skipSeparators()
		tok, ok := ps.match(ps.pos)
		if !ok || tok.kind != tokInfix {
			ps.pos = save
			return left, nil
		}
		opStart := ps.pos
		ps.pos += len(tok.runes)
		op := ps.g.ops[tok.index]

		ps.skipSeparators()
		if !ps.startsOperand() {
			return &Node{
				Kind:     KindOperator,
				Tag:      op.Tag,
				Range:    Range{Start: left.Range.Start, End: opStart + len(tok.runes)},
				Children: []*Node{left},
			}, nil
		}
		right, err := ps.operand()
		if err != nil {
			return nil, err
		}
		left = &Node{
			Kind:     KindOperator,
			Tag:      op.Tag,
			Range:    Range{Start: left.Range.Start, End: right.Range.End},
			Children: []*Node{left, right},
		}
	}
}

// startsOperand reports whether an operand can begin at the current position.
func (ps *parser) startsOperand() bool {
	if ps.pos >= len(ps.src) {
		return false
	}
	tok, ok := ps.match(ps.pos)
	if !ok {
		return true
	}
	return tok.kind != tokClose && tok.kind != tokInfix && tok.kind != tokSeparator
}

func (ps *parser) operand() (*Node, error) {
	start := ps.pos
	tok, ok := ps.match(ps.pos)
	if !ok {
		return ps.atom(), nil
	}
	switch tok.kind {
	case tokOpen:
		ps.pos += len(tok.runes)
		children, err := ps.sequence(tok.index)
		if err != nil {
			return nil, err
		}
		if ps.pos >= len(ps.src) {
			return nil, &ParseError{
				Offset:  start,
				Message: fmt.Sprintf("unclosed %q", string(tok.runes)),
			}
		}
		ps.pos += len([]rune(ps.g.brackets[tok.index].Close))
		return &Node{
			Kind:     KindGroup,
			Tag:      ps.g.brackets[tok.index].Tag,
			Range:    Range{Start: start, End: ps.pos},
			Children: children,
		}, nil

	case tokPrefix:
		ps.pos += len(tok.runes)
		op := ps.g.ops[tok.index]
		save := ps.pos
		ps.skipSeparators()
		if !ps.startsOperand() {
			ps.pos = save
			return &Node{Kind: KindOperator, Tag: op.Tag, Range: Range{Start: start, End: ps.pos}}, nil
		}
		arg, err := ps.operand()
		if err != nil {
			return nil, err
		}
		return &Node{
			Kind:     KindOperator,
			Tag:      op.Tag,
			Range:    Range{Start: start, End: arg.Range.End},
			Children: []*Node{arg},
		}, nil

	case tokInfix:
		// An infix operator with no left operand stands alone.
		ps.pos += len(tok.runes)
		return &Node{Kind: KindOperator, Tag: ps.g.ops[tok.index].Tag, Range: Range{Start: start, End: ps.pos}}, nil

	default:
		return ps.atom(), nil
	}
}

// atom consumes a maximal run of ordinary characters. An escape token makes
// the character after it ordinary.
func (ps *parser) atom() *Node {
	start := ps.pos
	for ps.pos < len(ps.src) {
		tok, ok := ps.match(ps.pos)
		if !ok {
			ps.pos++
			continue
		}
		if tok.kind != tokEscape {
			break
		}
		ps.pos += len(tok.runes)
		if ps.pos < len(ps.src) {
			ps.pos++
		}
	}
	return &Node{Kind: KindAtom, Range: Range{Start: start, End: ps.pos}}
}
