package server

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

const (
	CommandExpandSelection   = "expandSelection"
	CommandMoveCursorToStart = "moveCursorToStart"
	CommandDescribeNode      = "describeNode"
	CommandShowTree          = "showTree"
)

type commandFunc func(s *Server, context *glsp.Context, args []any) (any, error)

var commands = map[string]commandFunc{
	CommandExpandSelection:   (*Server).expandSelection,
	CommandMoveCursorToStart: (*Server).moveCursorToStart,
	CommandDescribeNode:      (*Server).describeNode,
	CommandShowTree:          (*Server).showTree,
}

// Commands lists the command names accepted by workspace/executeCommand.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	start := time.Now()
	run, ok := commands[params.Command]
	if !ok {
		err := methodNotFound(params.Command)
		metrics.Observe("unknown", start, err)
		return nil, err
	}

	r, err := run(s, context, params.Arguments)
	metrics.Observe(params.Command, start, err)
	if err != nil {
		log.Debugf("%s: %v", params.Command, err)
		return nil, err
	}
	return r, nil
}

// documentPosition mirrors protocol.TextDocumentPositionParams with every
// field required.
type documentPosition struct {
	TextDocument *protocol.TextDocumentIdentifier `json:"textDocument"`
	Position     *protocol.Position               `json:"position"`
}

func (d documentPosition) check(name string) error {
	if d.TextDocument == nil || d.TextDocument.URI == "" {
		return invalidParams("%s: missing textDocument.uri", name)
	}
	if d.Position == nil {
		return invalidParams("%s: missing position", name)
	}
	return nil
}

// decodeArgument re-decodes a generically decoded JSON argument into v.
func decodeArgument(arg any, v any) error {
	data, err := json.Marshal(arg)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// decodeSelection expects args to be a single pair of positions on the
// same document, as sent for the current selection.
func decodeSelection(args []any) (string, [2]protocol.Position, error) {
	var none [2]protocol.Position
	if len(args) != 1 {
		return "", none, invalidParams("expected 1 argument, got %d", len(args))
	}
	var pair []documentPosition
	if err := decodeArgument(args[0], &pair); err != nil {
		return "", none, invalidParams("argument 0: expected a pair of text document positions: %v", err)
	}
	if len(pair) != 2 {
		return "", none, invalidParams("argument 0: expected 2 positions, got %d", len(pair))
	}
	for i, p := range pair {
		if err := p.check(fmt.Sprintf("argument 0[%d]", i)); err != nil {
			return "", none, err
		}
	}
	if pair[0].TextDocument.URI != pair[1].TextDocument.URI {
		return "", none, invalidParams("argument 0: positions reference different documents %s and %s",
			pair[0].TextDocument.URI, pair[1].TextDocument.URI)
	}
	return pair[0].TextDocument.URI, [2]protocol.Position{*pair[0].Position, *pair[1].Position}, nil
}

func decodePosition(args []any) (string, protocol.Position, error) {
	if len(args) != 1 {
		return "", protocol.Position{}, invalidParams("expected 1 argument, got %d", len(args))
	}
	var p documentPosition
	if err := decodeArgument(args[0], &p); err != nil {
		return "", protocol.Position{}, invalidParams("argument 0: expected a text document position: %v", err)
	}
	if err := p.check("argument 0"); err != nil {
		return "", protocol.Position{}, err
	}
	return p.TextDocument.URI, *p.Position, nil
}

// selection converts a pair of positions into an offset range. Anchor and
// active end may come in either order.
func selection(t *syntax.Tree, pos [2]protocol.Position) (syntax.Range, error) {
	a, err := offset(t, pos[0])
	if err != nil {
		return syntax.Range{}, err
	}
	b, err := offset(t, pos[1])
	if err != nil {
		return syntax.Range{}, err
	}
	if a > b {
		a, b = b, a
	}
	return syntax.Range{Start: a, End: b}, nil
}

// expandSelection answers [startLine, startChar, endLine, endChar] or null
// when the selection already covers the whole document.
func (s *Server) expandSelection(context *glsp.Context, args []any) (any, error) {
	uri, pos, err := decodeSelection(args)
	if err != nil {
		return nil, err
	}
	t, err := s.tree(s.ctx, uri)
	if err != nil {
		return nil, err
	}
	r, err := selection(t, pos)
	if err != nil {
		return nil, err
	}
	next, ok := t.ExpandSelection(r)
	if !ok {
		return nil, nil
	}
	pr, err := protocolRange(t, next)
	if err != nil {
		return nil, err
	}
	return []protocol.UInteger{pr.Start.Line, pr.Start.Character, pr.End.Line, pr.End.Character}, nil
}

// moveCursorToStart answers [line, char] of the start of the innermost
// node enclosing the selection.
func (s *Server) moveCursorToStart(context *glsp.Context, args []any) (any, error) {
	uri, pos, err := decodeSelection(args)
	if err != nil {
		return nil, err
	}
	t, err := s.tree(s.ctx, uri)
	if err != nil {
		return nil, err
	}
	r, err := selection(t, pos)
	if err != nil {
		return nil, err
	}
	p, err := position(t, t.MoveCursorToStart(r))
	if err != nil {
		return nil, err
	}
	return []protocol.UInteger{p.Line, p.Character}, nil
}

type NodeDescription struct {
	Path  string         `json:"path"`
	Kind  string         `json:"kind"`
	Tag   string         `json:"tag,omitempty"`
	Range protocol.Range `json:"range"`
	Text  string         `json:"text"`
}

func (s *Server) describeNode(context *glsp.Context, args []any) (any, error) {
	uri, pos, err := decodePosition(args)
	if err != nil {
		return nil, err
	}
	t, err := s.tree(s.ctx, uri)
	if err != nil {
		return nil, err
	}
	off, err := offset(t, pos)
	if err != nil {
		return nil, err
	}
	path := t.InnermostEnclosingPath(syntax.Range{Start: off, End: off})
	n, err := t.NodeAt(path)
	if err != nil {
		return nil, requestError(err)
	}
	r, err := protocolRange(t, n.Range)
	if err != nil {
		return nil, err
	}
	return NodeDescription{
		Path:  path.String(),
		Kind:  n.Kind.String(),
		Tag:   n.Tag,
		Range: r,
		Text:  t.Slice(n.Range),
	}, nil
}
