package server

import (
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

// textDocumentSelectionRange answers, for each position, the chain of node
// ranges from the innermost node around it up to the whole document.
func (s *Server) textDocumentSelectionRange(
	context *glsp.Context,
	params *protocol.SelectionRangeParams,
) (ranges []protocol.SelectionRange, err error) {
	defer func(start time.Time) { metrics.Observe("selectionRange", start, err) }(time.Now())

	t, err := s.tree(s.ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	ranges = make([]protocol.SelectionRange, 0, len(params.Positions))
	for _, pos := range params.Positions {
		off, err := offset(t, pos)
		if err != nil {
			return nil, err
		}
		sr, err := selectionChain(t, off)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, *sr)
	}
	return ranges, nil
}

func selectionChain(t *syntax.Tree, off int) (*protocol.SelectionRange, error) {
	r, err := t.SubtreeRange(t.InnermostEnclosingPath(syntax.Range{Start: off, End: off}))
	if err != nil {
		return nil, requestError(err)
	}
	chain := []syntax.Range{r}
	for {
		next, ok := t.ExpandSelection(chain[len(chain)-1])
		if !ok {
			break
		}
		chain = append(chain, next)
	}

	var sr *protocol.SelectionRange
	for i := len(chain) - 1; i >= 0; i-- {
		pr, err := protocolRange(t, chain[i])
		if err != nil {
			return nil, err
		}
		sr = &protocol.SelectionRange{Range: pr, Parent: sr}
	}
	return sr, nil
}
