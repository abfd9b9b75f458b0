package server

import (
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

const (
	HoverPlainText = "plaintext"
	HoverMarkdown  = "markdown"
	// HoverPath shows the child-index path of the node instead of its text.
	HoverPath = "path"
)

func (s *Server) textDocumentHover(
	context *glsp.Context,
	params *protocol.HoverParams,
) (h *protocol.Hover, err error) {
	defer func(start time.Time) { metrics.Observe("hover", start, err) }(time.Now())

	t, err := s.tree(s.ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	off, err := offset(t, params.Position)
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

	_, _, cfg := s.deps()
	return &protocol.Hover{
		Contents: hoverContents(cfg.Hover.Format, t.Slice(n.Range), path),
		Range:    &r,
	}, nil
}

func hoverContents(format, text string, path syntax.Path) protocol.MarkupContent {
	switch format {
	case HoverMarkdown:
		return protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fence(text),
		}
	case HoverPath:
		return protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: path.String(),
		}
	default:
		return protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: text,
		}
	}
}

// fence wraps text in a code block whose fence is longer than any run of
// backticks inside it.
func fence(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	marker := "```"
	for len(marker) <= longest {
		marker += "`"
	}
	return marker + "\n" + text + "\n" + marker
}
