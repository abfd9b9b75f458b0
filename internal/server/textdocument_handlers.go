package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	st, trees, _ := s.deps()
	if err := st.Open(s.ctx, uri, params.TextDocument.Text); err != nil {
		return err
	}
	trees.Invalidate(uri)
	metrics.StoreOps.WithLabelValues("open").Inc()
	s.countDocuments(st)
	s.refreshView(uri)
	return nil
}

// textDocumentDidChange applies the first content change of the batch only.
// With full sync every change carries the whole text, so a well-behaved
// client never sends more than one.
func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) == 0 {
		return nil
	}
	if n := len(params.ContentChanges); n > 1 {
		log.Warningf("%s: %d content changes in one notification, applying the first", uri, n)
	}

	var text string
	switch change := params.ContentChanges[0].(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		text = change.Text
	case protocol.TextDocumentContentChangeEvent:
		if change.Range != nil {
			return fmt.Errorf("%s: incremental change received, server only supports full sync", uri)
		}
		text = change.Text
	default:
		return fmt.Errorf("unexpected change event type %T", change)
	}

	st, trees, _ := s.deps()
	if err := st.Change(s.ctx, uri, text); err != nil {
		return err
	}
	trees.Invalidate(uri)
	metrics.StoreOps.WithLabelValues("change").Inc()
	s.refreshView(uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	st, trees, _ := s.deps()
	if err := st.Close(s.ctx, uri); err != nil {
		return err
	}
	trees.Forget(uri)
	metrics.StoreOps.WithLabelValues("close").Inc()
	s.countDocuments(st)
	s.viewer.Remove(uri)
	return nil
}
