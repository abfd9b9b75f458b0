package server

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// showTree publishes the tree of a document to the tree viewer, asks the
// client to open it and answers the viewer URL.
func (s *Server) showTree(context *glsp.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, invalidParams("expected 1 argument, got %d", len(args))
	}
	var doc protocol.TextDocumentIdentifier
	if err := decodeArgument(args[0], &doc); err != nil || doc.URI == "" {
		return nil, invalidParams("argument 0: expected a text document identifier")
	}

	t, err := s.tree(s.ctx, doc.URI)
	if err != nil {
		return nil, err
	}
	_, _, cfg := s.deps()
	addr, err := s.viewer.Show(cfg.Treeview.Addr, doc.URI)
	if err != nil {
		return nil, requestError(err)
	}
	if err := s.viewer.Publish(doc.URI, t); err != nil {
		return nil, requestError(err)
	}

	if context != nil && context.Notify != nil {
		context.Notify(
			"window/showDocument",
			protocol.ShowDocumentParams{
				URI:      protocol.URI(addr),
				External: &protocol.True,
			},
		)
	}
	return addr, nil
}

// refreshView republishes uri once the viewer is running. Parse failures
// leave the previous tree on display.
func (s *Server) refreshView(uri string) {
	if !s.viewer.Active() {
		return
	}
	t, err := s.tree(s.ctx, uri)
	if err != nil {
		log.Debugf("tree viewer: %s: %v", uri, err)
		return
	}
	if err := s.viewer.Publish(uri, t); err != nil {
		log.Errorf("tree viewer: %v", err)
	}
}
