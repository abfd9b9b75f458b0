package server

import (
	"context"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/store"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

// tree reads the current text of uri and returns its tree. The text is not
// retained past the call.
func (s *Server) tree(ctx context.Context, uri string) (*syntax.Tree, error) {
	st, trees, _ := s.deps()
	text, err := st.Read(ctx, uri)
	if err != nil {
		return nil, requestError(err)
	}
	metrics.StoreOps.WithLabelValues("read").Inc()
	t, err := trees.Tree(ctx, uri, text, s.profiles.Current())
	if err != nil {
		return nil, requestError(err)
	}
	return t, nil
}

func offset(t *syntax.Tree, pos protocol.Position) (int, error) {
	off, err := t.Offset(int(pos.Line), int(pos.Character))
	if err != nil {
		return 0, requestError(err)
	}
	return off, nil
}

func position(t *syntax.Tree, off int) (protocol.Position, error) {
	row, col, err := t.Position(off)
	if err != nil {
		return protocol.Position{}, requestError(err)
	}
	return protocol.Position{Line: protocol.UInteger(row), Character: protocol.UInteger(col)}, nil
}

func protocolRange(t *syntax.Tree, r syntax.Range) (protocol.Range, error) {
	start, err := position(t, r.Start)
	if err != nil {
		return protocol.Range{}, err
	}
	end, err := position(t, r.End)
	if err != nil {
		return protocol.Range{}, err
	}
	return protocol.Range{Start: start, End: end}, nil
}

func (s *Server) countDocuments(st store.Store) {
	uris, err := st.URIs(s.ctx)
	if err != nil {
		log.Errorf("failed to list documents: %v", err)
		return
	}
	metrics.OpenDocuments.Set(float64(len(uris)))
}
