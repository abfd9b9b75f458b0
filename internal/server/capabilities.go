package server

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// capabilities advertises full document sync only, hover, selection ranges
// and the structural commands.
func (s *Server) capabilities() protocol.ServerCapabilities {
	syncKind := protocol.TextDocumentSyncKindFull

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true
	capabilities.SelectionRangeProvider = true
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: Commands(),
	}
	return capabilities
}
