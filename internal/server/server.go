// Package server wires the document store, the parser and the structural
// navigator to the Language Server Protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/cache"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/config"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/parser"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/store"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/treeview"
)

const Name = "ssels"

var log = commonlog.GetLogger("ssels.server")

type Server struct {
	version  string
	handler  *protocol.Handler
	profiles *profile.Holder
	parsers  *parser.ParserPool
	viewer   *treeview.Viewer

	// ctx lives until shutdown; requests derive from it.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	config config.Config
	store  store.Store
	trees  *cache.TreeCache
}

// New builds a server from cfg. initializationOptions sent by the client
// are overlaid on cfg during initialize.
func New(cfg config.Config, version string) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := cfg.ResolveProfile()
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	st, err := store.New(cfg.Store.Backend)
	if err != nil {
		return nil, err
	}

	s := &Server{
		version:  version,
		profiles: profile.NewHolder(p),
		parsers:  parser.NewParserPool(cfg.Parser.MaxParallel),
		viewer:   treeview.New(),
		config:   cfg,
		store:    st,
	}
	s.trees = cache.NewTreeCache(s.parsers, cfg.Cache.Enabled)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.handler = &protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentSelectionRange: s.textDocumentSelectionRange,
		WorkspaceExecuteCommand:    s.workspaceExecuteCommand,
	}
	return s, nil
}

// Handler returns the glsp handler of the server. Request errors carrying
// CodeInvalidParams or CodeMethodNotFound are reported with those codes.
func (s *Server) Handler() glsp.Handler {
	return handler{s.handler}
}

// Profiles exposes the profile holder so callers can install reloads.
func (s *Server) Profiles() *profile.Holder {
	return s.profiles
}

// ProfileReloaded drops every cached tree. It is meant as the onReload
// callback of profile.Watch.
func (s *Server) ProfileReloaded(snap *profile.Snapshot) {
	_, trees, _ := s.deps()
	trees.Purge()
	log.Infof("profile %q installed (generation %d)", snap.Profile.Name, snap.Generation)
}

// Close releases the store and the parsers.
func (s *Server) Close() error {
	s.cancel()
	st, _, _ := s.deps()
	return errors.Join(st.Release(), s.parsers.Close(), s.viewer.Close())
}

func (s *Server) deps() (store.Store, *cache.TreeCache, config.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store, s.trees, s.config
}

type handler struct {
	*protocol.Handler
}

func (h handler) Handle(context *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	r, validMethod, validParams, err = h.Handler.Handle(context)
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case jsonrpc2.CodeInvalidParams:
			validParams = false
		case jsonrpc2.CodeMethodNotFound:
			validMethod = false
		}
	}
	return r, validMethod, validParams, err
}
