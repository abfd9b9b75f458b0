package server

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/cache"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/config"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/store"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	if params.InitializationOptions != nil {
		if err := s.reconfigure(params.InitializationOptions); err != nil {
			return nil, err
		}
	}
	if params.ClientInfo != nil {
		log.Infof("client: %s", params.ClientInfo.Name)
	}

	return protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

// reconfigure overlays the client's initializationOptions. A new store is
// only created when the backend changes, which is safe because no document
// can be open before initialize.
func (s *Server) reconfigure(options any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := config.Load(s.config, options)
	if err != nil {
		return invalidParams("initializationOptions: %v", err)
	}
	log.Infof("config: %+v", cfg)

	if cfg.Store.Backend != s.config.Store.Backend {
		st, err := store.New(cfg.Store.Backend)
		if err != nil {
			return err
		}
		if err := s.store.Release(); err != nil {
			log.Errorf("failed to release store: %v", err)
		}
		s.store = st
	}
	if cfg.Profile != nil || cfg.ProfilePath != s.config.ProfilePath {
		p, err := cfg.ResolveProfile()
		if err != nil {
			return invalidParams("profile: %v", err)
		}
		s.profiles.Replace(p)
	}
	s.trees = cache.NewTreeCache(s.parsers, cfg.Cache.Enabled)
	s.config = cfg
	return nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	if context != nil && context.Notify != nil {
		context.Notify("window/logMessage", protocol.LogMessageParams{
			Type:    protocol.MessageTypeInfo,
			Message: "server initialized!",
		})
	}
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return s.Close()
}

func (s *Server) setTrace(
	context *glsp.Context,
	params *protocol.SetTraceParams,
) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
