package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Serve answers JSON-RPC messages from stream until it is closed or the
// client sends exit. With debug set every message is logged.
func (s *Server) Serve(ctx context.Context, stream jsonrpc2.ObjectStream, debug bool) *jsonrpc2.Conn {
	var opts []jsonrpc2.ConnOpt
	if debug {
		opts = append(opts, jsonrpc2.LogMessages(rpcLogger{commonlog.GetLogger("ssels.rpc")}))
	}
	return jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle), opts...)
}

// ServeStream serves an LSP connection framed with Content-Length headers.
func (s *Server) ServeStream(ctx context.Context, rwc io.ReadWriteCloser, debug bool) *jsonrpc2.Conn {
	return s.Serve(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), debug)
}

// RunStdio serves a single client on stdin and stdout.
func (s *Server) RunStdio(ctx context.Context, debug bool) error {
	log.Info("reading from stdin, writing to stdout")
	conn := s.ServeStream(ctx, stdio{}, debug)
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
	}
	return nil
}

// RunTCP serves every client connecting to addr until ctx is done.
func (s *Server) RunTCP(ctx context.Context, addr string, debug bool) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Infof("listening for TCP connections on %s", l.Addr())
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Debugf("received incoming connection from %s", c.RemoteAddr())
		conn := s.ServeStream(ctx, c, debug)
		go func() {
			<-conn.DisconnectNotify()
			log.Debugf("connection from %s closed", c.RemoteAddr())
		}()
	}
}

// RunWebSocket serves every client upgrading on addr until ctx is done.
func (s *Server) RunWebSocket(ctx context.Context, addr string, debug bool) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warningf("websocket upgrade: %v", err)
			return
		}
		log.Debugf("received incoming connection from %s", r.RemoteAddr)
		conn := s.Serve(ctx, wsjsonrpc2.NewObjectStream(ws), debug)
		<-conn.DisconnectNotify()
		log.Debugf("connection from %s closed", r.RemoteAddr)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Infof("listening for websocket connections on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handle runs one message through the protocol handler. Unlike a plain
// glsp server it keeps the code and message of a *Error, so that clients
// see RequestFailed for unknown documents and parse failures.
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	glspContext := glsp.Context{
		Method: req.Method,
		Notify: func(method string, params any) {
			if err := conn.Notify(ctx, method, params); err != nil {
				log.Errorf("notify %s: %v", method, err)
			}
		},
	}
	if req.Params != nil {
		glspContext.Params = *req.Params
	}

	result, validMethod, validParams, err := s.Handler().Handle(&glspContext)
	if req.Method == "exit" {
		return nil, conn.Close()
	}
	if req.Notif && err != nil {
		log.Errorf("%s: %v", req.Method, err)
	}

	switch {
	case err != nil:
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			if !validParams {
				rpcErr = &Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error(), Err: err}
			} else {
				errors.As(requestError(err), &rpcErr)
			}
		}
		return nil, rpcErr.JSONRPC()
	case !validMethod:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not supported: %s", req.Method),
		}
	case !validParams:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
	}
	return result, nil
}

type rpcLogger struct {
	commonlog.Logger
}

func (l rpcLogger) Printf(format string, v ...any) {
	l.Debugf(format, v...)
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdio) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}
