package server

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/store"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

// CodeRequestFailed is the LSP code for a well-formed request that could
// not be answered.
const CodeRequestFailed int64 = -32803

// Error is a request-scoped failure with a JSON-RPC error code.
type Error struct {
	Code    int64
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// JSONRPC converts e into a wire error.
func (e *Error) JSONRPC() *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: e.Code, Message: e.Message}
}

func invalidParams(format string, args ...any) *Error {
	return &Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func methodNotFound(command string) *Error {
	return &Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("unknown command %q", command)}
}

// requestError classifies errors from the store, the parser and the
// translator.
func requestError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return err
	}
	var parseErr *syntax.ParseError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Code: CodeRequestFailed, Message: err.Error(), Err: err}
	case errors.Is(err, syntax.ErrOutOfRange):
		return &Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error(), Err: err}
	case errors.As(err, &parseErr):
		return &Error{Code: CodeRequestFailed, Message: "parse failed: " + parseErr.Error(), Err: err}
	default:
		return &Error{Code: jsonrpc2.CodeInternalError, Message: err.Error(), Err: err}
	}
}
