// Package store holds the authoritative text of every open document.
// Writers always replace a document's text wholesale.
package store

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("store: document not found")

// Store maps document URIs to their current full text. Implementations are
// safe for concurrent use: readers never observe a partially written value
// and the last writer to get access wins.
type Store interface {
	// Open inserts or overwrites the document.
	Open(ctx context.Context, uri, text string) error
	// Change overwrites the document, inserting it if it was never opened.
	Change(ctx context.Context, uri, text string) error
	// Close removes the document. Closing an unknown URI is not an error.
	Close(ctx context.Context, uri string) error
	// Read returns the current text or an error wrapping ErrNotFound.
	Read(ctx context.Context, uri string) (string, error)
	// URIs lists the open documents in no particular order.
	URIs(ctx context.Context) ([]string, error)
	// Release frees the resources held by the store.
	Release() error
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New creates a store for the named backend.
func New(backend string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite()
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func notFound(uri string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, uri)
}
