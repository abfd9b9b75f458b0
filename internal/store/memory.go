package store

import (
	"context"
	"sync"
)

// Memory keeps documents in a map guarded by a RWMutex.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]string)}
}

func (m *Memory) Open(_ context.Context, uri, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[uri] = text
	return nil
}

func (m *Memory) Change(_ context.Context, uri, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[uri] = text
	return nil
}

func (m *Memory) Close(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, uri)
	return nil
}

func (m *Memory) Read(_ context.Context, uri string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.docs[uri]
	if !ok {
		return "", notFound(uri)
	}
	return text, nil
}

func (m *Memory) URIs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uris := make([]string, 0, len(m.docs))
	for uri := range m.docs {
		uris = append(uris, uri)
	}
	return uris, nil
}

func (m *Memory) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]string)
	return nil
}
