// Package parser turns document text into syntax trees, choosing the
// engine the active profile asks for and bounding how many parses run at
// the same time.
package parser

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/sitteradapter"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

// Parser produces a fresh tree for text under a profile snapshot.
type Parser interface {
	Parse(ctx context.Context, snap *profile.Snapshot, text string) (*syntax.Tree, error)
}

// ParserPool allows at most n parses in flight and keeps one tree-sitter
// engine per grammar, created on first use.
type ParserPool struct {
	n       int
	sem     *semaphore.Weighted
	mu      sync.Mutex
	engines map[string]*sitteradapter.Engine
}

// NewParserPool creates a ParserPool running up to n parses concurrently.
func NewParserPool(n int) *ParserPool {
	if n < 1 {
		n = 1
	}
	return &ParserPool{
		n:       n,
		sem:     semaphore.NewWeighted(int64(n)),
		engines: make(map[string]*sitteradapter.Engine),
	}
}

// Parse waits for a free slot and parses text. Bracket profiles go through
// syntax.Parse, grammar profiles through the matching tree-sitter engine.
func (pp *ParserPool) Parse(ctx context.Context, snap *profile.Snapshot, text string) (*syntax.Tree, error) {
	if err := pp.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer pp.sem.Release(1)

	if snap.Profile.Grammar == "" {
		return syntax.Parse(snap.Profile, text)
	}
	e, err := pp.engine(snap.Profile.Grammar)
	if err != nil {
		return nil, err
	}
	return e.Parse(ctx, text)
}

func (pp *ParserPool) engine(grammar string) (*sitteradapter.Engine, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if e, ok := pp.engines[grammar]; ok {
		return e, nil
	}
	e, err := sitteradapter.NewEngine(grammar, pp.n)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	pp.engines[grammar] = e
	return e, nil
}

// Close waits for parses in flight and releases all tree-sitter engines.
func (pp *ParserPool) Close() error {
	if err := pp.sem.Acquire(context.Background(), int64(pp.n)); err != nil {
		return err
	}
	defer pp.sem.Release(int64(pp.n))

	pp.mu.Lock()
	defer pp.mu.Unlock()
	for name, e := range pp.engines {
		e.Close()
		delete(pp.engines, name)
	}
	return nil
}
