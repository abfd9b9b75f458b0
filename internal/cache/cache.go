// Package cache remembers the last tree parsed for each document so that
// repeated structural requests against unchanged text skip the parser.
//
// An entry is only served when the text, its hash and the profile
// generation all match the request. Entries are dropped eagerly when a
// document changes or closes, and all at once when the profile is reloaded.
package cache

import (
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/metrics"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/parser"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

type entry struct {
	text       string
	hash       uint64
	generation uint64
	tree       *syntax.Tree
}

// TreeCache sits in front of a parser.Parser.
type TreeCache struct {
	parser  parser.Parser
	enabled bool

	mu      sync.RWMutex
	entries map[string]*entry
	// clock ticks on every invalidation. epochs holds the tick of the last
	// invalidation of each open URI, and floor the tick of the last Forget
	// or Purge. A parse may only install its result when neither happened
	// after it started.
	clock  uint64
	floor  uint64
	epochs map[string]uint64
	flight singleflight.Group
}

// NewTreeCache wraps p. With enabled false every call parses.
func NewTreeCache(p parser.Parser, enabled bool) *TreeCache {
	return &TreeCache{
		parser:  p,
		enabled: enabled,
		entries: make(map[string]*entry),
		epochs:  make(map[string]uint64),
	}
}

// Tree returns a tree for text, the current content of uri, under snap.
func (c *TreeCache) Tree(ctx context.Context, uri, text string, snap *profile.Snapshot) (*syntax.Tree, error) {
	if !c.enabled {
		return c.parser.Parse(ctx, snap, text)
	}

	hash := xxhash.Sum64String(text)
	c.mu.RLock()
	e, ok := c.entries[uri]
	start := c.clock
	c.mu.RUnlock()
	if ok && e.hash == hash && e.generation == snap.Generation && e.text == text {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return e.tree, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	key := uri + "\x00" + strconv.FormatUint(snap.Generation, 10) + "\x00" + strconv.FormatUint(hash, 16)
	v, err, _ := c.flight.Do(key, func() (any, error) {
		return c.parser.Parse(ctx, snap, text)
	})
	if err != nil {
		return nil, err
	}
	tree := v.(*syntax.Tree)
	if tree.Text() != text {
		// Hash collision inside the flight group.
		return c.parser.Parse(ctx, snap, text)
	}

	c.mu.Lock()
	if start >= c.floor && c.epochs[uri] <= start {
		c.entries[uri] = &entry{text: text, hash: hash, generation: snap.Generation, tree: tree}
	}
	c.mu.Unlock()
	return tree, nil
}

// Invalidate drops the entry for uri. Parses already in flight for uri
// still return their tree to their caller but are not installed.
func (c *TreeCache) Invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	delete(c.entries, uri)
	c.epochs[uri] = c.clock
}

// Forget drops everything held for uri once it is closed. Parses in
// flight for any URI are not installed.
func (c *TreeCache) Forget(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	c.floor = c.clock
	delete(c.entries, uri)
	delete(c.epochs, uri)
}

// Purge drops every entry, e.g. after a profile reload.
func (c *TreeCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	c.floor = c.clock
	c.entries = make(map[string]*entry)
	c.epochs = make(map[string]uint64)
}

// Len reports the number of cached trees.
func (c *TreeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
