package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/cache"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

type countingParser struct {
	calls atomic.Int64
}

func (p *countingParser) Parse(_ context.Context, snap *profile.Snapshot, text string) (*syntax.Tree, error) {
	p.calls.Add(1)
	return syntax.Parse(snap.Profile, text)
}

func TestTreeCacheHitsOnSameText(t *testing.T) {
	ctx := context.Background()
	p := &countingParser{}
	c := cache.NewTreeCache(p, true)
	snap := profile.NewHolder(profile.Default()).Current()

	first, err := c.Tree(ctx, "file:///a", "(a (b c))", snap)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Tree(ctx, "file:///a", "(a (b c))", snap)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected the cached tree to be reused")
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("parser calls = %d, want 1", n)
	}
}

func TestTreeCacheMisses(t *testing.T) {
	ctx := context.Background()
	h := profile.NewHolder(profile.Default())

	tests := []struct {
		name  string
		apply func(c *cache.TreeCache) (text string, snap *profile.Snapshot)
	}{
		{
			name: "text changed",
			apply: func(c *cache.TreeCache) (string, *profile.Snapshot) {
				return "(a (b d))", h.Current()
			},
		},
		{
			name: "invalidated",
			apply: func(c *cache.TreeCache) (string, *profile.Snapshot) {
				c.Invalidate("file:///a")
				return "(a (b c))", h.Current()
			},
		},
		{
			name: "profile reloaded",
			apply: func(c *cache.TreeCache) (string, *profile.Snapshot) {
				return "(a (b c))", h.Replace(profile.Default())
			},
		},
		{
			name: "purged",
			apply: func(c *cache.TreeCache) (string, *profile.Snapshot) {
				c.Purge()
				return "(a (b c))", h.Current()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingParser{}
			c := cache.NewTreeCache(p, true)
			if _, err := c.Tree(ctx, "file:///a", "(a (b c))", h.Current()); err != nil {
				t.Fatal(err)
			}
			text, snap := tt.apply(c)
			tree, err := c.Tree(ctx, "file:///a", text, snap)
			if err != nil {
				t.Fatal(err)
			}
			if tree.Text() != text {
				t.Errorf("tree text = %q, want %q", tree.Text(), text)
			}
			if n := p.calls.Load(); n != 2 {
				t.Errorf("parser calls = %d, want 2", n)
			}
		})
	}
}

func TestTreeCacheDisabled(t *testing.T) {
	p := &countingParser{}
	c := cache.NewTreeCache(p, false)
	snap := profile.NewHolder(profile.Default()).Current()
	for i := 0; i < 3; i++ {
		if _, err := c.Tree(context.Background(), "file:///a", "(a)", snap); err != nil {
			t.Fatal(err)
		}
	}
	if n := p.calls.Load(); n != 3 {
		t.Errorf("parser calls = %d, want 3", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestTreeCacheParseErrorNotCached(t *testing.T) {
	p := &countingParser{}
	c := cache.NewTreeCache(p, true)
	snap := profile.NewHolder(profile.Default()).Current()
	for i := 0; i < 2; i++ {
		if _, err := c.Tree(context.Background(), "file:///a", "(a", snap); err == nil {
			t.Fatalf("expected parse error")
		}
	}
	if n := p.calls.Load(); n != 2 {
		t.Errorf("parser calls = %d, want 2", n)
	}
}

// Whatever interleaving happens, a caller always gets the tree of the text it
// passed in.
func TestTreeCacheConcurrent(t *testing.T) {
	p := &countingParser{}
	c := cache.NewTreeCache(p, true)
	snap := profile.NewHolder(profile.Default()).Current()
	texts := []string{"(a)", "(a b)", "((a) b)", "(a (b c))"}

	var wg sync.WaitGroup
	errs := make(chan string, 512)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				text := texts[(g+i)%len(texts)]
				if i%7 == 0 {
					c.Invalidate("file:///shared")
				}
				tree, err := c.Tree(context.Background(), "file:///shared", text, snap)
				if err != nil {
					errs <- err.Error()
					continue
				}
				if tree.Text() != text {
					errs <- "got tree for " + tree.Text() + ", want " + text
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

type blockingParser struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingParser) Parse(_ context.Context, snap *profile.Snapshot, text string) (*syntax.Tree, error) {
	p.started <- struct{}{}
	<-p.release
	return syntax.Parse(snap.Profile, text)
}

func TestTreeCacheForget(t *testing.T) {
	p := &blockingParser{started: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewTreeCache(p, true)
	snap := profile.NewHolder(profile.Default()).Current()

	done := make(chan error)
	go func() {
		_, err := c.Tree(context.Background(), "file:///a", "(a)", snap)
		done <- err
	}()
	<-p.started
	c.Invalidate("file:///a")
	c.Invalidate("file:///b")
	c.Forget("file:///a")
	close(p.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after a parse finished on a closed document", c.Len())
	}
	if n := c.Tracked(); n != 1 {
		t.Errorf("Tracked() = %d, want 1", n)
	}
	c.Forget("file:///b")
	if n := c.Tracked(); n != 0 {
		t.Errorf("Tracked() = %d, want 0", n)
	}

	// Parses started after the close install again.
	go func() {
		_, err := c.Tree(context.Background(), "file:///a", "(a)", snap)
		done <- err
	}()
	<-p.started
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
