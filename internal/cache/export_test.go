package cache

// Tracked reports the number of URIs with invalidation bookkeeping.
func (c *TreeCache) Tracked() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.epochs)
}
