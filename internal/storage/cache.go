package storage

import (
	"sync"

	"github.com/roach88/hbnb/internal/model"
)

// countCache memoizes Count results between mutations. A result computed
// under an older generation is dropped, so a reader racing a writer never
// caches a stale count.
type countCache struct {
	mu     sync.Mutex
	gen    uint64
	counts map[model.Kind]int
}

func (c *countCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.counts = make(map[model.Kind]int)
}

func (c *countCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *countCache) get(kind model.Kind) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[kind]
	return n, ok
}

func (c *countCache) put(gen uint64, kind model.Kind, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.counts[kind] = n
	}
}
