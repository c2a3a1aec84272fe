// Package cache is a thread-safe, no-eviction compilation cache:
// documents are compiled once per key and shared (by pointer) across
// every subsequent render.
package cache

import (
	"sync"

	"github.com/twigo-lang/twigo/ast"
)

// Cache maps a loader key to its compiled Document. A single mutex
// guards the whole map: compilation only happens at most once per key
// (checked-then-filled under the same lock), so there's no need for
// finer-grained or lock-free structures.
type Cache struct {
	mu   sync.Mutex
	docs map[string]*ast.Document
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{docs: map[string]*ast.Document{}}
}

// Get returns the cached document for key, if present.
func (c *Cache) Get(key string) (*ast.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[key]
	return doc, ok
}

// Add stores doc under key, overwriting any prior entry (last writer
// wins). Dropping a key, e.g. on file-watch reload, is done by Invalidate.
func (c *Cache) Add(key string, doc *ast.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = doc
}

// Fetch returns the cached document for key, compiling and storing it via
// compile on a miss. compile runs under the cache's lock, so two renders
// racing on the same uncompiled key can never compile it twice.
func (c *Cache) Fetch(key string, compile func() (*ast.Document, error)) (*ast.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc, ok := c.docs[key]; ok {
		return doc, nil
	}
	doc, err := compile()
	if err != nil {
		return nil, err
	}
	c.docs[key] = doc
	return doc, nil
}

// Invalidate drops a single key, forcing recompilation on next Fetch.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, key)
}

// Clear drops every cached document.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = map[string]*ast.Document{}
}

// Len reports how many documents are currently cached (used by tests).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}
