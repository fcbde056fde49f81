package markerbed

import "sync"

// Catalog serves read queries from a cached, indexed snapshot of a Store's
// dataset. Commits through the Store replace the snapshot directly; external
// edits are picked up after Invalidate, typically called by Watch.
type Catalog struct {
	store *Store

	mu    sync.RWMutex
	index *Index
	gen   uint64 // bumped by every replace or invalidate
}

// NewCatalog creates a Catalog bound to s.
func NewCatalog(s *Store) *Catalog {
	c := &Catalog{store: s}
	s.OnCommit(c.replace)
	return c
}

func (c *Catalog) replace(records []Record) {
	ix := NewIndex(records)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = ix
	c.gen++
}

// Invalidate drops the cached snapshot; the next read reloads the file.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = nil
	c.gen++
}

// Index returns the current snapshot, loading it from disk if needed.
func (c *Catalog) Index() (*Index, error) {
	c.mu.RLock()
	ix, gen := c.index, c.gen
	c.mu.RUnlock()
	if ix != nil {
		return ix, nil
	}

	records, err := c.store.Records()
	if err != nil {
		return nil, err
	}
	ix = NewIndex(records)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A commit or invalidation that happened during the load wins.
	if c.gen == gen {
		c.index = ix
	}
	return ix, nil
}

// Records returns the cached records.
func (c *Catalog) Records() ([]Record, error) {
	ix, err := c.Index()
	if err != nil {
		return nil, err
	}
	return ix.Records(), nil
}
