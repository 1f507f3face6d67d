package boundary

import (
	"context"
	"sync"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/geo"
)

// Catalog caches the boundary collection for the lifetime of the process.
// Boundaries are immutable once loaded; a failed load leaves the catalog
// empty, which callers treat as "spatial auto-selection unavailable".
type Catalog struct {
	mu     sync.RWMutex
	loaded bool
	order  []string
	byID   map[string]geo.Boundary
}

func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]geo.Boundary)}
}

// Load performs the one-shot fetch. On error the catalog stays empty and
// the error is returned for the caller to log; the service keeps running.
func (c *Catalog) Load(ctx context.Context, source Source) error {
	boundaries, err := source.Fetch(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]geo.Boundary, len(boundaries))
	order := make([]string, 0, len(boundaries))
	for _, b := range boundaries {
		if _, ok := byID[b.ID]; ok {
			continue
		}
		byID[b.ID] = b
		order = append(order, b.ID)
	}

	c.mu.Lock()
	c.byID = byID
	c.order = order
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Loaded reports whether a fetch has succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func (c *Catalog) Get(id string) (geo.Boundary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byID[id]
	return b, ok
}

// All returns boundaries in load order.
func (c *Catalog) All() []geo.Boundary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]geo.Boundary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Resolve maps ids to boundaries, silently dropping unknown ids.
func (c *Catalog) Resolve(ids []string) []geo.Boundary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]geo.Boundary, 0, len(ids))
	for _, id := range ids {
		if b, ok := c.byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Lookup returns the id→boundary map for bbox union computations.
func (c *Catalog) Lookup() map[string]geo.Boundary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]geo.Boundary, len(c.byID))
	for id, b := range c.byID {
		out[id] = b
	}
	return out
}
