// Package codelens implements the per-buffer Code-Lens Cache: entries
// sorted by range.start, plus the selection-touching resolution and
// rendering logic a code-lens feature entry point drives.
package codelens

import (
	"sort"
	"sync"

	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// ServerLens tags a code lens with the server that returned it.
type ServerLens struct {
	Server registry.ServerId
	Lens   transport.CodeLens
}

// Cache holds every open buffer's code lenses, kept sorted by
// range.start ascending. The zero value is not usable; construct with
// NewCache.
type Cache struct {
	mu    sync.RWMutex
	byBuf map[string][]ServerLens
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{byBuf: make(map[string][]ServerLens)}
}

func rangeLess(a, b transport.Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Character < b.Start.Character
}

// Publish replaces buffile's lens entries for server and re-sorts the
// whole buffile entry set by range.start.
func (c *Cache) Publish(buffile string, server registry.ServerId, lenses []transport.CodeLens) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.byBuf[buffile]
	kept := existing[:0:0]
	for _, e := range existing {
		if e.Server != server {
			kept = append(kept, e)
		}
	}
	for _, l := range lenses {
		kept = append(kept, ServerLens{Server: server, Lens: l})
	}
	sort.SliceStable(kept, func(i, j int) bool { return rangeLess(kept[i].Lens.Range, kept[j].Lens.Range) })
	c.byBuf[buffile] = kept
}

// Remove drops every entry for buffile, e.g. when the document closes.
func (c *Cache) Remove(buffile string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byBuf, buffile)
}

// Get returns a copy of buffile's lens entries, sorted by range.start.
func (c *Cache) Get(buffile string) []ServerLens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.byBuf[buffile]
	out := make([]ServerLens, len(entries))
	copy(out, entries)
	return out
}

// Lines returns the ascending, deduplicated set of 0-based lines carrying
// at least one lens, the shape the diagnostic cache's line-flag merge
// needs from this cache.
func (c *Cache) Lines(buffile string) []uint32 {
	seen := make(map[uint32]struct{})
	var out []uint32
	for _, e := range c.Get(buffile) {
		l := uint32(e.Lens.Range.Start.Line)
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
