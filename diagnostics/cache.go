// Package diagnostics implements the per-buffer Diagnostic Cache: the
// mapping from buffile to every responding server's current diagnostics,
// plus the per-line aggregation and render views other components consult.
package diagnostics

import (
	"sync"

	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// ServerDiagnostic tags a diagnostic with the server that published it.
type ServerDiagnostic struct {
	Server     registry.ServerId
	Diagnostic transport.Diagnostic
}

// Cache holds every open buffer's diagnostics, flattened across servers.
// An entry for a given (buffile, server) pair exists iff that server most
// recently published a (possibly empty) list for that buffer; Publish
// replaces the entire per-server subset on each call rather than merging
// into it. The zero value is not usable; construct with NewCache.
type Cache struct {
	mu    sync.RWMutex
	byBuf map[string][]ServerDiagnostic
	order []string // buffile first-publish order, for deterministic iteration
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{byBuf: make(map[string][]ServerDiagnostic)}
}

// Publish replaces every entry for (buffile, server) with diags, preserving
// entries published by other servers for the same buffer. Implements the
// flat-map-filter-then-append approach the spec's Open Question calls for:
// the cache stores one flat slice per buffile, each entry tagged with its
// ServerId; Get returns every server's entries together.
func (c *Cache) Publish(buffile string, server registry.ServerId, diags []transport.Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, seen := c.byBuf[buffile]
	if !seen {
		c.order = append(c.order, buffile)
	}
	kept := existing[:0:0]
	for _, d := range existing {
		if d.Server != server {
			kept = append(kept, d)
		}
	}
	for _, d := range diags {
		kept = append(kept, ServerDiagnostic{Server: server, Diagnostic: d})
	}
	c.byBuf[buffile] = kept
}

// Get returns a copy of buffile's current diagnostics, in the order they
// were appended by Publish calls (not necessarily severity- or
// line-sorted — callers needing that order use LineAggregation or the
// inline-range view).
func (c *Cache) Get(buffile string) []ServerDiagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.byBuf[buffile]
	out := make([]ServerDiagnostic, len(entries))
	copy(out, entries)
	return out
}

// Buffiles returns every buffile with at least one publish recorded, in
// first-publish order.
func (c *Cache) Buffiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Counts returns the per-severity cardinalities of buffile's cached
// diagnostics (error, hint, info, warning), matching the emitted
// lsp_diagnostic_{severity}_count options.
func (c *Cache) Counts(buffile string) (errorN, hintN, infoN, warningN int) {
	for _, sd := range c.Get(buffile) {
		switch effectiveSeverity(sd.Diagnostic.Severity, nil) {
		case transport.DiagnosticSeverityError:
			errorN++
		case transport.DiagnosticSeverityHint:
			hintN++
		case transport.DiagnosticSeverityInformation:
			infoN++
		default:
			warningN++
		}
	}
	return
}
