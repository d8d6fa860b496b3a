package codelens

import (
	"sort"

	"github.com/simon-lentz/lspbroker/transport"
)

// TouchesSameLines reports whether ranges a and b overlap the same set of
// lines, the predicate used to decide which lenses a user's selection
// reaches.
func TouchesSameLines(a, b transport.Range) bool {
	return int(a.Start.Line) <= int(b.End.Line) && int(b.Start.Line) <= int(a.End.Line)
}

func lineSpan(r transport.Range) int { return int(r.End.Line) - int(r.Start.Line) }

// InSelection returns every entry in buffile's cache whose range touches
// selection's lines, sorted by (end.line - start.line) ascending so the
// innermost lens comes first.
func (c *Cache) InSelection(buffile string, selection transport.Range) []ServerLens {
	var matches []ServerLens
	for _, e := range c.Get(buffile) {
		if TouchesSameLines(e.Lens.Range, selection) {
			matches = append(matches, e)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return lineSpan(matches[i].Lens.Range) < lineSpan(matches[j].Lens.Range)
	})
	return matches
}

// FirstUnresolved returns the first entry in matches whose Command has not
// yet been resolved, for issuing a codeLens/resolve request before
// performing it.
func FirstUnresolved(matches []ServerLens) (ServerLens, bool) {
	for _, m := range matches {
		if m.Lens.Command == nil {
			return m, true
		}
	}
	return ServerLens{}, false
}
