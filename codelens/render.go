package codelens

import (
	"fmt"

	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
)

// RenderInlay produces one editor-quoted inlay spec per lens in buffile's
// cache, in cache order (already sorted by range.start): "<pos>+0|
// {InlayCodeLens}[<indicator> <label>] " where indicator is the caller's
// precomputed code-lens glyph (see the wcwidth package) and label is the
// lens's resolved command title, or "" if unresolved.
func (c *Cache) RenderInlay(buffile string, reg *registry.Registry, text, indicator string) []string {
	entries := c.Get(buffile)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		settings, _ := reg.Get(e.Server)
		ep := position.LSPToEditor(e.Lens.Range.Start, text, settings.OffsetEncoding)

		label := ""
		if e.Lens.Command != nil {
			label = e.Lens.Command.Title
		}
		escaped := markup.EscapeTupleElement(markup.EscapeKakouneMarkup(label))

		spec := fmt.Sprintf("%d.%d+0|{InlayCodeLens}[%s %s] ", ep.Line, ep.Column, indicator, escaped)
		out = append(out, markup.EditorQuote(spec))
	}
	return out
}
