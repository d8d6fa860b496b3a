package diagnostics

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
)

// RenderInline builds the inner command body for a publish render: the
// four per-severity count options, the version-scoped inline-diagnostics
// and inlay-diagnostics options, and the line-flags option, all captured
// against version (the buffer's version at publish time, per the spec's
// version-pinning rule). The caller wraps the result in
// markup.EvaluateCommandsBuffer(buffile, body) before emitting it.
func (c *Cache) RenderInline(buffile string, version int, reg *registry.Registry, text string, lensLines []uint32, logger *slog.Logger) string {
	errorN, hintN, infoN, warningN := c.Counts(buffile)
	inlineRanges := c.InlineRanges(buffile, reg, text, logger)
	inlay := c.renderInlay(buffile, reg, text, logger)
	lineFlags, _, _, _, _ := c.GatherLineFlags(buffile, lensLines, logger)

	var b strings.Builder
	fmt.Fprintf(&b, "set-option buffer lsp_diagnostic_error_count %d; ", errorN)
	fmt.Fprintf(&b, "set-option buffer lsp_diagnostic_hint_count %d; ", hintN)
	fmt.Fprintf(&b, "set-option buffer lsp_diagnostic_info_count %d; ", infoN)
	fmt.Fprintf(&b, "set-option buffer lsp_diagnostic_warning_count %d; ", warningN)
	fmt.Fprintf(&b, "set-option buffer lsp_inline_diagnostics %d %s; ", version, strings.Join(inlineRanges, " "))
	// The inner double-quoting is required so the editor expands
	// %opt[...] tokens after the outer verbatim body is received.
	fmt.Fprintf(&b, "evaluate-commands \"set-option buffer lsp_diagnostic_lines %d %s '0|%%opt[lsp_diagnostic_line_error_sign]'\"; ", version, lineFlags)
	fmt.Fprintf(&b, "set-option buffer lsp_inlay_diagnostics %d %s", version, strings.Join(inlay, " "))
	return b.String()
}

// renderInlay produces one quoted inlay spec per line carrying a
// diagnostic: "<line>.<col>+0|%opt[lsp_inlay_diagnostic_gap]<symbols>
// {<face>}<escaped text>", where col is just past the line's byte length
// so the inlay sits in the gutter column.
func (c *Cache) renderInlay(buffile string, reg *registry.Registry, text string, logger *slog.Logger) []string {
	byLine := c.LineAggregation(buffile, logger)

	lines := make([]uint32, 0, len(byLine))
	for l := range byLine {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		entry := byLine[l]
		settings, _ := reg.Get(entry.Server)
		ep := position.LSPToEditor(entry.RangeEnd, text, settings.OffsetEncoding)

		lineText := position.GetLine(ep.Line, text)
		col := len(lineText)
		if col < 1 {
			col = 1
		}

		out = append(out, fmt.Sprintf("\"%d.%d+0|%%opt[lsp_inlay_diagnostic_gap]%s {%s}%s\"",
			ep.Line, col, entry.Symbols, entry.TextFace, EscapeInlayText(entry.Text)))
	}
	return out
}
