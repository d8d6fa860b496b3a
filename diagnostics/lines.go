package diagnostics

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// LineDiagnostics is the aggregated view of every diagnostic whose
// range.end falls on one line: the displayed text is the first line of
// the highest-severity diagnostic's message, and symbols concatenates one
// face-tagged sign per diagnostic on that line in the order encountered.
type LineDiagnostics struct {
	RangeEnd     transport.Position
	Server       registry.ServerId // the server whose diagnostic first opened this line entry
	Symbols      string
	Text         string
	TextFace     string
	textSeverity transport.DiagnosticSeverity
	hasSeverity  bool
}

// LineAggregation groups buffile's cached diagnostics by range.end.line,
// keyed by that 0-based LSP line number. Each entry's Server is whichever
// diagnostic first opened the line (used by the renderer to pick the
// offset encoding for that line's inlay position), matching the reference
// renderer's behavior of keying each line entry to the first-seen server.
func (c *Cache) LineAggregation(buffile string, logger *slog.Logger) map[uint32]*LineDiagnostics {
	byLine := make(map[uint32]*LineDiagnostics)
	for _, sd := range c.Get(buffile) {
		d := sd.Diagnostic
		line := uint32(d.Range.End.Line)
		entry, ok := byLine[line]
		if !ok {
			entry = &LineDiagnostics{RangeEnd: d.Range.End, Server: sd.Server}
			byLine[line] = entry
		}

		sev := effectiveSeverity(d.Severity, logger)
		// "Smaller == higher severity": only overwrite the displayed text
		// when this diagnostic outranks (or ties, for the first seen) the
		// line's current text.
		if !entry.hasSeverity || sev < entry.textSeverity {
			firstLine, _, _ := strings.Cut(d.Message, "\n")
			entry.Text = firstLine
			entry.TextFace = inlayFace(sev)
			entry.textSeverity = sev
			entry.hasSeverity = true
		}
		entry.Symbols += fmt.Sprintf("{%s}%%opt[lsp_inlay_diagnostic_sign]", inlayFace(sev))
	}
	return byLine
}

// InlineRanges renders buffile's cache as "<range>|<face>" entries sorted
// by severity descending, so more severe faces paint last (and therefore
// appear on top), matching the lsp_inline_diagnostics option's contract.
func (c *Cache) InlineRanges(buffile string, reg *registry.Registry, text string, logger *slog.Logger) []string {
	entries := c.Get(buffile)
	sort.SliceStable(entries, func(i, j int) bool {
		si := effectiveSeverity(entries[i].Diagnostic.Severity, logger)
		sj := effectiveSeverity(entries[j].Diagnostic.Severity, logger)
		return si > sj // descending severity value == ascending urgency painted last
	})

	out := make([]string, 0, len(entries))
	for _, sd := range entries {
		settings, _ := reg.Get(sd.Server)
		sev := effectiveSeverity(sd.Diagnostic.Severity, logger)
		r := position.LSPRangeToEditor(sd.Diagnostic.Range, text, settings.OffsetEncoding)
		out = append(out, fmt.Sprintf("%d.%d,%d.%d|%s", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column, diagnosticFace(sev)))
	}
	return out
}

// GatherLineFlags produces the gutter line-flag string plus per-severity
// counts: one '<line+1>|<label>' entry per line carrying a diagnostic or
// (absent a diagnostic) a code-lens mark, ascending by line. When both
// exist on a line, the diagnostic mark wins. lensLines is the sorted,
// deduplicated set of 0-based lines carrying a code lens.
func (c *Cache) GatherLineFlags(buffile string, lensLines []uint32, logger *slog.Logger) (flags string, errorN, hintN, infoN, warningN int) {
	type mark struct {
		line  uint32
		label string
	}

	diagByLine := make(map[uint32]string)
	for _, sd := range c.Get(buffile) {
		sev := effectiveSeverity(sd.Diagnostic.Severity, logger)
		switch sev {
		case transport.DiagnosticSeverityError:
			errorN++
		case transport.DiagnosticSeverityHint:
			hintN++
		case transport.DiagnosticSeverityInformation:
			infoN++
		default:
			warningN++
		}
		line := uint32(sd.Diagnostic.Range.Start.Line)
		if _, exists := diagByLine[line]; !exists {
			diagByLine[line] = lineFlagLabel(sev)
		}
	}

	lines := make(map[uint32]struct{}, len(diagByLine)+len(lensLines))
	for l := range diagByLine {
		lines[l] = struct{}{}
	}
	for _, l := range lensLines {
		lines[l] = struct{}{}
	}

	ordered := make([]uint32, 0, len(lines))
	for l := range lines {
		ordered = append(ordered, l)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	marks := make([]mark, 0, len(ordered))
	for _, l := range ordered {
		if label, ok := diagByLine[l]; ok {
			marks = append(marks, mark{line: l, label: label})
			continue
		}
		marks = append(marks, mark{line: l, label: "%opt[lsp_code_lens_sign]"})
	}

	parts := make([]string, len(marks))
	for i, m := range marks {
		parts[i] = fmt.Sprintf("'%d|%s'", m.line+1, m.label)
	}
	return strings.Join(parts, " "), errorN, hintN, infoN, warningN
}

// EscapeInlayText prepares a line's displayed text for embedding in the
// double-quoted inlay spec, applying markup escaping in the same order as
// the reference renderer: kakoune markup, then tuple delimiters, then
// double-quote escaping (the outermost layer).
func EscapeInlayText(text string) string {
	return markup.EditorEscapeDoubleQuotes(markup.EscapeTupleElement(markup.EscapeKakouneMarkup(text)))
}
