package diagnostics

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/pathutil"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
)

// RenderList formats the entire cache (every buffile, every server) as
// one "short_path:line:col: <severity>: <message>" entry per diagnostic,
// each immediately followed on the next line by its related-information
// entries as "short_path:line:col: (server) <message>" — mirroring how a
// publish render's position line is built, but across the whole workspace
// rather than one buffer. Paths are shortened relative to mainRoot, the
// registry's first (main) server's root, matching the presentation
// convention goto lists use. docs supplies the text each position decodes
// against; a buffile with no open document falls back to the diagnostic's
// own line (1-based) at column 1.
func (c *Cache) RenderList(reg *registry.Registry, docs *document.Store, mainRoot string, logger *slog.Logger) string {
	var entries []string
	for _, buffile := range c.Buffiles() {
		text, _ := bufferText(docs, buffile)
		for _, sd := range c.Get(buffile) {
			settings, _ := reg.Get(sd.Server)
			sev := effectiveSeverity(sd.Diagnostic.Severity, logger)
			ep := position.LSPToEditor(sd.Diagnostic.Range.Start, text, settings.OffsetEncoding)
			entry := fmt.Sprintf("%s:%d:%d: %s: %s",
				pathutil.ShortRelativeTo(buffile, mainRoot), ep.Line, ep.Column, severityWord(sev), sd.Diagnostic.Message)

			for _, rel := range sd.Diagnostic.RelatedInformation {
				relPath := strings.TrimPrefix(rel.Location.URI, "file://")
				relText, _ := bufferText(docs, relPath)
				relEp := position.LSPToEditor(rel.Location.Range.Start, relText, settings.OffsetEncoding)
				entry += fmt.Sprintf("\n%s:%d:%d: (%s) %s",
					pathutil.ShortRelativeTo(relPath, mainRoot), relEp.Line, relEp.Column, settings.Name, rel.Message)
			}
			entries = append(entries, entry)
		}
	}
	return strings.Join(entries, "\n")
}

func bufferText(docs *document.Store, buffile string) (string, bool) {
	doc, ok := docs.Get(buffile)
	if !ok {
		return "", false
	}
	return doc.Text, true
}
