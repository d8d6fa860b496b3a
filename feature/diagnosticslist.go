package feature

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simon-lentz/lspbroker/diagnostics"
	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/registry"
)

// Diagnostics renders the full cache across every buffer with a recorded
// publish, open or not, as one
// lsp-show-diagnostics invocation: a synchronous caller gets the raw
// per-buffer diagnostic entries back as JSON over its fifo instead, since
// a synchronous request is asking to consume the data programmatically
// rather than display it.
func Diagnostics(
	reg *registry.Registry,
	docs *document.Store,
	diags *diagnostics.Cache,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
) error {
	main, ok := reg.First()
	if !ok {
		return nil
	}

	if meta.Synchronous() {
		raw := make(map[string][]diagnostics.ServerDiagnostic)
		for _, buffile := range diags.Buffiles() {
			raw[buffile] = diags.Get(buffile)
		}
		body, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("diagnostics: encode fifo reply: %w", err)
		}
		return out.EmitResult(meta, string(body))
	}

	content := diags.RenderList(reg, docs, main.Settings.RootPath, logger)
	cmd := fmt.Sprintf("lsp-show-diagnostics %s %s", markup.EditorQuote(main.Settings.RootPath), markup.EditorQuote(content))
	return out.Emit(meta.Buffile, cmd)
}
