package feature

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

type switchSourceHeaderRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
}

// SwitchSourceHeader drives clangd's textDocument/switchSourceHeader
// against a single target server (meta.Servers's first entry — the
// editor has already resolved which server owns this buffer's language),
// grounded on switch_source_header in clangd.rs. No design of its own:
// dispatch one request, render the first non-empty URI it gets back.
func SwitchSourceHeader(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
) error {
	entries := reg.Servers(meta.Servers)
	if len(entries) == 0 {
		return nil
	}
	server := entries[0].ID
	each := map[registry.ServerId][]switchSourceHeaderRequestParams{
		server: {{TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile}}},
	}

	dispatch.Call[switchSourceHeaderRequestParams, string](
		ctx, d, reg, meta, registry.FeatureSwitchSourceHeader, nil, "textDocument/switchSourceHeader",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[string]) {
			_, uri, found := dispatch.FirstNonNil(results)
			if !found || uri == "" {
				return
			}
			cmd := fmt.Sprintf("evaluate-commands -try-client %%opt{jumpclient} -verbatim -- edit -existing %s",
				markup.EditorQuote(uriToPath(uri)))
			if err := out.Emit(meta.Buffile, cmd); err != nil {
				logger.Error("switch_source_header: emit", slog.Any("error", err))
			}
		},
	)
	return nil
}
