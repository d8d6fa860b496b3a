package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

type referenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type referencesRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Position     transport.Position               `json:"position"`
	Context      referenceContext                 `json:"context"`
}

// References drives textDocument/references: same fusion and rendering as
// Goto (a references result is just a flat location list), but always
// requests with includeDeclaration=true, matching goto.rs.
func References(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p positionParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("references: decode params: %w", err)
	}
	ep, err := position.ParsePosition(p.Position)
	if err != nil {
		return fmt.Errorf("references: %w", err)
	}

	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}

	entries := reg.Servers(meta.Servers)
	if len(entries) == 0 {
		return nil
	}
	mainEncoding := entries[0].Settings.OffsetEncoding

	reqParams := referencesRequestParams{
		TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
		Position:     position.EditorToLSP(ep, doc.Text, mainEncoding),
		Context:      referenceContext{IncludeDeclaration: true},
	}

	dispatch.Call[referencesRequestParams, []transport.Location](
		ctx, d, reg, meta, registry.FeatureReferences, nil, "textDocument/references",
		dispatch.All(reqParams),
		func(results []dispatch.ServerResult[[]transport.Location]) {
			if meta.Version >= 0 && docs.IsStale(meta.Buffile, meta.Version) {
				staleReply(logger, meta.Buffile, meta.Version, docs.CurrentVersion(meta.Buffile))
				return
			}
			server, locations, found := dispatch.FirstNonEmpty(results)
			if !found {
				return
			}
			settings, _ := reg.Get(server)
			renderGoto(out, logger, meta, docs, settings, locations)
		},
	)
	return nil
}
