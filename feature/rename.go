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

type renameParams struct {
	Position string `json:"position"`
	NewName  string `json:"newName"`
}

type renameRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Position     transport.Position               `json:"position"`
	NewName      string                           `json:"newName"`
}

// Rename drives textDocument/rename: each eligible server gets a request
// built under its own offset encoding (Each, not All — rename is one of the
// few requests built per-server rather than broadcast as one shared
// payload), and the first non-nil WorkspaceEdit wins (fusion rule 1). A
// version check is deliberately not implemented here: renaming against a
// buffer that has since changed underneath the request is a known gap,
// left unresolved, and out of scope for this layer to fix.
func Rename(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p renameParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("rename: decode params: %w", err)
	}
	ep, err := position.ParsePosition(p.Position)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}

	each := make(map[registry.ServerId][]renameRequestParams)
	for _, e := range reg.Servers(meta.Servers) {
		each[e.ID] = []renameRequestParams{{
			TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
			Position:     position.EditorToLSP(ep, doc.Text, e.Settings.OffsetEncoding),
			NewName:      p.NewName,
		}}
	}

	dispatch.Call[renameRequestParams, transport.WorkspaceEdit](
		ctx, d, reg, meta, registry.FeatureRename, nil, "textDocument/rename",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[transport.WorkspaceEdit]) {
			_, edit, found := dispatch.FirstNonNil(results)
			if !found {
				return
			}
			cmd, err := applyWorkspaceEditCommand(edit, meta.Synchronous())
			if err != nil {
				logger.Error("rename: render", slog.Any("error", err))
				return
			}
			if err := out.EmitResult(meta, cmd); err != nil {
				logger.Error("rename: emit", slog.Any("error", err))
			}
		},
	)
	return nil
}
