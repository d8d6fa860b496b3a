package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

type formattingRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Options      transport.FormattingOptions      `json:"options"`
}

// Formatting drives textDocument/formatting across every eligible server,
// one request each (Each, not All: each server answers or not independent
// of the others), taking the first server that responded at all —
// including with zero edits, meaning "already formatted" — per formatting.rs.
// A synchronous request with no eligible servers still emits "nop" so the
// editor's blocked fifo read unblocks (matching the original's explicit
// `meta.fifo.is_none() && eligible_servers.is_empty()` early-return guard).
func Formatting(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var opts transport.FormattingOptions
	if err := json.Unmarshal(rawParams, &opts); err != nil {
		return fmt.Errorf("formatting: decode params: %w", err)
	}

	if _, ok := docs.Get(meta.Buffile); !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}

	entries := reg.Servers(meta.Servers)
	var eligible []registry.Entry
	for _, e := range entries {
		if registry.AttemptServerCapability(e.ID, e.Settings, registry.FeatureFormatting, nil) {
			eligible = append(eligible, e)
		}
	}
	if !meta.Synchronous() && len(eligible) == 0 {
		return nil
	}
	if meta.Synchronous() && len(eligible) == 0 {
		return out.EmitResult(meta, "nop")
	}

	each := make(map[registry.ServerId][]formattingRequestParams, len(eligible))
	for _, e := range eligible {
		each[e.ID] = []formattingRequestParams{{
			TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
			Options:      opts,
		}}
	}

	dispatch.Call[formattingRequestParams, []transport.TextEdit](
		ctx, d, reg, meta, registry.FeatureFormatting, nil, "textDocument/formatting",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[[]transport.TextEdit]) {
			_, edits, found := dispatch.FirstNonNil(results)
			renderTextEdits(out, logger, meta, edits, found)
		},
	)
	return nil
}

// renderTextEdits implements the shared formatting/range-formatting render
// tail: given the already-fused edit list and whether any server answered
// at all, apply via the workspace-edit command path, or "nop" if either no
// server answered or the edit list was empty (a genuine "no changes
// needed" answer) — required so a blocked synchronous fifo read always
// unblocks.
func renderTextEdits(out *editor.Channel, logger *slog.Logger, meta dispatch.EditorMeta, edits []transport.TextEdit, found bool) {
	if !found || len(edits) == 0 {
		if err := out.EmitResult(meta, "nop"); err != nil {
			logger.Error("formatting: emit nop", slog.Any("error", err))
		}
		return
	}
	cmd, err := applyWorkspaceEditCommand(textEditsToWorkspaceEdit(meta.Buffile, edits), meta.Synchronous())
	if err != nil {
		logger.Error("formatting: render", slog.Any("error", err))
		return
	}
	if err := out.EmitResult(meta, cmd); err != nil {
		logger.Error("formatting: emit", slog.Any("error", err))
	}
}
