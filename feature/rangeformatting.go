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

type rangeFormattingParams struct {
	Ranges            []string                    `json:"ranges"`
	FormattingOptions transport.FormattingOptions `json:"formattingOptions"`
}

type rangeFormattingRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Range        transport.Range                  `json:"range"`
	Options      transport.FormattingOptions      `json:"options"`
}

// RangeFormatting drives textDocument/rangeFormatting. Every eligible
// server receives one request per selection range (Each carries a slice
// per server), so a single server's answer may arrive in several pieces;
// fusion picks the first server with any answer and flattens every piece
// that same server returned (FirstRespondingServerFlattened), not simply
// the first non-empty piece — grounded on range_formatting.rs's own
// filter-then-flatten continuation. A synchronous request with no
// eligible servers still emits "nop" so a blocked fifo read unblocks.
func RangeFormatting(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p rangeFormattingParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("range_formatting: decode params: %w", err)
	}

	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}

	entries := reg.Servers(meta.Servers)
	var eligible []registry.Entry
	for _, e := range entries {
		if registry.AttemptServerCapability(e.ID, e.Settings, registry.FeatureRangeFormatting, nil) {
			eligible = append(eligible, e)
		}
	}
	if !meta.Synchronous() && len(eligible) == 0 {
		return nil
	}
	if meta.Synchronous() && len(eligible) == 0 {
		return out.EmitResult(meta, "nop")
	}

	ranges := make([]position.EditorRange, 0, len(p.Ranges))
	for _, s := range p.Ranges {
		er, err := position.ParseRange(s)
		if err != nil {
			return fmt.Errorf("range_formatting: %w", err)
		}
		ranges = append(ranges, er)
	}

	each := make(map[registry.ServerId][]rangeFormattingRequestParams, len(eligible))
	for _, e := range eligible {
		payloads := make([]rangeFormattingRequestParams, 0, len(ranges))
		for _, er := range ranges {
			payloads = append(payloads, rangeFormattingRequestParams{
				TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
				Range:        position.EditorRangeToLSP(er, doc.Text, e.Settings.OffsetEncoding),
				Options:      p.FormattingOptions,
			})
		}
		each[e.ID] = payloads
	}

	dispatch.Call[rangeFormattingRequestParams, []transport.TextEdit](
		ctx, d, reg, meta, registry.FeatureRangeFormatting, nil, "textDocument/rangeFormatting",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[[]transport.TextEdit]) {
			_, edits, found := dispatch.FirstRespondingServerFlattened(results)
			renderTextEdits(out, logger, meta, edits, found)
		},
	)
	return nil
}
