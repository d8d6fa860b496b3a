package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simon-lentz/lspbroker/codelens"
	"github.com/simon-lentz/lspbroker/diagnostics"
	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
	"github.com/simon-lentz/lspbroker/wcwidth"
)

func codeLensIndicator() string {
	return wcwidth.ExpectedWidthOrFallback("🔎", 2, "[L]")
}

type codeLensRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
}

// CodeLens drives textDocument/codeLens across every server that
// advertises both code lenses and command execution — a lens with no way
// to run its command is useless to this editor, grounded on
// text_document_code_lens's CAPABILITY_CODE_LENS &&
// CAPABILITY_EXECUTE_COMMANDS gate in code_lens.rs. Each server's lenses
// replace that server's own cache entries (the per-server-merge fusion
// rule: a server that doesn't answer keeps its last known lenses rather
// than being cleared by a transient failure, unlike the reference
// implementation's single-batch unwrap_or_default).
func CodeLens(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	diags *diagnostics.Cache,
	lenses *codelens.Cache,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
) error {
	entries := reg.Servers(meta.Servers)
	var eligible []registry.Entry
	for _, e := range entries {
		if registry.AttemptServerCapability(e.ID, e.Settings, registry.FeatureCodeLens, nil) &&
			registry.AttemptServerCapability(e.ID, e.Settings, registry.FeatureExecuteCommand, nil) {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	each := make(map[registry.ServerId][]codeLensRequestParams, len(eligible))
	for _, e := range eligible {
		each[e.ID] = []codeLensRequestParams{{TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile}}}
	}

	dispatch.Call[codeLensRequestParams, []transport.CodeLens](
		ctx, d, reg, meta, registry.FeatureCodeLens, nil, "textDocument/codeLens",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[[]transport.CodeLens]) {
			renderCodeLens(reg, docs, diags, lenses, out, logger, meta, results)
		},
	)
	return nil
}

func renderCodeLens(
	reg *registry.Registry,
	docs *document.Store,
	diags *diagnostics.Cache,
	lenses *codelens.Cache,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	results []dispatch.ServerResult[[]transport.CodeLens],
) {
	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		lenses.Remove(meta.Buffile)
		return
	}
	for _, r := range results {
		if r.Value == nil {
			continue
		}
		lenses.Publish(meta.Buffile, r.Server, *r.Value)
	}

	lineFlags, _, _, _, _ := diags.GatherLineFlags(meta.Buffile, lenses.Lines(meta.Buffile), logger)
	inlay := lenses.RenderInlay(meta.Buffile, reg, doc.Text, codeLensIndicator())

	var b strings.Builder
	fmt.Fprintf(&b, "evaluate-commands \"set-option buffer lsp_diagnostic_lines %d %s '0|%%opt[lsp_diagnostic_line_error_sign]'\"\n", doc.Version, lineFlags)
	fmt.Fprintf(&b, "set-option buffer lsp_inlay_code_lenses %d %s", doc.Version, strings.Join(inlay, " "))

	if err := out.Emit(meta.Buffile, b.String()); err != nil {
		logger.Error("code_lens: emit", slog.Any("error", err))
	}
}

type codeLensOptions struct {
	SelectionDesc string `json:"selectionDesc"`
}

// PerformCodeLens resolves the first unresolved lens touching the
// selection (if any), then runs every resolved lens touching it, innermost
// first — grounded on resolve_and_perform_code_lens in code_lens.rs.
func PerformCodeLens(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	lenses *codelens.Cache,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p codeLensOptions
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("perform_code_lens: decode params: %w", err)
	}

	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}
	selection, err := position.ParseRange(p.SelectionDesc)
	if err != nil {
		return fmt.Errorf("perform_code_lens: %w", err)
	}

	entries := reg.Servers(meta.Servers)
	if len(entries) == 0 {
		return nil
	}
	mainEncoding := entries[0].Settings.OffsetEncoding
	lspRange := position.EditorRangeToLSP(selection, doc.Text, mainEncoding)

	matches := lenses.InSelection(meta.Buffile, lspRange)
	if len(matches) == 0 {
		return out.Emit(meta.Buffile, "lsp-show-error 'no code lens in selection'")
	}

	if first, ok := codelens.FirstUnresolved(matches); ok {
		dispatch.Call[transport.CodeLens, transport.CodeLens](
			ctx, d, reg, meta, registry.FeatureCodeLensResolve, nil, "codeLens/resolve",
			dispatch.Each(map[registry.ServerId][]transport.CodeLens{first.Server: {first.Lens}}),
			func(results []dispatch.ServerResult[transport.CodeLens]) {
				if len(results) == 0 || results[0].Value == nil {
					return
				}
				resolved := make([]codelens.ServerLens, len(matches))
				copy(resolved, matches)
				for i, m := range resolved {
					if m.Server == first.Server && m.Lens.Command == nil && m.Lens.Range == first.Lens.Range {
						resolved[i].Lens = *results[0].Value
						break
					}
				}
				if err := performCodeLens(reg, out, meta, resolved); err != nil {
					logger.Error("perform_code_lens: emit", slog.Any("error", err))
				}
			},
		)
		return nil
	}

	return performCodeLens(reg, out, meta, matches)
}

// performCodeLens renders every already-resolved lens's command as one
// lsp-perform-code-lens invocation, skipping any lens still unresolved
// (mirroring perform_code_lens in code_lens.rs, which filters on
// lens.command.is_some()). Each command is addressed to the server that
// returned its lens, since execute_command_editor_command always needs a
// target server.
func performCodeLens(reg *registry.Registry, out *editor.Channel, meta dispatch.EditorMeta, matches []codelens.ServerLens) error {
	var parts []string
	for _, m := range matches {
		if m.Lens.Command == nil {
			continue
		}
		settings, _ := reg.Get(m.Server)
		cmd, err := executeCommandCommand(settings.Name, *m.Lens.Command, false)
		if err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("%s %s", markup.EditorQuote(m.Lens.Command.Title), markup.EditorQuote(cmd)))
	}
	return out.Emit(meta.Buffile, fmt.Sprintf("lsp-perform-code-lens %s", strings.Join(parts, " ")))
}
