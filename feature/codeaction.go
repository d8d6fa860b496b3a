package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/diagnostics"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
	"github.com/simon-lentz/lspbroker/wcwidth"
)

func wcwidthIndicator() string {
	return wcwidth.ExpectedWidthOrFallback("💡", 2, "[A]")
}

// codeActionsWireParams is the editor's own request shape: a selection
// plus either a server-side kind filter (sent through as the request's
// CodeActionContext.Only) or a client-side title regex (applied after the
// fact, since it isn't part of the LSP request shape), the same Kind/Regex
// split code_action.rs's CodeActionFilter enum encodes.
type codeActionsWireParams struct {
	SelectionDesc     string   `json:"selectionDesc"`
	Kind              []string `json:"kind,omitempty"`
	Regex             string   `json:"regex,omitempty"`
	AutoSingle        bool     `json:"autoSingle"`
	PerformCodeAction bool     `json:"performCodeAction"`
}

type codeActionRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Range        transport.Range                  `json:"range"`
	Context      transport.CodeActionContext      `json:"context"`
}

// CodeAction drives textDocument/codeAction: one request per eligible
// server over its own offset-converted selection range, each carrying
// that server's overlapping diagnostics and (for a ByKind filter) the
// server-side "only" restriction. If every server came back with an empty
// list for a non-hook request whose selection was not already a whole
// line, the range is widened to the full line and retried once under the
// same cancellation key (grounded on editor_code_actions's "server likely
// wants the whole AST node" retry in code_action.rs). The final render
// branches on whether a reply must go to a synchronous fifo or a
// client-side regex filter is active (single-match-or-error) versus the
// normal asynchronous path (sorted multi-choice menu).
func CodeAction(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	diags *diagnostics.Cache,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p codeActionsWireParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("code_action: decode params: %w", err)
	}

	entries := reg.Servers(meta.Servers)
	var eligible []registry.Entry
	for _, e := range entries {
		if registry.AttemptServerCapability(e.ID, e.Settings, registry.FeatureCodeAction, nil) {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}
	selection, err := position.ParseRange(p.SelectionDesc)
	if err != nil {
		return fmt.Errorf("code_action: %w", err)
	}

	var regex *regexp.Regexp
	if p.Regex != "" {
		regex, err = regexp.Compile(p.Regex)
		if err != nil {
			return out.EmitResult(meta, showErrorCommand(fmt.Sprintf("invalid pattern: %s", err)))
		}
	}

	ranges := make(map[registry.ServerId]transport.Range, len(eligible))
	for _, e := range eligible {
		ranges[e.ID] = position.EditorRangeToLSP(selection, doc.Text, e.Settings.OffsetEncoding)
	}

	dispatchCodeActions(ctx, d, reg, docs, diags, out, logger, meta, p, regex, doc.Version, ranges)
	return nil
}

func dispatchCodeActions(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	diags *diagnostics.Cache,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	p codeActionsWireParams,
	regex *regexp.Regexp,
	version int,
	ranges map[registry.ServerId]transport.Range,
) {
	byServerDiags := make(map[registry.ServerId][]transport.Diagnostic)
	for _, d := range diags.Get(meta.Buffile) {
		r, ok := ranges[d.Server]
		if !ok || !rangesOverlap(d.Diagnostic.Range, r) {
			continue
		}
		byServerDiags[d.Server] = append(byServerDiags[d.Server], d.Diagnostic)
	}

	triggerKind := transport.CodeActionTriggerKindInvoked
	if meta.Hook {
		triggerKind = transport.CodeActionTriggerKindAutomatic
	}

	var only []transport.CodeActionKind
	if len(p.Kind) > 0 {
		only = make([]transport.CodeActionKind, len(p.Kind))
		for i, k := range p.Kind {
			only[i] = transport.CodeActionKind(k)
		}
	}

	each := make(map[registry.ServerId][]codeActionRequestParams, len(ranges))
	for id, r := range ranges {
		each[id] = []codeActionRequestParams{{
			TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
			Range:        r,
			Context: transport.CodeActionContext{
				Diagnostics: byServerDiags[id],
				Only:        only,
				TriggerKind: &triggerKind,
			},
		}}
	}

	key := dispatch.BatchKey{Buffile: meta.Buffile, Feature: registry.FeatureCodeAction}
	dispatch.CallWithKey[codeActionRequestParams, []transport.CodeActionOrCommand](
		ctx, d, reg, meta, key, registry.FeatureCodeAction, nil, "textDocument/codeAction",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[[]transport.CodeActionOrCommand]) {
			if !meta.Hook && shouldWidenAndRetry(results, ranges) {
				widened, ok := widenRangesToWholeLines(docs, meta.Buffile, version, ranges)
				if !ok {
					logger.Warn("code_action: stale document, dropping widen-range retry", slog.String("buffile", meta.Buffile))
					return
				}
				dispatchCodeActions(ctx, d, reg, docs, diags, out, logger, meta, p, regex, version, widened)
				return
			}
			if docs.IsStale(meta.Buffile, version) {
				staleReply(logger, meta.Buffile, version, docs.CurrentVersion(meta.Buffile))
				return
			}
			renderCodeActions(reg, out, logger, meta, p, regex, results)
		},
	)
}

// shouldWidenAndRetry mirrors editor_code_actions's retry predicate: every
// server that was asked returned an explicit empty list (not "no
// response") AND its requested range didn't already start at column 0.
// code_action.rs additionally skips the retry when the original selection
// already reached EOL_OFFSET (its marker for "selection already extends to
// end of line"); that marker isn't available outside the filtered editor
// source this was grounded on, but dropping it only forgoes a minor
// optimization — termination is still guaranteed, since a widened range
// always starts at column 0 and so never qualifies for a second retry.
func shouldWidenAndRetry(results []dispatch.ServerResult[[]transport.CodeActionOrCommand], ranges map[registry.ServerId]transport.Range) bool {
	for _, r := range results {
		rng, ok := ranges[r.Server]
		if !ok {
			continue
		}
		if r.Value == nil || len(*r.Value) != 0 {
			return false
		}
		if rng.Start.Character == 0 {
			return false
		}
	}
	return true
}

func widenRangesToWholeLines(docs *document.Store, buffile string, version int, ranges map[registry.ServerId]transport.Range) (map[registry.ServerId]transport.Range, bool) {
	doc, ok := docs.Get(buffile)
	if !ok || doc.Version != version {
		return nil, false
	}
	widened := make(map[registry.ServerId]transport.Range, len(ranges))
	for id, r := range ranges {
		lineLen := uint32(len(strings.TrimRight(position.GetLine(int(r.End.Line)+1, doc.Text), "\r\n")))
		widened[id] = transport.Range{
			Start: transport.Position{Line: r.Start.Line, Character: 0},
			End:   transport.Position{Line: r.End.Line, Character: lineLen},
		}
	}
	return widened, true
}

// rangesOverlap reports whether a and b share any position, comparing
// (line, character) lexicographically as LSP positions order.
func rangesOverlap(a, b transport.Range) bool {
	return !positionLess(a.End, b.Start) && !positionLess(b.End, a.Start)
}

func positionLess(a, b transport.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

func renderCodeActions(
	reg *registry.Registry,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	p codeActionsWireParams,
	regex *regexp.Regexp,
	results []dispatch.ServerResult[[]transport.CodeActionOrCommand],
) {
	mayResolve := make(map[registry.ServerId]bool)
	for _, e := range reg.All() {
		mayResolve[e.ID] = registry.AttemptServerCapability(e.ID, e.Settings, registry.FeatureCodeActionResolve, nil)
	}

	sync := meta.Synchronous()
	if sync || regex != nil {
		filtered := dispatch.AggregateCodeActions(results, regex)
		var reply string
		switch len(filtered) {
		case 0:
			reply = showErrorCommand("lsp-code-actions: no matching action available")
		case 1:
			settings, _ := reg.Get(filtered[0].Server)
			cmd := codeActionOrCommandToEditorCommand(settings.Name, filtered[0].Item, sync, mayResolve[filtered[0].Server])
			reply = fmt.Sprintf("evaluate-commands -- %s", markup.EditorQuote(cmd))
		default:
			reply = showErrorCommand("lsp-code-actions: multiple matching actions")
		}
		if err := out.EmitResult(meta, reply); err != nil {
			logger.Error("code_action: emit", slog.Any("error", err))
		}
		return
	}

	actions := dispatch.AggregateCodeActions(results, nil)
	var b strings.Builder
	if p.AutoSingle {
		b.WriteString("-auto-single ")
	}
	for i, t := range actions {
		if i > 0 {
			b.WriteString(" ")
		}
		title := t.Item.Title()
		if idx := strings.IndexByte(title, '\n'); idx >= 0 {
			title = title[:idx]
		}
		settings, _ := reg.Get(t.Server)
		selectCmd := codeActionOrCommandToEditorCommand(settings.Name, t.Item, false, mayResolve[t.Server])
		b.WriteString(markup.EditorQuote(title))
		b.WriteString(" ")
		b.WriteString(markup.EditorQuote(selectCmd))
	}
	titlesAndCommands := b.String()

	var command string
	switch {
	case p.PerformCodeAction && len(actions) == 0:
		if err := out.Emit(meta.Buffile, showErrorCommand("no actions available")); err != nil {
			logger.Error("code_action: emit", slog.Any("error", err))
		}
		return
	case p.PerformCodeAction:
		command = fmt.Sprintf("lsp-perform-code-action %s", titlesAndCommands)
	case len(actions) == 0:
		command = "lsp-hide-code-actions"
	default:
		indicator := wcwidthIndicator()
		script := fmt.Sprintf("set-option global lsp_code_action_indicator %s\nlsp-show-code-actions %s",
			markup.EditorQuote(indicator), titlesAndCommands)
		command = fmt.Sprintf("evaluate-commands -- %s", markup.EditorQuote(script))
	}
	if err := out.Emit(meta.Buffile, command); err != nil {
		logger.Error("code_action: emit", slog.Any("error", err))
	}
}

func codeActionOrCommandToEditorCommand(serverName string, action transport.CodeActionOrCommand, sync, mayResolve bool) string {
	if action.Command != nil {
		cmd, err := executeCommandCommand(serverName, *action.Command, sync)
		if err != nil {
			return ""
		}
		return cmd
	}
	return codeActionToEditorCommand(serverName, *action.Action, sync, mayResolve)
}

func codeActionToEditorCommand(serverName string, action transport.CodeAction, sync, mayResolve bool) string {
	var followup string
	if action.Command != nil {
		if cmd, err := executeCommandCommand(serverName, *action.Command, sync); err == nil {
			followup = "\n" + cmd
		}
	}
	if action.Edit != nil {
		cmd, err := applyWorkspaceEditCommand(*action.Edit, sync)
		if err != nil {
			return followup
		}
		return cmd + followup
	}
	if mayResolve {
		data, err := json.Marshal(action)
		if err != nil {
			return followup
		}
		return fmt.Sprintf("lsp-code-action-resolve-request %s", markup.EditorQuote(string(data)))
	}
	return followup
}

func showErrorCommand(message string) string {
	return fmt.Sprintf("lsp-show-error %s", markup.EditorQuote(message))
}

// CodeActionResolve drives codeAction/resolve for one already-serialized
// action (round-tripped through the editor as JSON by
// lsp-code-action-resolve-request), then renders it exactly as a direct
// code-action selection would.
func CodeActionResolve(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p struct {
		CodeAction json.RawMessage `json:"codeAction"`
	}
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("code_action_resolve: decode params: %w", err)
	}
	var action transport.CodeAction
	if err := json.Unmarshal(p.CodeAction, &action); err != nil {
		return fmt.Errorf("code_action_resolve: decode action: %w", err)
	}

	dispatch.Call[transport.CodeAction, transport.CodeAction](
		ctx, d, reg, meta, registry.FeatureCodeActionResolve, nil, "codeAction/resolve",
		dispatch.All(action),
		func(results []dispatch.ServerResult[transport.CodeAction]) {
			server, resolved, found := dispatch.FirstNonNil(results)
			if !found {
				return
			}
			settings, _ := reg.Get(server)
			cmd := codeActionToEditorCommand(settings.Name, resolved, false, false)
			if err := out.Emit(meta.Buffile, fmt.Sprintf("evaluate-commands -- %s", markup.EditorQuote(cmd))); err != nil {
				logger.Error("code_action_resolve: emit", slog.Any("error", err))
			}
		},
	)
	return nil
}
