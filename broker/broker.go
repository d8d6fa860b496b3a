// Package broker wires the dispatch core, the per-feature entry points,
// and the transport/editor boundaries into one session: it is the only
// package that knows both "how a request arrives" and "which feature
// function answers it."
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simon-lentz/lspbroker/codelens"
	"github.com/simon-lentz/lspbroker/diagnostics"
	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/feature"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// Broker owns every piece of session state shared across requests: the
// server registry, the open-document store, the diagnostics and code-lens
// caches, the request dispatcher, and the editor output channel. It has
// no knowledge of how requests are framed on the wire; Handle takes an
// already-decoded editor.Request.
type Broker struct {
	Registry    *registry.Registry
	Documents   *document.Store
	Diagnostics *diagnostics.Cache
	CodeLenses  *codelens.Cache
	Dispatcher  *dispatch.Dispatcher
	Notifier    transport.Notifier
	Out         *editor.Channel
	Logger      *slog.Logger
}

// New assembles a Broker around an already-configured registry and a
// transport that can both Call (via the Dispatcher built here) and
// Notify the registered servers. caller and notifier are typically the
// same concrete value, since a process that can receive requests can
// also receive notifications, but the two capabilities are kept separate
// here to match the transport package's own interface split.
func New(reg *registry.Registry, caller transport.Caller, notifier transport.Notifier, out *editor.Channel, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		Registry:    reg,
		Documents:   document.NewStore(),
		Diagnostics: diagnostics.NewCache(),
		CodeLenses:  codelens.NewCache(),
		Dispatcher:  dispatch.NewDispatcher(logger, caller),
		Notifier:    notifier,
		Out:         out,
		Logger:      logger,
	}
}

// HandleNotification implements transport.NotificationHandler: the only
// unsolicited message a server sends this broker that matters is
// textDocument/publishDiagnostics. Anything else is logged and dropped —
// the broker never asked for it and has nowhere to route it.
func (b *Broker) HandleNotification(server registry.ServerId, method string, params json.RawMessage) {
	if method != "textDocument/publishDiagnostics" {
		b.Logger.Debug("ignoring unsolicited server notification", slog.String("server", string(server)), slog.String("method", method))
		return
	}
	var p struct {
		URI         string                 `json:"uri"`
		Diagnostics []transport.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		b.Logger.Warn("publishDiagnostics: decode", slog.String("server", string(server)), slog.Any("error", err))
		return
	}
	b.Diagnostics.Publish(p.URI, server, p.Diagnostics)

	doc, ok := b.Documents.Get(p.URI)
	if !ok {
		return
	}
	body := b.Diagnostics.RenderInline(p.URI, doc.Version, b.Registry, doc.Text, b.CodeLenses.Lines(p.URI), b.Logger)
	if err := b.Out.Emit(p.URI, body); err != nil {
		b.Logger.Error("publishDiagnostics: emit", slog.Any("error", err))
	}
}

// didOpenParams/didChangeParams/didCloseParams mirror the LSP
// textDocument synchronization notifications this broker forwards
// verbatim to every registered server once it has updated its own
// Documents store.
type didOpenParams struct {
	TextDocument struct {
		URI  string `json:"uri"`
		Text string `json:"text"`
	} `json:"textDocument"`
}

type didChangeParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
	} `json:"textDocument"`
	Text string `json:"text"`
}

type didCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

// SyncOpen records buffile as open with the given content and forwards
// textDocument/didOpen to every registered server. Document.Store is
// mutated only here and in SyncChange/SyncClose; the feature entry
// points never write to it.
func (b *Broker) SyncOpen(buffile, text string, version int) {
	b.Documents.Open(buffile, text, version)
	for _, e := range b.Registry.All() {
		b.notifierNotify(e.ID, "textDocument/didOpen", didOpenParams{
			TextDocument: struct {
				URI  string `json:"uri"`
				Text string `json:"text"`
			}{URI: buffile, Text: text},
		})
	}
}

// SyncChange updates buffile's stored text/version and forwards
// textDocument/didChange with the full new text (this broker never
// negotiates incremental sync).
func (b *Broker) SyncChange(buffile, text string, version int) {
	b.Documents.Open(buffile, text, version)
	for _, e := range b.Registry.All() {
		b.notifierNotify(e.ID, "textDocument/didChange", didChangeParams{
			TextDocument: struct {
				URI     string `json:"uri"`
				Version int    `json:"version"`
			}{URI: buffile, Version: version},
			Text: text,
		})
	}
}

// SyncClose drops buffile from the store, clears its code lenses, and
// forwards textDocument/didClose. Its cached diagnostics are kept.
func (b *Broker) SyncClose(buffile string) {
	b.Documents.Close(buffile)
	b.CodeLenses.Remove(buffile)
	for _, e := range b.Registry.All() {
		b.notifierNotify(e.ID, "textDocument/didClose", didCloseParams{
			TextDocument: struct {
				URI string `json:"uri"`
			}{URI: buffile},
		})
	}
}

func (b *Broker) notifierNotify(id registry.ServerId, method string, params any) {
	if b.Notifier == nil {
		return
	}
	b.Notifier.Notify(id, method, params)
}

// Handle routes a decoded editor request to its feature entry point by
// req.Method, the same LSP method-name vocabulary the dispatcher uses
// against the transport. An unrecognized method is reported back to the
// editor as an error rather than silently dropped.
func (b *Broker) Handle(ctx context.Context, req editor.Request) error {
	meta := req.Meta
	switch req.Method {
	case "textDocument/definition":
		return feature.Goto(ctx, feature.GotoDefinition, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/declaration":
		return feature.Goto(ctx, feature.GotoDeclaration, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/typeDefinition":
		return feature.Goto(ctx, feature.GotoTypeDefinition, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/implementation":
		return feature.Goto(ctx, feature.GotoImplementation, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/references":
		return feature.References(ctx, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/rename":
		return feature.Rename(ctx, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/formatting":
		return feature.Formatting(ctx, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/rangeFormatting":
		return feature.RangeFormatting(ctx, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/prepareCallHierarchy":
		return feature.CallHierarchy(ctx, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "textDocument/codeAction":
		return feature.CodeAction(ctx, b.Dispatcher, b.Registry, b.Documents, b.Diagnostics, b.Out, b.Logger, meta, req.Params)
	case "codeAction/resolve":
		return feature.CodeActionResolve(ctx, b.Dispatcher, b.Registry, b.Out, b.Logger, meta, req.Params)
	case "textDocument/codeLens":
		return feature.CodeLens(ctx, b.Dispatcher, b.Registry, b.Documents, b.Diagnostics, b.CodeLenses, b.Out, b.Logger, meta)
	case "lsp-broker/performCodeLens":
		return feature.PerformCodeLens(ctx, b.Dispatcher, b.Registry, b.Documents, b.CodeLenses, b.Out, b.Logger, meta, req.Params)
	case "textDocument/switchSourceHeader":
		return feature.SwitchSourceHeader(ctx, b.Dispatcher, b.Registry, b.Out, b.Logger, meta)
	case "lsp-broker/forwardSearch":
		return feature.ForwardSearch(ctx, b.Dispatcher, b.Registry, b.Documents, b.Out, b.Logger, meta, req.Params)
	case "lsp-broker/build":
		return feature.Build(ctx, b.Dispatcher, b.Registry, b.Out, b.Logger, meta)
	case "lsp-broker/organizeImports":
		return feature.OrganizeImports(ctx, b.Dispatcher, b.Registry, b.Out, b.Logger, meta)
	case "lsp-broker/diagnostics":
		return feature.Diagnostics(b.Registry, b.Documents, b.Diagnostics, b.Out, b.Logger, meta)
	default:
		return fmt.Errorf("handle request: unknown method %q", req.Method)
	}
}
