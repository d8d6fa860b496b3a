package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/pathutil"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// CallDirection selects whether a call-hierarchy request walks callers
// (incoming) or callees (outgoing) of the prepared item.
type CallDirection int

const (
	CallIncoming CallDirection = iota
	CallOutgoing
)

type callHierarchyParams struct {
	Position           string `json:"position"`
	IncomingOrOutgoing bool   `json:"incomingOrOutgoing"`
}

type prepareCallHierarchyRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Position     transport.Position               `json:"position"`
}

type incomingCallsRequestParams struct {
	Item transport.CallHierarchyItem `json:"item"`
}

type outgoingCallsRequestParams struct {
	Item transport.CallHierarchyItem `json:"item"`
}

// CallHierarchy drives the two-step prepareCallHierarchy ->
// incoming/outgoingCalls dance: prepare broadcasts to every eligible
// server and, per the Open Question this implementation resolves, picks
// the first server that answered at all (even with an empty item list)
// and its first item — call_hierarchy.rs carries the same "can we get
// multiple items here?" TODO and only ever uses the first. That single
// item is then handed to exactly the server that produced it for the
// incoming/outgoing step, so fusion there is just "did that one server
// answer".
func CallHierarchy(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	rawParams json.RawMessage,
) error {
	var p callHierarchyParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return fmt.Errorf("call_hierarchy: decode params: %w", err)
	}
	ep, err := position.ParsePosition(p.Position)
	if err != nil {
		return fmt.Errorf("call_hierarchy: %w", err)
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

	direction := CallIncoming
	if !p.IncomingOrOutgoing {
		direction = CallOutgoing
	}

	reqParams := prepareCallHierarchyRequestParams{
		TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
		Position:     position.EditorToLSP(ep, doc.Text, mainEncoding),
	}

	dispatch.Call[prepareCallHierarchyRequestParams, []transport.CallHierarchyItem](
		ctx, d, reg, meta, registry.FeatureCallHierarchy, nil, "textDocument/prepareCallHierarchy",
		dispatch.All(reqParams),
		func(results []dispatch.ServerResult[[]transport.CallHierarchyItem]) {
			server, items, found := dispatch.FirstNonNil(results)
			if !found || len(items) == 0 {
				return
			}
			requestCalls(ctx, d, reg, docs, out, logger, meta, server, direction, items[0])
		},
	)
	return nil
}

func requestCalls(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	docs *document.Store,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
	server registry.ServerId,
	direction CallDirection,
	item transport.CallHierarchyItem,
) {
	settings, _ := reg.Get(server)
	switch direction {
	case CallIncoming:
		each := map[registry.ServerId][]incomingCallsRequestParams{server: {{Item: item}}}
		dispatch.Call[incomingCallsRequestParams, []transport.CallHierarchyIncomingCall](
			ctx, d, reg, meta, registry.FeatureCallHierarchy, nil, "callHierarchy/incomingCalls",
			dispatch.Each(each),
			func(results []dispatch.ServerResult[[]transport.CallHierarchyIncomingCall]) {
				if len(results) == 0 || results[0].Value == nil {
					return
				}
				calls := *results[0].Value
				renderCallHierarchy(out, logger, docs, meta, settings, direction, item, func() string {
					var b strings.Builder
					for _, c := range calls {
						writeCall(&b, docs, settings, c.From, c.FromRanges)
					}
					return b.String()
				}())
			},
		)
	case CallOutgoing:
		each := map[registry.ServerId][]outgoingCallsRequestParams{server: {{Item: item}}}
		dispatch.Call[outgoingCallsRequestParams, []transport.CallHierarchyOutgoingCall](
			ctx, d, reg, meta, registry.FeatureCallHierarchy, nil, "callHierarchy/outgoingCalls",
			dispatch.Each(each),
			func(results []dispatch.ServerResult[[]transport.CallHierarchyOutgoingCall]) {
				if len(results) == 0 || results[0].Value == nil {
					return
				}
				calls := *results[0].Value
				renderCallHierarchy(out, logger, docs, meta, settings, direction, item, func() string {
					var b strings.Builder
					for _, c := range calls {
						// Outgoing call-sites live in the item's own file,
						// not the callee's — grounded on call_hierarchy.rs's
						// CallHierarchyCall::caller() returning the root
						// item, unlike the incoming-call case.
						writeCallWithSiteFile(&b, docs, settings, c.To, item, c.FromRanges)
					}
					return b.String()
				}())
			},
		)
	}
}

// writeCall renders one incoming call: the caller's location and, indented
// further, each call-site line within the caller's own file.
func writeCall(b *strings.Builder, docs *document.Store, settings registry.ServerSettings, caller transport.CallHierarchyItem, siteRanges []transport.Range) {
	writeCallWithSiteFile(b, docs, settings, caller, caller, siteRanges)
}

// writeCallWithSiteFile renders one call entry whose call-sites live in
// siteFile's buffer (the caller's file for incoming calls, the examined
// item's own file for outgoing calls).
func writeCallWithSiteFile(b *strings.Builder, docs *document.Store, settings registry.ServerSettings, label, siteFile transport.CallHierarchyItem, siteRanges []transport.Range) {
	b.WriteString(formatLocation(docs, settings, label.URI, label.Range.Start, "  ", label.Name))
	path := uriToPath(siteFile.URI)
	doc, open := docs.Get(path)
	for _, r := range siteRanges {
		var line string
		if open {
			ep := position.LSPToEditor(r.Start, doc.Text, settings.OffsetEncoding)
			line = strings.TrimSuffix(strings.TrimSuffix(position.GetLine(ep.Line, doc.Text), "\n"), "\r")
		}
		b.WriteString(formatLocation(docs, settings, siteFile.URI, r.Start, "    ", line))
	}
}

// formatLocation renders one "<prefix><path>:<line>:<col>: <suffix>\n"
// entry, falling back to the raw (1-based) LSP coordinates when the
// target file isn't open for encoding-aware conversion.
func formatLocation(docs *document.Store, settings registry.ServerSettings, uri string, p transport.Position, prefix, suffix string) string {
	path := uriToPath(uri)
	shortPath := pathutil.ShortRelativeTo(path, settings.RootPath)
	line, col := int(p.Line)+1, int(p.Character)+1
	if doc, ok := docs.Get(path); ok {
		ep := position.LSPToEditor(p, doc.Text, settings.OffsetEncoding)
		line, col = ep.Line, ep.Column
	}
	return fmt.Sprintf("%s%s:%d:%d: %s\n", prefix, shortPath, line, col, suffix)
}

func renderCallHierarchy(
	out *editor.Channel,
	logger *slog.Logger,
	docs *document.Store,
	meta dispatch.EditorMeta,
	settings registry.ServerSettings,
	direction CallDirection,
	item transport.CallHierarchyItem,
	body string,
) {
	listKind := "callers"
	command := "lsp-show-incoming-calls"
	if direction == CallOutgoing {
		listKind = "callees"
		command = "lsp-show-outgoing-calls"
	}
	header := formatLocation(docs, settings, item.URI, item.Range.Start, "", fmt.Sprintf("%s - list of %s", item.Name, listKind))
	contents := header + body

	cmd := fmt.Sprintf("%s %s %s", command, markup.EditorQuote(settings.RootPath), markup.EditorQuote(contents))
	if err := out.Emit(meta.Buffile, cmd); err != nil {
		logger.Error("call_hierarchy: emit", slog.Any("error", err))
	}
}
