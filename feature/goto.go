package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/pathutil"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// GotoKind selects which of the four goto-family LSP methods a request
// targets; all four share one dispatch/fusion/render path (grounded on
// goto.rs, which normalizes all of them through the same GotoDefinitionResponse
// shape).
type GotoKind int

const (
	GotoDefinition GotoKind = iota
	GotoDeclaration
	GotoTypeDefinition
	GotoImplementation
)

func (k GotoKind) feature() registry.Feature {
	switch k {
	case GotoDeclaration:
		return registry.FeatureDeclaration
	case GotoTypeDefinition:
		return registry.FeatureTypeDefinition
	case GotoImplementation:
		return registry.FeatureImplementation
	default:
		return registry.FeatureDefinition
	}
}

func (k GotoKind) method() string {
	switch k {
	case GotoDeclaration:
		return "textDocument/declaration"
	case GotoTypeDefinition:
		return "textDocument/typeDefinition"
	case GotoImplementation:
		return "textDocument/implementation"
	default:
		return "textDocument/definition"
	}
}

// positionParams is the shared shape of every position-addressed editor
// request: "line.column" in the editor's own coordinate system.
type positionParams struct {
	Position string `json:"position"`
}

type definitionRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Position     transport.Position               `json:"position"`
}

// Goto drives one goto-family request end to end: decode, dispatch to every
// eligible server, take the first non-empty result (fusion rule 1), and
// render either a direct jump or a choice list.
func Goto(
	ctx context.Context,
	kind GotoKind,
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
		return fmt.Errorf("goto: decode params: %w", err)
	}
	ep, err := position.ParsePosition(p.Position)
	if err != nil {
		return fmt.Errorf("goto: %w", err)
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

	reqParams := definitionRequestParams{
		TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
		Position:     position.EditorToLSP(ep, doc.Text, mainEncoding),
	}

	dispatch.Call[definitionRequestParams, transport.GotoResult](
		ctx, d, reg, meta, kind.feature(), nil, kind.method(),
		dispatch.All(reqParams),
		func(results []dispatch.ServerResult[transport.GotoResult]) {
			if meta.Version >= 0 && docs.IsStale(meta.Buffile, meta.Version) {
				staleReply(logger, meta.Buffile, meta.Version, docs.CurrentVersion(meta.Buffile))
				return
			}
			flattened := make([]dispatch.ServerResult[[]transport.Location], len(results))
			for i, r := range results {
				flattened[i] = dispatch.ServerResult[[]transport.Location]{Server: r.Server}
				if r.Value != nil {
					flattened[i].Value = &r.Value.Locations
				}
			}
			server, locations, found := dispatch.FirstNonEmpty(flattened)
			if !found {
				return
			}
			settings, _ := reg.Get(server)
			renderGoto(out, logger, meta, docs, settings, locations)
		},
	)
	return nil
}

func renderGoto(out *editor.Channel, logger *slog.Logger, meta dispatch.EditorMeta, docs *document.Store, settings registry.ServerSettings, locations []transport.Location) {
	switch len(locations) {
	case 0:
		return
	case 1:
		renderGotoSingle(out, logger, meta, docs, settings, locations[0])
	default:
		renderGotoMany(out, logger, meta, docs, settings, locations)
	}
}

func editAtRange(path string, r position.EditorRange) string {
	return fmt.Sprintf("edit -existing %s\nselect %s\nexecute-keys <c-s>vv",
		markup.EditorQuote(path), formatRange(r))
}

func formatRange(r position.EditorRange) string {
	return fmt.Sprintf("%d.%d,%d.%d", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

func renderGotoSingle(out *editor.Channel, logger *slog.Logger, meta dispatch.EditorMeta, docs *document.Store, settings registry.ServerSettings, loc transport.Location) {
	path := uriToPath(loc.URI)
	target, ok := docs.Get(path)
	if !ok {
		logger.Warn("goto target not open in document store", slog.String("path", path))
		return
	}
	r := position.LSPRangeToEditor(loc.Range, target.Text, settings.OffsetEncoding)
	command := fmt.Sprintf("evaluate-commands -try-client %%opt{jumpclient} -- %s", markup.EditorQuote(editAtRange(path, r)))
	if err := out.Emit(meta.Buffile, command); err != nil {
		logger.Error("emit goto", slog.Any("error", err))
	}
}

func renderGotoMany(out *editor.Channel, logger *slog.Logger, meta dispatch.EditorMeta, docs *document.Store, settings registry.ServerSettings, locations []transport.Location) {
	type group struct {
		path string
		locs []transport.Location
	}
	var groups []*group
	index := make(map[string]*group)
	for _, loc := range locations {
		path := uriToPath(loc.URI)
		g, ok := index[path]
		if !ok {
			g = &group{path: path}
			index[path] = g
			groups = append(groups, g)
		}
		g.locs = append(g.locs, loc)
	}

	var entries string
	for _, g := range groups {
		target, ok := docs.Get(g.path)
		if !ok {
			continue
		}
		shortPath := pathutil.ShortRelativeTo(g.path, settings.RootPath)
		for _, loc := range g.locs {
			ep := position.LSPToEditor(loc.Range.Start, target.Text, settings.OffsetEncoding)
			line := position.GetLine(ep.Line, target.Text)
			if line == "" {
				continue
			}
			entries += fmt.Sprintf("%s:%d:%d:%s", shortPath, ep.Line, ep.Column, line)
		}
	}

	command := fmt.Sprintf("lsp-show-goto-choices %s %s", markup.EditorQuote(settings.RootPath), markup.EditorQuote(entries))
	if err := out.Emit(meta.Buffile, command); err != nil {
		logger.Error("emit goto choices", slog.Any("error", err))
	}
}
