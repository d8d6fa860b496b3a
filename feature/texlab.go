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

// forwardSearchStatus mirrors texlab's ForwardSearchStatus enum (the wire
// values are the same small integers, 0 through 3).
type forwardSearchStatus int

const (
	forwardSearchSuccess forwardSearchStatus = iota
	forwardSearchError
	forwardSearchFailure
	forwardSearchUnconfigured
)

func (s forwardSearchStatus) String() string {
	switch s {
	case forwardSearchSuccess:
		return "Success"
	case forwardSearchError:
		return "Error"
	case forwardSearchFailure:
		return "Failure"
	case forwardSearchUnconfigured:
		return "Unconfigured"
	default:
		return "Unknown"
	}
}

type forwardSearchResult struct {
	Status forwardSearchStatus `json:"status"`
}

type forwardSearchRequestParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
	Position     transport.Position               `json:"position"`
}

// ForwardSearch drives texlab's textDocument/forwardSearch against a
// single target server, grounded on forward_search in texlab.rs. No
// design of its own: dispatch, take whichever single response comes
// back, echo it.
func ForwardSearch(
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
		return fmt.Errorf("forward_search: decode params: %w", err)
	}
	ep, err := position.ParsePosition(p.Position)
	if err != nil {
		return fmt.Errorf("forward_search: %w", err)
	}

	doc, ok := docs.Get(meta.Buffile)
	if !ok {
		return missingDocument(out, logger, meta.Buffile, meta.Hook)
	}

	entries := reg.Servers(meta.Servers)
	if len(entries) == 0 {
		return nil
	}
	server := entries[0]
	reqParams := forwardSearchRequestParams{
		TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile},
		Position:     position.EditorToLSP(ep, doc.Text, server.Settings.OffsetEncoding),
	}
	each := map[registry.ServerId][]forwardSearchRequestParams{server.ID: {reqParams}}

	dispatch.Call[forwardSearchRequestParams, forwardSearchResult](
		ctx, d, reg, meta, registry.FeatureForwardSearch, nil, "textDocument/forwardSearch",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[forwardSearchResult]) {
			if len(results) == 0 || results[0].Value == nil {
				return
			}
			echoResult(out, logger, meta, "forward_search", fmt.Sprintf("Forward Search %s (texlab)", results[0].Value.Status))
		},
	)
	return nil
}

// buildStatus mirrors texlab's BuildStatus enum.
type buildStatus int

const (
	buildSuccess buildStatus = iota
	buildError
	buildFailure
	buildCancelled
)

func (s buildStatus) String() string {
	switch s {
	case buildSuccess:
		return "Success"
	case buildError:
		return "Error"
	case buildFailure:
		return "Failure"
	case buildCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

type buildResult struct {
	Status buildStatus `json:"status"`
}

type buildTextDocumentParams struct {
	TextDocument transport.TextDocumentIdentifier `json:"textDocument"`
}

// Build drives texlab's textDocument/build against a single target
// server, grounded on build in texlab.rs.
func Build(
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
	each := map[registry.ServerId][]buildTextDocumentParams{
		server: {{TextDocument: transport.TextDocumentIdentifier{URI: meta.Buffile}}},
	}

	dispatch.Call[buildTextDocumentParams, buildResult](
		ctx, d, reg, meta, registry.FeatureBuild, nil, "textDocument/build",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[buildResult]) {
			if len(results) == 0 || results[0].Value == nil {
				return
			}
			echoResult(out, logger, meta, "build", fmt.Sprintf("Build %s (texlab)", results[0].Value.Status))
		},
	)
	return nil
}

func echoResult(out *editor.Channel, logger *slog.Logger, meta dispatch.EditorMeta, label, message string) {
	if err := out.Emit(meta.Buffile, fmt.Sprintf("echo %s", message)); err != nil {
		logger.Error(label+": emit", slog.Any("error", err))
	}
}
