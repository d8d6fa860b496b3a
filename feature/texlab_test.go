package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/registry"
)

func TestForwardSearchEchoesStatus(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) { c.ForwardSearch = true })
	docs := document.NewStore()
	docs.Open("/proj/main.tex", "\\documentclass{article}\n", 1)

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/forwardSearch": func(registry.ServerId, any) (any, error) {
			return forwardSearchResult{Status: forwardSearchSuccess}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.tex", Servers: []registry.ServerId{"rust-analyzer"}}
	params, _ := json.Marshal(map[string]any{"position": "1.1"})

	err := ForwardSearch(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Forward Search Success (texlab)")
}

func TestBuildEchoesStatus(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) { c.Build = true })

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/build": func(registry.ServerId, any) (any, error) {
			return buildResult{Status: buildFailure}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.tex", Servers: []registry.ServerId{"rust-analyzer"}}

	err := Build(context.Background(), d, reg, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Build Failure (texlab)")
}
