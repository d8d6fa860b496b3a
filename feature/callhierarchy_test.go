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
	"github.com/simon-lentz/lspbroker/transport"
)

func TestCallHierarchyIncomingRendersCallers(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{RootPath: "/proj", Capabilities: registry.Capabilities{CallHierarchy: true}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn target() {}\n", 1)
	docs.Open("/proj/caller.rs", "fn caller() { target(); }\n", 1)

	item := transport.CallHierarchyItem{
		Name:  "target",
		URI:   "file:///proj/main.rs",
		Range: transport.Range{Start: transport.Position{Line: 0, Character: 3}},
	}
	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/prepareCallHierarchy": func(registry.ServerId, any) (any, error) {
			return []transport.CallHierarchyItem{item}, nil
		},
		"callHierarchy/incomingCalls": func(server registry.ServerId, _ any) (any, error) {
			return []transport.CallHierarchyIncomingCall{{
				From:       transport.CallHierarchyItem{Name: "caller", URI: "file:///proj/caller.rs"},
				FromRanges: []transport.Range{{Start: transport.Position{Line: 0, Character: 13}}},
			}}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}}
	params, _ := json.Marshal(map[string]any{"position": "1.4", "incomingOrOutgoing": true})

	err := CallHierarchy(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "lsp-show-incoming-calls")
	assert.Contains(t, buf.String(), "list of callers")
	assert.Contains(t, buf.String(), "caller.rs")
}

func TestCallHierarchyPrepareEmptyIsSilent(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{RootPath: "/proj", Capabilities: registry.Capabilities{CallHierarchy: true}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn target() {}\n", 1)

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/prepareCallHierarchy": func(registry.ServerId, any) (any, error) {
			return []transport.CallHierarchyItem{}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}}
	params, _ := json.Marshal(map[string]any{"position": "1.4", "incomingOrOutgoing": true})

	err := CallHierarchy(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
