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

func TestFormattingAppliesEdits(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{Capabilities: registry.Capabilities{Formatting: true}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn main(){}\n", 1)

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/formatting": func(registry.ServerId, any) (any, error) {
			return []transport.TextEdit{{NewText: "fn main() {}\n"}}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}}
	params, _ := json.Marshal(map[string]any{})

	err := Formatting(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "lsp-apply-workspace-edit")
}

func TestFormattingNoEligibleServersAsyncIsSilent(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{Capabilities: registry.Capabilities{}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn main(){}\n", 1)

	d := dispatch.NewDispatcher(nil, &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){}})
	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}}
	params, _ := json.Marshal(map[string]any{})

	err := Formatting(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestFormattingNoEligibleServersSynchronousStillReplies(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{Capabilities: registry.Capabilities{}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn main(){}\n", 1)

	fifoPath := t.TempDir() + "/reply"
	require.NoError(t, writeEmptyFile(fifoPath))

	d := dispatch.NewDispatcher(nil, &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){}})
	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}, Fifo: fifoPath}
	params, _ := json.Marshal(map[string]any{})

	err := Formatting(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Equal(t, "nop", readFile(t, fifoPath))
}

func TestFormattingEmptyEditListRepliesNop(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{Capabilities: registry.Capabilities{Formatting: true}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn main() {}\n", 1)

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/formatting": func(registry.ServerId, any) (any, error) {
			return []transport.TextEdit{}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	fifoPath := t.TempDir() + "/reply"
	require.NoError(t, writeEmptyFile(fifoPath))

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}, Fifo: fifoPath}
	params, _ := json.Marshal(map[string]any{})

	err := Formatting(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Equal(t, "nop", readFile(t, fifoPath))
}
