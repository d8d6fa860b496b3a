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

func TestRenameAppliesFirstRespondingServersEdit(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{Capabilities: registry.Capabilities{Rename: true}})
	reg.Register("b", registry.ServerSettings{Capabilities: registry.Capabilities{Rename: true}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn old() {}\n", 1)

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/rename": func(server registry.ServerId, _ any) (any, error) {
			if server == "b" {
				return transport.WorkspaceEdit{}, nil
			}
			return transport.WorkspaceEdit{
				Changes: map[transport.DocumentUri][]transport.TextEdit{
					"/proj/main.rs": {{NewText: "new"}},
				},
			}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a", "b"}}
	params, _ := json.Marshal(map[string]string{"position": "1.4", "newName": "new"})

	err := Rename(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "lsp-apply-workspace-edit")
	assert.Contains(t, buf.String(), "new")
}

func TestRenameSynchronousWritesFifo(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{Capabilities: registry.Capabilities{Rename: true}})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "fn old() {}\n", 1)

	edit := transport.WorkspaceEdit{Changes: map[transport.DocumentUri][]transport.TextEdit{
		"/proj/main.rs": {{NewText: "new"}},
	}}
	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/rename": func(registry.ServerId, any) (any, error) { return edit, nil },
	}}
	d := dispatch.NewDispatcher(nil, caller)

	fifoPath := t.TempDir() + "/reply"
	require.NoError(t, writeEmptyFile(fifoPath))

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Servers: []registry.ServerId{"a"}, Fifo: fifoPath}
	params, _ := json.Marshal(map[string]string{"position": "1.4", "newName": "new"})

	err := Rename(context.Background(), d, reg, docs, out, discardLogger(), meta, params)
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "synchronous rename replies bypass the buffer channel")

	got := readFile(t, fifoPath)
	assert.Contains(t, got, "lsp-apply-workspace-edit-sync")
}
