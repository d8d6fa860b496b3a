package feature

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

func TestOrganizeImportsAppliesReturnedEdit(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) { c.OrganizeImports = true })

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"workspace/executeCommand": func(registry.ServerId, any) (any, error) {
			return transport.WorkspaceEdit{}, nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/Main.java", Servers: []registry.ServerId{"rust-analyzer"}}

	err := OrganizeImports(context.Background(), d, reg, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "lsp-apply-workspace-edit")
}

func TestOrganizeImportsNoResponseIsSilent(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) { c.OrganizeImports = true })
	d := dispatch.NewDispatcher(nil, &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){}})

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/Main.java", Servers: []registry.ServerId{"rust-analyzer"}}

	err := OrganizeImports(context.Background(), d, reg, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
