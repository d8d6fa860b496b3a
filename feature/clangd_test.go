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
)

func TestSwitchSourceHeaderJumpsToReturnedFile(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) { c.SwitchSourceHeader = true })

	caller := &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){
		"textDocument/switchSourceHeader": func(registry.ServerId, any) (any, error) {
			return "file:///proj/main.h", nil
		},
	}}
	d := dispatch.NewDispatcher(nil, caller)

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.cpp", Servers: []registry.ServerId{"rust-analyzer"}}

	err := SwitchSourceHeader(context.Background(), d, reg, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "edit -existing")
	assert.Contains(t, buf.String(), "/proj/main.h")
}

func TestSwitchSourceHeaderNoResponseIsSilent(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) { c.SwitchSourceHeader = true })
	d := dispatch.NewDispatcher(nil, &fakeCaller{handlers: map[string]func(registry.ServerId, any) (any, error){}})

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.cpp", Servers: []registry.ServerId{"rust-analyzer"}}

	err := SwitchSourceHeader(context.Background(), d, reg, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
