package feature

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon-lentz/lspbroker/diagnostics"
	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

func TestDiagnosticsRendersShowDiagnosticsCommand(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) {})
	docs := document.NewStore()
	docs.Open("/proj/main.rs", "let x = 1;\n", 1)

	diags := diagnostics.NewCache()
	diags.Publish("/proj/main.rs", "rust-analyzer", []transport.Diagnostic{{
		Range:    transport.Range{Start: transport.Position{Line: 0, Character: 4}, End: transport.Position{Line: 0, Character: 5}},
		Severity: severityPtr(transport.DiagnosticSeverityError),
		Message:  "bad",
	}})

	var buf bytes.Buffer
	out := editor.NewChannel(&buf, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs"}

	err := Diagnostics(reg, docs, diags, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "lsp-show-diagnostics")
	assert.Contains(t, buf.String(), "error: bad")
}

func TestDiagnosticsSynchronousRepliesWithJSON(t *testing.T) {
	reg := singleServerRegistry(t, func(c *registry.Capabilities) {})
	docs := document.NewStore()
	diags := diagnostics.NewCache()
	diags.Publish("/proj/main.rs", "rust-analyzer", []transport.Diagnostic{{
		Range:   transport.Range{Start: transport.Position{Line: 0, Character: 0}, End: transport.Position{Line: 0, Character: 1}},
		Message: "bad",
	}})

	fifo := t.TempDir() + "/reply"
	require.NoError(t, writeEmptyFile(fifo))

	out := editor.NewChannel(&bytes.Buffer{}, discardLogger())
	meta := dispatch.EditorMeta{Buffile: "/proj/main.rs", Fifo: fifo}

	err := Diagnostics(reg, docs, diags, out, discardLogger(), meta)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, fifo), "bad")
}

func severityPtr(s transport.DiagnosticSeverity) *transport.DiagnosticSeverity { return &s }
