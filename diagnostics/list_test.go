package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simon-lentz/lspbroker/document"
	"github.com/simon-lentz/lspbroker/position"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

func TestRenderListOneBufferOneDiagnostic(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("rust-analyzer", registry.ServerSettings{Name: "rust-analyzer", RootPath: "/proj", OffsetEncoding: position.UTF8})

	docs := document.NewStore()
	docs.Open("/proj/src/main.rs", "let x = 1;\n", 1)

	c := NewCache()
	sev := transport.DiagnosticSeverityError
	c.Publish("/proj/src/main.rs", "rust-analyzer", []transport.Diagnostic{{
		Range:    transport.Range{Start: transport.Position{Line: 0, Character: 4}, End: transport.Position{Line: 0, Character: 5}},
		Severity: &sev,
		Message:  "bad",
	}})

	out := c.RenderList(reg, docs, "/proj", nil)
	assert.Equal(t, "src/main.rs:1:5: error: bad", out)
}

func TestRenderListIncludesRelatedInformation(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("rust-analyzer", registry.ServerSettings{Name: "rust-analyzer", RootPath: "/proj", OffsetEncoding: position.UTF8})

	docs := document.NewStore()
	docs.Open("/proj/src/main.rs", "let x = 1;\n", 1)

	c := NewCache()
	sev := transport.DiagnosticSeverityWarning
	c.Publish("/proj/src/main.rs", "rust-analyzer", []transport.Diagnostic{{
		Range:    transport.Range{Start: transport.Position{Line: 0, Character: 0}, End: transport.Position{Line: 0, Character: 3}},
		Severity: &sev,
		Message:  "unused variable",
		RelatedInformation: []transport.DiagnosticRelatedInfo{{
			Location: transport.Location{
				URI:   "file:///proj/src/main.rs",
				Range: transport.Range{Start: transport.Position{Line: 0, Character: 0}, End: transport.Position{Line: 0, Character: 3}},
			},
			Message: "first assigned here",
		}},
	}})

	out := c.RenderList(reg, docs, "/proj", nil)
	assert.Contains(t, out, "src/main.rs:1:1: warning: unused variable")
	assert.Contains(t, out, "\nsrc/main.rs:1:1: (rust-analyzer) first assigned here")
}

func TestRenderListEmptyCacheIsEmptyString(t *testing.T) {
	reg := registry.NewRegistry()
	docs := document.NewStore()
	c := NewCache()
	assert.Equal(t, "", c.RenderList(reg, docs, "/proj", nil))
}
