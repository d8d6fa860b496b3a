package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

func TestLineAggregationPrefersHigherSeverity(t *testing.T) {
	c := NewCache()
	warn := transport.DiagnosticSeverityWarning
	err := transport.DiagnosticSeverityError
	c.Publish("foo.rs", "a", []transport.Diagnostic{
		{Range: transport.Range{End: transport.Position{Line: 3}}, Severity: &warn, Message: "warn msg"},
		{Range: transport.Range{End: transport.Position{Line: 3}}, Severity: &err, Message: "err msg\nmore"},
	})

	byLine := c.LineAggregation("foo.rs", nil)
	entry, ok := byLine[3]
	require.True(t, ok)
	assert.Equal(t, "err msg", entry.Text)
	assert.Equal(t, "InlayDiagnosticError", entry.TextFace)
}

func TestLineAggregationAddingLowerSeverityIsInvariant(t *testing.T) {
	// Invariant #2: adding a diagnostic on a line that already has an
	// equal-or-higher-severity diagnostic must not change the winning label.
	c := NewCache()
	err := transport.DiagnosticSeverityError
	c.Publish("foo.rs", "a", []transport.Diagnostic{
		{Range: transport.Range{End: transport.Position{Line: 0}}, Severity: &err, Message: "first"},
	})
	before := c.LineAggregation("foo.rs", nil)[0].TextFace

	hint := transport.DiagnosticSeverityHint
	c.Publish("foo.rs", "b", []transport.Diagnostic{
		{Range: transport.Range{End: transport.Position{Line: 0}}, Severity: &hint, Message: "second"},
	})
	after := c.LineAggregation("foo.rs", nil)[0].TextFace

	assert.Equal(t, before, after)
}

func TestGatherLineFlagsMergesCodeLensMarks(t *testing.T) {
	c := NewCache()
	err := transport.DiagnosticSeverityError
	c.Publish("foo.rs", "a", []transport.Diagnostic{
		{Range: transport.Range{Start: transport.Position{Line: 4}}, Severity: &err},
	})

	flags, errorN, _, _, _ := c.GatherLineFlags("foo.rs", []uint32{4, 9}, nil)
	assert.Equal(t, 1, errorN)
	assert.Contains(t, flags, "'5|{LineFlagError}%opt[lsp_diagnostic_line_error_sign]'")
	assert.Contains(t, flags, "'10|%opt[lsp_code_lens_sign]'")
	// diagnostic mark wins over lens mark when both exist on line 4
	assert.NotContains(t, flags, "'5|%opt[lsp_code_lens_sign]'")
}

func TestInlineRangesSortedBySeverityDescending(t *testing.T) {
	c := NewCache()
	reg := registry.NewRegistry()
	reg.Register("a", registry.ServerSettings{})
	warn := transport.DiagnosticSeverityWarning
	err := transport.DiagnosticSeverityError
	c.Publish("foo.rs", "a", []transport.Diagnostic{
		{Range: transport.Range{Start: transport.Position{Line: 0}, End: transport.Position{Line: 0, Character: 1}}, Severity: &err},
		{Range: transport.Range{Start: transport.Position{Line: 1}, End: transport.Position{Line: 1, Character: 1}}, Severity: &warn},
	})
	ranges := c.InlineRanges("foo.rs", reg, "a\nb\n", nil)
	require.Len(t, ranges, 2)
	assert.Contains(t, ranges[0], "DiagnosticWarning")
	assert.Contains(t, ranges[1], "DiagnosticError")
}
