package wcwidth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedWidthOrFallbackAcceptsCodeLensGlyph(t *testing.T) {
	assert.Equal(t, "🔎", ExpectedWidthOrFallback("🔎", 2, "[L]"))
}

func TestExpectedWidthOrFallbackAcceptsCodeActionGlyph(t *testing.T) {
	assert.Equal(t, "💡", ExpectedWidthOrFallback("💡", 2, "[A]"))
}

func TestExpectedWidthOrFallbackRejectsMismatchedWidth(t *testing.T) {
	assert.Equal(t, "[A]", ExpectedWidthOrFallback("a", 2, "[A]"))
}

func TestExpectedWidthOrFallbackRejectsInvalidUTF8(t *testing.T) {
	assert.Equal(t, "[A]", ExpectedWidthOrFallback("\xff\xfe", 2, "[A]"))
}

func TestStringWidthSumsAcrossRunes(t *testing.T) {
	assert.Equal(t, 2, StringWidth("ab"))
	assert.Equal(t, 2, StringWidth("🔎"))
}
