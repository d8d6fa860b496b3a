package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditorQuoteDoublesSingleQuotes(t *testing.T) {
	assert.Equal(t, "'it''s'", EditorQuote("it's"))
}

func TestEditorEscapeDoubleQuotes(t *testing.T) {
	assert.Equal(t, `say \"hi\"`, EditorEscapeDoubleQuotes(`say "hi"`))
	assert.Equal(t, `back\\slash`, EditorEscapeDoubleQuotes(`back\slash`))
}

func TestEscapeTupleElement(t *testing.T) {
	assert.Equal(t, `foo\:bar`, EscapeTupleElement("foo:bar"))
}

func TestEscapeKakouneMarkup(t *testing.T) {
	assert.Equal(t, `\{Error\}oops`, EscapeKakouneMarkup("{Error}oops"))
}

func TestVerbatimQuoteDoublesSentinel(t *testing.T) {
	assert.Equal(t, "%§a§§b§", VerbatimQuote("a§b"))
}

func TestEvaluateCommandsBuffer(t *testing.T) {
	got := EvaluateCommandsBuffer("foo.rs", "set-option buffer x 1")
	assert.Equal(t, "evaluate-commands -buffer 'foo.rs' %§set-option buffer x 1§", got)
}

func TestEvaluateCommandsBufferEscapesBuffileQuote(t *testing.T) {
	got := EvaluateCommandsBuffer("it's.rs", "nop")
	assert.Equal(t, "evaluate-commands -buffer 'it''s.rs' %§nop§", got)
}
