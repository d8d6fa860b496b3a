package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGetClose(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("foo.rs")
	require.False(t, ok)

	s.Open("foo.rs", "let x = 1;\n", 3)
	d, ok := s.Get("foo.rs")
	require.True(t, ok)
	assert.Equal(t, "let x = 1;\n", d.Text)
	assert.Equal(t, 3, d.Version)

	s.Close("foo.rs")
	_, ok = s.Get("foo.rs")
	assert.False(t, ok)
}

func TestIsStale(t *testing.T) {
	s := NewStore()
	s.Open("foo.rs", "a\n", 7)
	assert.False(t, s.IsStale("foo.rs", 7))
	assert.True(t, s.IsStale("foo.rs", 6))

	s.Open("foo.rs", "a\nb\n", 8)
	assert.True(t, s.IsStale("foo.rs", 7))
	assert.False(t, s.IsStale("foo.rs", 8))
}

func TestIsStaleForClosedBuffer(t *testing.T) {
	s := NewStore()
	assert.True(t, s.IsStale("missing.rs", 0))
}

func TestLine(t *testing.T) {
	s := NewStore()
	s.Open("foo.rs", "one\ntwo\nthree", 1)
	assert.Equal(t, "one\n", s.Line("foo.rs", 1))
	assert.Equal(t, "two\n", s.Line("foo.rs", 2))
	assert.Equal(t, "three", s.Line("foo.rs", 3))
	assert.Equal(t, "", s.Line("foo.rs", 4))
	assert.Equal(t, "", s.Line("missing.rs", 1))
}

func TestLineByteLength(t *testing.T) {
	s := NewStore()
	s.Open("foo.rs", "let x = 1;\n", 1)
	assert.Equal(t, 10, s.LineByteLength("foo.rs", 1))
	assert.Equal(t, 0, s.LineByteLength("foo.rs", 2))
}
