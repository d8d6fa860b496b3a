package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCanonicalAbsolute(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCanonical(dir)
	require.NoError(t, err)
	require.False(t, c.IsZero())
	require.True(t, filepath.IsAbs(c.String()))
}

func TestNewCanonicalRejectsUNC(t *testing.T) {
	_, err := NewCanonical("//server/share")
	require.ErrorIs(t, err, ErrUNCPath)
}

func TestCanonicalBase(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCanonical(filepath.Join(dir, "foo.go"))
	require.NoError(t, err)
	require.Equal(t, "foo.go", c.Base())
}

func TestShortRelativeToUnderRoot(t *testing.T) {
	got := ShortRelativeTo("/workspace/proj/src/main.go", "/workspace/proj")
	require.Equal(t, "src/main.go", got)
}

func TestShortRelativeToOutsideRoot(t *testing.T) {
	got := ShortRelativeTo("/etc/passwd", "/workspace/proj")
	require.Equal(t, "/etc/passwd", got)
}

func TestShortRelativeToEmptyRoot(t *testing.T) {
	got := ShortRelativeTo("/a/b/c.go", "")
	require.Equal(t, "/a/b/c.go", got)
}

func TestZeroCanonical(t *testing.T) {
	var c Canonical
	require.True(t, c.IsZero())
	require.Equal(t, "", c.Base())
}
