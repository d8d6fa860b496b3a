// Package pathutil canonicalizes and presents file-system paths the way the
// broker needs them: stable across platforms (NFC-normalized, forward
// slashes) for use as cache/map keys, and shortened relative to a server's
// root for presentation in rendered goto lists and diagnostics.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUNCPath is returned when a UNC path (//server/share or \\server\share)
// is supplied where a local filesystem path is required. path.Clean would
// collapse "//" to "/", which would make a UNC path collide with a plain
// Unix absolute path once canonicalized.
var ErrUNCPath = errors.New("pathutil: UNC paths are not supported")

// Canonical is a canonicalized file-system path: absolute, clean (no "."
// or ".." segments), NFC-normalized, forward-slash-normalized, and
// best-effort symlink-resolved (resolved when the path exists at
// canonicalization time; a not-yet-created path is left as the clean
// absolute path).
//
// Canonical is a value type with an unexported field; pass by value. The
// zero value is invalid — check with IsZero.
type Canonical struct {
	path string
}

// NewCanonical canonicalizes p.
func NewCanonical(p string) (Canonical, error) {
	absPath, err := filepath.Abs(p)
	if err != nil {
		return Canonical{}, fmt.Errorf("canonicalize path %q: %w", p, err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	switch {
	case err == nil:
		// resolved
	case os.IsNotExist(err):
		resolved = absPath
	default:
		return Canonical{}, fmt.Errorf("canonicalize path %q: %w", p, err)
	}

	normalized := norm.NFC.String(resolved)
	canonical := filepath.ToSlash(normalized)
	canonical = strings.ReplaceAll(canonical, "\\", "/")

	if len(canonical) >= 2 && canonical[0] == '/' && canonical[1] == '/' {
		return Canonical{}, fmt.Errorf("%w: %q; use a local mount point", ErrUNCPath, p)
	}

	return Canonical{path: canonical}, nil
}

// String returns the canonical path string.
func (c Canonical) String() string { return c.path }

// IsZero reports whether c is the invalid zero value.
func (c Canonical) IsZero() bool { return c.path == "" }

// Base returns the last path element (the file name).
func (c Canonical) Base() string {
	if c.IsZero() {
		return ""
	}
	return path.Base(c.path)
}

// ShortRelativeTo returns p shortened relative to root for presentation
// (e.g. in goto lists and diagnostic output): the portion of p under root
// with root's prefix stripped, or p itself (NFC-normalized, slash-fixed)
// if it does not live under root.
//
// Grounded on kakoune-lsp's short_file_path: presentation code should never
// show a user a full absolute path when a workspace-relative one reads better.
func ShortRelativeTo(p, root string) string {
	normalized := normalizeSlashes(p)
	normalizedRoot := normalizeSlashes(root)
	if normalizedRoot == "" {
		return normalized
	}
	rootWithSlash := strings.TrimSuffix(normalizedRoot, "/") + "/"
	if rel, ok := strings.CutPrefix(normalized, rootWithSlash); ok {
		return rel
	}
	return normalized
}

func normalizeSlashes(p string) string {
	p = norm.NFC.String(p)
	p = filepath.ToSlash(p)
	return strings.ReplaceAll(p, "\\", "/")
}
