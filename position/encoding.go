// Package position translates between editor positions (1-based line, byte
// column) and LSP positions (0-based line, code-unit column under a
// per-server offset encoding). Every function here is pure and total:
// out-of-range lines/columns clamp rather than error, so a caller never has
// to special-case a stale or short document.
package position

import "fmt"

// OffsetEncoding is the code-unit counting scheme a server uses for the
// "character" field of an LSP Position. It is a per-server property
// (ServerSettings.OffsetEncoding); the core must use the owning server's
// encoding for every conversion involving that server.
type OffsetEncoding int

const (
	UTF16 OffsetEncoding = iota // LSP default; character counts UTF-16 code units
	UTF8                        // character IS the byte offset from line start
	UTF32                       // character counts Unicode code points (runes)
)

func (e OffsetEncoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF16:
		return "utf-16"
	case UTF32:
		return "utf-32"
	default:
		return fmt.Sprintf("OffsetEncoding(%d)", int(e))
	}
}

// ParseOffsetEncoding parses the wire-level negotiated encoding name. Unknown
// names fall back to UTF16, the LSP default, with ok=false so the caller can
// log it.
func ParseOffsetEncoding(s string) (enc OffsetEncoding, ok bool) {
	switch s {
	case "utf-8", "utf8":
		return UTF8, true
	case "utf-16", "utf16":
		return UTF16, true
	case "utf-32", "utf32":
		return UTF32, true
	default:
		return UTF16, false
	}
}
