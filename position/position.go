package position

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// EditorPosition is a 1-based line, 1-based byte-column position, the
// coordinate system the editor and its rendered scripts use.
type EditorPosition struct {
	Line   int
	Column int
}

// EditorRange is a pair of EditorPosition endpoints.
type EditorRange struct {
	Start EditorPosition
	End   EditorPosition
}

// toUInteger clamps n to protocol.UInteger's non-negative range.
func toUInteger(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) //nolint:gosec // clamped to non-negative
}

// lineStart returns the byte offset of the start of the line0'th (0-based)
// line in text, and whether that many lines exist.
func lineStart(text string, line0 int) (int, bool) {
	if line0 == 0 {
		return 0, true
	}
	if line0 < 0 {
		return 0, false
	}
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			count++
			if count == line0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// lineContent returns the text of the line beginning at byte offset start,
// excluding the trailing newline.
func lineContent(text string, start int) string {
	if start > len(text) {
		return ""
	}
	rest := text[start:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// GetLine returns the n-th line (1-based) of text, including its trailing
// newline if any. Out-of-range n returns an empty string. Callers strip
// "\r\n" or "\n" suffixes themselves when quoting content.
func GetLine(n int, text string) string {
	if n < 1 {
		return ""
	}
	start, ok := lineStart(text, n-1)
	if !ok {
		return ""
	}
	rest := text[start:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		return rest[:idx+1]
	}
	return rest
}

// charToByteOffset converts a code-unit offset within line (under enc) to a
// byte offset within line, clamped to the line's byte length. Mirrors the
// UTF-16 surrogate-floor behavior: requesting the second unit of a
// surrogate pair floors to the start of that rune.
func charToByteOffset(line string, charOffset int, enc OffsetEncoding) int {
	if charOffset <= 0 {
		return 0
	}
	switch enc {
	case UTF8:
		if charOffset > len(line) {
			return len(line)
		}
		return charOffset
	case UTF32:
		pos, units := 0, 0
		for pos < len(line) && units < charOffset {
			_, size := utf8.DecodeRuneInString(line[pos:])
			units++
			pos += size
		}
		return pos
	default: // UTF16
		pos, units := 0, 0
		for pos < len(line) && units < charOffset {
			r, size := utf8.DecodeRuneInString(line[pos:])
			if r == utf8.RuneError && size <= 1 {
				units++
				pos++
				continue
			}
			if r > 0xFFFF {
				if units+1 == charOffset {
					// mid-surrogate: floor to the start of this rune
					return pos
				}
				units += 2
			} else {
				units++
			}
			pos += size
		}
		return pos
	}
}

// byteToCharOffset converts a byte offset within line (clamped to the
// line's byte length) to a code-unit offset under enc; the inverse of
// charToByteOffset.
func byteToCharOffset(line string, byteOffset int, enc OffsetEncoding) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	switch enc {
	case UTF8:
		return byteOffset
	case UTF32:
		return utf8.RuneCountInString(line[:byteOffset])
	default: // UTF16
		units, pos := 0, 0
		for pos < byteOffset {
			r, size := utf8.DecodeRuneInString(line[pos:])
			if r > 0xFFFF {
				units += 2
			} else {
				units++
			}
			pos += size
		}
		return units
	}
}

// LSPToEditor maps a 0-based LSP position under enc to a 1-based editor
// position with a byte column, computing the byte offset of the requested
// code-unit boundary within the target line. Out-of-range lines clamp to
// column 1.
func LSPToEditor(p protocol.Position, text string, enc OffsetEncoding) EditorPosition {
	line0 := int(p.Line)
	start, ok := lineStart(text, line0)
	if !ok {
		return EditorPosition{Line: line0 + 1, Column: 1}
	}
	line := lineContent(text, start)
	byteCol := charToByteOffset(line, int(p.Character), enc)
	return EditorPosition{Line: line0 + 1, Column: byteCol + 1}
}

// EditorToLSP is the inverse of LSPToEditor.
func EditorToLSP(p EditorPosition, text string, enc OffsetEncoding) protocol.Position {
	line0 := p.Line - 1
	if line0 < 0 {
		line0 = 0
	}
	start, ok := lineStart(text, line0)
	if !ok {
		return protocol.Position{Line: toUInteger(line0), Character: 0}
	}
	line := lineContent(text, start)
	byteCol := p.Column - 1
	if byteCol < 0 {
		byteCol = 0
	}
	if byteCol > len(line) {
		byteCol = len(line)
	}
	char := byteToCharOffset(line, byteCol, enc)
	return protocol.Position{Line: toUInteger(line0), Character: toUInteger(char)}
}

// LSPRangeToEditor applies LSPToEditor to both endpoints of r.
func LSPRangeToEditor(r protocol.Range, text string, enc OffsetEncoding) EditorRange {
	return EditorRange{
		Start: LSPToEditor(r.Start, text, enc),
		End:   LSPToEditor(r.End, text, enc),
	}
}

// EditorRangeToLSP applies EditorToLSP to both endpoints of r.
func EditorRangeToLSP(r EditorRange, text string, enc OffsetEncoding) protocol.Range {
	return protocol.Range{
		Start: EditorToLSP(r.Start, text, enc),
		End:   EditorToLSP(r.End, text, enc),
	}
}

// ParsePosition parses the editor's "line.column" position descriptor.
func ParsePosition(s string) (EditorPosition, error) {
	line, col, ok := strings.Cut(s, ".")
	if !ok {
		return EditorPosition{}, fmt.Errorf("position %q: missing '.'", s)
	}
	l, err := strconv.Atoi(line)
	if err != nil {
		return EditorPosition{}, fmt.Errorf("position %q: %w", s, err)
	}
	c, err := strconv.Atoi(col)
	if err != nil {
		return EditorPosition{}, fmt.Errorf("position %q: %w", s, err)
	}
	return EditorPosition{Line: l, Column: c}, nil
}

// ParseRange parses the editor's "line.column,line.column" selection
// descriptor into start/end EditorPositions.
func ParseRange(s string) (EditorRange, error) {
	start, end, ok := strings.Cut(s, ",")
	if !ok {
		return EditorRange{}, fmt.Errorf("range %q: missing ','", s)
	}
	sp, err := ParsePosition(start)
	if err != nil {
		return EditorRange{}, err
	}
	ep, err := ParsePosition(end)
	if err != nil {
		return EditorRange{}, err
	}
	return EditorRange{Start: sp, End: ep}, nil
}
