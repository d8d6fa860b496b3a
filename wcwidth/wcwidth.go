// Package wcwidth probes whether a glyph renders at an expected terminal
// column width, the check the code-action and code-lens indicators use to
// decide between a 2-column emoji and an ASCII fallback. Unicode's East
// Asian Width property (UAX #11, golang.org/x/text/width) does not cover
// emoji presentation width, so wide emoji blocks are special-cased on top
// of it — the same gap terminal emulators themselves work around.
package wcwidth

import (
	"unicode/utf8"

	"golang.org/x/text/width"
)

// emojiWideRanges lists the code-point ranges this broker's indicator
// glyphs (💡 U+1F4A1, 🔎 U+1F50E) and their neighbors fall in, rendered at
// 2 columns by every terminal emulator this broker has been run under
// even though x/text/width classifies them EastAsianNeutral.
var emojiWideRanges = [][2]rune{
	{0x2600, 0x27BF},   // Miscellaneous Symbols, Dingbats
	{0x1F300, 0x1F5FF}, // Miscellaneous Symbols and Pictographs
	{0x1F600, 0x1F64F}, // Emoticons
	{0x1F680, 0x1F6FF}, // Transport and Map Symbols
	{0x1F900, 0x1FAFF}, // Supplemental Symbols and Pictographs, Symbols and Pictographs Extended-A
}

func isEmojiWide(r rune) bool {
	for _, rg := range emojiWideRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// RuneWidth returns the terminal column width this broker assumes for r:
// 2 for East-Asian wide/fullwidth runes and the emoji blocks above, 1
// otherwise.
func RuneWidth(r rune) int {
	if isEmojiWide(r) {
		return 2
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// StringWidth sums RuneWidth across s.
func StringWidth(s string) int {
	total := 0
	for _, r := range s {
		total += RuneWidth(r)
	}
	return total
}

// ExpectedWidthOrFallback returns glyph if it renders at exactly expected
// columns under this broker's width model, otherwise fallback. Used for
// the code-action ("💡"/"[A]") and code-lens ("🔎"/"[L]") indicators.
func ExpectedWidthOrFallback(glyph string, expected int, fallback string) string {
	if utf8.ValidString(glyph) && StringWidth(glyph) == expected {
		return glyph
	}
	return fallback
}
