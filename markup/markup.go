// Package markup produces editor-safe strings: the quoting, escaping, and
// verbatim-heredoc helpers every rendered script passes its dynamic content
// through before it reaches the editor's command parser.
package markup

import "strings"

// EditorQuote wraps s in single quotes so it survives the editor's
// shell-like argument parser, doubling any embedded single quote.
func EditorQuote(s string) string {
	return "'" + EditorEscape(s) + "'"
}

// EditorEscape escapes s for use inside a single-quoted literal (without
// adding the surrounding quotes itself).
func EditorEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// EditorEscapeDoubleQuotes escapes s for use inside a double-quoted
// literal, where `%opt{...}` and similar tokens still expand.
func EditorEscapeDoubleQuotes(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// EscapeTupleElement escapes the ':' delimiter (and a literal backslash,
// so the escape itself is unambiguous) significant to the editor's tuple
// syntax, e.g. "file:line:column:text" entries in goto lists.
func EscapeTupleElement(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, ":", "\\:")
}

// EscapeKakouneMarkup escapes the editor's markup braces so user text is
// never interpreted as a face directive.
func EscapeKakouneMarkup(s string) string {
	s = strings.ReplaceAll(s, "{", "\\{")
	return strings.ReplaceAll(s, "}", "\\}")
}

// VerbatimQuote wraps body in the editor's "%§...§" verbatim-quoting
// sentinel, doubling any embedded "§" so the body can contain the sentinel
// character itself. Nesting one verbatim block inside another is done by
// doubling the sentinel at each level.
func VerbatimQuote(body string) string {
	return "%§" + strings.ReplaceAll(body, "§", "§§") + "§"
}

// EvaluateCommandsBuffer wraps body as a buffer-scoped
// "evaluate-commands -buffer <b> %§ body §" envelope, the shape every
// rendered script uses to deliver a batch of commands atomically to one
// buffer.
func EvaluateCommandsBuffer(buffile, body string) string {
	return "evaluate-commands -buffer " + EditorQuote(buffile) + " " + VerbatimQuote(body)
}

// EvaluateCommands wraps body in the verbatim sentinel without a buffer
// scope, for scripts that are not tied to a specific buffer (e.g. a
// top-level execute-command dispatch).
func EvaluateCommands(body string) string {
	return "evaluate-commands " + VerbatimQuote(body)
}
