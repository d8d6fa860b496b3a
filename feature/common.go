// Package feature holds the thin entry points editor requests land on:
// each decodes its own parameter payload, drives the dispatcher with the
// fusion rule its kind of request calls for, and renders the result. The
// design — dispatch and fuse — lives in dispatch, not here.
package feature

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/markup"
)

// uriToPath strips the "file://" scheme from a document URI, the inverse of
// the external transport's path-to-URI conversion. Good enough for the
// local-filesystem URIs this broker ever sees from a language server.
func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// showError emits a single lsp-show-error command to buffile, the
// interactive-path error surface.
func showError(out *editor.Channel, buffile, message string) error {
	return out.Emit(buffile, fmt.Sprintf("lsp-show-error %s", markup.EditorQuote(message)))
}

// missingDocument implements the "missing document" error policy: log an
// error always, but only surface it to the editor for interactive (non-hook)
// requests.
func missingDocument(out *editor.Channel, logger *slog.Logger, buffile string, hook bool) error {
	logger.Error("missing document", slog.String("buffile", buffile))
	if hook {
		return nil
	}
	return showError(out, buffile, fmt.Sprintf("Missing document for %s", buffile))
}

// staleReply implements the "stale document" error policy: log a warning
// and drop the reply without any editor output.
func staleReply(logger *slog.Logger, buffile string, dispatchVersion, currentVersion int) {
	logger.Warn("dropping stale reply",
		slog.String("buffile", buffile),
		slog.Int("dispatch_version", dispatchVersion),
		slog.Int("current_version", currentVersion))
}
