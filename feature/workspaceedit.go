package feature

import (
	"encoding/json"
	"fmt"

	"github.com/simon-lentz/lspbroker/markup"
	"github.com/simon-lentz/lspbroker/transport"
)

// applyWorkspaceEditCommand renders edit as the editor's apply-workspace-edit
// command, serializing the edit as JSON exactly as the server returned it
// (or as this broker constructed it for a plain text-edit result) — the
// editor's own command applies the edit against its buffer model, so no
// position re-encoding happens at this layer. Grounded on
// apply_workspace_edit_editor_command in code_action.rs.
func applyWorkspaceEditCommand(edit transport.WorkspaceEdit, sync bool) (string, error) {
	data, err := json.Marshal(edit)
	if err != nil {
		return "", fmt.Errorf("marshal workspace edit: %w", err)
	}
	verb := "lsp-apply-workspace-edit"
	if sync {
		verb = "lsp-apply-workspace-edit-sync"
	}
	return fmt.Sprintf("%s %s", verb, markup.EditorQuote(string(data))), nil
}

// textEditsToWorkspaceEdit wraps a flat text-edit list (the result shape of
// textDocument/formatting and textDocument/rangeFormatting) as a single-file
// WorkspaceEdit so it can be applied through the same editor command path
// code actions and rename use.
func textEditsToWorkspaceEdit(buffile string, edits []transport.TextEdit) transport.WorkspaceEdit {
	return transport.WorkspaceEdit{
		Changes: map[transport.DocumentUri][]transport.TextEdit{
			transport.DocumentUri(buffile): edits,
		},
	}
}

// executeCommandCommand renders command as the editor's execute-command
// command, addressed to the server that returned it. Grounded on
// execute_command_editor_command in code_action.rs.
func executeCommandCommand(serverName string, command transport.Command, sync bool) (string, error) {
	args, err := json.Marshal(command.Arguments)
	if err != nil {
		return "", fmt.Errorf("marshal command arguments: %w", err)
	}
	verb := "lsp-execute-command"
	if sync {
		verb = "lsp-execute-command-sync"
	}
	return fmt.Sprintf("%s %s %s %s", verb,
		markup.EditorQuote(command.Command), markup.EditorQuote(string(args)), serverName), nil
}
