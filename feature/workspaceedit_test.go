package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon-lentz/lspbroker/transport"
)

func TestApplyWorkspaceEditCommandAsync(t *testing.T) {
	edit := transport.WorkspaceEdit{Changes: map[transport.DocumentUri][]transport.TextEdit{
		"/proj/main.rs": {{NewText: "x"}},
	}}
	cmd, err := applyWorkspaceEditCommand(edit, false)
	require.NoError(t, err)
	assert.Contains(t, cmd, "lsp-apply-workspace-edit ")
	assert.NotContains(t, cmd, "lsp-apply-workspace-edit-sync")
}

func TestApplyWorkspaceEditCommandSync(t *testing.T) {
	edit := transport.WorkspaceEdit{}
	cmd, err := applyWorkspaceEditCommand(edit, true)
	require.NoError(t, err)
	assert.Contains(t, cmd, "lsp-apply-workspace-edit-sync")
}

func TestTextEditsToWorkspaceEditWrapsSingleFile(t *testing.T) {
	edits := []transport.TextEdit{{NewText: "a"}, {NewText: "b"}}
	we := textEditsToWorkspaceEdit("/proj/main.rs", edits)
	assert.Equal(t, edits, we.Changes["/proj/main.rs"])
	assert.Len(t, we.Changes, 1)
}

func TestExecuteCommandCommandAsync(t *testing.T) {
	cmd, err := executeCommandCommand("rust-analyzer", transport.Command{Command: "rust-analyzer.runSingle", Arguments: []any{"a"}}, false)
	require.NoError(t, err)
	assert.Contains(t, cmd, "lsp-execute-command ")
	assert.Contains(t, cmd, "rust-analyzer.runSingle")
	assert.Contains(t, cmd, "rust-analyzer")
}
