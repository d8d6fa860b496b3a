package feature

import (
	"context"
	"log/slog"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

type executeCommandRequestParams struct {
	Command   string `json:"command"`
	Arguments []any  `json:"arguments"`
}

// OrganizeImports drives eclipse.jdt.ls's java.edit.organizeImports
// workspace/executeCommand against a single target server, grounded on
// organize_imports in eclipse_jdt_ls.rs: the command's result is itself a
// WorkspaceEdit, applied the same way code actions and formatting apply
// one.
func OrganizeImports(
	ctx context.Context,
	d *dispatch.Dispatcher,
	reg *registry.Registry,
	out *editor.Channel,
	logger *slog.Logger,
	meta dispatch.EditorMeta,
) error {
	entries := reg.Servers(meta.Servers)
	if len(entries) == 0 {
		return nil
	}
	server := entries[0].ID
	reqParams := executeCommandRequestParams{
		Command:   "java.edit.organizeImports",
		Arguments: []any{"file://" + meta.Buffile},
	}
	each := map[registry.ServerId][]executeCommandRequestParams{server: {reqParams}}

	dispatch.Call[executeCommandRequestParams, transport.WorkspaceEdit](
		ctx, d, reg, meta, registry.FeatureOrganizeImports, nil, "workspace/executeCommand",
		dispatch.Each(each),
		func(results []dispatch.ServerResult[transport.WorkspaceEdit]) {
			_, edit, found := dispatch.FirstNonNil(results)
			if !found {
				return
			}
			cmd, err := applyWorkspaceEditCommand(edit, false)
			if err != nil {
				logger.Error("organize_imports: render", slog.Any("error", err))
				return
			}
			if err := out.Emit(meta.Buffile, cmd); err != nil {
				logger.Error("organize_imports: emit", slog.Any("error", err))
			}
		},
	)
	return nil
}
