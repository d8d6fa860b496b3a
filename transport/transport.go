// Package transport defines the external collaborator surface the core
// dispatches through: the typed LSP call primitive and the notification
// receiver. The LSP wire format and server process lifecycle live on the
// other side of this interface, outside the core.
package transport

import (
	"bytes"
	"context"
	"encoding/json"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/simon-lentz/lspbroker/registry"
)

// Re-exported protocol_3_16 vocabulary: the broker's LSP-side types are the
// same wire types the editor's servers speak, so fusion and rendering code
// imports this package rather than protocol_3_16 directly.
type (
	Position                   = protocol.Position
	Range                      = protocol.Range
	Location                   = protocol.Location
	Diagnostic                 = protocol.Diagnostic
	DiagnosticSeverity         = protocol.DiagnosticSeverity
	DiagnosticRelatedInfo      = protocol.DiagnosticRelatedInformation
	CodeLens                   = protocol.CodeLens
	Command                    = protocol.Command
	CodeAction                 = protocol.CodeAction
	CodeActionKind             = protocol.CodeActionKind
	WorkspaceEdit              = protocol.WorkspaceEdit
	TextEdit                   = protocol.TextEdit
	TextDocumentIdentifier     = protocol.TextDocumentIdentifier
	CallHierarchyItem          = protocol.CallHierarchyItem
	CallHierarchyIncomingCall  = protocol.CallHierarchyIncomingCall
	CallHierarchyOutgoingCall  = protocol.CallHierarchyOutgoingCall
	FormattingOptions          = protocol.FormattingOptions
	CodeActionContext          = protocol.CodeActionContext
	CodeActionTriggerKind      = protocol.CodeActionTriggerKind
)

const (
	CodeActionTriggerKindInvoked   = protocol.CodeActionTriggerKindInvoked
	CodeActionTriggerKindAutomatic = protocol.CodeActionTriggerKindAutomatic
)

const (
	DiagnosticSeverityError       = protocol.DiagnosticSeverityError
	DiagnosticSeverityWarning     = protocol.DiagnosticSeverityWarning
	DiagnosticSeverityInformation = protocol.DiagnosticSeverityInformation
	DiagnosticSeverityHint        = protocol.DiagnosticSeverityHint
)

// DocumentUri is the broker's own alias for an LSP document URI, kept as a
// plain string so packages that only need to carry a URI around (goto
// grouping, diagnostic cache keys) don't need to import protocol_3_16.
type DocumentUri = string

// Caller is the typed LSP request primitive external to the core: issue a
// request of type Req against one server and receive a typed result (or an
// error, which the dispatcher downgrades to "no result" per the transport
// error-handling policy). Implementations own the wire format, the server
// process, and request/response correlation.
type Caller interface {
	Call(ctx context.Context, server registry.ServerId, method string, params, result any) error
}

// Notifier delivers an outbound notification to a single server (e.g.
// textDocument/didOpen, workspace/executeCommand fire-and-forget variants).
type Notifier interface {
	Notify(server registry.ServerId, method string, params any)
}

// CodeActionOrCommand is the LSP wire-level union textDocument/codeAction
// resolves to: each element of the response is either a full CodeAction or
// a bare Command. Exactly one of Action/Command is non-nil.
type CodeActionOrCommand struct {
	Action  *CodeAction
	Command *Command
}

// Title returns the display title regardless of which variant this is.
func (c CodeActionOrCommand) Title() string {
	if c.Action != nil {
		return c.Action.Title
	}
	if c.Command != nil {
		return c.Command.Title
	}
	return ""
}

// Kind returns the action's kind bucket, or "" for a bare Command (bare
// commands sort into the "other" bucket).
func (c CodeActionOrCommand) Kind() CodeActionKind {
	if c.Action != nil && c.Action.Kind != nil {
		return *c.Action.Kind
	}
	return ""
}

// codeActionDiscriminator peeks only the one field that distinguishes a
// bare Command from a CodeAction on the wire: Command's "command" is a
// string (the command identifier); CodeAction's "command", when present
// at all, is a nested object (a follow-up command to run after applying
// the action's edit).
type codeActionDiscriminator struct {
	Command json.RawMessage `json:"command"`
}

// UnmarshalJSON distinguishes the two variants of the codeAction response
// union by the shape of the "command" field, the same technique other Go
// LSP client libraries use for this exact ambiguity (lsp_types has no
// direct Go analogue; protocol_3_16 likewise leaves this union to the
// caller).
func (c *CodeActionOrCommand) UnmarshalJSON(data []byte) error {
	var d codeActionDiscriminator
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	isCommandString := len(d.Command) > 0 && d.Command[0] == '"'
	if isCommandString {
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return err
		}
		c.Command = &cmd
		return nil
	}
	var action CodeAction
	if err := json.Unmarshal(data, &action); err != nil {
		return err
	}
	c.Action = &action
	return nil
}

// MarshalJSON emits whichever variant is set, matching the wire shape
// UnmarshalJSON expects back.
func (c CodeActionOrCommand) MarshalJSON() ([]byte, error) {
	if c.Command != nil {
		return json.Marshal(c.Command)
	}
	return json.Marshal(c.Action)
}

// locationLinkWire is the wire shape of LSP's LocationLink, the form
// gopls, clangd, and rust-analyzer all use by default for goto-family
// replies. Decoded only to be flattened into a Location (grounded on
// language_features/goto.rs:16-25, which performs the same flattening).
type locationLinkWire struct {
	TargetURI            DocumentUri `json:"targetUri"`
	TargetRange          Range       `json:"targetRange"`
	TargetSelectionRange Range       `json:"targetSelectionRange"`
}

// GotoResult normalizes the three shapes a goto-family response
// (GotoDefinitionResponse and its declaration/typeDefinition/implementation
// siblings) can take on the wire: a bare Location, an array of Location, or
// an array of LocationLink. UnmarshalJSON flattens all three down to a
// single Locations slice so callers never have to branch on shape.
type GotoResult struct {
	Locations []Location
}

// locationDiscriminator peeks the one field that distinguishes a
// LocationLink element from a plain Location element: LocationLink carries
// "targetUri", Location carries "uri".
type locationDiscriminator struct {
	TargetURI json.RawMessage `json:"targetUri"`
}

func (g *GotoResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		g.Locations = nil
		return nil
	}
	if trimmed[0] != '[' {
		var loc Location
		if err := json.Unmarshal(data, &loc); err != nil {
			return err
		}
		g.Locations = []Location{loc}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	locs := make([]Location, 0, len(raws))
	for _, raw := range raws {
		var disc locationDiscriminator
		if err := json.Unmarshal(raw, &disc); err != nil {
			return err
		}
		if len(disc.TargetURI) > 0 {
			var link locationLinkWire
			if err := json.Unmarshal(raw, &link); err != nil {
				return err
			}
			locs = append(locs, Location{URI: link.TargetURI, Range: link.TargetSelectionRange})
			continue
		}
		var loc Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return err
		}
		locs = append(locs, loc)
	}
	g.Locations = locs
	return nil
}
