package diagnostics

import (
	"log/slog"

	"github.com/simon-lentz/lspbroker/transport"
)

// effectiveSeverity returns sev's value, defaulting to Warning when sev is
// nil (a diagnostic with no severity behaves as a warning per spec), and
// logs once per call when the value is outside the four LSP severities.
func effectiveSeverity(sev *transport.DiagnosticSeverity, logger *slog.Logger) transport.DiagnosticSeverity {
	if sev == nil {
		return transport.DiagnosticSeverityWarning
	}
	switch *sev {
	case transport.DiagnosticSeverityError, transport.DiagnosticSeverityWarning,
		transport.DiagnosticSeverityInformation, transport.DiagnosticSeverityHint:
		return *sev
	default:
		if logger != nil {
			logger.Warn("unexpected diagnostic severity, treating as warning", slog.Any("severity", *sev))
		}
		return transport.DiagnosticSeverityWarning
	}
}

func severityWord(sev transport.DiagnosticSeverity) string {
	switch sev {
	case transport.DiagnosticSeverityError:
		return "error"
	case transport.DiagnosticSeverityHint:
		return "hint"
	case transport.DiagnosticSeverityInformation:
		return "info"
	default:
		return "warning"
	}
}

func diagnosticFace(sev transport.DiagnosticSeverity) string {
	switch sev {
	case transport.DiagnosticSeverityError:
		return "DiagnosticError"
	case transport.DiagnosticSeverityHint:
		return "DiagnosticHint"
	case transport.DiagnosticSeverityInformation:
		return "DiagnosticInfo"
	default:
		return "DiagnosticWarning"
	}
}

func inlayFace(sev transport.DiagnosticSeverity) string {
	switch sev {
	case transport.DiagnosticSeverityError:
		return "InlayDiagnosticError"
	case transport.DiagnosticSeverityHint:
		return "InlayDiagnosticHint"
	case transport.DiagnosticSeverityInformation:
		return "InlayDiagnosticInfo"
	default:
		return "InlayDiagnosticWarning"
	}
}

func lineFlagLabel(sev transport.DiagnosticSeverity) string {
	switch sev {
	case transport.DiagnosticSeverityError:
		return "{LineFlagError}%opt[lsp_diagnostic_line_error_sign]"
	case transport.DiagnosticSeverityHint:
		return "{LineFlagHint}%opt[lsp_diagnostic_line_hint_sign]"
	case transport.DiagnosticSeverityInformation:
		return "{LineFlagInfo}%opt[lsp_diagnostic_line_info_sign]"
	default:
		return "{LineFlagWarning}%opt[lsp_diagnostic_line_warning_sign]"
	}
}
