package dispatch

import "github.com/simon-lentz/lspbroker/registry"

// ServerResult pairs a server with its response, or a nil Value when the
// server timed out, errored, or had no payload to send (Option<R> in the
// spec's vocabulary).
type ServerResult[R any] struct {
	Server registry.ServerId
	Value  *R
}

// Empty reports whether the result is the absent case.
func (r ServerResult[R]) Empty() bool { return r.Value == nil }
